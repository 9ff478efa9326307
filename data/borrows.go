package data

import (
	"time"

	"github.com/emzola/circulation/internal/validator"
)

// Borrow records a single loan of a book to a user. A borrow is active
// until ReturnedAt is set, and ReturnedAt is set at most once.
type Borrow struct {
	ID         int64      `json:"id"`
	User       int64      `json:"user"`
	Book       int64      `json:"book"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
}

// Active reports whether the book is still on loan.
func (b *Borrow) Active() bool {
	return b.ReturnedAt == nil
}

// ValidateBorrow checks a borrow about to be created at now.
func ValidateBorrow(v *validator.Validator, borrow *Borrow, now time.Time) {
	v.Check(borrow.Book > 0, "book", "must be provided")
	v.Check(!borrow.DueAt.IsZero(), "due_at", "must be provided")
	v.Check(borrow.DueAt.After(now), "due_at", "must be in the future")
}
