package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrEditConflict       = errors.New("edit conflict")
	ErrDuplicateRecord    = errors.New("duplicate record")
	ErrReferencedRecord   = errors.New("record is still referenced")
	ErrInvalidReference   = errors.New("referenced record does not exist")
	ErrActiveBorrowExists = errors.New("book is already on loan")
	ErrAlreadyReturned    = errors.New("borrow already returned")
	ErrCheckViolation     = errors.New("check constraint violated")
)

// Names of the constraints the service layer maps onto request fields.
const (
	ConstraintUsername        = "users_username_key"
	ConstraintEmail           = "users_email_key"
	ConstraintAuthorIdentity  = "authors_name_birth_year_key"
	ConstraintBookID          = "books_book_id_key"
	ConstraintBookAuthor      = "books_author_id_fkey"
	ConstraintBookPages       = "books_pages_check"
	ConstraintBorrowBook      = "borrows_book_id_fkey"
	ConstraintBorrowUser      = "borrows_user_id_fkey"
	ConstraintActiveBorrow    = "borrows_active_book_key"
	ConstraintBorrowDueAt     = "borrows_due_after_borrowed"
	ConstraintClosedBorrow    = "borrows_closed_immutable"
	ConstraintBookIDNotBlank  = "books_book_id_check"
	ConstraintPublishedYear   = "books_published_year_check"
	ConstraintAuthorBirthYear = "authors_birth_year_check"
)

// ConstraintError reports a write rejected by a database constraint. Err
// is one of the package sentinels.
type ConstraintError struct {
	Constraint string
	Err        error
	cause      *pq.Error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s (constraint %s)", e.Err, e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Detail returns the server's detail message, if any.
func (e *ConstraintError) Detail() string {
	if e.cause == nil {
		return ""
	}
	return e.cause.Detail
}

// Constraint returns the constraint name carried by err, or "".
func Constraint(err error) string {
	var cErr *ConstraintError
	if errors.As(err, &cErr) {
		return cErr.Constraint
	}
	return ""
}

// translateWrite maps a PostgreSQL integrity error raised by an INSERT or
// UPDATE onto the package sentinels. Other errors pass through.
func translateWrite(err error) error {
	return translate(err, ErrInvalidReference)
}

// translateDelete is translateWrite for DELETE statements, where a foreign
// key violation means a dependent row still points at the target.
func translateDelete(err error) error {
	return translate(err, ErrReferencedRecord)
}

func translate(err error, foreignKey error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	var sentinel error
	switch pqErr.Code.Name() {
	case "unique_violation":
		sentinel = ErrDuplicateRecord
		if pqErr.Constraint == ConstraintActiveBorrow {
			sentinel = ErrActiveBorrowExists
		}
	case "foreign_key_violation":
		sentinel = foreignKey
	case "check_violation":
		sentinel = ErrCheckViolation
		if pqErr.Constraint == ConstraintClosedBorrow {
			sentinel = ErrAlreadyReturned
		}
	default:
		return err
	}
	return &ConstraintError{Constraint: pqErr.Constraint, Err: sentinel, cause: pqErr}
}
