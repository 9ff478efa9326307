package dto

import (
	"time"

	"github.com/emzola/circulation/data"
)

// CreateBorrowRequestBody defines the request body for CreateBorrow service.
// User names the beneficiary; when absent the target_user query string, then
// the acting librarian, is used.
type CreateBorrowRequestBody struct {
	Book  int64      `json:"book"`
	DueAt *time.Time `json:"due_at"`
	User  *int64     `json:"user"`
}

// QsCreateBorrow defines the query strings accepted when creating a borrow.
type QsCreateBorrow struct {
	TargetUser *int64
}

// QsListBorrows defines the query strings used for listing borrows.
type QsListBorrows struct {
	Active  *bool
	Book    int64
	User    int64
	Filters data.Filters
}
