package dto

import "github.com/emzola/circulation/data"

// CreateBookRequestBody defines the request body for CreateBook service.
type CreateBookRequestBody struct {
	Title         string `json:"title"`
	Author        int64  `json:"author"`
	BookID        string `json:"book_id"`
	PublishedYear *int32 `json:"published_year"`
	Pages         *int32 `json:"pages"`
	Genre         string `json:"genre"`
	Description   string `json:"description"`
}

// UpdateBookRequestBody defines the request body for UpdateBook service. The fields are
// pointers so that a partial update only touches the fields that were sent.
// published_year and pages may be sent as null to clear them.
type UpdateBookRequestBody struct {
	Title         *string         `json:"title"`
	Author        *int64          `json:"author"`
	BookID        *string         `json:"book_id"`
	PublishedYear Nullable[int32] `json:"published_year"`
	Pages         Nullable[int32] `json:"pages"`
	Genre         *string         `json:"genre"`
	Description   *string         `json:"description"`
}

// QsListBooks defines the query strings used for listing books. Text filters
// match substrings, case-insensitively.
type QsListBooks struct {
	Title   string
	Author  int64
	Genre   string
	BookID  string
	Search  string
	Filters data.Filters
}
