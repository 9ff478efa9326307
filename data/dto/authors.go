package dto

import "github.com/emzola/circulation/data"

// CreateAuthorRequestBody defines the request body for CreateAuthor service.
type CreateAuthorRequestBody struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthYear *int32 `json:"birth_year"`
}

// UpdateAuthorRequestBody defines the request body for UpdateAuthor service.
// Nil fields are left unchanged; birth_year may be sent as null to clear it.
type UpdateAuthorRequestBody struct {
	FirstName *string         `json:"first_name"`
	LastName  *string         `json:"last_name"`
	BirthYear Nullable[int32] `json:"birth_year"`
}

// QsListAuthors defines the query strings used for listing authors.
type QsListAuthors struct {
	Search  string
	Filters data.Filters
}
