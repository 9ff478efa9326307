package data

import (
	"strings"
	"time"

	"github.com/emzola/circulation/internal/validator"
)

// MinBirthYear is the earliest accepted author birth year.
const MinBirthYear = 1000

// Author defines an author model.
type Author struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthYear *int32 `json:"birth_year"`
	Version   int32  `json:"-"`
}

// NormalizeAuthor trims surrounding whitespace from the names that make up
// an author's identity.
func NormalizeAuthor(author *Author) {
	author.FirstName = strings.TrimSpace(author.FirstName)
	author.LastName = strings.TrimSpace(author.LastName)
}

// ValidateAuthor checks the author fields. now supplies the current year.
func ValidateAuthor(v *validator.Validator, author *Author, now time.Time) {
	v.Check(validator.NotBlank(author.FirstName), "first_name", "must be provided")
	v.Check(len(author.FirstName) <= 120, "first_name", "must not be more than 120 bytes long")
	v.Check(validator.NotBlank(author.LastName), "last_name", "must be provided")
	v.Check(len(author.LastName) <= 120, "last_name", "must not be more than 120 bytes long")
	if author.BirthYear != nil {
		v.Check(*author.BirthYear >= MinBirthYear, "birth_year", "must be 1000 or later")
		v.Check(*author.BirthYear <= int32(now.Year()), "birth_year", "must not be in the future")
	}
}
