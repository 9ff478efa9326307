package data

import (
	"strings"
	"time"

	"github.com/emzola/circulation/internal/validator"
)

// MinPublishedYear is the earliest accepted publication year.
const MinPublishedYear = 1400

// Book defines a book model. BookID is the external catalog identifier,
// distinct from the surrogate ID.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        int64  `json:"author"`
	BookID        string `json:"book_id"`
	PublishedYear *int32 `json:"published_year"`
	Pages         *int32 `json:"pages"`
	Genre         string `json:"genre"`
	Description   string `json:"description"`
	Version       int32  `json:"-"`
}

// NormalizeBook trims surrounding whitespace from the text fields that
// take part in lookups.
func NormalizeBook(book *Book) {
	book.BookID = strings.TrimSpace(book.BookID)
	book.Title = strings.TrimSpace(book.Title)
	book.Genre = strings.TrimSpace(book.Genre)
}

// ValidateBook checks the book fields. Publication years may run one year
// ahead of now to allow for announced titles.
func ValidateBook(v *validator.Validator, book *Book, now time.Time) {
	v.Check(validator.NotBlank(book.Title), "title", "must be provided")
	v.Check(len(book.Title) <= 255, "title", "must not be more than 255 bytes long")
	v.Check(book.Author > 0, "author", "must be provided")
	v.Check(validator.NotBlank(book.BookID), "book_id", "must be provided")
	v.Check(len(book.BookID) <= 50, "book_id", "must not be more than 50 bytes long")
	if book.PublishedYear != nil {
		v.Check(*book.PublishedYear >= MinPublishedYear, "published_year", "must be 1400 or later")
		v.Check(*book.PublishedYear <= int32(now.Year()+1), "published_year", "must not be later than next year")
	}
	if book.Pages != nil {
		v.Check(*book.Pages > 0, "pages", "must be greater than zero")
	}
	v.Check(len(book.Genre) <= 120, "genre", "must not be more than 120 bytes long")
	v.Check(len(book.Description) <= 10_000, "description", "must not be more than 10000 bytes long")
}
