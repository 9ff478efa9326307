package service

import (
	"context"
	"errors"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/data/dto"
	"github.com/emzola/circulation/internal/validator"
	"github.com/emzola/circulation/policy"
	"github.com/emzola/circulation/repository"
	"go.opentelemetry.io/otel/attribute"
)

type books interface {
	CreateBook(ctx context.Context, actor policy.Actor, requestBody dto.CreateBookRequestBody) (*data.Book, error)
	GetBook(ctx context.Context, actor policy.Actor, bookID int64) (*data.Book, error)
	ListBooks(ctx context.Context, actor policy.Actor, qs dto.QsListBooks) ([]*data.Book, data.Metadata, error)
	UpdateBook(ctx context.Context, actor policy.Actor, bookID int64, requestBody dto.UpdateBookRequestBody) (*data.Book, error)
	DeleteBook(ctx context.Context, actor policy.Actor, bookID int64) error
}

// CreateBook service adds a book to the catalog.
func (s *service) CreateBook(ctx context.Context, actor policy.Actor, requestBody dto.CreateBookRequestBody) (book *data.Book, err error) {
	ctx, span := s.startSpan(ctx, "service.CreateBook", actor)
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionCreate, policy.ResourceBook, nil)
	if err != nil {
		return nil, err
	}
	book = &data.Book{
		Title:         requestBody.Title,
		Author:        requestBody.Author,
		BookID:        requestBody.BookID,
		PublishedYear: requestBody.PublishedYear,
		Pages:         requestBody.Pages,
		Genre:         requestBody.Genre,
		Description:   requestBody.Description,
	}
	data.NormalizeBook(book)
	v := validator.New()
	if data.ValidateBook(v, book, s.now()); !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	err = s.repo.CreateBook(ctx, book)
	if err != nil {
		return nil, bookWriteError(err)
	}
	return book, nil
}

// GetBook service retrieves the details of a book.
func (s *service) GetBook(ctx context.Context, actor policy.Actor, bookID int64) (*data.Book, error) {
	err := authorize(actor, policy.ActionRead, policy.ResourceBook, nil)
	if err != nil {
		return nil, err
	}
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return book, nil
}

// ListBooks service retrieves a paginated list of books. The list can be
// filtered and sorted.
func (s *service) ListBooks(ctx context.Context, actor policy.Actor, qs dto.QsListBooks) ([]*data.Book, data.Metadata, error) {
	err := authorize(actor, policy.ActionList, policy.ResourceBook, nil)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	v := validator.New()
	if data.ValidateFilters(v, qs.Filters); !v.Valid() {
		return nil, data.Metadata{}, failedValidation(v.Errors)
	}
	return s.repo.GetAllBooks(ctx, qs.Title, qs.Genre, qs.BookID, qs.Search, qs.Author, qs.Filters)
}

// UpdateBook service updates the details of a specific book.
func (s *service) UpdateBook(ctx context.Context, actor policy.Actor, bookID int64, requestBody dto.UpdateBookRequestBody) (book *data.Book, err error) {
	ctx, span := s.startSpan(ctx, "service.UpdateBook", actor, attribute.Int64("book.id", bookID))
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionUpdate, policy.ResourceBook, nil)
	if err != nil {
		return nil, err
	}
	book, err = s.repo.GetBook(ctx, bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	// Update only fields with new data
	if requestBody.Title != nil {
		book.Title = *requestBody.Title
	}
	if requestBody.Author != nil {
		book.Author = *requestBody.Author
	}
	if requestBody.BookID != nil {
		book.BookID = *requestBody.BookID
	}
	requestBody.PublishedYear.Apply(&book.PublishedYear)
	requestBody.Pages.Apply(&book.Pages)
	if requestBody.Genre != nil {
		book.Genre = *requestBody.Genre
	}
	if requestBody.Description != nil {
		book.Description = *requestBody.Description
	}
	data.NormalizeBook(book)
	v := validator.New()
	if data.ValidateBook(v, book, s.now()); !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	err = s.repo.UpdateBook(ctx, book)
	if err != nil {
		return nil, bookWriteError(err)
	}
	return book, nil
}

// DeleteBook service removes a book that has never been borrowed.
func (s *service) DeleteBook(ctx context.Context, actor policy.Actor, bookID int64) (err error) {
	ctx, span := s.startSpan(ctx, "service.DeleteBook", actor, attribute.Int64("book.id", bookID))
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionDelete, policy.ResourceBook, nil)
	if err != nil {
		return err
	}
	err = s.repo.DeleteBook(ctx, bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return ErrRecordNotFound
		case errors.Is(err, repository.ErrReferencedRecord):
			return ErrReferencedRecord
		default:
			return err
		}
	}
	return nil
}

func bookWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateRecord):
		return fieldError("book_id", "a book with this book_id already exists", ErrConflict)
	case errors.Is(err, repository.ErrInvalidReference):
		return fieldError("author", "does not exist", nil)
	case errors.Is(err, repository.ErrCheckViolation):
		switch repository.Constraint(err) {
		case repository.ConstraintBookPages:
			return fieldError("pages", "must be greater than zero", nil)
		case repository.ConstraintPublishedYear:
			return fieldError("published_year", "must be 1400 or later", nil)
		default:
			return fieldError("book_id", "must be provided", nil)
		}
	case errors.Is(err, repository.ErrEditConflict):
		return ErrEditConflict
	case errors.Is(err, repository.ErrRecordNotFound):
		return ErrRecordNotFound
	default:
		return err
	}
}
