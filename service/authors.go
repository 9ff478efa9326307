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

type authors interface {
	CreateAuthor(ctx context.Context, actor policy.Actor, requestBody dto.CreateAuthorRequestBody) (*data.Author, error)
	GetAuthor(ctx context.Context, actor policy.Actor, authorID int64) (*data.Author, error)
	ListAuthors(ctx context.Context, actor policy.Actor, qs dto.QsListAuthors) ([]*data.Author, data.Metadata, error)
	UpdateAuthor(ctx context.Context, actor policy.Actor, authorID int64, requestBody dto.UpdateAuthorRequestBody) (*data.Author, error)
	DeleteAuthor(ctx context.Context, actor policy.Actor, authorID int64) error
}

// CreateAuthor service creates a new author.
func (s *service) CreateAuthor(ctx context.Context, actor policy.Actor, requestBody dto.CreateAuthorRequestBody) (author *data.Author, err error) {
	ctx, span := s.startSpan(ctx, "service.CreateAuthor", actor)
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionCreate, policy.ResourceAuthor, nil)
	if err != nil {
		return nil, err
	}
	author = &data.Author{
		FirstName: requestBody.FirstName,
		LastName:  requestBody.LastName,
		BirthYear: requestBody.BirthYear,
	}
	data.NormalizeAuthor(author)
	v := validator.New()
	if data.ValidateAuthor(v, author, s.now()); !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	err = s.repo.CreateAuthor(ctx, author)
	if err != nil {
		return nil, authorWriteError(err)
	}
	return author, nil
}

// GetAuthor service retrieves the details of an author.
func (s *service) GetAuthor(ctx context.Context, actor policy.Actor, authorID int64) (*data.Author, error) {
	err := authorize(actor, policy.ActionRead, policy.ResourceAuthor, nil)
	if err != nil {
		return nil, err
	}
	author, err := s.repo.GetAuthor(ctx, authorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return author, nil
}

// ListAuthors service retrieves a paginated list of authors, optionally
// narrowed by a search term matched against first and last names.
func (s *service) ListAuthors(ctx context.Context, actor policy.Actor, qs dto.QsListAuthors) ([]*data.Author, data.Metadata, error) {
	err := authorize(actor, policy.ActionList, policy.ResourceAuthor, nil)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	v := validator.New()
	if data.ValidateFilters(v, qs.Filters); !v.Valid() {
		return nil, data.Metadata{}, failedValidation(v.Errors)
	}
	return s.repo.GetAllAuthors(ctx, qs.Search, qs.Filters)
}

// UpdateAuthor service updates the details of a specific author.
func (s *service) UpdateAuthor(ctx context.Context, actor policy.Actor, authorID int64, requestBody dto.UpdateAuthorRequestBody) (author *data.Author, err error) {
	ctx, span := s.startSpan(ctx, "service.UpdateAuthor", actor, attribute.Int64("author.id", authorID))
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionUpdate, policy.ResourceAuthor, nil)
	if err != nil {
		return nil, err
	}
	author, err = s.repo.GetAuthor(ctx, authorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	if requestBody.FirstName != nil {
		author.FirstName = *requestBody.FirstName
	}
	if requestBody.LastName != nil {
		author.LastName = *requestBody.LastName
	}
	requestBody.BirthYear.Apply(&author.BirthYear)
	data.NormalizeAuthor(author)
	v := validator.New()
	if data.ValidateAuthor(v, author, s.now()); !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	err = s.repo.UpdateAuthor(ctx, author)
	if err != nil {
		return nil, authorWriteError(err)
	}
	return author, nil
}

// DeleteAuthor service deletes an author. Authors with books are kept.
func (s *service) DeleteAuthor(ctx context.Context, actor policy.Actor, authorID int64) (err error) {
	ctx, span := s.startSpan(ctx, "service.DeleteAuthor", actor, attribute.Int64("author.id", authorID))
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionDelete, policy.ResourceAuthor, nil)
	if err != nil {
		return err
	}
	err = s.repo.DeleteAuthor(ctx, authorID)
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

func authorWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateRecord):
		return fieldError("author", "an author with this first name, last name and birth year already exists", ErrConflict)
	case errors.Is(err, repository.ErrCheckViolation):
		return fieldError("birth_year", "must be between 1000 and the current year", nil)
	case errors.Is(err, repository.ErrEditConflict):
		return ErrEditConflict
	case errors.Is(err, repository.ErrRecordNotFound):
		return ErrRecordNotFound
	default:
		return err
	}
}
