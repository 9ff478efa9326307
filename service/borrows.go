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

type borrows interface {
	CreateBorrow(ctx context.Context, actor policy.Actor, requestBody dto.CreateBorrowRequestBody, qs dto.QsCreateBorrow) (*data.Borrow, error)
	GetBorrow(ctx context.Context, actor policy.Actor, borrowID int64) (*data.Borrow, error)
	ListBorrows(ctx context.Context, actor policy.Actor, qs dto.QsListBorrows) ([]*data.Borrow, data.Metadata, error)
	ReturnBorrow(ctx context.Context, actor policy.Actor, borrowID int64) (*data.Borrow, error)
}

// CreateBorrow service records a loan. The beneficiary is the user named in
// the request body, else the one named in the query string, else the acting
// librarian. At most one active borrow per book is enforced by storage.
func (s *service) CreateBorrow(ctx context.Context, actor policy.Actor, requestBody dto.CreateBorrowRequestBody, qs dto.QsCreateBorrow) (borrow *data.Borrow, err error) {
	ctx, span := s.startSpan(ctx, "service.CreateBorrow", actor, attribute.Int64("book.id", requestBody.Book))
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionCreate, policy.ResourceBorrow, nil)
	if err != nil {
		return nil, err
	}
	user, err := s.resolveBeneficiary(ctx, actor, requestBody.User, qs.TargetUser)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("borrow.user", user.ID))
	err = authorize(actor, policy.ActionCreate, policy.ResourceBorrow, &user.ID)
	if err != nil {
		return nil, err
	}
	borrow = &data.Borrow{
		User: user.ID,
		Book: requestBody.Book,
	}
	if requestBody.DueAt != nil {
		borrow.DueAt = *requestBody.DueAt
	}
	v := validator.New()
	if data.ValidateBorrow(v, borrow, s.now()); !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	book, err := s.repo.GetBook(ctx, borrow.Book)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, fieldError("book", "does not exist", nil)
		default:
			return nil, err
		}
	}
	err = s.repo.CreateBorrow(ctx, borrow)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrActiveBorrowExists):
			return nil, fieldError("book", "book is already on loan", ErrConflict)
		case errors.Is(err, repository.ErrCheckViolation):
			return nil, fieldError("due_at", "must be in the future", nil)
		case errors.Is(err, repository.ErrInvalidReference):
			if repository.Constraint(err) == repository.ConstraintBorrowUser {
				return nil, fieldError("user", "does not exist", nil)
			}
			return nil, fieldError("book", "does not exist", nil)
		default:
			return nil, err
		}
	}
	if user.Email != "" {
		s.sendMail(user.Email, "borrow_receipt.tmpl", map[string]any{
			"FirstName":  user.FirstName,
			"Title":      book.Title,
			"BookID":     book.BookID,
			"BorrowID":   borrow.ID,
			"BorrowedAt": borrow.BorrowedAt,
			"DueAt":      borrow.DueAt,
		})
	}
	return borrow, nil
}

// resolveBeneficiary picks the user a borrow is recorded for. An explicit
// identity that does not exist is a validation failure on "user".
func (s *service) resolveBeneficiary(ctx context.Context, actor policy.Actor, fromBody, fromQuery *int64) (*data.User, error) {
	target := fromBody
	if target == nil {
		target = fromQuery
	}
	if target == nil {
		return s.repo.GetUserByID(ctx, actor.Identity())
	}
	user, err := s.repo.GetUserByID(ctx, *target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, fieldError("user", "does not exist", nil)
		default:
			return nil, err
		}
	}
	return user, nil
}

// GetBorrow service retrieves a borrow. Borrows of other users are reported
// as not found unless the actor is staff.
func (s *service) GetBorrow(ctx context.Context, actor policy.Actor, borrowID int64) (*data.Borrow, error) {
	err := authorize(actor, policy.ActionRead, policy.ResourceBorrow, nil)
	if err != nil {
		return nil, err
	}
	borrow, err := s.repo.GetBorrow(ctx, borrowID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	err = authorize(actor, policy.ActionRead, policy.ResourceBorrow, &borrow.User)
	if err != nil {
		return nil, err
	}
	return borrow, nil
}

// ListBorrows service retrieves a paginated list of borrows visible to the
// actor.
func (s *service) ListBorrows(ctx context.Context, actor policy.Actor, qs dto.QsListBorrows) ([]*data.Borrow, data.Metadata, error) {
	err := authorize(actor, policy.ActionList, policy.ResourceBorrow, nil)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	v := validator.New()
	if data.ValidateFilters(v, qs.Filters); !v.Valid() {
		return nil, data.Metadata{}, failedValidation(v.Errors)
	}
	userID := qs.User
	if owner, restricted := policy.VisibleOwner(actor, policy.ResourceBorrow); restricted {
		if userID != 0 && userID != owner {
			return []*data.Borrow{}, data.Metadata{}, nil
		}
		userID = owner
	}
	return s.repo.GetAllBorrows(ctx, userID, qs.Book, qs.Active, qs.Filters)
}

// ReturnBorrow service closes an active borrow. A borrow is returned once;
// later attempts fail validation and leave returned_at unchanged.
func (s *service) ReturnBorrow(ctx context.Context, actor policy.Actor, borrowID int64) (borrow *data.Borrow, err error) {
	ctx, span := s.startSpan(ctx, "service.ReturnBorrow", actor, attribute.Int64("borrow.id", borrowID))
	defer func() { endSpan(span, err) }()

	err = authorize(actor, policy.ActionReturn, policy.ResourceBorrow, nil)
	if err != nil {
		return nil, err
	}
	borrow, err = s.repo.GetBorrow(ctx, borrowID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	err = authorize(actor, policy.ActionReturn, policy.ResourceBorrow, &borrow.User)
	if err != nil {
		return nil, err
	}
	borrow, err = s.repo.CloseBorrow(ctx, borrowID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyReturned):
			return nil, fieldError("book", "book already returned", ErrInvalidState)
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return borrow, nil
}
