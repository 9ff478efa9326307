package service

import (
	"context"
	"errors"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/data/dto"
	"github.com/emzola/circulation/internal/validator"
	"github.com/emzola/circulation/policy"
	"github.com/emzola/circulation/repository"
)

type users interface {
	RegisterUser(ctx context.Context, requestBody dto.RegisterUserRequestBody) (*data.User, error)
	GetCurrentUser(ctx context.Context, actor policy.Actor) (*data.User, error)
	GetUserForToken(ctx context.Context, tokenPlaintext string) (*data.User, error)
	EnsureStaffUser(ctx context.Context, username, email, password string) (*data.User, bool, error)
}

// RegisterUser service registers a new, non-staff user.
func (s *service) RegisterUser(ctx context.Context, requestBody dto.RegisterUserRequestBody) (*data.User, error) {
	user := &data.User{
		Username:  requestBody.Username,
		Email:     requestBody.Email,
		FirstName: requestBody.FirstName,
		LastName:  requestBody.LastName,
	}
	err := user.Password.Set(requestBody.Password)
	if err != nil {
		return nil, err
	}
	v := validator.New()
	data.ValidateUser(v, user)
	v.Check(requestBody.Password2 == requestBody.Password, "password2", "password fields didn't match")
	if !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	err = s.repo.RegisterUser(ctx, user)
	if err != nil {
		return nil, userWriteError(err)
	}
	if user.Email != "" {
		s.sendMail(user.Email, "user_welcome.tmpl", map[string]any{
			"ID":        user.ID,
			"Username":  user.Username,
			"FirstName": user.FirstName,
		})
	}
	return user, nil
}

// GetCurrentUser service returns the user the actor is authenticated as.
func (s *service) GetCurrentUser(ctx context.Context, actor policy.Actor) (*data.User, error) {
	if actor == nil || actor.IsAnonymous() {
		return nil, ErrAuthenticationRequired
	}
	user, err := s.repo.GetUserByID(ctx, actor.Identity())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return user, nil
}

// GetUserForToken service retrieves the user owning an authentication token.
// Malformed, unknown and expired tokens all yield ErrInvalidCredentials.
func (s *service) GetUserForToken(ctx context.Context, tokenPlaintext string) (*data.User, error) {
	v := validator.New()
	if data.ValidateTokenPlaintext(v, tokenPlaintext); !v.Valid() {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.GetUserForToken(ctx, data.ScopeAuthentication, tokenPlaintext)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}
	return user, nil
}

// EnsureStaffUser creates a staff account, or promotes the existing account
// with the same username. A non-empty password replaces the stored one.
// created reports whether a new account was made.
func (s *service) EnsureStaffUser(ctx context.Context, username, email, password string) (user *data.User, created bool, err error) {
	user, err = s.repo.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		user = &data.User{Username: username, Email: email, Staff: true}
		err = user.Password.Set(password)
		if err != nil {
			return nil, false, err
		}
		v := validator.New()
		if data.ValidateUser(v, user); !v.Valid() {
			return nil, false, failedValidation(v.Errors)
		}
		err = s.repo.RegisterUser(ctx, user)
		if err != nil {
			return nil, false, userWriteError(err)
		}
		return user, true, nil
	case err != nil:
		return nil, false, err
	}
	user.Staff = true
	if email != "" {
		user.Email = email
	}
	if password != "" {
		err = user.Password.Set(password)
		if err != nil {
			return nil, false, err
		}
	}
	v := validator.New()
	if data.ValidateUser(v, user); !v.Valid() {
		return nil, false, failedValidation(v.Errors)
	}
	err = s.repo.UpdateUser(ctx, user)
	if err != nil {
		return nil, false, userWriteError(err)
	}
	return user, false, nil
}

func userWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateRecord):
		if repository.Constraint(err) == repository.ConstraintEmail {
			return fieldError("email", "a user with this email address already exists", ErrConflict)
		}
		return fieldError("username", "a user with that username already exists", ErrConflict)
	case errors.Is(err, repository.ErrEditConflict):
		return ErrEditConflict
	default:
		return err
	}
}
