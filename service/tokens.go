package service

import (
	"context"
	"errors"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/internal/validator"
	"github.com/emzola/circulation/policy"
	"github.com/emzola/circulation/repository"
)

type tokens interface {
	CreateAuthenticationToken(ctx context.Context, username, password string) (*data.Token, error)
	DeleteAuthenticationToken(ctx context.Context, actor policy.Actor) error
}

// CreateAuthenticationToken service exchanges a username and password for a
// bearer token.
func (s *service) CreateAuthenticationToken(ctx context.Context, username, password string) (*data.Token, error) {
	v := validator.New()
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}
	match, err := user.Password.Matches(password)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return s.repo.CreateNewToken(ctx, user.ID, s.tokenTTL, data.ScopeAuthentication)
}

// DeleteAuthenticationToken deletes all authentication tokens of the actor.
func (s *service) DeleteAuthenticationToken(ctx context.Context, actor policy.Actor) error {
	if actor == nil || actor.IsAnonymous() {
		return ErrAuthenticationRequired
	}
	return s.repo.DeleteAllTokensForUser(ctx, data.ScopeAuthentication, actor.Identity())
}
