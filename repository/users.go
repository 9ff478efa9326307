package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"time"

	"github.com/emzola/circulation/data"
)

type users interface {
	RegisterUser(ctx context.Context, user *data.User) error
	GetUserByID(ctx context.Context, ID int64) (*data.User, error)
	GetUserByUsername(ctx context.Context, username string) (*data.User, error)
	UpdateUser(ctx context.Context, user *data.User) error
	GetUserForToken(ctx context.Context, tokenScope, tokenPlaintext string) (*data.User, error)
}

const userColumns = `users.id, users.created_at, users.username, users.email, users.first_name, users.last_name, users.password_hash, users.is_staff, users.version`

func scanUser(row *sql.Row) (*data.User, error) {
	var user data.User
	err := row.Scan(
		&user.ID,
		&user.CreatedAt,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Password.Hash,
		&user.Staff,
		&user.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &user, nil
}

// RegisterUser registers a new user. A taken username or email fails with
// ErrDuplicateRecord; Constraint tells which.
func (r *repository) RegisterUser(ctx context.Context, user *data.User) error {
	query := `
		INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, version`
	args := []any{user.Username, user.Email, user.FirstName, user.LastName, user.Password.Hash, user.Staff}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.Version,
	)
	if err != nil {
		return translateWrite(err)
	}
	return nil
}

// GetUserByID retrieves a user record by its ID.
func (r *repository) GetUserByID(ctx context.Context, ID int64) (*data.User, error) {
	if ID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.db.QueryRowContext(ctx, query, ID))
}

// GetUserByUsername retrieves a user record by its username.
func (r *repository) GetUserByUsername(ctx context.Context, username string) (*data.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// UpdateUser updates a user record, guarded by its version.
func (r *repository) UpdateUser(ctx context.Context, user *data.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, password_hash = $5, is_staff = $6, version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version`
	args := []any{
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password.Hash,
		user.Staff,
		user.ID,
		user.Version,
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&user.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return translateWrite(err)
		}
	}
	return nil
}

// GetUserForToken returns the user owning an unexpired token.
func (r *repository) GetUserForToken(ctx context.Context, tokenScope, tokenPlaintext string) (*data.User, error) {
	tokenHash := sha256.Sum256([]byte(tokenPlaintext))
	query := `
		SELECT ` + userColumns + `
		FROM users
		INNER JOIN tokens
		ON users.id = tokens.user_id
		WHERE tokens.hash = $1
		AND tokens.scope = $2
		AND tokens.expiry > $3`
	args := []any{tokenHash[:], tokenScope, time.Now()}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}
