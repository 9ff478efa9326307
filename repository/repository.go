package repository

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// queryTimeout bounds every single statement issued by the repository.
const queryTimeout = 3 * time.Second

// Repository is the persistence contract of the application. Every
// uniqueness and referential rule is enforced by the database itself.
type Repository interface {
	authors
	books
	borrows
	users
	tokens
}

// repository implements Repository on PostgreSQL.
type repository struct {
	db  *sql.DB
	dbx *sqlx.DB
}

// New creates a new instance of Repository.
func New(db *sql.DB) *repository {
	return &repository{
		db:  db,
		dbx: sqlx.NewDb(db, "postgres"),
	}
}
