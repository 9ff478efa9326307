package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/emzola/circulation/data"
)

type authors interface {
	CreateAuthor(ctx context.Context, author *data.Author) error
	GetAuthor(ctx context.Context, ID int64) (*data.Author, error)
	GetAllAuthors(ctx context.Context, search string, filters data.Filters) ([]*data.Author, data.Metadata, error)
	UpdateAuthor(ctx context.Context, author *data.Author) error
	DeleteAuthor(ctx context.Context, ID int64) error
}

type authorRow struct {
	TotalRecords int    `db:"total_records"`
	ID           int64  `db:"id"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	BirthYear    *int32 `db:"birth_year"`
	Version      int32  `db:"version"`
}

func (r authorRow) author() *data.Author {
	return &data.Author{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		BirthYear: r.BirthYear,
		Version:   r.Version,
	}
}

// CreateAuthor creates a new author record. A second author with the same
// first name, last name and birth year fails with ErrDuplicateRecord.
func (r *repository) CreateAuthor(ctx context.Context, author *data.Author) error {
	query := `
		INSERT INTO authors (first_name, last_name, birth_year)
		VALUES ($1, $2, $3)
		RETURNING id, version`
	args := []any{author.FirstName, author.LastName, author.BirthYear}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&author.ID, &author.Version)
	if err != nil {
		return translateWrite(err)
	}
	return nil
}

// GetAuthor retrieves an author record by its ID.
func (r *repository) GetAuthor(ctx context.Context, ID int64) (*data.Author, error) {
	if ID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `
		SELECT id, first_name, last_name, birth_year, version
		FROM authors
		WHERE id = $1`
	var author data.Author
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, ID).Scan(
		&author.ID,
		&author.FirstName,
		&author.LastName,
		&author.BirthYear,
		&author.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &author, nil
}

// GetAllAuthors retrieves a paginated list of authors. search matches
// either name as a case-insensitive substring.
func (r *repository) GetAllAuthors(ctx context.Context, search string, filters data.Filters) ([]*data.Author, data.Metadata, error) {
	ds := dialect.From("authors").Select(
		totalRecords(),
		goqu.C("id"), goqu.C("first_name"), goqu.C("last_name"), goqu.C("birth_year"), goqu.C("version"),
	)
	if search != "" {
		pattern := contains(search)
		ds = ds.Where(goqu.Or(
			goqu.C("first_name").ILike(pattern),
			goqu.C("last_name").ILike(pattern),
		))
	}
	var secondary []string
	if filters.SortColumn() == "last_name" {
		secondary = []string{"first_name"}
	}
	query, args, err := orderAndPage(ds, "authors", filters, secondary...).Prepared(true).ToSQL()
	if err != nil {
		return nil, data.Metadata{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var rows []authorRow
	err = r.dbx.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	total := 0
	authors := make([]*data.Author, 0, len(rows))
	for _, row := range rows {
		total = row.TotalRecords
		authors = append(authors, row.author())
	}
	metadata := data.CalculateMetadata(total, filters.Page, filters.PageSize)
	return authors, metadata, nil
}

// UpdateAuthor updates an author record, guarded by its version.
func (r *repository) UpdateAuthor(ctx context.Context, author *data.Author) error {
	query := `
		UPDATE authors
		SET first_name = $1, last_name = $2, birth_year = $3, version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version`
	args := []any{author.FirstName, author.LastName, author.BirthYear, author.ID, author.Version}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&author.Version)
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

// DeleteAuthor deletes an author record. Authors that still have books
// fail with ErrReferencedRecord.
func (r *repository) DeleteAuthor(ctx context.Context, ID int64) error {
	if ID < 1 {
		return ErrRecordNotFound
	}
	query := `
		DELETE FROM authors
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	result, err := r.db.ExecContext(ctx, query, ID)
	if err != nil {
		return translateDelete(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
