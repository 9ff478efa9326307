package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/emzola/circulation/data"
)

type books interface {
	CreateBook(ctx context.Context, book *data.Book) error
	GetBook(ctx context.Context, ID int64) (*data.Book, error)
	GetAllBooks(ctx context.Context, title, genre, bookID, search string, authorID int64, filters data.Filters) ([]*data.Book, data.Metadata, error)
	UpdateBook(ctx context.Context, book *data.Book) error
	DeleteBook(ctx context.Context, ID int64) error
}

type bookRow struct {
	TotalRecords  int    `db:"total_records"`
	ID            int64  `db:"id"`
	Title         string `db:"title"`
	AuthorID      int64  `db:"author_id"`
	BookID        string `db:"book_id"`
	PublishedYear *int32 `db:"published_year"`
	Pages         *int32 `db:"pages"`
	Genre         string `db:"genre"`
	Description   string `db:"description"`
	Version       int32  `db:"version"`
}

func (r bookRow) book() *data.Book {
	return &data.Book{
		ID:            r.ID,
		Title:         r.Title,
		Author:        r.AuthorID,
		BookID:        r.BookID,
		PublishedYear: r.PublishedYear,
		Pages:         r.Pages,
		Genre:         r.Genre,
		Description:   r.Description,
		Version:       r.Version,
	}
}

// CreateBook creates a new book record. A duplicate book_id fails with
// ErrDuplicateRecord; an unknown author with ErrInvalidReference.
func (r *repository) CreateBook(ctx context.Context, book *data.Book) error {
	query := `
		INSERT INTO books (title, author_id, book_id, published_year, pages, genre, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version`
	args := []any{book.Title, book.Author, book.BookID, book.PublishedYear, book.Pages, book.Genre, book.Description}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&book.ID, &book.Version)
	if err != nil {
		return translateWrite(err)
	}
	return nil
}

// GetBook retrieves a book record by its ID.
func (r *repository) GetBook(ctx context.Context, ID int64) (*data.Book, error) {
	if ID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `
		SELECT id, title, author_id, book_id, published_year, pages, genre, description, version
		FROM books
		WHERE id = $1`
	var book data.Book
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, ID).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.BookID,
		&book.PublishedYear,
		&book.Pages,
		&book.Genre,
		&book.Description,
		&book.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &book, nil
}

// GetAllBooks retrieves a paginated list of books. title, genre and bookID
// are case-insensitive substring filters; search matches any of them or the
// author's names.
func (r *repository) GetAllBooks(ctx context.Context, title, genre, bookID, search string, authorID int64, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	books := goqu.T("books")
	ds := dialect.From(books).Select(
		totalRecords(),
		books.Col("id"), books.Col("title"), books.Col("author_id"), books.Col("book_id"),
		books.Col("published_year"), books.Col("pages"), books.Col("genre"), books.Col("description"),
		books.Col("version"),
	)
	if title != "" {
		ds = ds.Where(books.Col("title").ILike(contains(title)))
	}
	if genre != "" {
		ds = ds.Where(books.Col("genre").ILike(contains(genre)))
	}
	if bookID != "" {
		ds = ds.Where(books.Col("book_id").ILike(contains(bookID)))
	}
	if authorID > 0 {
		ds = ds.Where(books.Col("author_id").Eq(authorID))
	}
	if search != "" {
		authors := goqu.T("authors")
		pattern := contains(search)
		ds = ds.InnerJoin(authors, goqu.On(authors.Col("id").Eq(books.Col("author_id")))).
			Where(goqu.Or(
				books.Col("title").ILike(pattern),
				books.Col("genre").ILike(pattern),
				books.Col("book_id").ILike(pattern),
				authors.Col("first_name").ILike(pattern),
				authors.Col("last_name").ILike(pattern),
			))
	}
	query, args, err := orderAndPage(ds, "books", filters).Prepared(true).ToSQL()
	if err != nil {
		return nil, data.Metadata{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var rows []bookRow
	err = r.dbx.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	total := 0
	list := make([]*data.Book, 0, len(rows))
	for _, row := range rows {
		total = row.TotalRecords
		list = append(list, row.book())
	}
	metadata := data.CalculateMetadata(total, filters.Page, filters.PageSize)
	return list, metadata, nil
}

// UpdateBook updates a book record, guarded by its version.
func (r *repository) UpdateBook(ctx context.Context, book *data.Book) error {
	query := `
		UPDATE books
		SET title = $1, author_id = $2, book_id = $3, published_year = $4, pages = $5, genre = $6, description = $7, version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING version`
	args := []any{
		book.Title,
		book.Author,
		book.BookID,
		book.PublishedYear,
		book.Pages,
		book.Genre,
		book.Description,
		book.ID,
		book.Version,
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&book.Version)
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

// DeleteBook deletes a book record. Books with any borrow history fail
// with ErrReferencedRecord.
func (r *repository) DeleteBook(ctx context.Context, ID int64) error {
	if ID < 1 {
		return ErrRecordNotFound
	}
	query := `
		DELETE FROM books
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
