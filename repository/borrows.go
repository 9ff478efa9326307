package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/emzola/circulation/data"
)

type borrows interface {
	CreateBorrow(ctx context.Context, borrow *data.Borrow) error
	GetBorrow(ctx context.Context, ID int64) (*data.Borrow, error)
	GetAllBorrows(ctx context.Context, userID, bookID int64, active *bool, filters data.Filters) ([]*data.Borrow, data.Metadata, error)
	CloseBorrow(ctx context.Context, ID int64) (*data.Borrow, error)
}

type borrowRow struct {
	TotalRecords int        `db:"total_records"`
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	BookID       int64      `db:"book_id"`
	BorrowedAt   time.Time  `db:"borrowed_at"`
	DueAt        time.Time  `db:"due_at"`
	ReturnedAt   *time.Time `db:"returned_at"`
}

func (r borrowRow) borrow() *data.Borrow {
	return &data.Borrow{
		ID:         r.ID,
		User:       r.UserID,
		Book:       r.BookID,
		BorrowedAt: r.BorrowedAt,
		DueAt:      r.DueAt,
		ReturnedAt: r.ReturnedAt,
	}
}

// CreateBorrow inserts a new active borrow. The partial unique index on
// active borrows makes the insert fail with ErrActiveBorrowExists when the
// book is already on loan, however many callers race for it.
func (r *repository) CreateBorrow(ctx context.Context, borrow *data.Borrow) error {
	query := `
		INSERT INTO borrows (user_id, book_id, due_at)
		VALUES ($1, $2, $3)
		RETURNING id, borrowed_at, returned_at`
	args := []any{borrow.User, borrow.Book, borrow.DueAt}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&borrow.ID, &borrow.BorrowedAt, &borrow.ReturnedAt)
	if err != nil {
		return translateWrite(err)
	}
	return nil
}

// GetBorrow retrieves a borrow record by its ID.
func (r *repository) GetBorrow(ctx context.Context, ID int64) (*data.Borrow, error) {
	if ID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `
		SELECT id, user_id, book_id, borrowed_at, due_at, returned_at
		FROM borrows
		WHERE id = $1`
	var borrow data.Borrow
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, ID).Scan(
		&borrow.ID,
		&borrow.User,
		&borrow.Book,
		&borrow.BorrowedAt,
		&borrow.DueAt,
		&borrow.ReturnedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &borrow, nil
}

// GetAllBorrows retrieves a paginated list of borrows. A zero userID or
// bookID matches every user or book; a nil active matches both states.
func (r *repository) GetAllBorrows(ctx context.Context, userID, bookID int64, active *bool, filters data.Filters) ([]*data.Borrow, data.Metadata, error) {
	ds := dialect.From("borrows").Select(
		totalRecords(),
		goqu.C("id"), goqu.C("user_id"), goqu.C("book_id"),
		goqu.C("borrowed_at"), goqu.C("due_at"), goqu.C("returned_at"),
	)
	if userID > 0 {
		ds = ds.Where(goqu.C("user_id").Eq(userID))
	}
	if bookID > 0 {
		ds = ds.Where(goqu.C("book_id").Eq(bookID))
	}
	if active != nil {
		if *active {
			ds = ds.Where(goqu.C("returned_at").IsNull())
		} else {
			ds = ds.Where(goqu.C("returned_at").IsNotNull())
		}
	}
	query, args, err := orderAndPage(ds, "borrows", filters).Prepared(true).ToSQL()
	if err != nil {
		return nil, data.Metadata{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var rows []borrowRow
	err = r.dbx.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	total := 0
	list := make([]*data.Borrow, 0, len(rows))
	for _, row := range rows {
		total = row.TotalRecords
		list = append(list, row.borrow())
	}
	metadata := data.CalculateMetadata(total, filters.Page, filters.PageSize)
	return list, metadata, nil
}

// CloseBorrow marks an active borrow as returned in a single statement.
// A borrow that is already closed fails with ErrAlreadyReturned and keeps
// its original return timestamp.
func (r *repository) CloseBorrow(ctx context.Context, ID int64) (*data.Borrow, error) {
	if ID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `
		UPDATE borrows
		SET returned_at = GREATEST(NOW(), borrowed_at)
		WHERE id = $1 AND returned_at IS NULL
		RETURNING id, user_id, book_id, borrowed_at, due_at, returned_at`
	var borrow data.Borrow
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, ID).Scan(
		&borrow.ID,
		&borrow.User,
		&borrow.Book,
		&borrow.BorrowedAt,
		&borrow.DueAt,
		&borrow.ReturnedAt,
	)
	if err == nil {
		return &borrow, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, translateWrite(err)
	}
	// Nothing was updated: either the borrow does not exist or it was
	// already closed.
	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM borrows WHERE id = $1)`, ID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRecordNotFound
	}
	return nil, ErrAlreadyReturned
}
