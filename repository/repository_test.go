package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the database named by LIBRARY_TEST_DSN, applies
// the schema and empties every table. Tests are skipped when no database
// is available.
func setupTestDB(t *testing.T) *repository {
	t.Helper()
	dsn := os.Getenv("LIBRARY_TEST_DSN")
	if dsn == "" {
		t.Skip("LIBRARY_TEST_DSN not set; skipping PostgreSQL tests")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("database not reachable: %v", err)
	}
	_, err = migrations.Apply(ctx, db)
	require.NoError(t, err)
	truncate := func() {
		_, err := db.Exec(`TRUNCATE borrows, books, authors, tokens, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		db.Close()
	})
	return New(db)
}

func int32Ptr(n int32) *int32 { return &n }

func seedUser(t *testing.T, r *repository, username string, staff bool) *data.User {
	t.Helper()
	u := &data.User{Username: username, Staff: staff}
	require.NoError(t, u.Password.Set("pa55word!"))
	require.NoError(t, r.RegisterUser(context.Background(), u))
	return u
}

func seedBook(t *testing.T, r *repository, bookID string) *data.Book {
	t.Helper()
	ctx := context.Background()
	a := &data.Author{FirstName: "Leo", LastName: "Tolstoy", BirthYear: int32Ptr(1828)}
	if err := r.CreateAuthor(ctx, a); err != nil {
		require.ErrorIs(t, err, ErrDuplicateRecord)
		list, _, err := r.GetAllAuthors(ctx, "Tolstoy", data.Filters{Page: 1, PageSize: 5, Sort: "last_name", SortSafeList: []string{"last_name"}})
		require.NoError(t, err)
		a = list[0]
	}
	b := &data.Book{Title: "War and Peace", Author: a.ID, BookID: bookID, Pages: int32Ptr(1225)}
	require.NoError(t, r.CreateBook(ctx, b))
	return b
}

func TestAuthorConstraints(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()

	tolstoy := &data.Author{FirstName: "Leo", LastName: "Tolstoy", BirthYear: int32Ptr(1828)}
	require.NoError(t, r.CreateAuthor(ctx, tolstoy))

	t.Run("duplicate triple", func(t *testing.T) {
		err := r.CreateAuthor(ctx, &data.Author{FirstName: "Leo", LastName: "Tolstoy", BirthYear: int32Ptr(1828)})
		require.ErrorIs(t, err, ErrDuplicateRecord)
		assert.Equal(t, ConstraintAuthorIdentity, Constraint(err))
	})

	t.Run("different birth year is a different author", func(t *testing.T) {
		require.NoError(t, r.CreateAuthor(ctx, &data.Author{FirstName: "Leo", LastName: "Tolstoy", BirthYear: int32Ptr(1900)}))
	})

	t.Run("undated authors collide", func(t *testing.T) {
		require.NoError(t, r.CreateAuthor(ctx, &data.Author{FirstName: "Anon", LastName: "Ymous"}))
		err := r.CreateAuthor(ctx, &data.Author{FirstName: "Anon", LastName: "Ymous"})
		assert.ErrorIs(t, err, ErrDuplicateRecord)
	})

	t.Run("stale update is an edit conflict", func(t *testing.T) {
		stale := *tolstoy
		tolstoy.FirstName = "Lev"
		require.NoError(t, r.UpdateAuthor(ctx, tolstoy))
		stale.LastName = "Tolstoi"
		assert.ErrorIs(t, r.UpdateAuthor(ctx, &stale), ErrEditConflict)
	})

	t.Run("delete blocked by book", func(t *testing.T) {
		b := &data.Book{Title: "Anna Karenina", Author: tolstoy.ID, BookID: "ANNA-001"}
		require.NoError(t, r.CreateBook(ctx, b))
		err := r.DeleteAuthor(ctx, tolstoy.ID)
		require.ErrorIs(t, err, ErrReferencedRecord)
		assert.Equal(t, ConstraintBookAuthor, Constraint(err))

		_, err = r.GetAuthor(ctx, tolstoy.ID)
		assert.NoError(t, err)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.ErrorIs(t, r.DeleteAuthor(ctx, 9999), ErrRecordNotFound)
	})
}

func TestBookConstraints(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	war := seedBook(t, r, "WAR-PEACE-001")

	t.Run("duplicate book id", func(t *testing.T) {
		err := r.CreateBook(ctx, &data.Book{Title: "Copy", Author: war.Author, BookID: "WAR-PEACE-001"})
		require.ErrorIs(t, err, ErrDuplicateRecord)
		assert.Equal(t, ConstraintBookID, Constraint(err))
	})

	t.Run("book id is case sensitive", func(t *testing.T) {
		require.NoError(t, r.CreateBook(ctx, &data.Book{Title: "Copy", Author: war.Author, BookID: "war-peace-001"}))
	})

	t.Run("zero pages", func(t *testing.T) {
		err := r.CreateBook(ctx, &data.Book{Title: "Thin", Author: war.Author, BookID: "THIN-1", Pages: int32Ptr(0)})
		require.ErrorIs(t, err, ErrCheckViolation)
		assert.Equal(t, ConstraintBookPages, Constraint(err))
	})

	t.Run("unknown author", func(t *testing.T) {
		err := r.CreateBook(ctx, &data.Book{Title: "Orphan", Author: 9999, BookID: "ORPHAN-1"})
		require.ErrorIs(t, err, ErrInvalidReference)
		assert.Equal(t, ConstraintBookAuthor, Constraint(err))
	})

	t.Run("update to unused book id", func(t *testing.T) {
		war.BookID = "WAR-PEACE-002"
		require.NoError(t, r.UpdateBook(ctx, war))
		got, err := r.GetBook(ctx, war.ID)
		require.NoError(t, err)
		assert.Equal(t, "WAR-PEACE-002", got.BookID)
		assert.Equal(t, int32(1225), *got.Pages)
		assert.Nil(t, got.PublishedYear)
	})

	t.Run("list filters and escapes wildcards", func(t *testing.T) {
		require.NoError(t, r.CreateBook(ctx, &data.Book{Title: "100% Pure", Author: war.Author, BookID: "PURE-1", Genre: "Essay"}))
		filters := data.Filters{Page: 1, PageSize: 5, Sort: "title", SortSafeList: data.SortSafeList("title")}

		list, meta, err := r.GetAllBooks(ctx, "%", "", "", "", 0, filters)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "PURE-1", list[0].BookID)
		assert.Equal(t, 1, meta.TotalRecords)

		list, _, err = r.GetAllBooks(ctx, "", "", "", "tolstoy", 0, filters)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		list, _, err = r.GetAllBooks(ctx, "", "essay", "", "", war.Author, filters)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestBorrowLedger(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	book := seedBook(t, r, "LEDGER-1")
	reader := seedUser(t, r, "reader", false)
	due := time.Now().Add(14 * 24 * time.Hour)

	first := &data.Borrow{User: reader.ID, Book: book.ID, DueAt: due}
	require.NoError(t, r.CreateBorrow(ctx, first))
	assert.True(t, first.Active())
	assert.False(t, first.BorrowedAt.IsZero())

	t.Run("second active borrow rejected", func(t *testing.T) {
		err := r.CreateBorrow(ctx, &data.Borrow{User: reader.ID, Book: book.ID, DueAt: due})
		require.ErrorIs(t, err, ErrActiveBorrowExists)
		assert.Equal(t, ConstraintActiveBorrow, Constraint(err))
	})

	t.Run("due date before borrow rejected", func(t *testing.T) {
		other := seedBook(t, r, "LEDGER-2")
		err := r.CreateBorrow(ctx, &data.Borrow{User: reader.ID, Book: other.ID, DueAt: time.Now().Add(-time.Hour)})
		require.ErrorIs(t, err, ErrCheckViolation)
		assert.Equal(t, ConstraintBorrowDueAt, Constraint(err))
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		other := seedBook(t, r, "LEDGER-3")
		err := r.CreateBorrow(ctx, &data.Borrow{User: 9999, Book: other.ID, DueAt: due})
		require.ErrorIs(t, err, ErrInvalidReference)
		assert.Equal(t, ConstraintBorrowUser, Constraint(err))
	})

	t.Run("return twice", func(t *testing.T) {
		closed, err := r.CloseBorrow(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, closed.ReturnedAt)

		_, err = r.CloseBorrow(ctx, first.ID)
		assert.ErrorIs(t, err, ErrAlreadyReturned)

		again, err := r.GetBorrow(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, closed.ReturnedAt.Equal(*again.ReturnedAt))
	})

	t.Run("closed borrow cannot be reopened", func(t *testing.T) {
		_, err := r.db.ExecContext(ctx, `UPDATE borrows SET returned_at = NULL WHERE id = $1`, first.ID)
		assert.ErrorIs(t, translateWrite(err), ErrAlreadyReturned)
	})

	t.Run("returned book can be borrowed again", func(t *testing.T) {
		require.NoError(t, r.CreateBorrow(ctx, &data.Borrow{User: reader.ID, Book: book.ID, DueAt: due}))
	})

	t.Run("close missing borrow", func(t *testing.T) {
		_, err := r.CloseBorrow(ctx, 9999)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("book with history cannot be deleted", func(t *testing.T) {
		err := r.DeleteBook(ctx, book.ID)
		require.ErrorIs(t, err, ErrReferencedRecord)
		assert.Equal(t, ConstraintBorrowBook, Constraint(err))
	})

	t.Run("list scoped by user and state", func(t *testing.T) {
		other := seedUser(t, r, "other", false)
		spare := seedBook(t, r, "LEDGER-4")
		require.NoError(t, r.CreateBorrow(ctx, &data.Borrow{User: other.ID, Book: spare.ID, DueAt: due}))

		filters := data.Filters{Page: 1, PageSize: 5, Sort: "-borrowed_at", SortSafeList: data.SortSafeList("borrowed_at")}
		mine, meta, err := r.GetAllBorrows(ctx, reader.ID, 0, nil, filters)
		require.NoError(t, err)
		assert.Len(t, mine, 2)
		assert.Equal(t, 2, meta.TotalRecords)
		for _, b := range mine {
			assert.Equal(t, reader.ID, b.User)
		}

		active := true
		open, _, err := r.GetAllBorrows(ctx, 0, 0, &active, filters)
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})
}

// TestConcurrentBorrowsAllowExactlyOne races inserts against the partial
// unique index itself; it needs LIBRARY_TEST_DSN.
func TestConcurrentBorrowsAllowExactlyOne(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	book := seedBook(t, r, "RACE-1")
	reader := seedUser(t, r, "racer", false)
	due := time.Now().Add(24 * time.Hour)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := r.CreateBorrow(ctx, &data.Borrow{User: reader.ID, Book: book.ID, DueAt: due})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrActiveBorrowExists):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	var active int
	require.NoError(t, r.db.QueryRow(`SELECT count(*) FROM borrows WHERE book_id = $1 AND returned_at IS NULL`, book.ID).Scan(&active))
	assert.Equal(t, 1, active)
}

func TestUsersAndTokens(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	ada := seedUser(t, r, "ada", false)

	t.Run("duplicate username", func(t *testing.T) {
		u := &data.User{Username: "ada"}
		require.NoError(t, u.Password.Set("pa55word!"))
		err := r.RegisterUser(ctx, u)
		require.ErrorIs(t, err, ErrDuplicateRecord)
		assert.Equal(t, ConstraintUsername, Constraint(err))
	})

	t.Run("token lookup", func(t *testing.T) {
		token, err := r.CreateNewToken(ctx, ada.ID, time.Hour, data.ScopeAuthentication)
		require.NoError(t, err)
		got, err := r.GetUserForToken(ctx, data.ScopeAuthentication, token.Plaintext)
		require.NoError(t, err)
		assert.Equal(t, ada.ID, got.ID)

		require.NoError(t, r.DeleteAllTokensForUser(ctx, data.ScopeAuthentication, ada.ID))
		_, err = r.GetUserForToken(ctx, data.ScopeAuthentication, token.Plaintext)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("promote to staff", func(t *testing.T) {
		ada.Staff = true
		require.NoError(t, r.UpdateUser(ctx, ada))
		got, err := r.GetUserByUsername(ctx, "ada")
		require.NoError(t, err)
		assert.True(t, got.Staff)
	})
}
