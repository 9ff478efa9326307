package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (*Repository, *data.User, *data.Book) {
	t.Helper()
	ctx := context.Background()
	r := New(nil)
	u := &data.User{Username: "reader"}
	require.NoError(t, u.Password.Set("pa55word!"))
	require.NoError(t, r.RegisterUser(ctx, u))
	a := &data.Author{FirstName: "Leo", LastName: "Tolstoy"}
	require.NoError(t, r.CreateAuthor(ctx, a))
	b := &data.Book{Title: "War and Peace", Author: a.ID, BookID: "WAR-PEACE-001"}
	require.NoError(t, r.CreateBook(ctx, b))
	return r, u, b
}

func TestConcurrentCreateBorrow(t *testing.T) {
	r, u, b := fixture(t)
	due := time.Now().Add(time.Hour)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.CreateBorrow(context.Background(), &data.Borrow{User: u.ID, Book: b.ID, DueAt: due})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, repository.ErrActiveBorrowExists):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(31), conflicts.Load())
}

func TestCloseBorrowOnce(t *testing.T) {
	r, u, b := fixture(t)
	ctx := context.Background()
	borrow := &data.Borrow{User: u.ID, Book: b.ID, DueAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.CreateBorrow(ctx, borrow))

	closed, err := r.CloseBorrow(ctx, borrow.ID)
	require.NoError(t, err)
	_, err = r.CloseBorrow(ctx, borrow.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyReturned)

	got, err := r.GetBorrow(ctx, borrow.ID)
	require.NoError(t, err)
	assert.Equal(t, *closed.ReturnedAt, *got.ReturnedAt)

	// Mutating a returned copy must not leak into the store.
	*got.ReturnedAt = time.Time{}
	again, err := r.GetBorrow(ctx, borrow.ID)
	require.NoError(t, err)
	assert.Equal(t, *closed.ReturnedAt, *again.ReturnedAt)
}

func TestProtectOnDelete(t *testing.T) {
	r, u, b := fixture(t)
	ctx := context.Background()
	assert.ErrorIs(t, r.DeleteAuthor(ctx, b.Author), repository.ErrReferencedRecord)

	require.NoError(t, r.CreateBorrow(ctx, &data.Borrow{User: u.ID, Book: b.ID, DueAt: time.Now().Add(time.Hour)}))
	assert.ErrorIs(t, r.DeleteBook(ctx, b.ID), repository.ErrReferencedRecord)
}

func TestListOrdering(t *testing.T) {
	r, _, b := fixture(t)
	ctx := context.Background()
	year := func(n int32) *int32 { return &n }
	require.NoError(t, r.CreateBook(ctx, &data.Book{Title: "Anna Karenina", Author: b.Author, BookID: "AK", PublishedYear: year(1878)}))
	require.NoError(t, r.CreateBook(ctx, &data.Book{Title: "Resurrection", Author: b.Author, BookID: "RS", PublishedYear: year(1899)}))

	filters := data.Filters{Page: 1, PageSize: 5, Sort: "-published_year", SortSafeList: data.SortSafeList("published_year")}
	list, meta, err := r.GetAllBooks(ctx, "", "", "", "", 0, filters)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "RS", list[0].BookID)
	assert.Equal(t, "AK", list[1].BookID)
	assert.Equal(t, "WAR-PEACE-001", list[2].BookID) // no year sorts last
	assert.Equal(t, 3, meta.TotalRecords)

	filters = data.Filters{Page: 2, PageSize: 2, Sort: "title", SortSafeList: data.SortSafeList("title")}
	list, meta, err = r.GetAllBooks(ctx, "", "", "", "", 0, filters)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "War and Peace", list[0].Title)
	assert.Equal(t, 2, meta.LastPage)
}
