// Package memory is an in-process implementation of repository.Repository.
// A single mutex serialises every operation, so each write checks and
// applies its constraints atomically, matching the PostgreSQL schema.
package memory

import (
	"context"
	"crypto/sha256"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/repository"
)

type token struct {
	hash   [32]byte
	userID int64
	expiry time.Time
	scope  string
}

// Repository keeps every table in maps keyed by id.
type Repository struct {
	mu      sync.Mutex
	now     func() time.Time
	seq     map[string]int64
	users   map[int64]data.User
	tokens  []token
	authors map[int64]data.Author
	books   map[int64]data.Book
	borrows map[int64]data.Borrow
}

var _ repository.Repository = (*Repository)(nil)

// New returns an empty Repository using now as the database clock. A nil
// now means time.Now.
func New(now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{
		now:     now,
		seq:     make(map[string]int64),
		users:   make(map[int64]data.User),
		authors: make(map[int64]data.Author),
		books:   make(map[int64]data.Book),
		borrows: make(map[int64]data.Borrow),
	}
}

func (r *Repository) next(table string) int64 {
	r.seq[table]++
	return r.seq[table]
}

func violation(constraint string, err error) error {
	return &repository.ConstraintError{Constraint: constraint, Err: err}
}

func coalesce(n *int32) int32 {
	if n == nil {
		return 0
	}
	return *n
}

func copyInt32(n *int32) *int32 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// page sorts items with less, using id as a tie-breaker, and cuts out the
// page described by filters.
func page[T any](items []T, filters data.Filters, less func(a, b T) int, id func(T) int64) ([]T, data.Metadata) {
	desc := filters.SortDescending()
	sort.SliceStable(items, func(i, j int) bool {
		c := less(items[i], items[j])
		if c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}
		return id(items[i]) < id(items[j])
	})
	total := len(items)
	start := filters.Offset()
	if start > total {
		start = total
	}
	end := start + filters.Limit()
	if end > total {
		end = total
	}
	return items[start:end], data.CalculateMetadata(total, filters.Page, filters.PageSize)
}

// compareNullable orders nil after every value regardless of direction,
// the way NULLS LAST does.
func compareNullable[T int32 | int64](a, b *T, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if desc {
			return -1
		}
		return 1
	case b == nil:
		if desc {
			return 1
		}
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if desc {
			return -1
		}
		return 1
	case b == nil:
		if desc {
			return 1
		}
		return -1
	default:
		return a.Compare(*b)
	}
}

// Users

func (r *Repository) checkUserUnique(user *data.User) error {
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return violation(repository.ConstraintUsername, repository.ErrDuplicateRecord)
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return violation(repository.ConstraintEmail, repository.ErrDuplicateRecord)
		}
	}
	return nil
}

func (r *Repository) RegisterUser(_ context.Context, user *data.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUserUnique(user); err != nil {
		return err
	}
	user.ID = r.next("users")
	user.CreatedAt = r.now().Truncate(time.Second)
	user.Version = 1
	stored := *user
	stored.Password.Plaintext = nil
	r.users[user.ID] = stored
	return nil
}

func (r *Repository) GetUserByID(_ context.Context, ID int64) (*data.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[ID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &u, nil
}

func (r *Repository) GetUserByUsername(_ context.Context, username string) (*data.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (r *Repository) UpdateUser(_ context.Context, user *data.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[user.ID]
	if !ok || current.Version != user.Version {
		return repository.ErrEditConflict
	}
	if err := r.checkUserUnique(user); err != nil {
		return err
	}
	user.Version++
	stored := *user
	stored.Password.Plaintext = nil
	r.users[user.ID] = stored
	return nil
}

func (r *Repository) GetUserForToken(_ context.Context, tokenScope, tokenPlaintext string) (*data.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := sha256.Sum256([]byte(tokenPlaintext))
	now := r.now()
	for _, t := range r.tokens {
		if t.hash == hash && t.scope == tokenScope && t.expiry.After(now) {
			u, ok := r.users[t.userID]
			if !ok {
				break
			}
			return &u, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

// Tokens

func (r *Repository) CreateNewToken(_ context.Context, userID int64, ttl time.Duration, scope string) (*data.Token, error) {
	t, err := repository.GenerateToken(userID, ttl, scope)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Expiry = r.now().Add(ttl)
	var hash [32]byte
	copy(hash[:], t.Hash)
	r.tokens = append(r.tokens, token{hash: hash, userID: userID, expiry: t.Expiry, scope: scope})
	return t, nil
}

func (r *Repository) DeleteAllTokensForUser(_ context.Context, scope string, userID int64) error {
	if userID < 1 {
		return repository.ErrRecordNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	for _, t := range r.tokens {
		if t.scope == scope && t.userID == userID {
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return nil
}

// Authors

func (r *Repository) checkAuthor(author *data.Author) error {
	if author.BirthYear != nil && *author.BirthYear < data.MinBirthYear {
		return violation(repository.ConstraintAuthorBirthYear, repository.ErrCheckViolation)
	}
	for id, a := range r.authors {
		if id != author.ID && a.FirstName == author.FirstName && a.LastName == author.LastName &&
			coalesce(a.BirthYear) == coalesce(author.BirthYear) {
			return violation(repository.ConstraintAuthorIdentity, repository.ErrDuplicateRecord)
		}
	}
	return nil
}

func (r *Repository) CreateAuthor(_ context.Context, author *data.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	author.ID = 0
	if err := r.checkAuthor(author); err != nil {
		return err
	}
	author.ID = r.next("authors")
	author.Version = 1
	stored := *author
	stored.BirthYear = copyInt32(author.BirthYear)
	r.authors[author.ID] = stored
	return nil
}

func (r *Repository) GetAuthor(_ context.Context, ID int64) (*data.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authors[ID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	a.BirthYear = copyInt32(a.BirthYear)
	return &a, nil
}

func (r *Repository) GetAllAuthors(_ context.Context, search string, filters data.Filters) ([]*data.Author, data.Metadata, error) {
	column := filters.SortColumn()
	desc := filters.SortDescending()
	r.mu.Lock()
	var items []data.Author
	for _, a := range r.authors {
		if search != "" && !containsFold(a.FirstName, search) && !containsFold(a.LastName, search) {
			continue
		}
		a.BirthYear = copyInt32(a.BirthYear)
		items = append(items, a)
	}
	r.mu.Unlock()
	less := func(a, b data.Author) int {
		switch column {
		case "first_name":
			return strings.Compare(a.FirstName, b.FirstName)
		case "birth_year":
			return compareNullable(a.BirthYear, b.BirthYear, desc)
		default:
			if c := strings.Compare(a.LastName, b.LastName); c != 0 {
				return c
			}
			return strings.Compare(a.FirstName, b.FirstName)
		}
	}
	items, metadata := page(items, filters, less, func(a data.Author) int64 { return a.ID })
	list := make([]*data.Author, len(items))
	for i := range items {
		list[i] = &items[i]
	}
	return list, metadata, nil
}

func (r *Repository) UpdateAuthor(_ context.Context, author *data.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.authors[author.ID]
	if !ok || current.Version != author.Version {
		return repository.ErrEditConflict
	}
	if err := r.checkAuthor(author); err != nil {
		return err
	}
	author.Version++
	stored := *author
	stored.BirthYear = copyInt32(author.BirthYear)
	r.authors[author.ID] = stored
	return nil
}

func (r *Repository) DeleteAuthor(_ context.Context, ID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authors[ID]; !ok {
		return repository.ErrRecordNotFound
	}
	for _, b := range r.books {
		if b.Author == ID {
			return violation(repository.ConstraintBookAuthor, repository.ErrReferencedRecord)
		}
	}
	delete(r.authors, ID)
	return nil
}

// Books

func (r *Repository) checkBook(book *data.Book) error {
	if strings.TrimSpace(book.BookID) == "" {
		return violation(repository.ConstraintBookIDNotBlank, repository.ErrCheckViolation)
	}
	if book.Pages != nil && *book.Pages <= 0 {
		return violation(repository.ConstraintBookPages, repository.ErrCheckViolation)
	}
	if book.PublishedYear != nil && *book.PublishedYear < data.MinPublishedYear {
		return violation(repository.ConstraintPublishedYear, repository.ErrCheckViolation)
	}
	for id, b := range r.books {
		if id != book.ID && b.BookID == book.BookID {
			return violation(repository.ConstraintBookID, repository.ErrDuplicateRecord)
		}
	}
	if _, ok := r.authors[book.Author]; !ok {
		return violation(repository.ConstraintBookAuthor, repository.ErrInvalidReference)
	}
	return nil
}

func storedBook(book *data.Book) data.Book {
	stored := *book
	stored.PublishedYear = copyInt32(book.PublishedYear)
	stored.Pages = copyInt32(book.Pages)
	return stored
}

func (r *Repository) CreateBook(_ context.Context, book *data.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	book.ID = 0
	if err := r.checkBook(book); err != nil {
		return err
	}
	book.ID = r.next("books")
	book.Version = 1
	r.books[book.ID] = storedBook(book)
	return nil
}

func (r *Repository) GetBook(_ context.Context, ID int64) (*data.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[ID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	b = storedBook(&b)
	return &b, nil
}

func (r *Repository) GetAllBooks(_ context.Context, title, genre, bookID, search string, authorID int64, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	column := filters.SortColumn()
	desc := filters.SortDescending()
	r.mu.Lock()
	var items []data.Book
	for _, b := range r.books {
		if title != "" && !containsFold(b.Title, title) ||
			genre != "" && !containsFold(b.Genre, genre) ||
			bookID != "" && !containsFold(b.BookID, bookID) ||
			authorID > 0 && b.Author != authorID {
			continue
		}
		if search != "" {
			a := r.authors[b.Author]
			if !containsFold(b.Title, search) && !containsFold(b.Genre, search) && !containsFold(b.BookID, search) &&
				!containsFold(a.FirstName, search) && !containsFold(a.LastName, search) {
				continue
			}
		}
		items = append(items, storedBook(&b))
	}
	r.mu.Unlock()
	less := func(a, b data.Book) int {
		switch column {
		case "published_year":
			return compareNullable(a.PublishedYear, b.PublishedYear, desc)
		case "pages":
			return compareNullable(a.Pages, b.Pages, desc)
		default:
			return strings.Compare(a.Title, b.Title)
		}
	}
	items, metadata := page(items, filters, less, func(b data.Book) int64 { return b.ID })
	list := make([]*data.Book, len(items))
	for i := range items {
		list[i] = &items[i]
	}
	return list, metadata, nil
}

func (r *Repository) UpdateBook(_ context.Context, book *data.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.books[book.ID]
	if !ok || current.Version != book.Version {
		return repository.ErrEditConflict
	}
	if err := r.checkBook(book); err != nil {
		return err
	}
	book.Version++
	r.books[book.ID] = storedBook(book)
	return nil
}

func (r *Repository) DeleteBook(_ context.Context, ID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[ID]; !ok {
		return repository.ErrRecordNotFound
	}
	for _, b := range r.borrows {
		if b.Book == ID {
			return violation(repository.ConstraintBorrowBook, repository.ErrReferencedRecord)
		}
	}
	delete(r.books, ID)
	return nil
}

// Borrows

func storedBorrow(b *data.Borrow) data.Borrow {
	stored := *b
	stored.ReturnedAt = copyTime(b.ReturnedAt)
	return stored
}

func (r *Repository) CreateBorrow(_ context.Context, borrow *data.Borrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[borrow.User]; !ok {
		return violation(repository.ConstraintBorrowUser, repository.ErrInvalidReference)
	}
	if _, ok := r.books[borrow.Book]; !ok {
		return violation(repository.ConstraintBorrowBook, repository.ErrInvalidReference)
	}
	now := r.now()
	if !borrow.DueAt.After(now) {
		return violation(repository.ConstraintBorrowDueAt, repository.ErrCheckViolation)
	}
	for _, b := range r.borrows {
		if b.Book == borrow.Book && b.Active() {
			return violation(repository.ConstraintActiveBorrow, repository.ErrActiveBorrowExists)
		}
	}
	borrow.ID = r.next("borrows")
	borrow.BorrowedAt = now
	borrow.ReturnedAt = nil
	r.borrows[borrow.ID] = storedBorrow(borrow)
	return nil
}

func (r *Repository) GetBorrow(_ context.Context, ID int64) (*data.Borrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.borrows[ID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	b = storedBorrow(&b)
	return &b, nil
}

func (r *Repository) GetAllBorrows(_ context.Context, userID, bookID int64, active *bool, filters data.Filters) ([]*data.Borrow, data.Metadata, error) {
	column := filters.SortColumn()
	desc := filters.SortDescending()
	r.mu.Lock()
	var items []data.Borrow
	for _, b := range r.borrows {
		if userID > 0 && b.User != userID ||
			bookID > 0 && b.Book != bookID ||
			active != nil && b.Active() != *active {
			continue
		}
		items = append(items, storedBorrow(&b))
	}
	r.mu.Unlock()
	less := func(a, b data.Borrow) int {
		switch column {
		case "due_at":
			return a.DueAt.Compare(b.DueAt)
		case "returned_at":
			return compareTime(a.ReturnedAt, b.ReturnedAt, desc)
		default:
			return a.BorrowedAt.Compare(b.BorrowedAt)
		}
	}
	items, metadata := page(items, filters, less, func(b data.Borrow) int64 { return b.ID })
	list := make([]*data.Borrow, len(items))
	for i := range items {
		list[i] = &items[i]
	}
	return list, metadata, nil
}

func (r *Repository) CloseBorrow(_ context.Context, ID int64) (*data.Borrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.borrows[ID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	if !b.Active() {
		return nil, repository.ErrAlreadyReturned
	}
	returned := r.now()
	if returned.Before(b.BorrowedAt) {
		returned = b.BorrowedAt
	}
	b.ReturnedAt = &returned
	r.borrows[ID] = b
	out := storedBorrow(&b)
	return &out, nil
}
