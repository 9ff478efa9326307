package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		delete   bool
		sentinel error
	}{
		{"unique", &pq.Error{Code: "23505", Constraint: ConstraintBookID}, false, ErrDuplicateRecord},
		{"active loan", &pq.Error{Code: "23505", Constraint: ConstraintActiveBorrow}, false, ErrActiveBorrowExists},
		{"fk on insert", &pq.Error{Code: "23503", Constraint: ConstraintBookAuthor}, false, ErrInvalidReference},
		{"fk on delete", &pq.Error{Code: "23503", Constraint: ConstraintBorrowBook}, true, ErrReferencedRecord},
		{"check", &pq.Error{Code: "23514", Constraint: ConstraintBookPages}, false, ErrCheckViolation},
		{"closed borrow", &pq.Error{Code: "23514", Constraint: ConstraintClosedBorrow}, false, ErrAlreadyReturned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got error
			if tt.delete {
				got = translateDelete(tt.err)
			} else {
				got = translateWrite(tt.err)
			}
			assert.ErrorIs(t, got, tt.sentinel)
			assert.Equal(t, tt.err.(*pq.Error).Constraint, Constraint(got))
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		plain := errors.New("connection reset")
		assert.Same(t, plain, translateWrite(plain))
		syntax := &pq.Error{Code: "42601"}
		assert.Same(t, error(syntax), translateWrite(syntax))
	})
}

func TestContainsEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\% pure\_x\\%`, contains(`100% pure_x\`))
}
