package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("welcome", func(t *testing.T) {
		msg, err := render("user_welcome.tmpl", map[string]any{
			"ID": int64(7), "Username": "ada", "FirstName": "Ada",
		})
		require.NoError(t, err)
		assert.Equal(t, "Welcome to the library!", msg.subject)
		assert.Contains(t, msg.plainBody, `"ada"`)
		assert.Contains(t, msg.htmlBody, "<strong>ada</strong>")
	})

	t.Run("receipt escapes html", func(t *testing.T) {
		msg, err := render("borrow_receipt.tmpl", map[string]any{
			"FirstName": "Ada", "Title": "<Dune>", "BookID": "D-1",
			"BorrowID": int64(3), "BorrowedAt": "2024-03-01", "DueAt": "2024-03-15",
		})
		require.NoError(t, err)
		assert.Contains(t, msg.htmlBody, "&lt;Dune&gt;")
		assert.Contains(t, msg.plainBody, "2024-03-15")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := render("missing.tmpl", nil)
		assert.Error(t, err)
	})
}

func TestDiscard(t *testing.T) {
	var s Sender = Discard{}
	assert.NoError(t, s.Send("ada@example.com", "user_welcome.tmpl", map[string]any{
		"ID": int64(1), "Username": "ada", "FirstName": "Ada",
	}))
}
