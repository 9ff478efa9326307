package jsonlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(minLevel Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&buf, minLevel)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var entries []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	t.Run("info entry carries properties", func(t *testing.T) {
		l, buf := newTestLogger(LevelInfo)
		l.PrintInfo("starting server", map[string]string{"addr": ":4000", "env": "development"})

		entries := decodeLines(t, buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "INFO", entries[0].Level)
		assert.Equal(t, "2024-03-01T10:00:00Z", entries[0].Time)
		assert.Equal(t, "starting server", entries[0].Message)
		assert.Equal(t, ":4000", entries[0].Properties["addr"])
		assert.Empty(t, entries[0].Trace)
	})

	t.Run("error entry carries stack trace", func(t *testing.T) {
		l, buf := newTestLogger(LevelInfo)
		l.PrintError(errors.New("database unreachable"), nil)

		entries := decodeLines(t, buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "ERROR", entries[0].Level)
		assert.NotEmpty(t, entries[0].Trace)
	})

	t.Run("entries below minimum level are dropped", func(t *testing.T) {
		l, buf := newTestLogger(LevelError)
		l.PrintInfo("ignored", nil)
		l.PrintWarn("ignored too", nil)
		l.PrintFatal(errors.New("kept"), nil)

		entries := decodeLines(t, buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "FATAL", entries[0].Level)
	})

	t.Run("write logs at error level", func(t *testing.T) {
		l, buf := newTestLogger(LevelInfo)
		_, err := l.Write([]byte("http: TLS handshake error"))
		require.NoError(t, err)

		entries := decodeLines(t, buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "ERROR", entries[0].Level)
	})
}

func TestLoggerConcurrentWritesStayLineDelimited(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.PrintInfo("request", map[string]string{"path": "/v1/books"})
		}()
	}
	wg.Wait()
	assert.Len(t, decodeLines(t, buf), 50)
}
