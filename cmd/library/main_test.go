package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/emzola/circulation/internal/jsonlog"
	"github.com/stretchr/testify/assert"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	var out bytes.Buffer
	logger := jsonlog.New(&out, jsonlog.LevelInfo)

	assert.Error(t, run(logger, []string{"-no-such-flag"}))

	t.Setenv("DSN", "postgres://library@127.0.0.1:1/library?sslmode=disable")
	err := run(logger, []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
	assert.NotContains(t, out.String(), "database connection pool established")
}
