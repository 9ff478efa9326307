package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, values map[string]any) string {
	t.Helper()
	out, err := yaml.Marshal(values)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	return path
}

func TestDecode(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"server":   map[string]any{"port": 8080, "env": "staging"},
			"database": map[string]any{"dsn": "postgres://library@localhost/library", "max_idle_time": "5m"},
			"limiter":  map[string]any{"enabled": true, "rps": 10, "burst": 20},
			"cors":     map[string]any{"trusted_origins": []string{"http://localhost:3000"}},
		})
		cfg, err := Decode(path)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "staging", cfg.Server.Env)
		assert.Equal(t, "postgres://library@localhost/library", cfg.Database.DSN)
		assert.Equal(t, "5m", cfg.Database.MaxIdleTime)
		assert.True(t, cfg.Limiter.Enabled)
		assert.Equal(t, 10.0, cfg.Limiter.RPS)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.Cors.TrustedOrigins)
		// Untouched sections fall back to their defaults.
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "24h", cfg.Auth.TokenTTL)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"server": map[string]any{"port": 8080},
		})
		t.Setenv("PORT", "9090")
		cfg, err := Decode(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
	})

	t.Run("basic auth reads prefixed variables", func(t *testing.T) {
		t.Setenv("USERNAME", "shell-user")
		t.Setenv("PASSWORD", "shell-secret")
		t.Setenv("BASICAUTHUSERNAME", "metrics")
		t.Setenv("BASICAUTHPASSWORD", "s3cret")
		cfg, err := Decode(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "metrics", cfg.BasicAuth.Username)
		assert.Equal(t, "s3cret", cfg.BasicAuth.Password)
	})

	t.Run("shell USERNAME does not configure basic auth", func(t *testing.T) {
		t.Setenv("USERNAME", "shell-user")
		t.Setenv("BASICAUTHUSERNAME", "")
		cfg, err := Decode(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, cfg.BasicAuth.Username)
	})

	t.Run("missing file reads environment only", func(t *testing.T) {
		t.Setenv("PORT", "")
		os.Unsetenv("PORT")
		t.Setenv("DSN", "postgres://env@localhost/library")
		cfg, err := Decode(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port)
		assert.Equal(t, "postgres://env@localhost/library", cfg.Database.DSN)
		assert.False(t, cfg.SMTPEnabled())
	})
}
