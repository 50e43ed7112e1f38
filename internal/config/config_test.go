package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_url: "postgres://brief@localhost/brief?sslmode=disable"

newsletter:
  base_url: "https://brief.example.com"
  brand: "Field Brief"

dispatch:
  batch_limit: 25
  concurrency: 4

provider:
  name: "postmark"
  from_email: "brief@example.com"
  postmark:
    server_token: "pm-token"

archive:
  bucket: "brief-archive"
  prefix: "newsletter"

ingest:
  feeds:
    - "https://notes.example.com/rss"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://brief@localhost/brief?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "https://brief.example.com", cfg.Newsletter.BaseURL)
	assert.Equal(t, "Field Brief", cfg.Newsletter.Brand)
	assert.Equal(t, 25, cfg.Dispatch.BatchLimit)
	assert.Equal(t, 4, cfg.Dispatch.Concurrency)
	assert.Equal(t, "postmark", cfg.Provider.Name)
	assert.Equal(t, "pm-token", cfg.Provider.Postmark.ServerToken)
	assert.Equal(t, "brief-archive", cfg.Archive.Bucket)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, []string{"https://notes.example.com/rss"}, cfg.Ingest.Feeds)

	// Defaults still apply to unset fields
	assert.Equal(t, "local-dev-newsletter-unsubscribe", cfg.Newsletter.UnsubscribeSecret)
	assert.Equal(t, time.Minute, cfg.Worker.Interval())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.Newsletter.BaseURL)
	assert.Equal(t, "Ordo Brief", cfg.Newsletter.Brand)
	assert.Equal(t, "console", cfg.Provider.Name)
	assert.Equal(t, 10, cfg.Dispatch.BatchLimit)
	assert.Equal(t, 1, cfg.Dispatch.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Dispatch.LockTTL())
	assert.False(t, cfg.Archive.Enabled())
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("dispatch: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/brief")
	t.Setenv("NEWSLETTER_EMAIL_PROVIDER", "ses")
	t.Setenv("NEWSLETTER_FROM_EMAIL", "news@example.com")
	t.Setenv("NEWSLETTER_UNSUBSCRIBE_SECRET", "s3cret")
	t.Setenv("NEWSLETTER_SEND_CONCURRENCY", "8")
	t.Setenv("POSTMARK_SERVER_TOKEN", "env-token")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/brief", cfg.DatabaseURL)
	assert.Equal(t, "ses", cfg.Provider.Name)
	assert.Equal(t, "news@example.com", cfg.Provider.FromEmail)
	assert.Equal(t, "s3cret", cfg.Newsletter.UnsubscribeSecret)
	assert.Equal(t, 8, cfg.Dispatch.Concurrency)
	assert.Equal(t, "env-token", cfg.Provider.Postmark.ServerToken)
	assert.Zero(t, cfg.Provider.SMTP.Port, "unparseable numbers are ignored")
}
