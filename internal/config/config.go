package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/brief/internal/archive"
	"github.com/ignite/brief/internal/provider"
)

// Config holds all configuration for the newsletter pipeline.
type Config struct {
	DatabaseURL string           `yaml:"database_url"`
	RedisURL    string           `yaml:"redis_url"`
	Log         LogConfig        `yaml:"log"`
	Newsletter  NewsletterConfig `yaml:"newsletter"`
	Dispatch    DispatchConfig   `yaml:"dispatch"`
	Provider    provider.Config  `yaml:"provider"`
	Archive     archive.Config   `yaml:"archive"`
	Worker      WorkerConfig     `yaml:"worker"`
	Ingest      IngestConfig     `yaml:"ingest"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level         string `yaml:"level"`
	DisableRedact bool   `yaml:"disable_redact"`
}

// NewsletterConfig holds the publication identity.
type NewsletterConfig struct {
	BaseURL           string `yaml:"base_url"`
	Brand             string `yaml:"brand"`
	UnsubscribeSecret string `yaml:"unsubscribe_secret"`
	LayoutPath        string `yaml:"layout_path"`
}

// DispatchConfig tunes dispatch passes.
type DispatchConfig struct {
	BatchLimit     int `yaml:"batch_limit"`
	Concurrency    int `yaml:"concurrency"`
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

// LockTTL returns the dispatch lock TTL as a duration.
func (c DispatchConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// WorkerConfig holds the periodic trigger settings.
type WorkerConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	Addr            string `yaml:"addr"`
}

// Interval returns the trigger interval as a duration.
func (c WorkerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// IngestConfig lists feeds polled by the worker. Empty disables polling.
type IngestConfig struct {
	Feeds           []string `yaml:"feeds"`
	IntervalSeconds int      `yaml:"interval_seconds"`
}

// Interval returns the feed polling interval as a duration.
func (c IngestConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Load reads and parses the configuration file. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Newsletter.BaseURL == "" {
		cfg.Newsletter.BaseURL = "http://localhost:3000"
	}
	if cfg.Newsletter.Brand == "" {
		cfg.Newsletter.Brand = "Ordo Brief"
	}
	if cfg.Newsletter.UnsubscribeSecret == "" {
		cfg.Newsletter.UnsubscribeSecret = "local-dev-newsletter-unsubscribe"
	}
	if cfg.Dispatch.BatchLimit <= 0 {
		cfg.Dispatch.BatchLimit = 10
	}
	if cfg.Dispatch.Concurrency <= 0 {
		cfg.Dispatch.Concurrency = 1
	}
	if cfg.Dispatch.LockTTLSeconds <= 0 {
		cfg.Dispatch.LockTTLSeconds = 300
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = provider.Console
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 60
	}
	if cfg.Worker.Addr == "" {
		cfg.Worker.Addr = ":9090"
	}
	if cfg.Ingest.IntervalSeconds <= 0 {
		cfg.Ingest.IntervalSeconds = 900
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("DATABASE_URL", &cfg.DatabaseURL)
	str("REDIS_URL", &cfg.RedisURL)
	str("LOG_LEVEL", &cfg.Log.Level)

	str("NEWSLETTER_BASE_URL", &cfg.Newsletter.BaseURL)
	str("NEWSLETTER_BRAND", &cfg.Newsletter.Brand)
	str("NEWSLETTER_UNSUBSCRIBE_SECRET", &cfg.Newsletter.UnsubscribeSecret)
	num("NEWSLETTER_BATCH_LIMIT", &cfg.Dispatch.BatchLimit)
	num("NEWSLETTER_SEND_CONCURRENCY", &cfg.Dispatch.Concurrency)

	p := &cfg.Provider
	str("NEWSLETTER_EMAIL_PROVIDER", &p.Name)
	str("NEWSLETTER_FROM_EMAIL", &p.FromEmail)
	str("NEWSLETTER_FROM_NAME", &p.FromName)
	str("POSTMARK_SERVER_TOKEN", &p.Postmark.ServerToken)
	str("POSTMARK_MESSAGE_STREAM", &p.Postmark.MessageStream)
	str("AWS_SES_ACCESS_KEY", &p.SES.AccessKeyID)
	str("AWS_SES_SECRET_KEY", &p.SES.SecretAccessKey)
	str("AWS_SES_REGION", &p.SES.Region)
	str("SPARKPOST_API_KEY", &p.SparkPost.APIKey)
	str("SPARKPOST_BASE_URL", &p.SparkPost.BaseURL)
	str("MAILGUN_API_KEY", &p.Mailgun.APIKey)
	str("MAILGUN_DOMAIN", &p.Mailgun.Domain)
	str("MAILGUN_BASE_URL", &p.Mailgun.BaseURL)
	str("SENDGRID_API_KEY", &p.SendGrid.APIKey)
	str("SMTP_HOST", &p.SMTP.Host)
	num("SMTP_PORT", &p.SMTP.Port)
	str("SMTP_USERNAME", &p.SMTP.Username)
	str("SMTP_PASSWORD", &p.SMTP.Password)
	str("SMTP_TLS_MODE", &p.SMTP.TLSMode)

	str("ARCHIVE_S3_BUCKET", &cfg.Archive.Bucket)
	str("ARCHIVE_S3_PREFIX", &cfg.Archive.Prefix)
	str("ARCHIVE_S3_REGION", &cfg.Archive.Region)
	str("ARCHIVE_DIR", &cfg.Archive.Dir)

	return cfg, nil
}
