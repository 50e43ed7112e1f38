// Package provider implements the transactional email vendors a newsletter
// can be delivered through. One provider is chosen at startup from
// configuration and injected into the dispatch engine.
package provider

import (
	"context"
	"strings"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/httpretry"
	"github.com/ignite/brief/internal/pkg/logger"
)

// Provider names accepted in configuration.
const (
	Console   = "console"
	Postmark  = "postmark"
	SES       = "ses"
	SparkPost = "sparkpost"
	Mailgun   = "mailgun"
	SendGrid  = "sendgrid"
	SMTP      = "smtp"
)

// Provider sends one fully rendered message. A returned error is a
// per-recipient failure and becomes a bounce.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg *domain.EmailMessage) (messageID string, err error)
}

// Config selects and configures the provider.
type Config struct {
	Name      string          `yaml:"name"`
	FromEmail string          `yaml:"from_email"`
	FromName  string          `yaml:"from_name"`
	Postmark  PostmarkConfig  `yaml:"postmark"`
	SES       SESConfig       `yaml:"ses"`
	SparkPost SparkPostConfig `yaml:"sparkpost"`
	Mailgun   MailgunConfig   `yaml:"mailgun"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

// New builds the configured provider. Unknown names yield a provider whose
// every send fails with "unsupported_provider", so a misconfiguration shows
// up as bounces on the run instead of a silent success.
func New(ctx context.Context, cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = Console
	}
	client := httpretry.New(nil)

	switch name {
	case Console:
		return NewConsole(), nil
	case Postmark:
		return NewPostmark(cfg.Postmark, cfg.FromEmail, client), nil
	case SES:
		p, err := NewSES(ctx, cfg.SES, from(cfg))
		if err != nil {
			return nil, err
		}
		return p, nil
	case SparkPost:
		return NewSparkPost(cfg.SparkPost, cfg.FromEmail, cfg.FromName, client), nil
	case Mailgun:
		return NewMailgun(cfg.Mailgun, from(cfg), client), nil
	case SendGrid:
		return NewSendGrid(cfg.SendGrid, cfg.FromEmail, cfg.FromName, client), nil
	case SMTP:
		return NewSMTP(cfg.SMTP, from(cfg)), nil
	}

	logger.Warn("unknown email provider configured, every send will bounce", "provider", name)
	return Unsupported{name: name}, nil
}

// from renders the RFC 5322 sender.
func from(cfg Config) string {
	if cfg.FromName == "" {
		return cfg.FromEmail
	}
	return cfg.FromName + " <" + cfg.FromEmail + ">"
}
