package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-mail/mail"
	"github.com/google/uuid"
	"github.com/ignite/brief/internal/domain"
)

// SMTPConfig configures the SMTP provider. TLSMode is "ssl" for implicit
// TLS, "none" for a plain relay, anything else negotiates STARTTLS when the
// server offers it.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	TLSMode  string        `yaml:"tls_mode"`
	Timeout  time.Duration `yaml:"timeout"`
}

type mailSendCloser = mail.SendCloser

// SMTPProvider sends through a plain SMTP relay, one connection per message.
type SMTPProvider struct {
	cfg  SMTPConfig
	from string
	dial func() (mailSendCloser, error)
}

// NewSMTP creates an SMTP provider.
func NewSMTP(cfg SMTPConfig, from string) *SMTPProvider {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = cfg.Timeout
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	switch cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = nil
	}
	return &SMTPProvider{cfg: cfg, from: from, dial: d.Dial}
}

func (s *SMTPProvider) Name() string { return SMTP }

func (s *SMTPProvider) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	if s.cfg.Host == "" || s.from == "" {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := "<" + uuid.NewString() + "@brief>"
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	sc, err := s.dial()
	if err != nil {
		return "", fmt.Errorf("smtp dial: %w", err)
	}
	defer sc.Close()
	if err := mail.Send(sc, m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return id, nil
}
