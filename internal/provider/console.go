package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/logger"
)

// ConsoleProvider logs messages instead of sending them. It always
// succeeds and is the default for local development.
type ConsoleProvider struct{}

// NewConsole creates a console provider.
func NewConsole() *ConsoleProvider { return &ConsoleProvider{} }

func (*ConsoleProvider) Name() string { return Console }

func (*ConsoleProvider) Send(_ context.Context, msg *domain.EmailMessage) (string, error) {
	id := "console-" + uuid.NewString()
	logger.Info("newsletter email (console)",
		"to", msg.To,
		"subject", msg.Subject,
		"text_bytes", len(msg.TextBody),
		"html_bytes", len(msg.HTMLBody),
		"message_id", id,
	)
	return id, nil
}

// Unsupported fails every send. See New.
type Unsupported struct{ name string }

func (u Unsupported) Name() string { return u.name }

func (Unsupported) Send(context.Context, *domain.EmailMessage) (string, error) {
	return "", ErrUnsupported
}
