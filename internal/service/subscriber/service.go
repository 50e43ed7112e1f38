package subscriber

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/brief/internal/audit"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/logger"
	"github.com/ignite/brief/internal/pkg/unsubtoken"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Outcome describes what Subscribe did.
type Outcome string

const (
	Created     Outcome = "created"
	Reactivated Outcome = "reactivated"
	Unchanged   Outcome = "unchanged"
)

// Recipient is an active subscriber with a freshly issued unsubscribe token.
type Recipient struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	UnsubscribeToken string `json:"unsubscribe_token"`
}

// Service implements the subscriber registry.
type Service struct {
	repo   Repository
	tokens *unsubtoken.Codec
	audit  audit.Sink
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAudit sets the audit sink.
func WithAudit(sink audit.Sink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a subscriber service.
func NewService(repo Repository, tokens *unsubtoken.Codec, opts ...Option) *Service {
	s := &Service{repo: repo, tokens: tokens, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address has a local part and a
// dotted domain.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Subscribe registers email, reactivating it with a new seed if it had
// unsubscribed. Subscribing an active address is a successful no-op.
func (s *Service) Subscribe(ctx context.Context, email string) (Outcome, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		now := s.now().UTC()
		sub := &domain.Subscriber{
			ID:              uuid.NewString(),
			Email:           email,
			Status:          domain.SubscriberActive,
			UnsubscribeSeed: uuid.NewString(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err = s.repo.Create(ctx, sub)
		if err == nil {
			s.emit(ctx, audit.ActionSubscriberSubscribe, sub.ID, Created)
			return Created, nil
		}
		if !errors.Is(err, ErrEmailExists) {
			return "", fmt.Errorf("create subscriber: %w", err)
		}
		// Lost a race with a concurrent subscribe for the same address.
		existing, err = s.repo.GetByEmail(ctx, email)
	}
	if err != nil {
		return "", fmt.Errorf("lookup subscriber: %w", err)
	}

	outcome := Unchanged
	if _, err := s.repo.Update(ctx, existing.ID, func(sub *domain.Subscriber) (bool, error) {
		if sub.IsActive() {
			return false, nil
		}
		sub.Status = domain.SubscriberActive
		sub.UnsubscribeSeed = uuid.NewString()
		sub.UnsubscribedAt = nil
		sub.UpdatedAt = s.now().UTC()
		outcome = Reactivated
		return true, nil
	}); err != nil {
		return "", fmt.Errorf("reactivate subscriber: %w", err)
	}

	if outcome == Reactivated {
		s.emit(ctx, audit.ActionSubscriberSubscribe, existing.ID, outcome)
	}
	return outcome, nil
}

// Unsubscribe deactivates the subscriber named by token. The signature is
// checked against the seed currently on record, so tokens issued before a
// resubscribe fail with ErrInvalidToken.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	parsed, err := unsubtoken.Parse(token)
	if err != nil {
		return err
	}

	changed := false
	_, err = s.repo.Update(ctx, parsed.SubscriberID, func(sub *domain.Subscriber) (bool, error) {
		if err := s.tokens.Verify(parsed, sub.UnsubscribeSeed); err != nil {
			return false, err
		}
		if !sub.IsActive() {
			return false, nil
		}
		now := s.now().UTC()
		sub.Status = domain.SubscriberUnsubscribed
		sub.UnsubscribedAt = &now
		sub.UpdatedAt = now
		changed = true
		return true, nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}

	if changed {
		s.emit(ctx, audit.ActionSubscriberLeave, parsed.SubscriberID, "")
		logger.Info("newsletter subscriber unsubscribed", "subscriber_id", parsed.SubscriberID)
	}
	return nil
}

// ListActive returns every active subscriber with a token for its current
// seed.
func (s *Service) ListActive(ctx context.Context) ([]Recipient, error) {
	subs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(subs))
	for _, sub := range subs {
		out = append(out, Recipient{
			ID:               sub.ID,
			Email:            sub.Email,
			UnsubscribeToken: s.tokens.Issue(sub.ID, sub.UnsubscribeSeed),
		})
	}
	return out, nil
}

// Token issues the current unsubscribe token for the subscriber with email.
func (s *Service) Token(ctx context.Context, email string) (string, error) {
	sub, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(sub.ID, sub.UnsubscribeSeed), nil
}

func (s *Service) emit(ctx context.Context, action, subscriberID string, outcome Outcome) {
	md := map[string]any{"subscriberId": subscriberID}
	if outcome != "" {
		md["outcome"] = string(outcome)
	}
	audit.Emit(ctx, s.audit, audit.Event{
		Actor:      domain.ServiceActor,
		Action:     action,
		TargetType: audit.TargetSubscriber,
		Metadata:   md,
	})
}
