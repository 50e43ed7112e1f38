package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/httpretry"
)

// SendGridConfig configures the SendGrid provider.
type SendGridConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SendGridProvider sends through the v3 mail/send API.
type SendGridProvider struct {
	cfg       SendGridConfig
	fromEmail string
	fromName  string
	client    httpretry.Doer
}

// NewSendGrid creates a SendGrid provider.
func NewSendGrid(cfg SendGridConfig, fromEmail, fromName string, client httpretry.Doer) *SendGridProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com/v3"
	}
	return &SendGridProvider{cfg: cfg, fromEmail: fromEmail, fromName: fromName, client: client}
}

func (s *SendGridProvider) Name() string { return SendGrid }

func (s *SendGridProvider) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	if s.cfg.APIKey == "" || s.fromEmail == "" {
		return "", ErrNotConfigured
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": s.fromEmail, "name": s.fromName},
		"subject": msg.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": msg.TextBody},
			{"type": "text/html", "value": msg.HTMLBody},
		},
	}
	if len(msg.Headers) > 0 {
		payload["headers"] = msg.Headers
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid_http_%d:%s", resp.StatusCode, respBody)
	}
	return resp.Header.Get("X-Message-Id"), nil
}
