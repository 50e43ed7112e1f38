package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/httpretry"
)

// MailgunConfig configures the Mailgun provider.
type MailgunConfig struct {
	APIKey  string `yaml:"api_key"`
	Domain  string `yaml:"domain"`
	BaseURL string `yaml:"base_url"`
}

// MailgunProvider sends through the Mailgun messages API.
type MailgunProvider struct {
	cfg    MailgunConfig
	from   string
	client httpretry.Doer
}

// NewMailgun creates a Mailgun provider.
func NewMailgun(cfg MailgunConfig, from string, client httpretry.Doer) *MailgunProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mailgun.net/v3"
	}
	return &MailgunProvider{cfg: cfg, from: from, client: client}
}

func (m *MailgunProvider) Name() string { return Mailgun }

func (m *MailgunProvider) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	if m.cfg.APIKey == "" || m.cfg.Domain == "" || m.from == "" {
		return "", ErrNotConfigured
	}

	form := url.Values{}
	form.Set("from", m.from)
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("text", msg.TextBody)
	form.Set("html", msg.HTMLBody)
	for k, v := range msg.Headers {
		form.Set("h:"+k, v)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", m.cfg.BaseURL, m.cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("mailgun_http_%d:%s", resp.StatusCode, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &out)
	return strings.Trim(out.ID, "<>"), nil
}
