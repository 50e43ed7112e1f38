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

// PostmarkConfig configures the Postmark provider.
type PostmarkConfig struct {
	ServerToken   string `yaml:"server_token"`
	MessageStream string `yaml:"message_stream"`
	BaseURL       string `yaml:"base_url"`
}

// PostmarkProvider sends through the Postmark /email endpoint.
type PostmarkProvider struct {
	cfg    PostmarkConfig
	from   string
	client httpretry.Doer
}

// NewPostmark creates a Postmark provider. Missing token or sender is not
// an error here; each send then fails with missing_postmark_config.
func NewPostmark(cfg PostmarkConfig, fromEmail string, client httpretry.Doer) *PostmarkProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.postmarkapp.com"
	}
	if cfg.MessageStream == "" {
		cfg.MessageStream = "outbound"
	}
	return &PostmarkProvider{cfg: cfg, from: fromEmail, client: client}
}

func (p *PostmarkProvider) Name() string { return Postmark }

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkEmail struct {
	From          string           `json:"From"`
	To            string           `json:"To"`
	Subject       string           `json:"Subject"`
	TextBody      string           `json:"TextBody"`
	HtmlBody      string           `json:"HtmlBody"`
	MessageStream string           `json:"MessageStream"`
	Headers       []postmarkHeader `json:"Headers,omitempty"`
}

func (p *PostmarkProvider) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	if p.cfg.ServerToken == "" || p.from == "" {
		return "", ErrMissingPostmarkConfig
	}

	payload := postmarkEmail{
		From:          p.from,
		To:            msg.To,
		Subject:       msg.Subject,
		TextBody:      msg.TextBody,
		HtmlBody:      msg.HTMLBody,
		MessageStream: p.cfg.MessageStream,
	}
	for k, v := range msg.Headers {
		payload.Headers = append(payload.Headers, postmarkHeader{Name: k, Value: v})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal postmark email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.cfg.ServerToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("postmark_http_%d:%s", resp.StatusCode, respBody)
	}

	var out struct {
		MessageID string `json:"MessageID"`
	}
	_ = json.Unmarshal(respBody, &out)
	return out.MessageID, nil
}
