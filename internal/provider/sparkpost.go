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

// SparkPostConfig configures the SparkPost provider.
type SparkPostConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SparkPostProvider sends through the Transmissions API.
type SparkPostProvider struct {
	cfg       SparkPostConfig
	fromEmail string
	fromName  string
	client    httpretry.Doer
}

// NewSparkPost creates a SparkPost provider.
func NewSparkPost(cfg SparkPostConfig, fromEmail, fromName string, client httpretry.Doer) *SparkPostProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sparkpost.com/api/v1"
	}
	return &SparkPostProvider{cfg: cfg, fromEmail: fromEmail, fromName: fromName, client: client}
}

func (s *SparkPostProvider) Name() string { return SparkPost }

func (s *SparkPostProvider) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	if s.cfg.APIKey == "" || s.fromEmail == "" {
		return "", ErrNotConfigured
	}

	transmission := map[string]any{
		"recipients": []map[string]any{
			{"address": map[string]string{"email": msg.To}},
		},
		"content": map[string]any{
			"from":    map[string]string{"email": s.fromEmail, "name": s.fromName},
			"subject": msg.Subject,
			"html":    msg.HTMLBody,
			"text":    msg.TextBody,
			"headers": msg.Headers,
		},
		"options": map[string]bool{"transactional": true},
	}
	body, err := json.Marshal(transmission)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/transmissions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sparkpost_http_%d:%s", resp.StatusCode, respBody)
	}

	var out struct {
		Results struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	_ = json.Unmarshal(respBody, &out)
	return out.Results.ID, nil
}
