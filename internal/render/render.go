// Package render composes outgoing newsletter messages.
//
// The markdown export of an issue is the text body. The HTML body is the
// same markdown rendered with goldmark and wrapped in a Liquid email layout.
// Both carry a per-recipient unsubscribe link.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/ignite/brief/internal/domain"
	"github.com/osteele/liquid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// DefaultBrand is the sender label used in subjects.
const DefaultBrand = "Ordo Brief"

// DefaultLayout is the Liquid layout wrapped around the rendered issue.
const DefaultLayout = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{ subject | escape }}</title></head>
<body style="margin:0;padding:24px;background:#f6f6f4;">
<div style="max-width:640px;margin:0 auto;background:#ffffff;padding:32px;font-family:Georgia, 'Times New Roman', serif;line-height:1.5;color:#1f1f1f;">
{{ body_html }}
<hr style="border:none;border-top:1px solid #ddd;margin:32px 0 16px;">
<p style="font-size:12px;color:#777;">You are receiving {{ brand | escape }} because you subscribed.
<a href="{{ unsubscribe_url | escape }}">Unsubscribe</a></p>
</div>
</body>
</html>
`

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// Composer turns an issue export into per-recipient messages.
type Composer struct {
	brand   string
	baseURL string
	layout  *liquid.Template
}

// NewComposer parses layout (DefaultLayout when empty).
func NewComposer(brand, baseURL, layout string) (*Composer, error) {
	if brand == "" {
		brand = DefaultBrand
	}
	if layout == "" {
		layout = DefaultLayout
	}
	tpl, err := liquid.NewEngine().ParseString(layout)
	if err != nil {
		return nil, fmt.Errorf("parse email layout: %w", err)
	}
	return &Composer{
		brand:   brand,
		baseURL: strings.TrimRight(baseURL, "/"),
		layout:  tpl,
	}, nil
}

// BaseURL returns the public base URL links are built from.
func (c *Composer) BaseURL() string { return c.baseURL }

// Subject returns "<brand> - <issue date>".
func (c *Composer) Subject(is *domain.Issue) string {
	return c.brand + " - " + is.IssueDate
}

// UnsubscribeURL builds the public unsubscribe link for token.
func (c *Composer) UnsubscribeURL(token string) string {
	return c.baseURL + "/newsletter/unsubscribe?token=" + url.QueryEscape(token)
}

// Prepared is an issue rendered once per run, ready to be personalized.
type Prepared struct {
	c        *Composer
	subject  string
	markdown string
	bodyHTML string
}

// Prepare renders the issue markdown to HTML.
func (c *Composer) Prepare(is *domain.Issue, md string) (*Prepared, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return &Prepared{
		c:        c,
		subject:  c.Subject(is),
		markdown: md,
		bodyHTML: buf.String(),
	}, nil
}

// Markdown returns the export the run was prepared from.
func (p *Prepared) Markdown() string { return p.markdown }

// Message builds the message for one recipient.
func (p *Prepared) Message(to, token string) (*domain.EmailMessage, error) {
	unsub := p.c.UnsubscribeURL(token)
	html, err := p.c.layout.RenderString(map[string]any{
		"subject":         p.subject,
		"brand":           p.c.brand,
		"body_html":       p.bodyHTML,
		"unsubscribe_url": unsub,
	})
	if err != nil {
		return nil, fmt.Errorf("render email layout: %w", err)
	}
	return &domain.EmailMessage{
		To:       to,
		Subject:  p.subject,
		TextBody: p.markdown + "\n\n---\n\nUnsubscribe: " + unsub + "\n",
		HTMLBody: html,
		Headers: map[string]string{
			"List-Unsubscribe": "<" + unsub + ">",
		},
	}, nil
}
