package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/brief/internal/domain"
)

func testMessage() *domain.EmailMessage {
	return &domain.EmailMessage{
		To:       "reader@example.com",
		Subject:  "Ordo Brief - 2026-01-07",
		TextBody: "# Weekly\n",
		HTMLBody: "<h1>Weekly</h1>",
		Headers:  map[string]string{"List-Unsubscribe": "<https://brief.test/newsletter/unsubscribe?token=t>"},
	}
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"":          Console,
		"Console":   Console,
		"postmark":  Postmark,
		"sparkpost": SparkPost,
		"mailgun":   Mailgun,
		"sendgrid":  SendGrid,
		" smtp ":    SMTP,
	}
	for name, want := range cases {
		p, err := New(ctx, Config{Name: name, FromEmail: "brief@example.com"})
		require.NoError(t, err, name)
		assert.Equal(t, want, p.Name(), name)
	}
}

func TestUnknownProviderFailsEverySend(t *testing.T) {
	p, err := New(context.Background(), Config{Name: "pigeon"})
	require.NoError(t, err)
	assert.Equal(t, "pigeon", p.Name())

	_, err = p.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "unsupported_provider", err.Error())
}

func TestConsoleAlwaysSucceeds(t *testing.T) {
	id, err := NewConsole().Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Contains(t, id, "console-")
}

func TestPostmarkSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "pm-token", r.Header.Get("X-Postmark-Server-Token"))

		var got postmarkEmail
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "brief@example.com", got.From)
		assert.Equal(t, "reader@example.com", got.To)
		assert.Equal(t, "outbound", got.MessageStream)
		assert.Equal(t, "<h1>Weekly</h1>", got.HtmlBody)
		require.Len(t, got.Headers, 1)
		assert.Equal(t, "List-Unsubscribe", got.Headers[0].Name)

		w.Write([]byte(`{"MessageID":"pm-1","ErrorCode":0}`))
	}))
	defer srv.Close()

	p := NewPostmark(PostmarkConfig{ServerToken: "pm-token", BaseURL: srv.URL}, "brief@example.com", srv.Client())
	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "pm-1", id)
}

func TestPostmarkFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"ErrorCode":300}`))
	}))
	defer srv.Close()

	p := NewPostmark(PostmarkConfig{ServerToken: "pm-token", BaseURL: srv.URL}, "brief@example.com", srv.Client())
	_, err := p.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, `postmark_http_422:{"ErrorCode":300}`, err.Error())

	missing := NewPostmark(PostmarkConfig{BaseURL: srv.URL}, "brief@example.com", srv.Client())
	_, err = missing.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrMissingPostmarkConfig)
	assert.Equal(t, "missing_postmark_config", err.Error())
}

func TestSparkPostSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transmissions", r.URL.Path)
		assert.Equal(t, "sp-key", r.Header.Get("Authorization"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		content := got["content"].(map[string]any)
		assert.Equal(t, "Ordo Brief - 2026-01-07", content["subject"])

		w.Write([]byte(`{"results":{"id":"sp-1","total_accepted_recipients":1}}`))
	}))
	defer srv.Close()

	p := NewSparkPost(SparkPostConfig{APIKey: "sp-key", BaseURL: srv.URL}, "brief@example.com", "Brief", srv.Client())
	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "sp-1", id)
}

func TestMailgunSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mg.example.com/messages", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "mg-key", pass)

		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", form.Get("to"))
		assert.Equal(t, "Brief <brief@example.com>", form.Get("from"))
		assert.NotEmpty(t, form.Get("h:List-Unsubscribe"))

		w.Write([]byte(`{"id":"<mg-1@mg.example.com>","message":"Queued"}`))
	}))
	defer srv.Close()

	p := NewMailgun(MailgunConfig{APIKey: "mg-key", Domain: "mg.example.com", BaseURL: srv.URL}, "Brief <brief@example.com>", srv.Client())
	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "mg-1@mg.example.com", id)
}

func TestSendGridSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		w.Header().Set("X-Message-Id", "sg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewSendGrid(SendGridConfig{APIKey: "sg-key", BaseURL: srv.URL}, "brief@example.com", "Brief", srv.Client())
	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "sg-1", id)
}

func TestHTTPProvidersRequireConfig(t *testing.T) {
	ctx := context.Background()
	providers := []Provider{
		NewSparkPost(SparkPostConfig{}, "brief@example.com", "", http.DefaultClient),
		NewMailgun(MailgunConfig{APIKey: "k"}, "brief@example.com", http.DefaultClient),
		NewSendGrid(SendGridConfig{}, "brief@example.com", "", http.DefaultClient),
		NewSMTP(SMTPConfig{}, "brief@example.com"),
	}
	for _, p := range providers {
		_, err := p.Send(ctx, testMessage())
		assert.ErrorIs(t, err, ErrNotConfigured, p.Name())
	}
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSend(t *testing.T) {
	api := &fakeSES{}
	p := &SESProvider{api: api, from: "brief@example.com", configSet: "newsletter"}

	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, []string{"reader@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "Ordo Brief - 2026-01-07", aws.ToString(api.in.Content.Simple.Subject.Data))
	assert.Equal(t, "newsletter", aws.ToString(api.in.ConfigurationSetName))

	api.err = errors.New("throttled")
	_, err = p.Send(context.Background(), testMessage())
	assert.EqualError(t, err, "ses: throttled")
}

type fakeSendCloser struct {
	from   string
	to     []string
	body   bytes.Buffer
	closed bool
}

func (f *fakeSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	f.from = from
	f.to = to
	_, err := msg.WriteTo(&f.body)
	return err
}

func (f *fakeSendCloser) Close() error {
	f.closed = true
	return nil
}

func TestSMTPSend(t *testing.T) {
	sc := &fakeSendCloser{}
	p := NewSMTP(SMTPConfig{Host: "smtp.example.com"}, "brief@example.com")
	p.dial = func() (mailSendCloser, error) { return sc, nil }

	id, err := p.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Contains(t, id, "@brief>")
	assert.Equal(t, "brief@example.com", sc.from)
	assert.Equal(t, []string{"reader@example.com"}, sc.to)
	assert.True(t, sc.closed)

	raw := sc.body.String()
	assert.Contains(t, raw, "Subject: Ordo Brief - 2026-01-07")
	assert.Contains(t, raw, "List-Unsubscribe:")
	assert.Contains(t, raw, "text/html")
}
