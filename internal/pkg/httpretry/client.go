// Package httpretry wraps an HTTP client with bounded retries for transient
// provider failures. Network errors and 429 are retried for every method;
// 5xx gateway statuses only for idempotent methods, since a provider may
// have accepted a POST before its gateway failed.
package httpretry

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/brief/internal/pkg/logger"
)

// Doer executes HTTP requests. *http.Client and *Client both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client retries idempotent-safe failures with capped exponential backoff
// and full jitter.
type Client struct {
	doer       Doer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets the retries after the first attempt. Zero disables
// retrying.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the first backoff step and the cap.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// New wraps doer (a 15s-timeout http.Client when nil). Defaults: 2 retries,
// 500ms base delay, 10s cap.
func New(doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		doer:       doer,
		maxRetries: 2,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends req, retrying transient failures. The final response is returned
// unread whatever its status so the caller can report it. Request bodies
// must be replayable through req.GetBody, which http.NewRequest sets for
// bytes and strings readers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: rewind body: %w", err)
				}
				req.Body = body
			}
			delay := c.backoff(attempt)
			logger.Debug("httpretry: retrying",
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"host", req.URL.Host,
				"path", req.URL.Path,
				"delay", delay.String(),
				"cause", lastErr,
			)
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, lastErr
			}
		}

		resp, err := c.doer.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
		case !retryableFor(req, resp.StatusCode) || attempt == c.maxRetries:
			return resp, nil
		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("httpretry: %s returned %d", req.URL.Host, resp.StatusCode)
		}

		if attempt == c.maxRetries {
			return nil, lastErr
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseDelay << (attempt - 1)
	if d <= 0 || d > c.maxDelay {
		d = c.maxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d))) + d/10
}

// retryableFor applies Retryable to idempotent requests. Anything else is
// retried only on 429, which providers return before accepting a message.
func retryableFor(req *http.Request, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return Retryable(status)
	}
	return false
}

// Retryable reports whether status is worth retrying for an idempotent
// request.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
