// Package unsubtoken signs and verifies per-subscriber unsubscribe tokens.
//
// A token is "<subscriberID>.<hex HMAC-SHA256(secret, subscriberID:seed)>".
// Validity is bound to the server secret, which prevents forgery, and to the
// subscriber's current seed, which retires tokens from earlier subscription
// epochs once the seed rotates.
package unsubtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Delimiter separates the subscriber id from the signature. Neither a UUID
// nor a hex digest can contain it.
const Delimiter = "."

// ErrInvalidToken is returned for malformed or mismatched tokens.
var ErrInvalidToken = errors.New("invalid unsubscribe token")

// Codec issues and checks tokens with a single server secret.
type Codec struct {
	secret []byte
}

// New creates a codec. An empty secret is accepted for local development but
// makes tokens trivially forgeable.
func New(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign returns the hex signature binding subscriberID to seed.
func (c *Codec) Sign(subscriberID, seed string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(subscriberID + ":" + seed))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue builds a token for the subscriber's current seed.
func (c *Codec) Issue(subscriberID, seed string) string {
	return subscriberID + Delimiter + c.Sign(subscriberID, seed)
}

// Parsed is a structurally valid token whose signature is still unchecked.
type Parsed struct {
	SubscriberID string
	Signature    string
}

// Parse splits a token into its subscriber id and signature. It fails with
// ErrInvalidToken unless there are exactly two non-empty parts.
func Parse(token string) (Parsed, error) {
	parts := strings.Split(strings.TrimSpace(token), Delimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Parsed{}, ErrInvalidToken
	}
	return Parsed{SubscriberID: parts[0], Signature: parts[1]}, nil
}

// Verify re-derives the signature from the subscriber's stored seed and
// compares it in constant time. The caller must pass the seed currently on
// record, never one carried by the request.
func (c *Codec) Verify(p Parsed, storedSeed string) error {
	expected := c.Sign(p.SubscriberID, storedSeed)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(p.Signature))) {
		return ErrInvalidToken
	}
	return nil
}
