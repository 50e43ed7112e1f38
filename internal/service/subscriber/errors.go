package subscriber

import (
	"errors"

	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/pkg/unsubtoken"
)

// Sentinel errors for the subscriber service layer.
var (
	ErrNotFound     = domain.ErrSubscriberNotFound
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidToken = unsubtoken.ErrInvalidToken
	ErrEmailExists  = domain.ErrEmailExists
)
