package domain

import "errors"

// Errors shared by every repository implementation.
var (
	ErrIssueNotFound      = errors.New("newsletter issue not found")
	ErrRunNotFound        = errors.New("send run not found")
	ErrSubscriberNotFound = errors.New("newsletter subscriber not found")
	ErrSourceNotFound     = errors.New("provenance source not found")
	ErrEmailExists        = errors.New("subscriber email already exists")
)
