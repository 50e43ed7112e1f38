package provider

import "errors"

// Failure values recorded as bounce reasons.
var (
	ErrUnsupported           = errors.New("unsupported_provider")
	ErrMissingPostmarkConfig = errors.New("missing_postmark_config")
	ErrNotConfigured         = errors.New("provider_not_configured")
)
