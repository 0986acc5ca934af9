package types

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidProviderID        = errors.New("invalid provider ID")
	ErrInvalidAPIHost           = errors.New("invalid API host")
	ErrMissingAPIKey            = errors.New("missing API key")
	ErrMissingInstanceURL       = errors.New("missing SearXNG instance URL")
	ErrMissingBasicAuthPassword = errors.New("missing basic auth password")

	// Request errors
	ErrEmptyQuery = errors.New("missing query")

	// Provider errors
	ErrProviderNotFound = errors.New("invalid provider")
	ErrInvalidResponse  = errors.New("invalid response from provider")
)

// IsConfigError reports whether err stems from caller-supplied provider settings
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidProviderID) ||
		errors.Is(err, ErrInvalidAPIHost) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrMissingInstanceURL) ||
		errors.Is(err, ErrMissingBasicAuthPassword)
}

// ProviderError wraps provider-specific errors
type ProviderError struct {
	Provider   ProviderID
	Code       string
	Message    string
	StatusCode int // upstream HTTP status, 0 for transport failures
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
