package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a capability call failure. The resilient caller uses the
// kind to decide whether an attempt may be retried.
type Kind string

const (
	// KindRateLimited is a provider rate limit response (HTTP 429).
	KindRateLimited Kind = "rate_limited"

	// KindTimeout is an attempt that exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindInvalidRequest is a request the provider rejected as malformed
	// (HTTP 4xx other than 401/403/429). Never retried.
	KindInvalidRequest Kind = "invalid_request"

	// KindAuth is an authentication or authorization failure (401, 403).
	// Never retried.
	KindAuth Kind = "auth"

	// KindProvider is a provider-side failure (HTTP 5xx).
	KindProvider Kind = "provider_error"

	// KindNetwork is a transport failure where no HTTP response was
	// received.
	KindNetwork Kind = "network"
)

// Error represents a failed call to a remote AI capability.
type Error struct {
	// Capability is the pipeline capability being called (e.g. "ocr").
	Capability string
	// Provider is the provider name (e.g. "gemini", "openai", "perplexity").
	Provider string
	// Kind is the failure classification.
	Kind Kind
	// StatusCode is the HTTP status code, or 0 when no response was received.
	StatusCode int
	// Message is the provider's error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s call failed (status %d, %s): %s",
			e.Provider, e.Capability, e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s call failed (%s): %s",
		e.Provider, e.Capability, e.Kind, e.Message)
}

// IsTransient returns true if the error may succeed on retry. This covers
// rate limiting, timeouts, provider-side errors, and network failures.
func (e *Error) IsTransient() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindProvider, KindNetwork:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is a transient capability error.
func IsTransient(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}

// KindOf returns the error kind of err, or the empty string when err is not
// a capability error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// kindFromStatus classifies an HTTP status code.
func kindFromStatus(statusCode int) Kind {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuth
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return KindTimeout
	case statusCode >= 500:
		return KindProvider
	default:
		return KindInvalidRequest
	}
}
