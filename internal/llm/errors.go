package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies a provider failure so callers can decide
// whether a retry has any chance of succeeding.
type FailureKind string

const (
	// FailureTransient covers network errors and server-side 5xx responses.
	FailureTransient FailureKind = "transient"
	// FailureRateLimited covers 429 and provider overload responses.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureAuth covers invalid or missing credentials.
	FailureAuth FailureKind = "auth"
	// FailureInvalidRequest covers malformed requests rejected by the endpoint.
	FailureInvalidRequest FailureKind = "invalid_request"
)

// APIError is a classified failure from a provider call.
type APIError struct {
	Err      error
	Provider string
	Kind     FailureKind
	Status   int // HTTP status if known, 0 otherwise
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s API error (%s, status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s API error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is worth retrying.
func (e *APIError) Retryable() bool {
	return e.Kind == FailureTransient || e.Kind == FailureRateLimited
}

// KindOf extracts the failure kind from an error chain.
// Unclassified errors are treated as transient.
func KindOf(err error) FailureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return FailureTransient
}

// IsRetryable reports whether err carries a retryable failure class.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) FailureKind {
	switch {
	case status == 429:
		return FailureRateLimited
	case status == 401 || status == 403:
		return FailureAuth
	case status >= 400 && status < 500:
		return FailureInvalidRequest
	default:
		return FailureTransient
	}
}

// wrapError builds an *APIError from a raw provider error.
func wrapError(provider string, status int, err error) error {
	kind := FailureTransient
	if status > 0 {
		kind = classifyStatus(status)
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) {
			kind = FailureTransient
		}
	}
	return &APIError{
		Provider: provider,
		Status:   status,
		Kind:     kind,
		Err:      err,
	}
}
