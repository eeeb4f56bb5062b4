package extractor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an extraction failure so callers can tell
// user errors from endpoint failures without string matching.
type ErrorKind string

const (
	// KindValidation covers rejected input: empty text, oversized text,
	// or an unknown schema ID. No endpoint call was made.
	KindValidation ErrorKind = "validation"
	// KindRateLimitTimeout means the limiter wait exceeded its bound.
	KindRateLimitTimeout ErrorKind = "rate_limit_timeout"
	// KindSchemaMismatch means the endpoint answered but the payload did
	// not fit the requested schema.
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	// KindExternal covers endpoint failures that survived the retry budget.
	KindExternal ErrorKind = "external"
	// KindTimeout means the per-request deadline elapsed.
	KindTimeout ErrorKind = "timeout"
	// KindCancelled means the caller cancelled the context.
	KindCancelled ErrorKind = "cancelled"
)

// Error is a classified extraction failure.
type Error struct {
	Err  error
	Kind ErrorKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (ErrorKind, bool) {
	var extErr *Error
	if errors.As(err, &extErr) {
		return extErr.Kind, true
	}
	return "", false
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
