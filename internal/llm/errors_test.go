package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   FailureKind
	}{
		{"rate limited", 429, FailureRateLimited},
		{"unauthorized", 401, FailureAuth},
		{"forbidden", 403, FailureAuth},
		{"bad request", 400, FailureInvalidRequest},
		{"unprocessable", 422, FailureInvalidRequest},
		{"server error", 500, FailureTransient},
		{"bad gateway", 502, FailureTransient},
		{"overloaded", 529, FailureTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestAPIError_Retryable(t *testing.T) {
	retryable := []FailureKind{FailureTransient, FailureRateLimited}
	for _, kind := range retryable {
		err := &APIError{Provider: "test", Kind: kind, Err: errors.New("boom")}
		if !err.Retryable() {
			t.Errorf("kind %q should be retryable", kind)
		}
	}

	fatal := []FailureKind{FailureAuth, FailureInvalidRequest}
	for _, kind := range fatal {
		err := &APIError{Provider: "test", Kind: kind, Err: errors.New("boom")}
		if err.Retryable() {
			t.Errorf("kind %q should not be retryable", kind)
		}
	}
}

func TestIsRetryable_WrappedError(t *testing.T) {
	base := wrapError("openai", 429, errors.New("too many requests"))
	wrapped := fmt.Errorf("completion failed: %w", base)

	if !IsRetryable(wrapped) {
		t.Error("wrapped rate-limited error should be retryable")
	}

	if KindOf(wrapped) != FailureRateLimited {
		t.Errorf("KindOf = %q, want %q", KindOf(wrapped), FailureRateLimited)
	}
}

func TestIsRetryable_ContextErrors(t *testing.T) {
	if IsRetryable(context.Canceled) {
		t.Error("context.Canceled should not be retryable")
	}
	if IsRetryable(context.DeadlineExceeded) {
		t.Error("context.DeadlineExceeded should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
}

func TestIsRetryable_UnclassifiedError(t *testing.T) {
	if IsRetryable(errors.New("something else")) {
		t.Error("unclassified errors should not be retryable")
	}
}

func TestWrapError_NoStatus(t *testing.T) {
	err := wrapError("ollama", 0, errors.New("connection refused"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("wrapError should produce *APIError")
	}
	if apiErr.Kind != FailureTransient {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, FailureTransient)
	}
	if apiErr.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", apiErr.Provider)
	}
}
