package generation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProvider covers timeouts, transport failures and non-2xx replies.
	ErrProvider = errors.New("provider error")
	// ErrMalformedOutput means the provider replied but the content failed validation.
	ErrMalformedOutput = errors.New("malformed provider output")
)

// Prompt is a single chat style request to the provider.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Provider turns a prompt into raw text.
type Provider interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ProviderError wraps a failed provider call. Retryable marks failures
// worth another attempt (timeouts, 429, 5xx, network errors).
type ProviderError struct {
	Status    int
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// MalformedError carries why provider output was rejected.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string { return "malformed provider output: " + e.Reason }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedOutput }

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}
