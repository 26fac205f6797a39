package domain

import (
	"errors"
	"fmt"
	"time"
)

// TransportError reports a network, protocol, or authentication failure while
// talking to a model provider. Status carries the HTTP status code when one
// was received, 0 otherwise.
type TransportError struct {
	Provider string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transport failure (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError reports provider throttling. RetryAfter is the provider's
// suggested backoff when it sent one, 0 otherwise.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// TimeoutError reports that a completion call exceeded its configured
// deadline. It is distinct from caller cancellation, which propagates as the
// context's own error.
type TimeoutError struct {
	Provider string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: completion timed out: %v", e.Provider, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// GenerationError wraps a failure while eliciting internal knowledge.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generate internal knowledge: " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// ConsolidationError wraps a failure while clustering passages.
type ConsolidationError struct {
	Err error
}

func (e *ConsolidationError) Error() string { return "consolidate knowledge: " + e.Err.Error() }

func (e *ConsolidationError) Unwrap() error { return e.Err }

// FinalizationError wraps a failure while producing the final answer.
type FinalizationError struct {
	Err error
}

func (e *FinalizationError) Error() string { return "finalize answer: " + e.Err.Error() }

func (e *FinalizationError) Unwrap() error { return e.Err }

// Retryable reports whether the error chain bottoms out in a transient
// provider failure. Caller cancellation is never retryable.
func Retryable(err error) bool {
	var transport *TransportError
	var rateLimit *RateLimitError
	var timeout *TimeoutError
	return errors.As(err, &transport) || errors.As(err, &rateLimit) || errors.As(err, &timeout)
}
