package domain

import (
	"context"
	"time"
)

// CompletionOptions tune a single completion call. Zero values defer to the
// client's defaults.
type CompletionOptions struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// CompletionClient is a stateless text-in, text-out language model.
// Implementations must be safe for concurrent use and must classify failures
// as TransportError, RateLimitError, or TimeoutError.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// EmbeddingClient turns text into a dense vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
