package llm

import (
	"context"

	"golang.org/x/time/rate"

	"astute/internal/domain"
)

// RateLimited wraps a completion client with a client-side limiter shared by
// every caller, so concurrent pipelines stay under the provider's quota
// instead of discovering it via 429s.
type RateLimited struct {
	inner   domain.CompletionClient
	limiter *rate.Limiter
}

func NewRateLimited(inner domain.CompletionClient, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *RateLimited) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Complete(ctx, prompt, opts)
}
