package llm

import (
	"context"
	"sync"

	"astute/internal/domain"
)

// MockTurn scripts one completion call: the response to return, or the error
// to fail with.
type MockTurn struct {
	Response string
	Err      error
}

// MockClient is a configurable completion client for testing. Calls consume
// Turns in order; once drained, the last turn repeats. Set Err to fail every
// call regardless of turns, or CompleteFunc to take over entirely.
type MockClient struct {
	mu sync.Mutex

	Turns        []MockTurn
	Err          error
	CompleteFunc func(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)

	// Call tracking for assertions
	Calls []string

	next int
}

// NewMockClient builds a mock scripted with the given responses in call
// order. With no arguments it answers every call with the unknown sentinel.
func NewMockClient(responses ...string) *MockClient {
	turns := make([]MockTurn, 0, len(responses))
	for _, r := range responses {
		turns = append(turns, MockTurn{Response: r})
	}
	if len(turns) == 0 {
		turns = []MockTurn{{Response: "UNKNOWN"}}
	}
	return &MockClient{Turns: turns}
}

func (c *MockClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, prompt)
	fn := c.CompleteFunc
	if fn == nil {
		if c.Err != nil {
			err := c.Err
			c.mu.Unlock()
			return "", err
		}
		turn := MockTurn{}
		if len(c.Turns) > 0 {
			i := c.next
			if i >= len(c.Turns) {
				i = len(c.Turns) - 1
			}
			turn = c.Turns[i]
			c.next++
		}
		c.mu.Unlock()
		return turn.Response, turn.Err
	}
	c.mu.Unlock()
	return fn(ctx, prompt, opts)
}

// CallCount returns how many completions have been requested.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears recorded calls and rewinds the turn script.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
	c.Err = nil
	c.CompleteFunc = nil
	c.next = 0
}
