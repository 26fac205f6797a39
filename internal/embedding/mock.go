package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

const mockDims = 32

// MockClient derives embeddings from token hashes, with no network calls.
// Identical texts always embed identically and unrelated texts land in
// mostly disjoint buckets, so similarity grouping behaves predictably in
// tests and demos.
type MockClient struct {
	// Vectors overrides the derived embedding for exact text matches.
	Vectors map[string][]float32

	mu    sync.Mutex
	calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls = append(c.calls, text)
	override, ok := c.Vectors[text]
	c.mu.Unlock()
	if ok {
		return override, nil
	}

	vec := make([]float32, mockDims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%mockDims]++
	}
	return vec, nil
}

// Calls returns the texts embedded so far.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
