package llm

import (
	"context"
	"testing"
	"time"

	"astute/internal/domain"
)

func TestRateLimitedPassesThrough(t *testing.T) {
	mock := NewMockClient("hello")
	c := NewRateLimited(mock, 100, 1)

	got, err := c.Complete(context.Background(), "prompt", domain.CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete() = %q, want %q", got, "hello")
	}
	if mock.CallCount() != 1 {
		t.Errorf("inner calls = %d, want 1", mock.CallCount())
	}
}

func TestRateLimitedHonorsCancellation(t *testing.T) {
	mock := NewMockClient("never reached")
	// Zero rate with burst 1: the second call would wait forever.
	c := NewRateLimited(mock, 0, 1)

	if _, err := c.Complete(context.Background(), "first", domain.CompletionOptions{}); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Complete(ctx, "second", domain.CompletionOptions{}); err == nil {
		t.Fatal("expected error once the context expired")
	}
	if mock.CallCount() != 1 {
		t.Errorf("inner calls = %d, want 1", mock.CallCount())
	}
}

func TestMockClientScriptedTurns(t *testing.T) {
	mock := NewMockClient("first", "second")

	for i, want := range []string{"first", "second", "second"} {
		got, err := mock.Complete(context.Background(), "p", domain.CompletionOptions{})
		if err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
		if got != want {
			t.Errorf("call %d = %q, want %q", i, got, want)
		}
	}
	if mock.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", mock.CallCount())
	}

	mock.Reset()
	if mock.CallCount() != 0 {
		t.Errorf("CallCount() after Reset = %d", mock.CallCount())
	}
	got, _ := mock.Complete(context.Background(), "p", domain.CompletionOptions{})
	if got != "first" {
		t.Errorf("after Reset = %q, want turn script rewound to %q", got, "first")
	}
}
