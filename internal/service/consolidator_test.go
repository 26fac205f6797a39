package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"astute/internal/domain"
	"astute/internal/llm"
)

type stubGrouper struct {
	clusters []domain.KnowledgeCluster
	err      error
	calls    int
}

func (s *stubGrouper) Group(ctx context.Context, question string, passages []domain.Passage) ([]domain.KnowledgeCluster, error) {
	s.calls++
	return s.clusters, s.err
}

func TestConsolidateEmptyPool(t *testing.T) {
	grouper := &stubGrouper{}
	c := NewConsolidator(grouper, zap.NewNop())

	clusters, err := c.Consolidate(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("got %d clusters, want 0", len(clusters))
	}
	if grouper.calls != 0 {
		t.Errorf("grouper called %d times on empty pool, want 0", grouper.calls)
	}
}

func TestConsolidateRepairsPartition(t *testing.T) {
	passages := poolOf("a", "b", "c", "d")
	// The grouper assigns passage 0 twice, never assigns 2 or 3, and
	// includes an empty group.
	grouper := &stubGrouper{clusters: []domain.KnowledgeCluster{
		{Passages: []domain.Passage{passages[0], passages[1]}, Consensus: "ab"},
		{Passages: []domain.Passage{passages[0]}, Consensus: "dup"},
		{Consensus: "empty"},
	}}
	c := NewConsolidator(grouper, zap.NewNop())

	clusters, err := c.Consolidate(context.Background(), "q", passages)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}

	counts := make(map[int]int)
	for _, cl := range clusters {
		if len(cl.Passages) == 0 {
			t.Error("empty cluster survived normalization")
		}
		for _, p := range cl.Passages {
			counts[p.Index]++
		}
	}
	for _, p := range passages {
		if counts[p.Index] != 1 {
			t.Errorf("passage %d appears %d times, want exactly 1", p.Index, counts[p.Index])
		}
	}
	// First assignment wins; the unassigned passages come back as singletons.
	if len(clusters) != 3 {
		t.Fatalf("got %d clusters, want 3: %+v", len(clusters), clusters)
	}
	if clusters[0].Consensus != "ab" || len(clusters[0].Passages) != 2 {
		t.Errorf("cluster 0 = %+v", clusters[0])
	}
	if clusters[1].Consensus != "c" || clusters[2].Consensus != "d" {
		t.Errorf("singleton consensus = %q, %q", clusters[1].Consensus, clusters[2].Consensus)
	}
}

func TestConsolidateOrdersByFirstIndex(t *testing.T) {
	passages := poolOf("a", "b", "c")
	grouper := &stubGrouper{clusters: []domain.KnowledgeCluster{
		{Passages: []domain.Passage{passages[2]}, Consensus: "late"},
		{Passages: []domain.Passage{passages[0], passages[1]}, Consensus: "early"},
	}}
	c := NewConsolidator(grouper, zap.NewNop())

	clusters, err := c.Consolidate(context.Background(), "q", passages)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if clusters[0].Consensus != "early" || clusters[1].Consensus != "late" {
		t.Errorf("cluster order = %q, %q; want earliest passage first", clusters[0].Consensus, clusters[1].Consensus)
	}
}

func TestConsolidateRemapsConflicts(t *testing.T) {
	passages := poolOf("a", "b", "c")
	// Group order: an empty group (dropped), then two conflicting groups
	// referring to each other by the grouper's own positions, one side
	// forgetting to reciprocate.
	grouper := &stubGrouper{clusters: []domain.KnowledgeCluster{
		{Consensus: "empty"},
		{Passages: []domain.Passage{passages[2]}, Consensus: "claim B", Conflicts: []int{2}},
		{Passages: []domain.Passage{passages[0], passages[1]}, Consensus: "claim A"},
	}}
	c := NewConsolidator(grouper, zap.NewNop())

	clusters, err := c.Consolidate(context.Background(), "q", passages)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	// After dropping the empty group and reordering by first index,
	// "claim A" is cluster 0 and "claim B" is cluster 1.
	if clusters[0].Consensus != "claim A" || clusters[1].Consensus != "claim B" {
		t.Fatalf("cluster order = %q, %q", clusters[0].Consensus, clusters[1].Consensus)
	}
	if !reflect.DeepEqual(clusters[1].Conflicts, []int{0}) {
		t.Errorf("cluster 1 conflicts = %v, want [0]", clusters[1].Conflicts)
	}
	if !reflect.DeepEqual(clusters[0].Conflicts, []int{1}) {
		t.Errorf("conflicts must be symmetric; cluster 0 has %v, want [1]", clusters[0].Conflicts)
	}
}

func TestConsolidateDegradesToSingletons(t *testing.T) {
	passages := poolOf("first claim", "second claim")
	grouper := &stubGrouper{err: fmt.Errorf("%w: gibberish", ErrUnparsableGrouping)}
	c := NewConsolidator(grouper, zap.NewNop())

	clusters, err := c.Consolidate(context.Background(), "q", passages)
	if err != nil {
		t.Fatalf("degraded consolidation should not fail, got %v", err)
	}
	if len(clusters) != len(passages) {
		t.Fatalf("got %d clusters, want %d singletons", len(clusters), len(passages))
	}
	for i, cl := range clusters {
		if len(cl.Passages) != 1 || cl.Passages[0].Index != i {
			t.Errorf("cluster %d = %+v, want singleton in pool order", i, cl)
		}
		if cl.Consensus != cl.Passages[0].Content {
			t.Errorf("singleton consensus = %q, want member content", cl.Consensus)
		}
	}
}

func TestConsolidateWrapsTransportError(t *testing.T) {
	grouper := &stubGrouper{err: &domain.TransportError{Provider: "openai", Err: errors.New("refused")}}
	c := NewConsolidator(grouper, zap.NewNop())

	_, err := c.Consolidate(context.Background(), "q", poolOf("a"))
	var ce *domain.ConsolidationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConsolidationError, got %v", err)
	}
	if !domain.Retryable(err) {
		t.Error("transport cause should stay retryable through the wrap")
	}
}

func TestConsolidateKeepsContradictionsApart(t *testing.T) {
	mock := llm.NewMockClient(`[
		{"consensus":"The capital of France is Paris","members":[0,1],"conflicts_with":[1]},
		{"consensus":"The capital of France is Lyon","members":[2],"conflicts_with":[0]}
	]`)
	c := NewConsolidator(NewPromptGrouper(mock, domain.CompletionOptions{}, zap.NewNop()), zap.NewNop())

	passages := poolOf(
		"Paris is the capital of France.",
		"France's capital city is Paris.",
		"Lyon is the capital of France.",
	)
	clusters, err := c.Consolidate(context.Background(), "q", passages)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("contradicting claims must stay in separate clusters, got %d", len(clusters))
	}
	if !hasConflicts(clusters) {
		t.Error("the contradiction should survive normalization")
	}
	if mock.CallCount() != 1 {
		t.Errorf("model calls = %d, want exactly 1", mock.CallCount())
	}
}
