package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"astute/internal/domain"
	"astute/internal/embedding"
	"astute/internal/llm"
)

func poolOf(contents ...string) []domain.Passage {
	passages := make([]domain.Passage, 0, len(contents))
	for i, c := range contents {
		p := domain.NewExternalPassage(c, i)
		p.Index = i
		passages = append(passages, p)
	}
	return passages
}

func TestPromptGrouperParsesGroups(t *testing.T) {
	mock := llm.NewMockClient(`[
		{"consensus":"Paris is the capital of France","members":[0,2],"conflicts_with":[1]},
		{"consensus":"Lyon is the capital of France","members":[1],"conflicts_with":[0]}
	]`)
	g := NewPromptGrouper(mock, domain.CompletionOptions{}, zap.NewNop())

	passages := poolOf(
		"Paris is the capital of France.",
		"Lyon is the capital of France.",
		"The capital city of France is Paris.",
	)
	clusters, err := g.Group(context.Background(), "What is the capital of France?", passages)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if len(clusters[0].Passages) != 2 || len(clusters[1].Passages) != 1 {
		t.Errorf("cluster sizes = %d, %d; want 2, 1", len(clusters[0].Passages), len(clusters[1].Passages))
	}
	if clusters[0].Consensus != "Paris is the capital of France" {
		t.Errorf("consensus = %q", clusters[0].Consensus)
	}
	if !reflect.DeepEqual(clusters[0].Conflicts, []int{1}) {
		t.Errorf("cluster 0 conflicts = %v, want [1]", clusters[0].Conflicts)
	}
	if mock.CallCount() != 1 {
		t.Errorf("model calls = %d, want exactly 1", mock.CallCount())
	}
}

func TestPromptGrouperStripsFences(t *testing.T) {
	mock := llm.NewMockClient("```json\n[{\"consensus\":\"c\",\"members\":[0]}]\n```")
	g := NewPromptGrouper(mock, domain.CompletionOptions{}, zap.NewNop())

	clusters, err := g.Group(context.Background(), "q", poolOf("only passage"))
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(clusters) != 1 || len(clusters[0].Passages) != 1 {
		t.Fatalf("clusters = %+v", clusters)
	}
}

func TestPromptGrouperUnparsableResponse(t *testing.T) {
	for _, response := range []string{
		"I could not group these passages, sorry.",
		"[]",
		`[{"consensus":"ghost","members":[41,42]}]`,
	} {
		mock := llm.NewMockClient(response)
		g := NewPromptGrouper(mock, domain.CompletionOptions{}, zap.NewNop())

		_, err := g.Group(context.Background(), "q", poolOf("a", "b"))
		if !errors.Is(err, ErrUnparsableGrouping) {
			t.Errorf("response %q: error = %v, want ErrUnparsableGrouping", response, err)
		}
	}
}

func TestPromptGrouperSkipsInvalidMembers(t *testing.T) {
	mock := llm.NewMockClient(`[{"consensus":"c","members":[0,9,1]}]`)
	g := NewPromptGrouper(mock, domain.CompletionOptions{}, zap.NewNop())

	clusters, err := g.Group(context.Background(), "q", poolOf("a", "b"))
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(clusters) != 1 || len(clusters[0].Passages) != 2 {
		t.Fatalf("clusters = %+v; hallucinated index should be dropped", clusters)
	}
}

func TestPromptGrouperPropagatesClientError(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Err = &domain.TimeoutError{Provider: "openai", Err: context.DeadlineExceeded}
	g := NewPromptGrouper(mock, domain.CompletionOptions{}, zap.NewNop())

	_, err := g.Group(context.Background(), "q", poolOf("a"))
	var to *domain.TimeoutError
	if !errors.As(err, &to) {
		t.Fatalf("expected TimeoutError to pass through, got %v", err)
	}
}

func TestEmbeddingGrouperGroupsSimilarTexts(t *testing.T) {
	embedder := embedding.NewMockClient()
	g := NewEmbeddingGrouper(embedder, 0.9, zap.NewNop())

	passages := poolOf(
		"paris capital france",
		"paris capital france",
		"quantum computers use qubits",
	)
	clusters, err := g.Group(context.Background(), "q", passages)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2: %+v", len(clusters), clusters)
	}
	if len(clusters[0].Passages) != 2 {
		t.Errorf("identical texts should share a cluster, got %+v", clusters[0])
	}
	if clusters[0].Consensus != "paris capital france" {
		t.Errorf("consensus should be the earliest member, got %q", clusters[0].Consensus)
	}
	if clusters[1].Conflicts != nil {
		t.Errorf("similarity grouping cannot detect conflicts, got %v", clusters[1].Conflicts)
	}
}

func TestEmbeddingGrouperDeterministic(t *testing.T) {
	passages := poolOf(
		"alpha beta gamma",
		"alpha beta gamma",
		"delta epsilon zeta",
		"alpha beta delta",
	)

	run := func() []domain.KnowledgeCluster {
		g := NewEmbeddingGrouper(embedding.NewMockClient(), 0.9, zap.NewNop())
		clusters, err := g.Group(context.Background(), "q", passages)
		if err != nil {
			t.Fatalf("Group() error = %v", err)
		}
		return clusters
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different clusterings:\n%+v\n%+v", first, second)
	}
}

func TestEmbeddingGrouperPropagatesEmbedError(t *testing.T) {
	embedder := &failingEmbedder{err: &domain.TransportError{Provider: "openai", Err: errors.New("boom")}}
	g := NewEmbeddingGrouper(embedder, 0.9, zap.NewNop())

	_, err := g.Group(context.Background(), "q", poolOf("a"))
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

type failingEmbedder struct {
	err error
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 2}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
