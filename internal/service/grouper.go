package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"astute/internal/domain"
)

// ErrUnparsableGrouping reports that no grouping could be recovered from the
// model's response. The consolidator treats it as a signal to degrade, not
// as a hard failure.
var ErrUnparsableGrouping = errors.New("grouping response is unparsable")

// ConsistencyGrouper partitions passages into clusters of mutually
// consistent claims. Implementations may return a sloppy partition; the
// consolidator normalizes it afterwards.
type ConsistencyGrouper interface {
	Group(ctx context.Context, question string, passages []domain.Passage) ([]domain.KnowledgeCluster, error)
}

// PromptGrouper asks the language model to partition the passages in a
// single call, conflicts included.
type PromptGrouper struct {
	client domain.CompletionClient
	opts   domain.CompletionOptions
	logger *zap.Logger
}

func NewPromptGrouper(client domain.CompletionClient, opts domain.CompletionOptions, logger *zap.Logger) *PromptGrouper {
	return &PromptGrouper{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

func (g *PromptGrouper) Group(ctx context.Context, question string, passages []domain.Passage) ([]domain.KnowledgeCluster, error) {
	raw, err := g.client.Complete(ctx, buildConsolidatePrompt(question, passages), g.opts)
	if err != nil {
		return nil, err
	}

	clusters, err := parseGroupedResponse(raw, passages)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("passages grouped by prompt",
		zap.Int("passages", len(passages)),
		zap.Int("clusters", len(clusters)))

	return clusters, nil
}

type groupedResponse struct {
	Consensus     string `json:"consensus"`
	Members       []int  `json:"members"`
	ConflictsWith []int  `json:"conflicts_with"`
}

// parseGroupedResponse maps the model's JSON grouping onto the passage pool.
// Member indices that point at no passage are dropped. If nothing valid
// remains, the response counts as unparsable.
func parseGroupedResponse(raw string, passages []domain.Passage) ([]domain.KnowledgeCluster, error) {
	var groups []groupedResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &groups); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableGrouping, err)
	}

	byIndex := make(map[int]domain.Passage, len(passages))
	for _, p := range passages {
		byIndex[p.Index] = p
	}

	clusters := make([]domain.KnowledgeCluster, 0, len(groups))
	kept := 0
	for _, grp := range groups {
		cluster := domain.KnowledgeCluster{
			Consensus: strings.TrimSpace(grp.Consensus),
			Conflicts: grp.ConflictsWith,
		}
		for _, m := range grp.Members {
			p, ok := byIndex[m]
			if !ok {
				continue
			}
			cluster.Passages = append(cluster.Passages, p)
			kept++
		}
		clusters = append(clusters, cluster)
	}

	if kept == 0 {
		return nil, fmt.Errorf("%w: no valid passage assignments", ErrUnparsableGrouping)
	}
	return clusters, nil
}

const defaultSimilarityThreshold = 0.9

// EmbeddingGrouper partitions passages by embedding similarity, greedy
// seeding with a running centroid. It is fully deterministic for a given
// embedder, but cannot flag contradictions; a cluster's consensus is its
// earliest member's text, not a synthesis.
type EmbeddingGrouper struct {
	embedder  domain.EmbeddingClient
	threshold float32
	logger    *zap.Logger
}

func NewEmbeddingGrouper(embedder domain.EmbeddingClient, threshold float32, logger *zap.Logger) *EmbeddingGrouper {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSimilarityThreshold
	}
	return &EmbeddingGrouper{
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

func (g *EmbeddingGrouper) Group(ctx context.Context, question string, passages []domain.Passage) ([]domain.KnowledgeCluster, error) {
	vectors := make([][]float32, len(passages))
	for i, p := range passages {
		v, err := g.embedder.Embed(ctx, p.Content)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}

	assigned := make(map[int]bool, len(passages))
	var clusters []domain.KnowledgeCluster

	for i, seed := range passages {
		if assigned[i] {
			continue
		}

		cluster := domain.KnowledgeCluster{
			Passages:  []domain.Passage{seed},
			Consensus: seed.Content,
		}
		centroid := vectors[i]
		assigned[i] = true

		for j := i + 1; j < len(passages); j++ {
			if assigned[j] {
				continue
			}
			if cosineSimilarity(centroid, vectors[j]) >= g.threshold {
				cluster.Passages = append(cluster.Passages, passages[j])
				assigned[j] = true

				// Update centroid (simple average)
				centroid = averageVectors(centroid, vectors[j])
			}
		}

		clusters = append(clusters, cluster)
	}

	g.logger.Debug("passages grouped by embedding similarity",
		zap.Int("passages", len(passages)),
		zap.Int("clusters", len(clusters)),
		zap.Float32("threshold", g.threshold))

	return clusters, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// averageVectors computes the element-wise average of two vectors.
func averageVectors(a, b []float32) []float32 {
	if len(a) != len(b) {
		return a
	}

	result := make([]float32, len(a))
	for i := 0; i < len(a); i++ {
		result[i] = (a[i] + b[i]) / 2
	}
	return result
}
