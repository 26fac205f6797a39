package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"astute/internal/domain"
)

// Consolidator turns a passage pool into consistency clusters. Whatever the
// grouper produces, the output is a true partition of the input: conflicting
// claims stay in separate clusters and no passage is dropped or duplicated.
type Consolidator struct {
	grouper ConsistencyGrouper
	logger  *zap.Logger
}

func NewConsolidator(grouper ConsistencyGrouper, logger *zap.Logger) *Consolidator {
	return &Consolidator{
		grouper: grouper,
		logger:  logger,
	}
}

// Consolidate clusters the passages. An empty pool returns no clusters
// without consulting the grouper. When the grouper cannot produce a usable
// grouping, consolidation degrades to one singleton cluster per passage
// rather than failing; transport failures still propagate, wrapped as
// ConsolidationError.
func (c *Consolidator) Consolidate(ctx context.Context, question string, passages []domain.Passage) ([]domain.KnowledgeCluster, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	clusters, err := c.grouper.Group(ctx, question, passages)
	if err != nil {
		if errors.Is(err, ErrUnparsableGrouping) {
			c.logger.Warn("grouping unusable, degrading to singleton clusters",
				zap.Int("passages", len(passages)),
				zap.Error(err))
			return singletonClusters(passages), nil
		}
		return nil, &domain.ConsolidationError{Err: err}
	}

	normalized := normalizeClusters(clusters, passages)

	c.logger.Debug("knowledge consolidated",
		zap.Int("passages", len(passages)),
		zap.Int("clusters", len(normalized)),
		zap.Bool("conflicts", hasConflicts(normalized)))

	return normalized, nil
}

func singletonClusters(passages []domain.Passage) []domain.KnowledgeCluster {
	clusters := make([]domain.KnowledgeCluster, 0, len(passages))
	for _, p := range passages {
		clusters = append(clusters, domain.KnowledgeCluster{
			Passages:  []domain.Passage{p},
			Consensus: p.Content,
		})
	}
	return clusters
}

// normalizeClusters repairs a grouper's output into a partition of the pool:
// first assignment wins when a passage appears twice, unassigned passages
// become singletons, empty clusters vanish, clusters are ordered by earliest
// passage index, and conflict references are remapped to the final ordering
// and made symmetric.
func normalizeClusters(clusters []domain.KnowledgeCluster, passages []domain.Passage) []domain.KnowledgeCluster {
	type tagged struct {
		cluster domain.KnowledgeCluster
		origin  int // position in the grouper's output, -1 for synthesized singletons
	}

	seen := make(map[int]bool, len(passages))
	var kept []tagged

	for origin, cl := range clusters {
		var members []domain.Passage
		for _, p := range cl.Passages {
			if seen[p.Index] {
				continue
			}
			seen[p.Index] = true
			members = append(members, p)
		}
		if len(members) == 0 {
			continue
		}
		consensus := cl.Consensus
		if consensus == "" {
			consensus = members[0].Content
		}
		kept = append(kept, tagged{
			cluster: domain.KnowledgeCluster{Passages: members, Consensus: consensus},
			origin:  origin,
		})
	}

	for _, p := range passages {
		if seen[p.Index] {
			continue
		}
		seen[p.Index] = true
		kept = append(kept, tagged{
			cluster: domain.KnowledgeCluster{Passages: []domain.Passage{p}, Consensus: p.Content},
			origin:  -1,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].cluster.FirstIndex() < kept[j].cluster.FirstIndex()
	})

	newPos := make(map[int]int, len(kept))
	for pos, t := range kept {
		if t.origin >= 0 {
			newPos[t.origin] = pos
		}
	}

	conflicts := make([]map[int]bool, len(kept))
	mark := func(a, b int) {
		if conflicts[a] == nil {
			conflicts[a] = make(map[int]bool)
		}
		conflicts[a][b] = true
	}
	for pos, t := range kept {
		if t.origin < 0 {
			continue
		}
		for _, ref := range clusters[t.origin].Conflicts {
			target, ok := newPos[ref]
			if !ok || target == pos {
				continue
			}
			mark(pos, target)
			mark(target, pos)
		}
	}

	out := make([]domain.KnowledgeCluster, len(kept))
	for pos, t := range kept {
		cl := t.cluster
		cl.Conflicts = nil
		if len(conflicts[pos]) > 0 {
			refs := make([]int, 0, len(conflicts[pos]))
			for r := range conflicts[pos] {
				refs = append(refs, r)
			}
			sort.Ints(refs)
			cl.Conflicts = refs
		}
		out[pos] = cl
	}
	return out
}
