package service

import "astute/internal/domain"

const (
	DefaultHighConfidence = 0.5
	DefaultConflictCap    = 0.4
)

// ConfidencePolicy controls how reported confidence is calibrated.
// HighConfidence is the threshold above which an answer counts as
// high-confidence; ConflictCap is the ceiling applied while unresolved
// contradicting clusters remain. The cap must sit below the threshold so a
// conflicted answer can never read as high-confidence.
type ConfidencePolicy struct {
	HighConfidence float32
	ConflictCap    float32
}

func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{
		HighConfidence: DefaultHighConfidence,
		ConflictCap:    DefaultConflictCap,
	}
}

func (p ConfidencePolicy) withDefaults() ConfidencePolicy {
	if p.HighConfidence <= 0 || p.HighConfidence > 1 {
		p.HighConfidence = DefaultHighConfidence
	}
	if p.ConflictCap <= 0 || p.ConflictCap >= p.HighConfidence {
		p.ConflictCap = DefaultConflictCap
		if p.ConflictCap >= p.HighConfidence {
			p.ConflictCap = p.HighConfidence / 2
		}
	}
	return p
}

func clampConfidence(c float32) float32 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// hasConflicts reports whether any cluster records an unresolved
// contradiction with another.
func hasConflicts(clusters []domain.KnowledgeCluster) bool {
	for _, c := range clusters {
		if len(c.Conflicts) > 0 {
			return true
		}
	}
	return false
}

// preferredCluster picks the cluster an answer should cite when the model
// does not say: provenance diversity first, then passage count, then earliest
// appearance. Deterministic for a given input.
func preferredCluster(clusters []domain.KnowledgeCluster) int {
	best := -1
	for i, c := range clusters {
		if best == -1 {
			best = i
			continue
		}
		if clusterLess(clusters[best], c) {
			best = i
		}
	}
	return best
}

// clusterLess reports whether b is a strictly better citation than a.
func clusterLess(a, b domain.KnowledgeCluster) bool {
	aInt, aExt := a.ProvenanceCounts()
	bInt, bExt := b.ProvenanceCounts()
	aDiverse := aInt > 0 && aExt > 0
	bDiverse := bInt > 0 && bExt > 0
	if aDiverse != bDiverse {
		return bDiverse
	}
	if len(a.Passages) != len(b.Passages) {
		return len(b.Passages) > len(a.Passages)
	}
	return false
}
