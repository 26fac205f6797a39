package domain

// KnowledgeCluster groups passages whose claims were judged mutually
// consistent. Contradicting information is never merged into one cluster;
// Conflicts lists the positions (within the cluster sequence) of clusters
// this one directly contradicts.
type KnowledgeCluster struct {
	Passages  []Passage `json:"passages"`
	Consensus string    `json:"consensus"`
	Conflicts []int     `json:"conflicts,omitempty"`
}

// FirstIndex returns the smallest passage index in the cluster. Clusters are
// ordered by it so consolidation output is stable across runs.
func (c KnowledgeCluster) FirstIndex() int {
	first := -1
	for _, p := range c.Passages {
		if first == -1 || p.Index < first {
			first = p.Index
		}
	}
	return first
}

// ProvenanceCounts reports how many member passages came from the model's
// own knowledge and how many from retrieval.
func (c KnowledgeCluster) ProvenanceCounts() (internal, external int) {
	for _, p := range c.Passages {
		switch p.Provenance {
		case ProvenanceInternal:
			internal++
		case ProvenanceExternal:
			external++
		}
	}
	return internal, external
}

// SourceIDs returns the member source identifiers in passage order.
func (c KnowledgeCluster) SourceIDs() []string {
	ids := make([]string, 0, len(c.Passages))
	for _, p := range c.Passages {
		ids = append(ids, p.SourceID)
	}
	return ids
}
