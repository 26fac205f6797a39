package domain

import "fmt"

type Provenance string

const (
	ProvenanceInternal Provenance = "internal"
	ProvenanceExternal Provenance = "external"
)

func ValidProvenance(p string) bool {
	switch Provenance(p) {
	case ProvenanceInternal, ProvenanceExternal:
		return true
	}
	return false
}

// Tag returns the uppercase provenance marker used when listing passages in prompts.
func (p Provenance) Tag() string {
	switch p {
	case ProvenanceInternal:
		return "INTERNAL"
	case ProvenanceExternal:
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Passage is a self-contained piece of knowledge text considered when
// answering a question. Index is its position in the combined pool handed to
// consolidation; SourceID survives clustering so answers can cite origins.
type Passage struct {
	Content    string     `json:"content"`
	Provenance Provenance `json:"provenance"`
	SourceID   string     `json:"source_id"`
	Index      int        `json:"index"`
}

func NewInternalPassage(content string, n int) Passage {
	return Passage{
		Content:    content,
		Provenance: ProvenanceInternal,
		SourceID:   fmt.Sprintf("internal_%d", n),
	}
}

func NewExternalPassage(content string, n int) Passage {
	return Passage{
		Content:    content,
		Provenance: ProvenanceExternal,
		SourceID:   fmt.Sprintf("external_%d", n),
	}
}
