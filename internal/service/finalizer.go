package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"astute/internal/domain"
)

// insufficientAnswer is the terminal answer when no knowledge survived the
// earlier stages. It is produced without a model call.
const insufficientAnswer = "Insufficient information to answer the question."

// Finalizer produces the cited, confidence-calibrated answer from
// consolidated clusters.
type Finalizer struct {
	client domain.CompletionClient
	opts   domain.CompletionOptions
	policy ConfidencePolicy
	logger *zap.Logger
}

func NewFinalizer(client domain.CompletionClient, opts domain.CompletionOptions, policy ConfidencePolicy, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		client: client,
		opts:   opts,
		policy: policy.withDefaults(),
		logger: logger,
	}
}

// Finalize answers the question from the clusters. Confidence always lands
// in [0,1] and never exceeds the conflict cap while unresolved contradictions
// remain; every calibration applied is recorded in the answer's notes.
func (f *Finalizer) Finalize(ctx context.Context, question string, clusters []domain.KnowledgeCluster) (*domain.Answer, error) {
	if len(clusters) == 0 {
		f.logger.Debug("no knowledge to answer from")
		return &domain.Answer{Text: insufficientAnswer, Confidence: 0}, nil
	}

	raw, err := f.client.Complete(ctx, buildFinalizePrompt(question, clusters), f.opts)
	if err != nil {
		return nil, &domain.FinalizationError{Err: err}
	}

	answer := f.parseAnswer(raw, clusters)

	f.logger.Debug("answer finalized",
		zap.Float32("confidence", answer.Confidence),
		zap.Int("citations", len(answer.Citations)),
		zap.Int("notes", len(answer.Notes)))

	return answer, nil
}

type finalResponse struct {
	Answer     string          `json:"answer"`
	Confidence json.RawMessage `json:"confidence"`
	Citations  []int           `json:"citations"`
}

func (f *Finalizer) parseAnswer(raw string, clusters []domain.KnowledgeCluster) *domain.Answer {
	var parsed finalResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || strings.TrimSpace(parsed.Answer) == "" {
		// Degraded: the whole response becomes the answer, at zero confidence.
		ans := &domain.Answer{
			Text:  strings.TrimSpace(raw),
			Notes: []string{"model response was not the expected JSON; confidence defaulted to 0"},
		}
		ans.Citations = f.cite(nil, clusters)
		return f.calibrate(ans, clusters)
	}

	conf, note := parseConfidence(parsed.Confidence)
	ans := &domain.Answer{
		Text:       strings.TrimSpace(parsed.Answer),
		Confidence: conf,
	}
	if note != "" {
		ans.Notes = append(ans.Notes, note)
	}
	ans.Citations = f.cite(parsed.Citations, clusters)
	return f.calibrate(ans, clusters)
}

// parseConfidence accepts a JSON number or a numeric string; anything else
// defaults to 0 with a note, and out-of-range values are clamped with a note.
func parseConfidence(raw json.RawMessage) (float32, string) {
	if len(raw) == 0 {
		return 0, "model reported no confidence; defaulted to 0"
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, "model confidence was unparsable; defaulted to 0"
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, "model confidence was unparsable; defaulted to 0"
		}
		num = parsed
	}

	conf := float32(num)
	clamped := clampConfidence(conf)
	if clamped != conf {
		return clamped, fmt.Sprintf("confidence %.2f outside [0,1]; clamped to %.1f", conf, clamped)
	}
	return conf, ""
}

// cite resolves the model's cluster references, dropping out-of-range and
// duplicate indices. When nothing valid remains it falls back to the
// preferred cluster, so an answer backed by evidence always carries at least
// one citation.
func (f *Finalizer) cite(indices []int, clusters []domain.KnowledgeCluster) []domain.Citation {
	seen := make(map[int]bool, len(indices))
	var valid []int
	for _, i := range indices {
		if i < 0 || i >= len(clusters) || seen[i] {
			continue
		}
		seen[i] = true
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		if best := preferredCluster(clusters); best >= 0 {
			valid = []int{best}
		}
	}

	citations := make([]domain.Citation, 0, len(valid))
	for _, i := range valid {
		citations = append(citations, domain.Citation{
			Cluster:   i,
			Consensus: clusters[i].Consensus,
			Sources:   clusters[i].SourceIDs(),
		})
	}
	return citations
}

func (f *Finalizer) calibrate(ans *domain.Answer, clusters []domain.KnowledgeCluster) *domain.Answer {
	ans.Confidence = clampConfidence(ans.Confidence)
	if hasConflicts(clusters) && ans.Confidence > f.policy.ConflictCap {
		ans.Confidence = f.policy.ConflictCap
		ans.Notes = append(ans.Notes,
			fmt.Sprintf("confidence capped at %.2f: unresolved conflicting clusters remain", f.policy.ConflictCap))
	}
	return ans
}
