package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"astute/internal/domain"
)

// unknownMarker is the sentinel the model writes for a passage it cannot
// support. Matching is case-insensitive and such lines never become passages.
const unknownMarker = "UNKNOWN"

// Generator elicits what the model already knows about a question, as
// provenance-tagged passages.
type Generator struct {
	client domain.CompletionClient
	opts   domain.CompletionOptions
	logger *zap.Logger
}

func NewGenerator(client domain.CompletionClient, opts domain.CompletionOptions, logger *zap.Logger) *Generator {
	return &Generator{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Generate returns at most maxPassages internal-knowledge passages. A
// non-positive maxPassages disables elicitation without calling the model.
// An empty result is not an error: it means the model declined to answer
// from its own knowledge.
func (g *Generator) Generate(ctx context.Context, question string, maxPassages int) ([]domain.Passage, error) {
	if maxPassages <= 0 {
		return nil, nil
	}

	raw, err := g.client.Complete(ctx, buildGeneratePrompt(question, maxPassages), g.opts)
	if err != nil {
		return nil, &domain.GenerationError{Err: err}
	}

	statements := parseStatements(raw, maxPassages)
	passages := make([]domain.Passage, 0, len(statements))
	for i, s := range statements {
		passages = append(passages, domain.NewInternalPassage(s, i))
	}

	g.logger.Debug("internal knowledge generated",
		zap.Int("requested", maxPassages),
		zap.Int("kept", len(passages)))

	return passages, nil
}

// parseStatements extracts usable statements from a model response: one per
// line, list prefixes stripped, unknown sentinels and empty lines dropped,
// capped at max.
func parseStatements(raw string, max int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		s := stripListPrefix(strings.TrimSpace(line))
		if s == "" || isUnknown(s) {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

// stripListPrefix removes a leading "1.", "1)", "-", or "*" marker. The
// number form needs a space after the punctuation so statements that open
// with a decimal ("3.14 is...") survive intact.
func stripListPrefix(s string) string {
	if t := strings.TrimLeft(s, "0123456789"); t != s && len(t) > 0 && (t[0] == '.' || t[0] == ')') {
		if len(t) == 1 {
			return ""
		}
		if t[1] == ' ' {
			return strings.TrimSpace(t[1:])
		}
		return s
	}
	if len(s) > 1 && (s[0] == '-' || s[0] == '*') && s[1] == ' ' {
		return strings.TrimSpace(s[1:])
	}
	return s
}

func isUnknown(s string) bool {
	t := strings.ToLower(strings.TrimRight(s, "."))
	if t == strings.ToLower(unknownMarker) {
		return true
	}
	// Models often spell the sentinel out despite instructions.
	return strings.HasPrefix(t, "i don't know") || strings.HasPrefix(t, "i do not know")
}
