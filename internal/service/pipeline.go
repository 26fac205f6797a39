package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"astute/internal/domain"
)

var ErrQuestionEmpty = errors.New("question is required")

const (
	DefaultMaxGeneratedPassages = 1
	DefaultTimeout              = 30 * time.Second
	DefaultConcurrency          = 4

	// Hard ceiling on extra attempts per stage, whatever the config says.
	maxStageRetries = 1
)

// Config tunes a Pipeline. The zero value answers with the documented
// defaults: one generated passage, 30s per completion call, no retries.
type Config struct {
	// Model and MaxTokens pass through to every completion call; empty
	// model means the provider's default.
	Model     string
	MaxTokens int

	// Temperature defaults to 0 so repeated runs stay reproducible.
	Temperature float32

	// Timeout bounds each completion call, not the whole pipeline.
	Timeout time.Duration

	// MaxGeneratedPassages bounds internal-knowledge elicitation per
	// question. Zero means the default of 1; negative disables elicitation.
	MaxGeneratedPassages int

	// RetryCount is the number of extra attempts per stage after a
	// transient provider failure, capped at 1.
	RetryCount int

	// Concurrency bounds simultaneous questions in AnswerBatch.
	Concurrency int

	Policy ConfidencePolicy
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxGeneratedPassages == 0 {
		c.MaxGeneratedPassages = DefaultMaxGeneratedPassages
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.RetryCount > maxStageRetries {
		c.RetryCount = maxStageRetries
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	c.Policy = c.Policy.withDefaults()
	return c
}

func (c Config) completionOptions() domain.CompletionOptions {
	return domain.CompletionOptions{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

// Pipeline sequences internal-knowledge generation, consolidation, and
// finalization over a shared completion client. It holds no state between
// calls and is safe for concurrent use.
type Pipeline struct {
	generator    *Generator
	consolidator *Consolidator
	finalizer    *Finalizer
	client       domain.CompletionClient
	cfg          Config
	logger       *zap.Logger
}

// NewPipeline wires the three stages. A nil grouper means consolidation is
// delegated to the completion client itself via PromptGrouper.
func NewPipeline(client domain.CompletionClient, grouper ConsistencyGrouper, cfg Config, logger *zap.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	opts := cfg.completionOptions()
	if grouper == nil {
		grouper = NewPromptGrouper(client, opts, logger)
	}
	return &Pipeline{
		generator:    NewGenerator(client, opts, logger),
		consolidator: NewConsolidator(grouper, logger),
		finalizer:    NewFinalizer(client, opts, cfg.Policy, logger),
		client:       client,
		cfg:          cfg,
		logger:       logger,
	}
}

type answerConfig struct {
	maxGeneratedPassages *int
}

type AnswerOption func(*answerConfig)

// WithMaxGeneratedPassages overrides the configured elicitation budget for
// one call. Zero or negative skips internal-knowledge generation entirely.
func WithMaxGeneratedPassages(n int) AnswerOption {
	return func(c *answerConfig) { c.maxGeneratedPassages = &n }
}

// AnswerQuestion runs the full pipeline for one question. retrievedDocs may
// be empty; so may the model's own knowledge. Only when both are empty does
// the answer degrade to a terminal "insufficient information" response. Any
// stage failure aborts the call; there are no partial answers.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question string, retrievedDocs []string, opts ...AnswerOption) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrQuestionEmpty
	}

	var ac answerConfig
	for _, opt := range opts {
		opt(&ac)
	}
	maxGenerated := p.cfg.MaxGeneratedPassages
	if ac.maxGeneratedPassages != nil {
		maxGenerated = *ac.maxGeneratedPassages
	}

	log := p.logger.With(zap.String("call_id", uuid.NewString()))
	start := time.Now()

	var internal []domain.Passage
	err := p.runStage(ctx, log, "generate", func() error {
		var stageErr error
		internal, stageErr = p.generator.Generate(ctx, question, maxGenerated)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	passages := assemblePool(internal, retrievedDocs)

	var clusters []domain.KnowledgeCluster
	err = p.runStage(ctx, log, "consolidate", func() error {
		var stageErr error
		clusters, stageErr = p.consolidator.Consolidate(ctx, question, passages)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	var answer *domain.Answer
	err = p.runStage(ctx, log, "finalize", func() error {
		var stageErr error
		answer, stageErr = p.finalizer.Finalize(ctx, question, clusters)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	log.Info("question answered",
		zap.Int("internal_passages", len(internal)),
		zap.Int("external_passages", len(passages)-len(internal)),
		zap.Int("clusters", len(clusters)),
		zap.Float32("confidence", answer.Confidence),
		zap.Duration("elapsed", time.Since(start)))

	return answer, nil
}

// AnswerDirect asks the model the question with no retrieval and no
// consolidation, as a comparison baseline. The text comes back at zero
// confidence since nothing corroborates it.
func (p *Pipeline) AnswerDirect(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrQuestionEmpty
	}

	var text string
	err := p.runStage(ctx, p.logger, "direct", func() error {
		raw, stageErr := p.client.Complete(ctx, fmt.Sprintf(directPrompt, question), p.cfg.completionOptions())
		if stageErr != nil {
			return &domain.GenerationError{Err: stageErr}
		}
		text = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:  strings.TrimSpace(text),
		Notes: []string{"baseline answer produced without knowledge consolidation"},
	}, nil
}

// Query pairs a question with its retrieved documents for batch answering.
type Query struct {
	Question      string   `json:"question"`
	RetrievedDocs []string `json:"retrieved_docs"`
}

// AnswerBatch answers the queries concurrently, at most Concurrency at a
// time, failing fast on the first error. Results align with the input order.
func (p *Pipeline) AnswerBatch(ctx context.Context, queries []Query) ([]*domain.Answer, error) {
	answers := make([]*domain.Answer, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			ans, err := p.AnswerQuestion(ctx, q.Question, q.RetrievedDocs)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			answers[i] = ans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

// runStage executes one stage with at most RetryCount extra attempts,
// retrying only transient provider failures and never once the caller's
// context has ended.
func (p *Pipeline) runStage(ctx context.Context, log *zap.Logger, stage string, fn func() error) error {
	attempts := p.cfg.RetryCount + 1
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= attempts || ctx.Err() != nil || !domain.Retryable(err) {
			log.Error("stage failed",
				zap.String("stage", stage),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		log.Warn("stage failed, retrying",
			zap.String("stage", stage),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
}

// assemblePool merges internal passages ahead of retrieved documents and
// assigns each passage its position in the combined pool. Blank documents
// are skipped; external source numbering still reflects the caller's
// ordering.
func assemblePool(internal []domain.Passage, retrievedDocs []string) []domain.Passage {
	pool := make([]domain.Passage, 0, len(internal)+len(retrievedDocs))
	pool = append(pool, internal...)
	for i, doc := range retrievedDocs {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		pool = append(pool, domain.NewExternalPassage(strings.TrimSpace(doc), i))
	}
	for i := range pool {
		pool[i].Index = i
	}
	return pool
}
