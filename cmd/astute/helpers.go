package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"astute/internal/config"
	"astute/internal/domain"
	"astute/internal/embedding"
	"astute/internal/llm"
	"astute/internal/service"
)

type pipelineOptions struct {
	provider    string
	model       string
	maxPassages int
	timeout     time.Duration
	retries     int
	temperature float32
	grouper     string
	concurrency int
	verbose     bool
}

// buildPipeline wires a pipeline from flags, falling back to env config
// for anything not set on the command line.
func buildPipeline(o pipelineOptions) (*service.Pipeline, error) {
	_ = config.Load()

	logger := zap.NewNop()
	if o.verbose {
		logger, _ = zap.NewDevelopment()
	}

	provider := o.provider
	if provider == "" {
		provider = config.LLMProvider()
	}

	client, err := llm.NewClient(provider, apiKeyFor(provider))
	if err != nil {
		return nil, err
	}

	groupStrategy := o.grouper
	if groupStrategy == "" {
		groupStrategy = config.Grouper()
	}
	var grouper service.ConsistencyGrouper
	switch groupStrategy {
	case "prompt":
	case "embedding":
		embedder, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
		if err != nil {
			return nil, err
		}
		grouper = service.NewEmbeddingGrouper(embedder, config.SimilarityThreshold(), logger)
	default:
		return nil, fmt.Errorf("unknown grouper: %s (available: prompt, embedding)", groupStrategy)
	}

	model := o.model
	if model == "" {
		model = config.LLMModel()
	}

	maxPassages := o.maxPassages
	if maxPassages <= 0 {
		maxPassages = -1
	}

	cfg := service.Config{
		Model:                model,
		MaxTokens:            config.LLMMaxTokens(),
		Temperature:          o.temperature,
		Timeout:              o.timeout,
		MaxGeneratedPassages: maxPassages,
		RetryCount:           o.retries,
		Concurrency:          o.concurrency,
		Policy: service.ConfidencePolicy{
			HighConfidence: config.HighConfidenceThreshold(),
			ConflictCap:    config.ConflictConfidenceCap(),
		},
	}

	return service.NewPipeline(client, grouper, cfg, logger), nil
}

func apiKeyFor(provider string) string {
	switch provider {
	case "anthropic":
		return config.AnthropicAPIKey()
	case "gemini":
		return config.GeminiAPIKey()
	case "cerebras":
		return config.CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return config.OpenAIAPIKey()
	}
}

// readDocsFile loads retrieved passages from a JSON string array, or one
// passage per non-blank line for plain text files.
func readDocsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read docs file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []string
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("parse docs file: %w", err)
		}
		return docs, nil
	}

	var docs []string
	for _, line := range strings.Split(string(trimmed), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			docs = append(docs, s)
		}
	}
	return docs, nil
}

func readQueriesFile(path string) ([]service.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries file: %w", err)
	}

	var queries []service.Query
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("parse queries file: %w", err)
	}
	return queries, nil
}

func printAnswer(w io.Writer, ans *domain.Answer) {
	fmt.Fprintf(w, "Answer: %s\n", ans.Text)
	fmt.Fprintf(w, "Confidence: %.2f\n", ans.Confidence)
	if len(ans.Citations) > 0 {
		fmt.Fprintln(w, "Citations:")
		for _, c := range ans.Citations {
			fmt.Fprintf(w, "  [%d] %s (sources: %s)\n", c.Cluster, c.Consensus, strings.Join(c.Sources, ", "))
		}
	}
	if len(ans.Notes) > 0 {
		fmt.Fprintln(w, "Notes:")
		for _, n := range ans.Notes {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}
}
