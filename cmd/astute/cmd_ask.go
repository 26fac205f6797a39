package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"astute/internal/domain"
)

var askFlags struct {
	docs        []string
	docsFile    string
	provider    string
	model       string
	maxPassages int
	timeoutSecs int
	retries     int
	temperature float32
	grouper     string
	direct      bool
	jsonOut     bool
	verbose     bool
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from retrieved documents",
	Long: `Answer a question by combining the model's own knowledge with
retrieved document passages.

Usage:
  astute ask "What is the capital of France?" --doc "Paris is the capital of France."
  astute ask "Who wrote Hamlet?" --docs-file passages.json
  astute ask "Who wrote Hamlet?" --direct        # baseline, no consolidation

Passages come from --doc (repeatable) and --docs-file (a JSON string
array, or one passage per line). API keys are read from the environment
or a .env file, e.g. OPENAI_API_KEY for the default provider.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	f := askCmd.Flags()
	f.StringArrayVarP(&askFlags.docs, "doc", "d", nil, "Retrieved document passage (repeatable)")
	f.StringVar(&askFlags.docsFile, "docs-file", "", "File with retrieved passages (JSON array or one per line)")
	f.StringVar(&askFlags.provider, "provider", "", "LLM provider: openai, anthropic, gemini, cerebras, mock (default: $LLM_PROVIDER)")
	f.StringVar(&askFlags.model, "model", "", "Model override (default: provider default)")
	f.IntVar(&askFlags.maxPassages, "max-passages", 1, "Internal-knowledge passages to elicit (0 disables)")
	f.IntVar(&askFlags.timeoutSecs, "timeout", 30, "Per-completion timeout in seconds")
	f.IntVar(&askFlags.retries, "retries", 0, "Retries per stage on transient failures (max 1)")
	f.Float32Var(&askFlags.temperature, "temperature", 0, "Sampling temperature")
	f.StringVar(&askFlags.grouper, "grouper", "", "Consistency grouper: prompt or embedding (default: $GROUPER)")
	f.BoolVar(&askFlags.direct, "direct", false, "Ask the model directly, skipping retrieval and consolidation")
	f.BoolVar(&askFlags.jsonOut, "json", false, "Print the answer as JSON")
	f.BoolVarP(&askFlags.verbose, "verbose", "v", false, "Log pipeline stages to stderr")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	docs := askFlags.docs
	if askFlags.docsFile != "" {
		fileDocs, err := readDocsFile(askFlags.docsFile)
		if err != nil {
			return err
		}
		docs = append(docs, fileDocs...)
	}

	pipeline, err := buildPipeline(pipelineOptions{
		provider:    askFlags.provider,
		model:       askFlags.model,
		maxPassages: askFlags.maxPassages,
		timeout:     time.Duration(askFlags.timeoutSecs) * time.Second,
		retries:     askFlags.retries,
		temperature: askFlags.temperature,
		grouper:     askFlags.grouper,
		verbose:     askFlags.verbose,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var answer *domain.Answer
	if askFlags.direct {
		answer, err = pipeline.AnswerDirect(ctx, question)
	} else {
		answer, err = pipeline.AnswerQuestion(ctx, question, docs)
	}
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}

	if askFlags.jsonOut {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}
