package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var batchFlags struct {
	file        string
	provider    string
	model       string
	maxPassages int
	timeoutSecs int
	retries     int
	concurrency int
	grouper     string
	jsonOut     bool
	verbose     bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer a batch of questions from a JSON file",
	Long: `Answer every query in a JSON file of the form:

  [
    {"question": "What is the capital of France?",
     "retrieved_docs": ["Paris is the capital of France."]},
    {"question": "Who wrote Hamlet?", "retrieved_docs": []}
  ]

Queries are answered concurrently; results keep the input order.`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.file, "file", "f", "", "Queries file (required)")
	f.StringVar(&batchFlags.provider, "provider", "", "LLM provider: openai, anthropic, gemini, cerebras, mock (default: $LLM_PROVIDER)")
	f.StringVar(&batchFlags.model, "model", "", "Model override (default: provider default)")
	f.IntVar(&batchFlags.maxPassages, "max-passages", 1, "Internal-knowledge passages to elicit per question (0 disables)")
	f.IntVar(&batchFlags.timeoutSecs, "timeout", 30, "Per-completion timeout in seconds")
	f.IntVar(&batchFlags.retries, "retries", 0, "Retries per stage on transient failures (max 1)")
	f.IntVar(&batchFlags.concurrency, "concurrency", 4, "Questions answered in parallel")
	f.StringVar(&batchFlags.grouper, "grouper", "", "Consistency grouper: prompt or embedding (default: $GROUPER)")
	f.BoolVar(&batchFlags.jsonOut, "json", false, "Print answers as JSON")
	f.BoolVarP(&batchFlags.verbose, "verbose", "v", false, "Log pipeline stages to stderr")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchFlags.file == "" {
		return fmt.Errorf("queries file is required\n\nUsage: astute batch -f queries.json")
	}

	queries, err := readQueriesFile(batchFlags.file)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries in %s", batchFlags.file)
	}

	pipeline, err := buildPipeline(pipelineOptions{
		provider:    batchFlags.provider,
		model:       batchFlags.model,
		maxPassages: batchFlags.maxPassages,
		timeout:     time.Duration(batchFlags.timeoutSecs) * time.Second,
		retries:     batchFlags.retries,
		grouper:     batchFlags.grouper,
		concurrency: batchFlags.concurrency,
		verbose:     batchFlags.verbose,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	answers, err := pipeline.AnswerBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	if batchFlags.jsonOut {
		data, err := json.MarshalIndent(answers, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for i, ans := range answers {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, queries[i].Question)
		printAnswer(cmd.OutOrStdout(), ans)
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
