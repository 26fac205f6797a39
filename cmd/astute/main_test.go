package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"astute/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskMockProvider(t *testing.T) {
	out, err := execute(t, "ask", "--provider", "mock", "What did I have for breakfast?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "Insufficient information") {
		t.Errorf("output = %q, want the insufficient-information answer", out)
	}
}

func TestAskJSONOutput(t *testing.T) {
	out, err := execute(t, "ask", "--provider", "mock", "--json", "anything")
	if err != nil {
		t.Fatalf("ask --json: %v", err)
	}
	var ans domain.Answer
	if err := json.Unmarshal([]byte(out), &ans); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if ans.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for an unanswerable question", ans.Confidence)
	}
}

func TestAskUnknownGrouper(t *testing.T) {
	_, err := execute(t, "ask", "--provider", "mock", "--grouper", "psychic", "q")
	if err == nil || !strings.Contains(err.Error(), "unknown grouper") {
		t.Errorf("err = %v, want unknown grouper", err)
	}
}

func TestBatchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	queries := `[{"question":"one"},{"question":"two"}]`
	if err := os.WriteFile(path, []byte(queries), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "batch", "--provider", "mock", "--json", "-f", path)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	var answers []*domain.Answer
	if err := json.Unmarshal([]byte(out), &answers); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(answers) != 2 {
		t.Errorf("answers = %d, want 2", len(answers))
	}
}

func TestBatchRequiresFile(t *testing.T) {
	batchFlags.file = ""
	_, err := execute(t, "batch", "--provider", "mock")
	if err == nil || !strings.Contains(err.Error(), "queries file is required") {
		t.Errorf("err = %v, want missing-file error", err)
	}
}

func TestReadDocsFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "docs.json")
	if err := os.WriteFile(jsonPath, []byte(`["first passage", "second passage"]`), 0600); err != nil {
		t.Fatal(err)
	}
	docs, err := readDocsFile(jsonPath)
	if err != nil {
		t.Fatalf("readDocsFile(json): %v", err)
	}
	if !reflect.DeepEqual(docs, []string{"first passage", "second passage"}) {
		t.Errorf("json docs = %v", docs)
	}

	textPath := filepath.Join(dir, "docs.txt")
	if err := os.WriteFile(textPath, []byte("one per line\n\n  trimmed  \n"), 0600); err != nil {
		t.Fatal(err)
	}
	docs, err = readDocsFile(textPath)
	if err != nil {
		t.Fatalf("readDocsFile(text): %v", err)
	}
	if !reflect.DeepEqual(docs, []string{"one per line", "trimmed"}) {
		t.Errorf("text docs = %v", docs)
	}

	if _, err := readDocsFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
