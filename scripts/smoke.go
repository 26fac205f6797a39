// Smoke check against a running Astute server.
// Run with: go run ./scripts/smoke.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
)

var (
	baseURL = "http://localhost:8080"
	token   string
)

func main() {
	envFile := os.Getenv("ASTUTE_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	if v := os.Getenv("SMOKE_BASE_URL"); v != "" {
		baseURL = v
	}
	token = os.Getenv("AUTH_TOKEN")

	fmt.Println("1. Health...")
	get("/health")

	fmt.Println("2. Single answer...")
	post("/v1/answers", map[string]any{
		"question": "What is the capital of France?",
		"retrieved_docs": []string{
			"Paris is the capital of France.",
			"Paris has been France's capital since 987.",
		},
	})

	fmt.Println("3. Batch...")
	post("/v1/answers/batch", map[string]any{
		"queries": []map[string]any{
			{"question": "What is the capital of France?",
				"retrieved_docs": []string{"Paris is the capital of France."}},
			{"question": "Who wrote Hamlet?",
				"retrieved_docs": []string{"Hamlet is a tragedy by William Shakespeare."}},
		},
	})

	fmt.Println("4. Direct baseline...")
	post("/v1/answers/direct", map[string]any{
		"question": "What is the capital of France?",
	})

	fmt.Println("5. Metrics...")
	get("/metrics")

	fmt.Println("Smoke check passed.")
}

func get(path string) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	do(req)
}

func post(path string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	do(req)
}

func do(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	}

	fmt.Printf("   %d %s\n", resp.StatusCode, truncate(string(body), 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
