package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by ASTUTE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("ASTUTE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// LLMModel overrides the provider's default model when set.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

// MaxGeneratedPassages returns how many internal-knowledge passages to
// elicit per question. Defaults to 1 if not set; values below zero
// disable elicitation entirely.
func MaxGeneratedPassages() int {
	n, err := strconv.Atoi(os.Getenv("MAX_GENERATED_PASSAGES"))
	if err != nil {
		return 1
	}
	return n
}

// LLMMaxTokens caps completion length when set.
// Defaults to 0, which leaves the cap to the provider.
func LLMMaxTokens() int {
	n, err := strconv.Atoi(os.Getenv("LLM_MAX_TOKENS"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LLMTimeout returns the per-completion timeout.
// Defaults to 30s if not set.
func LLMTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("LLM_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// LLMRetryCount returns how many times a failed pipeline stage is
// retried on transient errors. Defaults to 0 (no retries).
func LLMRetryCount() int {
	n, err := strconv.Atoi(os.Getenv("LLM_RETRY_COUNT"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LLMTemperature returns the sampling temperature for completions.
// Defaults to 0 for reproducible runs.
func LLMTemperature() float32 {
	t, err := strconv.ParseFloat(os.Getenv("LLM_TEMPERATURE"), 32)
	if err != nil || t < 0 {
		return 0
	}
	return float32(t)
}

// Grouper returns the consistency-grouping strategy.
// Defaults to "prompt" if not set.
// Valid values: prompt, embedding
func Grouper() string {
	g := os.Getenv("GROUPER")
	if g == "" {
		return "prompt"
	}
	return g
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// SimilarityThreshold returns the cosine similarity above which two
// passages join the same cluster under the embedding grouper.
// Defaults to 0.9 if not set or out of (0, 1].
func SimilarityThreshold() float32 {
	t, err := strconv.ParseFloat(os.Getenv("SIMILARITY_THRESHOLD"), 32)
	if err != nil || t <= 0 || t > 1 {
		return 0.9
	}
	return float32(t)
}

// HighConfidenceThreshold returns the confidence an answer must stay
// below while conflicts remain unresolved. Defaults to 0.5.
func HighConfidenceThreshold() float32 {
	t, err := strconv.ParseFloat(os.Getenv("HIGH_CONFIDENCE_THRESHOLD"), 32)
	if err != nil || t <= 0 || t > 1 {
		return 0.5
	}
	return float32(t)
}

// ConflictConfidenceCap returns the ceiling applied to confidence when
// conflicting clusters remain. Defaults to 0.4 and must stay below the
// high-confidence threshold.
func ConflictConfidenceCap() float32 {
	t, err := strconv.ParseFloat(os.Getenv("CONFLICT_CONFIDENCE_CAP"), 32)
	if err != nil || t <= 0 || float32(t) >= HighConfidenceThreshold() {
		return 0.4
	}
	return float32(t)
}

// BatchConcurrency returns how many questions a batch answers in
// parallel. Defaults to 4 if not set.
func BatchConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("BATCH_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

// LLMRateRPS returns the client-side completions-per-second budget.
// Defaults to 0, which disables client-side throttling.
func LLMRateRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("LLM_RATE_RPS"), 64)
	if err != nil || rps <= 0 {
		return 0
	}
	return rps
}

// LLMRateBurst returns the burst size for client-side throttling.
// Defaults to 1 if not set.
func LLMRateBurst() int {
	burst, err := strconv.Atoi(os.Getenv("LLM_RATE_BURST"))
	if err != nil || burst <= 0 {
		return 1
	}
	return burst
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// AuthToken returns the static bearer token protecting the API.
// Empty disables authentication.
func AuthToken() string {
	return os.Getenv("AUTH_TOKEN")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
