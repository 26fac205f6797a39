package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"astute/internal/api/handlers"
	mw "astute/internal/api/middleware"
	"astute/internal/buildconfig"
	"astute/internal/config"
	"astute/internal/domain"
	"astute/internal/embedding"
	"astute/internal/llm"
	"astute/internal/service"
)

// App holds the router and request counters for the metrics endpoint.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(pipeline *service.Pipeline, logger *zap.Logger) *App {
	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler())

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	answerHandler := handlers.NewAnswerHandler(pipeline)

	r.Route("/v1", func(r chi.Router) {
		if token := config.AuthToken(); token != "" {
			r.Use(mw.BearerAuth(token))
		}

		r.Route("/answers", func(r chi.Router) {
			r.Post("/", answerHandler.Answer)
			r.Post("/batch", answerHandler.Batch)
			r.Post("/direct", answerHandler.Direct)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux when lifecycle hooks are not needed.
func NewRouter(pipeline *service.Pipeline, logger *zap.Logger) *chi.Mux {
	return NewApp(pipeline, logger).Router
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure clients and groupers satisfy interfaces at compile time.
var (
	_ handlers.QuestionAnswerer  = (*service.Pipeline)(nil)
	_ domain.CompletionClient    = (*llm.OpenAIClient)(nil)
	_ domain.CompletionClient    = (*llm.AnthropicClient)(nil)
	_ domain.CompletionClient    = (*llm.GeminiClient)(nil)
	_ domain.CompletionClient    = (*llm.CerebrasClient)(nil)
	_ domain.CompletionClient    = (*llm.MockClient)(nil)
	_ domain.CompletionClient    = (*llm.RateLimited)(nil)
	_ domain.EmbeddingClient     = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient     = (*embedding.MockClient)(nil)
	_ service.ConsistencyGrouper = (*service.PromptGrouper)(nil)
	_ service.ConsistencyGrouper = (*service.EmbeddingGrouper)(nil)
)
