package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"astute/internal/api"
	"astute/internal/buildconfig"
	"astute/internal/config"
	"astute/internal/domain"
	"astute/internal/embedding"
	"astute/internal/llm"
	"astute/internal/service"
)

func main() {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logCfg := zap.NewProductionConfig()
	logCfg.Level = atom
	logger, _ := logCfg.Build()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if lvl, err := zapcore.ParseLevel(config.LogLevel()); err == nil {
		atom.SetLevel(lvl)
	}

	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Fatal("failed to initialize LLM client", zap.Error(err))
	}
	logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))

	var client domain.CompletionClient = llmClient
	if rps := config.LLMRateRPS(); rps > 0 {
		client = llm.NewRateLimited(client, rps, config.LLMRateBurst())
		logger.Info("client-side throttling enabled",
			zap.Float64("rps", rps), zap.Int("burst", config.LLMRateBurst()))
	}

	// The prompt grouper is the default; nil lets the pipeline wire it.
	var grouper service.ConsistencyGrouper
	if config.Grouper() == "embedding" {
		embedder, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
		if err != nil {
			logger.Fatal("failed to initialize embedding client", zap.Error(err))
		}
		grouper = service.NewEmbeddingGrouper(embedder, config.SimilarityThreshold(), logger)
		logger.Info("embedding grouper enabled", zap.String("provider", config.EmbeddingProvider()))
	}

	pipeline := service.NewPipeline(client, grouper, service.Config{
		Model:                config.LLMModel(),
		MaxTokens:            config.LLMMaxTokens(),
		Temperature:          config.LLMTemperature(),
		Timeout:              config.LLMTimeout(),
		MaxGeneratedPassages: config.MaxGeneratedPassages(),
		RetryCount:           config.LLMRetryCount(),
		Concurrency:          config.BatchConcurrency(),
		Policy: service.ConfidencePolicy{
			HighConfidence: config.HighConfidenceThreshold(),
			ConflictCap:    config.ConflictConfidenceCap(),
		},
	}, logger)

	app := api.NewApp(pipeline, logger)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr), zap.String("version", buildconfig.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
