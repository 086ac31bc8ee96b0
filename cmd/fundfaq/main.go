package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/cache"
	"github.com/navseva/fundfaq/internal/config"
	"github.com/navseva/fundfaq/internal/domain"
	"github.com/navseva/fundfaq/internal/domain/corpus"
	logpkg "github.com/navseva/fundfaq/internal/logger"
	"github.com/navseva/fundfaq/internal/metrics"
	"github.com/navseva/fundfaq/internal/repository/corpusindex"
	"github.com/navseva/fundfaq/internal/repository/embcache"
	"github.com/navseva/fundfaq/internal/repository/source"
	chiTransport "github.com/navseva/fundfaq/internal/transport/chi"
	openaiProvider "github.com/navseva/fundfaq/internal/transport/openai"
	answeruc "github.com/navseva/fundfaq/internal/usecase/answer"
	"github.com/navseva/fundfaq/internal/usecase/classify"
	"github.com/navseva/fundfaq/internal/usecase/confidence"
	healthuc "github.com/navseva/fundfaq/internal/usecase/health"
	"github.com/navseva/fundfaq/internal/usecase/pipeline"
	"github.com/navseva/fundfaq/internal/usecase/prompt"
	"github.com/navseva/fundfaq/internal/usecase/retrieve"
	"github.com/navseva/fundfaq/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting fundfaq API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus_path", cfg.Corpus.Path),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Optional embedding cache. Empty addrs disables caching entirely.
	var store *cache.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err = cache.NewStore(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		readiness := time.Duration(cfg.Cache.ReadinessTimeoutSec) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache")
	} else {
		logger.Info("Embedding cache disabled")
	}

	embedder := buildEmbedder(cfg, store, logger)
	generator := openaiProvider.NewGenerator(&openaiProvider.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		Logger:      logger,
	})
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_model", cfg.Generation.Model),
	)

	// Corpus index. The initial build blocks startup: a server without a
	// snapshot cannot answer anything.
	chunkSource := source.New(cfg.Corpus.Path)
	index := corpusindex.New(chunkSource, embedder, metrics.CorpusChunks, logger)

	buildCtx, cancelBuild := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := index.Rebuild(buildCtx); err != nil {
		cancelBuild()
		logger.Fatal("Failed to build corpus index", zap.Error(err))
	}
	cancelBuild()

	// Use case services
	strategy := corpus.MatchStrategy(cfg.Pipeline.FundMatch)
	classifier := classify.New(strategy, logger)
	retriever := retrieve.New(embedder, index, strategy, logger)
	builder := prompt.New(cfg.Pipeline.PromptBudgetRunes)
	formatter := answeruc.New(cfg.Pipeline.EducationalLink, cfg.Pipeline.MaxSentences, logger)
	scorer := confidence.New(cfg.Pipeline.ConfidenceThreshold)

	querySvc := pipeline.New(pipeline.Config{
		DefaultTopK:     cfg.Pipeline.DefaultTopK,
		MaxTopK:         cfg.Pipeline.MaxTopK,
		MaxRetries:      cfg.Generation.MaxRetries,
		RetryBackoff:    time.Duration(cfg.Generation.RetryBackoffMS) * time.Millisecond,
		RetrieveTimeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		GenerateTimeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	}, classifier, retriever, builder, generator, formatter, scorer, index, logger)

	// Pass nil interface (not typed nil pointer!) if the cache is disabled.
	// Go gotcha: (*cache.Store)(nil) wrapped in CachePinger != nil.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(index, cachePinger, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(querySvc, healthSvc, index, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached
func buildEmbedder(cfg config.Config, store *cache.Store, logger *zap.Logger) domain.Embedder {
	base := openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	if store == nil {
		return base
	}
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	return embcache.New(base, store, ttl, metrics.EmbeddingCacheTotal, logger)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
