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

	"github.com/kailas-cloud/imagedex/internal/config"
	dbRedis "github.com/kailas-cloud/imagedex/internal/db/redis"
	"github.com/kailas-cloud/imagedex/internal/domain"
	logpkg "github.com/kailas-cloud/imagedex/internal/logger"
	"github.com/kailas-cloud/imagedex/internal/metrics"
	documentrepo "github.com/kailas-cloud/imagedex/internal/repository/document"
	"github.com/kailas-cloud/imagedex/internal/repository/embcache"
	"github.com/kailas-cloud/imagedex/internal/repository/schema"
	searchrepo "github.com/kailas-cloud/imagedex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/imagedex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/imagedex/internal/transport/openai"
	"github.com/kailas-cloud/imagedex/internal/transport/vision"
	classifyuc "github.com/kailas-cloud/imagedex/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/imagedex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/imagedex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/imagedex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/imagedex/internal/usecase/search"
	"github.com/kailas-cloud/imagedex/internal/version"
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

	logger.Info("Starting imagedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register collaborator metrics explicitly (no init())
	metrics.RegisterCollaboratorMetrics()

	// Ensure the vector index exists before serving traffic
	schemaMgr := schema.New(store, cfg.Index.Name, cfg.Embedding.Dimensions, logger).
		WithHNSW(schema.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	if err := schemaMgr.Ensure(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	// Build collaborator chains — composition root
	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := buildEmbedder(baseEmbedder, cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	baseClassifier := vision.NewClassifier(&vision.Config{
		BaseURL: cfg.Classifier.BaseURL,
		TopK:    cfg.Classifier.TopK,
		Timeout: time.Duration(cfg.Classifier.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	classifier := classifyuc.NewBoundedClassifier(baseClassifier, cfg.Limits.ClassifyConcurrency)
	logger.Info("Classifier created",
		zap.String("base_url", cfg.Classifier.BaseURL),
		zap.Int("top_k", cfg.Classifier.TopK),
	)

	// Create repositories
	docRepo := documentrepo.New(store, schemaMgr.KeyPrefix(), cfg.Embedding.Dimensions, logger)
	searchRepo := searchrepo.New(store, schemaMgr.IndexName(), schemaMgr.KeyPrefix())

	// Create use case services
	collabTimeout := time.Duration(cfg.Collaborators.TimeoutSec) * time.Second
	ingestSvc := ingestuc.New(docRepo, classifier, embedder, collabTimeout, logger)
	searchSvc := searchuc.New(searchRepo, embedder, collabTimeout, logger).
		WithTopK(cfg.Index.DefaultTopK, cfg.Index.MaxTopK)
	healthSvc := healthuc.New(store, baseEmbedder, baseClassifier).WithCounter(searchRepo)

	// Create chi server
	server := chiTransport.NewServer(ingestSvc, searchSvc, healthSvc, logger).
		WithLimits(cfg.Limits.MaxImageBytes, cfg.Index.MinScore)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Bounded
func buildEmbedder(
	base domain.Embedder,
	cfg config.Config,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base

	// Cached
	if store != nil {
		embedder = embcache.New(
			embedder, store,
			cfg.Embedding.Model, cfg.Embedding.Dimensions,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	// Instrumented (logging + chunking)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	)

	// Bounded (outermost — limits in-flight provider calls)
	return embeddinguc.NewBoundedEmbedder(embedder, cfg.Limits.EmbedConcurrency)
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

			// Set X-Request-ID in response header
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
