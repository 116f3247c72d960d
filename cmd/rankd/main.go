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
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/proplens/rankd/internal/config"
	dbRedis "github.com/proplens/rankd/internal/db/redis"
	"github.com/proplens/rankd/internal/domain"
	logpkg "github.com/proplens/rankd/internal/logger"
	"github.com/proplens/rankd/internal/metrics"
	"github.com/proplens/rankd/internal/repository/embcache"
	listingrepo "github.com/proplens/rankd/internal/repository/listing"
	chiTransport "github.com/proplens/rankd/internal/transport/chi"
	"github.com/proplens/rankd/internal/transport/llm"
	openaiEmb "github.com/proplens/rankd/internal/transport/openai"
	"github.com/proplens/rankd/internal/usecase/classify"
	healthuc "github.com/proplens/rankd/internal/usecase/health"
	"github.com/proplens/rankd/internal/usecase/plan"
	rankuc "github.com/proplens/rankd/internal/usecase/rank"
	"github.com/proplens/rankd/internal/version"
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

	logger.Info("Starting rankd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// All storage keys live under the configured namespace.
	domain.KeyPrefix = cfg.Storage.KeyPrefix

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

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Build both embedding spaces at the composition root.
	cacheTTL := time.Duration(cfg.Embedding.CacheTTLSec) * time.Second

	textVec := cfg.Embedding.Vectorizers[config.VectorizerText]
	textProvider := openaiEmb.NewEmbedder(embedderConfig(cfg, textVec, logger))
	var textInner domain.Embedder = textProvider
	if textVec.QueryInstruction != "" {
		textInner = domain.NewInstructionEmbedder(textProvider, textVec.QueryInstruction)
	}
	textEmbedder := embcache.New(
		textInner, store, cacheTTL,
		metrics.EmbeddingCacheTotal.MustCurryWith(prometheus.Labels{"space": "text"}),
		logger,
	)

	imageVec := cfg.Embedding.Vectorizers[config.VectorizerImage]
	imageProvider := openaiEmb.NewImageSpaceEmbedder(embedderConfig(cfg, imageVec, logger))
	imageEmbedder := embcache.NewImageSpace(
		imageProvider, store, cacheTTL,
		metrics.EmbeddingCacheTotal.MustCurryWith(prometheus.Labels{"space": "image"}),
		logger,
	)
	logger.Info("Embedders created",
		zap.String("text_model", textVec.Model),
		zap.String("image_model", imageVec.Model),
	)

	// Listing repository and FT index
	listings := listingrepo.New(store).WithHNSW(listingrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := listings.EnsureIndex(ctx, textVec.Dimensions, imageVec.Dimensions); err != nil {
		logger.Fatal("Failed to ensure listing index", zap.Error(err))
	}

	// Subquery planning: LLM decomposition with deterministic template fallback.
	// Pass nil interface (not typed nil pointer!) when the LLM is not configured.
	var decomposer plan.Decomposer
	if cfg.LLM.BaseURL != "" {
		dec, err := llm.New(&llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal("Failed to create decomposer", zap.Error(err))
		}
		decomposer = dec
		logger.Info("Decomposer created", zap.String("model", cfg.LLM.Model))
	} else {
		logger.Info("LLM decomposition disabled, using templates only")
	}

	classifier := classify.New(classify.DefaultTables())
	planner := plan.New(decomposer, classifier)

	rankSvc := rankuc.New(listings, listings, textEmbedder, imageEmbedder, classifier, planner).
		WithTopN(cfg.Search.TopN).
		WithCallTimeout(time.Duration(cfg.Search.CallTimeoutSec) * time.Second).
		WithBoostScheme(rankuc.BoostScheme(cfg.Search.BoostScheme))

	healthSvc := healthuc.New(store, textProvider)

	server := chiTransport.NewServer(rankSvc, listings, healthSvc, logger)

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

func embedderConfig(cfg config.Config, vec config.VectorizerConfig, logger *zap.Logger) *openaiEmb.Config {
	prov := cfg.Embedding.Providers[vec.Provider]
	return &openaiEmb.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      vec.Model,
		Dimensions: vec.Dimensions,
		Provider:   vec.Provider,
		Logger:     logger,
	}
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

			// Canonical log line, one per request
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
