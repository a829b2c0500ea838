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

	"github.com/kailas-cloud/dishdex/internal/bootstrap"
	"github.com/kailas-cloud/dishdex/internal/config"
	"github.com/kailas-cloud/dishdex/internal/db"
	logpkg "github.com/kailas-cloud/dishdex/internal/logger"
	"github.com/kailas-cloud/dishdex/internal/metrics"
	"github.com/kailas-cloud/dishdex/internal/repository/snapshot"
	chiTransport "github.com/kailas-cloud/dishdex/internal/transport/chi"
	cataloguc "github.com/kailas-cloud/dishdex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/dishdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/dishdex/internal/usecase/search"
	"github.com/kailas-cloud/dishdex/internal/version"
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

	logger.Info("Starting dishdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.String("metadata_driver", cfg.Metadata.Driver),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)
	if cfg.Extractor.BaseURL == "" {
		logger.Fatal("extractor.base_url is required")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterExtractorMetrics()

	ctx := context.Background()

	// Redis/Valkey is optional: only the embedding cache and the redis metadata driver use it.
	var store db.Store
	if cfg.NeedsDatabase() {
		store, err = bootstrap.OpenStore(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Database unavailable", zap.Error(err))
		}
		defer store.Close()
	}

	// Catalog
	source, err := bootstrap.Source(cfg)
	if err != nil {
		logger.Fatal("Failed to create snapshot source", zap.Error(err))
	}
	loader := snapshot.NewLoader(source, bootstrap.SpaceFiles(cfg), logger)
	holder := cataloguc.NewHolder(loader, logger)
	if _, err := holder.Reload(ctx); err != nil {
		// searches answer 503 until POST /admin/reload or SIGHUP succeeds
		logger.Error("Initial catalog load failed", zap.Error(err))
	}

	// Extractor chain: composition root
	extractor := bootstrap.Extractor(cfg, store, logger)

	// Dish metadata
	dishes, err := bootstrap.DishLookup(cfg, store)
	if err != nil {
		logger.Fatal("Failed to load dish metadata", zap.Error(err))
	}

	searchSvc := searchuc.New(holder, extractor, dishes)

	// Pass nil interface (not typed nil pointer!) when the database is not configured.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(holder, extractor, pinger)

	defaults, err := cfg.SearchRequest()
	if err != nil {
		logger.Fatal("Invalid search defaults", zap.Error(err))
	}

	server := chiTransport.NewServer(searchSvc, holder, healthSvc, defaults, cfg.Catalog.DatasetDir, logger)

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

	// Graceful shutdown; SIGHUP reloads the catalog
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	go func() {
		for range hup {
			logger.Info("Received SIGHUP, reloading catalog")
			_, _ = holder.Reload(ctx)
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			// Canonical log line: one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("cache_hits", ww.Header().Get("X-Extractor-Cache-Hits")),
			)
		})
	}
}
