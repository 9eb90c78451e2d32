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

	"github.com/kailas-cloud/smartsearch/internal/backend/memory"
	"github.com/kailas-cloud/smartsearch/internal/config"
	"github.com/kailas-cloud/smartsearch/internal/db"
	dbRedis "github.com/kailas-cloud/smartsearch/internal/db/redis"
	"github.com/kailas-cloud/smartsearch/internal/domain"
	logpkg "github.com/kailas-cloud/smartsearch/internal/logger"
	"github.com/kailas-cloud/smartsearch/internal/metrics"
	"github.com/kailas-cloud/smartsearch/internal/repository/corrcache"
	chiTransport "github.com/kailas-cloud/smartsearch/internal/transport/chi"
	openaiCorr "github.com/kailas-cloud/smartsearch/internal/transport/openai"
	healthuc "github.com/kailas-cloud/smartsearch/internal/usecase/health"
	"github.com/kailas-cloud/smartsearch/internal/version"
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

	logger.Info("Starting smartsearch mock API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("correction", cfg.Correction.Provider),
	)

	ctx := context.Background()

	// Redis/Valkey is optional: it only backs the correction cache.
	var store db.Store
	if cfg.Correction.Provider == "openai" && len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
	}

	metrics.RegisterCorrectionMetrics()

	corrector, correctorPinger := buildCorrector(cfg.Correction, store, logger)
	backendOpts := []memory.Option{
		memory.WithLatency(time.Duration(cfg.Mock.LatencyMs) * time.Millisecond),
		memory.WithStreamDelay(time.Duration(cfg.Mock.StreamDelayMs) * time.Millisecond),
		memory.WithLogger(logger),
	}
	if corrector != nil {
		backendOpts = append(backendOpts, memory.WithCorrector(corrector))
	}
	backend := memory.New(backendOpts...)

	components := []healthuc.Component{
		{Name: "backend", Pinger: backend, Required: true},
		{Name: "corrector", Pinger: correctorPinger},
	}
	if store != nil {
		components = append(components, healthuc.Component{Name: "database", Pinger: store})
	}
	healthSvc := healthuc.New(logger, components...)

	server := chiTransport.NewServer(backend, healthSvc, logger,
		chiTransport.WithMaxQueryRunes(cfg.Client.MaxQueryRunes),
	)

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

// buildCorrector assembles the correction chain: OpenAI -> Cached.
// "vocabulary" corrects against the seeded catalog, "none" disables correction.
func buildCorrector(
	cfg config.CorrectionConfig,
	store db.Store,
	logger *zap.Logger,
) (domain.Corrector, healthuc.Pinger) {
	switch cfg.Provider {
	case "openai":
		base := openaiCorr.NewCorrector(&openaiCorr.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: "openai",
			Logger:   logger,
		})
		// Uncached without a store.
		if store == nil {
			return base, base
		}
		ttl := time.Duration(cfg.CacheTTLSec) * time.Second
		return corrcache.New(base, store, ttl, metrics.CorrectionCacheTotal, logger), base
	case "vocabulary":
		return memory.New().Vocabulary(), nil
	default:
		return nil, nil
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
