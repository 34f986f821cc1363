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

	"github.com/skillforge/registry/internal/config"
	dbRedis "github.com/skillforge/registry/internal/db/redis"
	logpkg "github.com/skillforge/registry/internal/logger"
	"github.com/skillforge/registry/internal/metrics"
	auditrepo "github.com/skillforge/registry/internal/repository/audit"
	blobrepo "github.com/skillforge/registry/internal/repository/blob"
	embeddingrepo "github.com/skillforge/registry/internal/repository/embedding"
	fingerprintrepo "github.com/skillforge/registry/internal/repository/fingerprint"
	ownerrepo "github.com/skillforge/registry/internal/repository/owner"
	ratelimitrepo "github.com/skillforge/registry/internal/repository/ratelimit"
	reservationrepo "github.com/skillforge/registry/internal/repository/reservation"
	skillrepo "github.com/skillforge/registry/internal/repository/skill"
	"github.com/skillforge/registry/internal/scheduler"
	chiTransport "github.com/skillforge/registry/internal/transport/chi"
	openaiEmb "github.com/skillforge/registry/internal/transport/openai"
	healthuc "github.com/skillforge/registry/internal/usecase/health"
	qualityuc "github.com/skillforge/registry/internal/usecase/quality"
	ratelimituc "github.com/skillforge/registry/internal/usecase/ratelimit"
	searchuc "github.com/skillforge/registry/internal/usecase/search"
	skilluc "github.com/skillforge/registry/internal/usecase/skill"
	slugledgeruc "github.com/skillforge/registry/internal/usecase/slugledger"
	"github.com/skillforge/registry/internal/version"
)

func main() {
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

	logger.Info("Starting skill registry API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterDomainMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	embRepo := embeddingrepo.New(store)
	sklRepo := skillrepo.New(store)
	rlRepo := ratelimitrepo.New(store)
	resRepo := reservationrepo.New(store)
	audRepo := auditrepo.New(store)
	blbRepo := blobrepo.New(store)
	ownRepo := ownerrepo.New(store)
	fpRepo := fingerprintrepo.New(store)

	if err := embRepo.EnsureIndex(ctx, cfg.Embedding.Dimensions, cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct); err != nil {
		logger.Fatal("Failed to ensure embedding index", zap.Error(err))
	}
	if err := sklRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure skill index", zap.Error(err))
	}

	// Background task dispatcher
	tasks := scheduler.New(logger)

	// Use case services
	searchSvc := searchuc.New(embRepo, sklRepo, embedder)
	limiterSvc := ratelimituc.New(rlRepo, ratelimituc.Limits{
		Window: time.Duration(cfg.RateLimit.WindowMs) * time.Millisecond,
		IP:     classLimits(cfg.RateLimit.IP),
		Key:    classLimits(cfg.RateLimit.Key),
	})
	qualitySvc := qualityuc.New(sklRepo, ownRepo, blbRepo, embRepo, audRepo, tasks, qualityuc.Config{
		SweepPageSize:       cfg.Quality.SweepPageSize,
		SweepItemsPerSec:    cfg.Quality.SweepItemsPerSec,
		NominationThreshold: int64(cfg.Quality.NominationThreshold),
	}, logger)
	ledgerSvc := slugledgeruc.New(resRepo, time.Duration(cfg.Slugs.ReservationTTLHours)*time.Hour)
	skillSvc := skilluc.New(sklRepo, blbRepo, embRepo, embedder, ledgerSvc, qualitySvc, fpRepo, ownRepo, audRepo, logger)
	healthSvc := healthuc.New(store, embedder)

	tasks.Register(qualityuc.TaskSweep, func(ctx context.Context, t scheduler.Task) error {
		return qualitySvc.RunSweepPage(ctx, t.Cursor)
	})

	server := chiTransport.NewServer(searchSvc, skillSvc, qualitySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes(chiTransport.RouterConfig{
		AdminKeys:      cfg.Auth.AdminKeys,
		TrustedProxies: cfg.Auth.TrustedProxies,
		Limiter:        limiterSvc,
	}))

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
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping scheduler", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func classLimits(l config.ClassLimits) ratelimituc.ClassLimits {
	return ratelimituc.ClassLimits{
		Read:     int64(l.Read),
		Write:    int64(l.Write),
		Download: int64(l.Download),
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
