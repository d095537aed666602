package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/config"
	dbRedis "github.com/cadenza-app/cadenza/internal/db/redis"
	"github.com/cadenza-app/cadenza/internal/domain"
	"github.com/cadenza-app/cadenza/internal/fetch"
	logpkg "github.com/cadenza-app/cadenza/internal/logger"
	"github.com/cadenza-app/cadenza/internal/metrics"
	analyticsrepo "github.com/cadenza-app/cadenza/internal/repository/analytics"
	scorerepo "github.com/cadenza-app/cadenza/internal/repository/score"
	"github.com/cadenza-app/cadenza/internal/source"
	chiTransport "github.com/cadenza-app/cadenza/internal/transport/chi"
	openaiGen "github.com/cadenza-app/cadenza/internal/transport/openai"
	healthuc "github.com/cadenza-app/cadenza/internal/usecase/health"
	lessonuc "github.com/cadenza-app/cadenza/internal/usecase/lesson"
	resolveuc "github.com/cadenza-app/cadenza/internal/usecase/resolve"
	"github.com/cadenza-app/cadenza/internal/version"
)

func runServe() error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewFileLogger(env, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cadenza API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
		zap.Strings("resolver_order", cfg.Resolver.Order),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("create score store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("score store not ready: %w", err)
	}
	logger.Info("Connected to score store")

	analytics, err := analyticsrepo.Open(cfg.Analytics.Path)
	if err != nil {
		return fmt.Errorf("open analytics db: %w", err)
	}
	defer func() { _ = analytics.Close() }()

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterResolverMetrics()

	scoreCache := scorerepo.New(store, cfg.ScoreTTL())
	fetcher := fetch.New(nil, fetchConfigs(cfg.Sources), logger)
	resolver := resolveuc.New(buildChain(cfg, fetcher, scoreCache, logger), cfg.ChainTimeout(), logger)

	generator := openaiGen.NewGenerator(&openaiGen.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		User:    cfg.LLM.User,
		Logger:  logger,
	})

	lessons := lessonuc.New(generator, resolver, analytics, logger)
	health := healthuc.New(store, analytics, generator)
	server := chiTransport.NewServer(lessons, resolver, health)

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
	return nil
}

// fetchConfigs maps the per-source YAML sections onto fetch tuning, starting
// from the default profile for anything left unset.
func fetchConfigs(sources config.SourcesConfig) map[domain.Source]fetch.SourceConfig {
	out := make(map[domain.Source]fetch.SourceConfig, len(sources))
	for name, sc := range sources {
		src, ok := domain.ParseSource(name)
		if !ok {
			continue // rejected by config.Validate already
		}
		fc := fetch.DefaultSourceConfig()
		if sc.Retries > 0 {
			fc.Retries = sc.Retries
		}
		if sc.InitialDelayMs > 0 {
			fc.InitialDelay = time.Duration(sc.InitialDelayMs) * time.Millisecond
		}
		if sc.TimeoutSec > 0 {
			fc.Timeout = time.Duration(sc.TimeoutSec) * time.Second
		}
		if sc.RatePerSec > 0 {
			fc.RatePerSec = sc.RatePerSec
		}
		if sc.Burst > 0 {
			fc.Burst = sc.Burst
		}
		if sc.BreakerFailures > 0 {
			fc.Breaker.FailureThreshold = sc.BreakerFailures
		}
		if sc.BreakerResetSec > 0 {
			fc.Breaker.ResetWindow = time.Duration(sc.BreakerResetSec) * time.Second
		}
		out[src] = fc
	}
	return out
}

// buildChain assembles one adapter per catalog in the configured priority order.
func buildChain(cfg config.Config, fetcher source.Fetcher, cache source.ScoreCache, logger *zap.Logger) []resolveuc.SourceResolver {
	profiles := source.Profiles()
	chain := make([]resolveuc.SourceResolver, 0, len(cfg.Resolver.Order))
	for _, name := range cfg.Resolver.Order {
		src, ok := domain.ParseSource(name)
		if !ok {
			continue
		}
		profile, ok := profiles[src]
		if !ok {
			continue
		}
		threshold := cfg.Sources[name].Threshold
		chain = append(chain, source.NewAdapter(profile, threshold, fetcher, cache, logger))
	}
	return chain
}
