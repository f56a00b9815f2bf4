// Command forecaster implements the gradecast forecast service.
//
// The forecaster runs a continuous forecast loop that:
//  1. Collects a student's courses from the backend (HTTP, Postgres or file)
//  2. Runs the Monte Carlo GPA forecast, optionally trend-adjusted
//  3. Computes the passed-units summary and per-semester trend
//  4. Stores the snapshot (memory or Redis)
//  5. Exposes snapshots via HTTP API at /forecast/current
//
// The forecaster serves an HTTP API on port 8081 (configurable) providing:
//   - GET /forecast/current?student=<name> - Latest forecast snapshot
//   - POST /forecast/simulate - Ad-hoc forecast for a posted course list
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	SOURCE_URL=http://backend:5000/api/courses \
//	forecaster -student=alice -source=http -interval=5m
//
// Environment variables:
//
//	STUDENT        - Student the loop forecasts for (required)
//	SOURCE         - Course source: http, postgres, file (default: http)
//	SOURCE_*       - Source settings, e.g. SOURCE_URL, SOURCE_DSN, SOURCE_PATH
//	TOTAL_UNITS    - Graded units required for the degree (default: 32)
//	SIMULATIONS    - Monte Carlo trials (default: 32000)
//	TREND          - Run the trend-adjusted forecast (default: true)
//	STORE          - Snapshot store: memory, redis (default: memory)
//	REDIS_ADDR     - Redis address (default: localhost:6379)
//	INTERVAL       - Forecast loop interval (default: 5m)
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HatiCode/gradecast/cmd/forecaster/config"
	"github.com/HatiCode/gradecast/cmd/forecaster/logger"
	"github.com/HatiCode/gradecast/cmd/forecaster/metrics"
	"github.com/HatiCode/gradecast/cmd/forecaster/router"
	"github.com/HatiCode/gradecast/pkg/adapters"
	"github.com/HatiCode/gradecast/pkg/httpx"
	"github.com/HatiCode/gradecast/pkg/storage"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("forecaster failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting gradecast forecaster",
		"version", version,
		"student", cfg.Student,
		"source", cfg.Source,
		"store", cfg.Store,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts, err := cfg.ForecastOptions()
	if err != nil {
		return err
	}

	source, closeSource, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	f := New(cfg.Student, source, store, opts, log, metrics.New(cfg.Student))

	mux := router.SetupRoutes(store, router.Config{
		StaleAfter:   cfg.StaleAfter,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Defaults:     opts,
	}, log)
	handler := httpx.Chain(mux, httpx.RecoveryMiddleware(log), httpx.LoggingMiddleware(log))
	httpServer := httpx.NewServer(cfg.Listen, handler, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := f.Run(gctx, cfg.Interval); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("forecast loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return httpServer.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return httpServer.Stop(10 * time.Second)
	})

	return g.Wait()
}

// buildSource creates the configured course source. The returned cleanup
// releases any connection pool the source holds.
func buildSource(ctx context.Context, cfg *config.Config) (adapters.Source, func(), error) {
	source, cleanup, err := adapters.New(ctx, cfg.Source, cfg.SourceConfig)
	if err != nil {
		return nil, func() {}, fmt.Errorf("build %s source: %w", cfg.Source, err)
	}
	return source, cleanup, nil
}

// buildStore creates the configured snapshot store.
func buildStore(cfg *config.Config, log *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Store {
	case "redis":
		store, err := storage.NewRedisStore(storage.RedisOptions{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			TTL:          cfg.RedisTTL,
			HistoryLimit: cfg.RedisHistory,
		})
		if err != nil {
			return nil, func() {}, fmt.Errorf("redis store: %w", err)
		}
		log.Info("using redis store", "addr", cfg.RedisAddr, "ttl", cfg.RedisTTL)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}, nil

	case "memory", "":
		if cfg.MemoryTTL > 0 {
			store := storage.NewMemoryStoreWithTTL(cfg.MemoryTTL, cfg.MemoryTTL/4)
			log.Info("using memory store", "ttl", cfg.MemoryTTL)
			return store, store.Stop, nil
		}
		log.Info("using memory store")
		store := storage.NewMemoryStore()
		return store, store.Stop, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
