package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"GlobalBooks/internal/auth"
	"GlobalBooks/internal/catalog"
	"GlobalBooks/internal/config"
	"GlobalBooks/internal/db"
	"GlobalBooks/internal/events"
	"GlobalBooks/pkg/kit"
)

const (
	service = "catalog"

	startupTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pub, err := events.Init(ctx, cfg.Events, log)
	if err != nil {
		log.Warn("event publisher unavailable, stock changes will not be announced", zap.Error(err))
	}
	dispatcher := events.NewDispatcher(pub, events.DispatcherOptions{
		Buffer:         cfg.Events.Buffer,
		Workers:        cfg.Events.Workers,
		PublishTimeout: cfg.Events.PublishTimeout,
		Log:            log,
		Registry:       reg,
	})

	deps := catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	}

	var h http.Handler
	svc, closeStore, err := newService(ctx, cfg, dispatcher, reg, log)
	if err != nil {
		log.Error("catalog service not initialized", zap.Error(err))
		h = catalog.NotInitializedHandler(deps)
	} else {
		s := &catalog.Server{
			Service:     svc,
			Log:         log,
			WriteGuards: writeGuards(cfg, log),
		}
		h = catalog.NewHandler(s, deps)
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, cfg.ShutdownTimeout); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("event dispatcher did not drain", zap.Error(err))
	}
	if err := pub.Close(); err != nil {
		log.Warn("close event publisher", zap.Error(err))
	}
	if closeStore != nil {
		closeStore()
	}
	log.Info("shutdown complete")
}

func newService(ctx context.Context, cfg config.Config, sink catalog.EventSink, reg prometheus.Registerer, log *zap.Logger) (*catalog.Service, func(), error) {
	var (
		store   catalog.Store
		cleanup func()
	)

	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseURL, log); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		store, cleanup = catalog.NewPostgresStore(pool), pool.Close
	default:
		mem, err := catalog.NewMemStore(catalog.Seed()...)
		if err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		store = mem
	}

	svc, err := catalog.NewService(store, sink, log, catalog.WithRegistry(reg))
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}

	log.Info("catalog service ready", zap.String("store", cfg.StoreDriver))
	return svc, cleanup, nil
}

func writeGuards(cfg config.Config, log *zap.Logger) []func(http.Handler) http.Handler {
	var guards []func(http.Handler) http.Handler

	if cfg.JWTSecret != "" {
		guards = append(guards, auth.RequireScope(auth.NewTokenMaker(cfg.JWTSecret), auth.ScopeWrite))
	} else {
		log.Warn("JWT_SECRET not set, stock updates are unauthenticated")
	}

	if cfg.StockWriteLimitPerMin > 0 {
		guards = append(guards, kit.NewIPRateLimiter(cfg.StockWriteLimitPerMin, time.Minute).Middleware)
	}
	return guards
}
