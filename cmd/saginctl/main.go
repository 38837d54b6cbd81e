package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saginctl/internal/httpapi"
	"saginctl/pkg/audit"
	"saginctl/pkg/cache"
	"saginctl/pkg/config"
	"saginctl/pkg/logger"
	"saginctl/pkg/metrics"
	"saginctl/pkg/pipeline"
	"saginctl/pkg/routeenv"
	"saginctl/pkg/spatial"
	"saginctl/pkg/stats"
	"saginctl/pkg/store"
	"saginctl/pkg/telemetry"
	"saginctl/pkg/topology"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("error")
		logger.Fatal("failed to load config", "error", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	logger.Log.Info("starting saginctl",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Fatal("failed to initialise tracing", "error", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("tracing shutdown error", "error", err)
		}
	}()

	met := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	met.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	net := topology.NewNetwork()
	if cfg.Sim.TopologyPath != "" {
		if err := loadTopologySeed(cfg.Sim.TopologyPath, net); err != nil {
			logger.Fatal("failed to seed topology", "error", err)
		}
		logger.Log.Info("topology seeded", "path", cfg.Sim.TopologyPath, "nodes", len(net.All()))
	} else {
		logger.Log.Warn("sim.topology_path not set, starting with an empty topology")
	}
	if err := metrics.RegisterNetworkCollector(net, cfg.Metrics.Namespace, cfg.Metrics.Subsystem); err != nil {
		logger.Log.Warn("failed to register topology metrics collector", "error", err)
	}

	auditLogger, err := audit.New(audit.Config{
		Enabled:  cfg.Audit.Enabled,
		Backend:  cfg.Audit.Backend,
		FilePath: cfg.Audit.FilePath,
	})
	if err != nil {
		logger.Fatal("failed to initialise audit logger", "error", err)
	}
	defer auditLogger.Close()

	// The Postgres-backed aggregator repository is an enhancement, not a
	// hard dependency: pkg/stats.Config.Repo is nil-tolerant and falls
	// back to CSV-only persistence (SPEC_FULL.md), so a database outage
	// at startup degrades the process instead of failing it.
	var aggRepo stats.Repository
	db, err := store.NewPostgresDB(ctx, &cfg.Store)
	if err != nil {
		logger.Log.Warn("postgres unavailable, statistics will not be persisted to the store", "error", err)
	} else {
		defer db.Close()
		if err := store.RunMigrations(ctx, db.Pool(), &cfg.Store, store.Migrations, "migrations"); err != nil {
			logger.Log.Warn("migrations failed", "error", err)
		}
		aggRepo = store.NewAggregatorRepository(db)
		go runOrbitalPersistence(ctx, store.NewOrbitalStateRepository(db), net)
	}

	agg, err := stats.New(stats.Config{
		LogPath:   cfg.Sim.StatsLogPath,
		BatchSize: cfg.Sim.StatsBatchSize,
		Repo:      aggRepo,
	})
	if err != nil {
		logger.Fatal("failed to open statistics aggregator", "error", err)
	}
	defer agg.Close()

	var planCache *cache.PlannerCache
	if cfg.Cache.Enabled {
		backend, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("planner cache unavailable, falling back to live planning every request", "error", err)
		} else {
			planCache = cache.NewPlannerCache(backend, cfg.Cache.DefaultTTL)
		}
	}

	space := spatial.NewGroundSpace(500, 30*time.Second)
	env := routeenv.New(net, space, nil, time.Now)
	pl := pipeline.New(net, env, pipeline.Config{
		Policy:    pipeline.GreedyPolicy{},
		Recorder:  agg,
		Audit:     auditLogger,
		Metrics:   met,
		PlanCache: planCache,
	})
	go pl.Run(ctx)

	srv := &httpapi.Server{Net: net, Space: space, Pipeline: pl, Stats: agg}

	mux := http.NewServeMux()
	mux.Handle("/", srv.NewMux())
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Log.Info("http server listening", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	cancel() // stop the routing worker and request synthesis

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("http server shutdown error", "error", err)
	}

	logger.Log.Info("stopped")
}
