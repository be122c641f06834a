package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/liftdiag/internal/api"
	"github.com/liftdiag/internal/cache"
	"github.com/liftdiag/internal/config"
	"github.com/liftdiag/internal/importer"
	"github.com/liftdiag/internal/logging"
	"github.com/liftdiag/internal/report"
	"github.com/liftdiag/internal/storage"
	"github.com/liftdiag/internal/version"
)

func main() {
	// Command line flags
	var (
		configPath  = flag.String("config", "config.yaml", "Path to configuration file")
		port        = flag.Int("port", 0, "HTTP server port (overrides config)")
		host        = flag.String("host", "", "HTTP server host (overrides config)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("LiftDiag Server %s\n", version.GetFullVersionInfo())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	if err := logging.Initialize(cfg.ServerLogging.ToLogging()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logging.Info("LiftDiag server starting",
		slog.String("version", version.GetFullVersionInfo()),
		slog.String("config", *configPath),
		slog.String("driver", cfg.Storage.Driver))

	driver, dbConfig, err := cfg.Storage.DatabaseConfig()
	if err != nil {
		logging.Fatalf("Invalid storage configuration: %v", err)
	}
	store, err := storage.Open(driver, dbConfig)
	if err != nil {
		logging.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if v, err := store.Version(); err == nil {
		logging.Info("Storage ready", slog.String("driver", driver), slog.String("version", v))
	}

	service := report.NewService(store)
	var provider report.Provider = service

	// Initialize cache if enabled
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled {
		cacheImpl, err = cache.New(cfg.Cache.ToCacheConfig())
		if err != nil {
			logging.Fatalf("Failed to initialize BadgerCache: %v", err)
		}
		cached := report.NewCachedService(service, cacheImpl, &report.CacheConfig{
			Enabled:      true,
			DashboardTTL: cfg.Cache.DashboardTTL,
			ViewTTL:      cfg.Cache.ViewTTL,
		})
		defer cached.Close()
		provider = cached

		logging.Info("BadgerCache initialized",
			slog.String("path", cfg.Cache.Path),
			slog.Bool("in_memory", cfg.Cache.InMemory),
			slog.Duration("dashboard_ttl", cfg.Cache.DashboardTTL),
			slog.Duration("view_ttl", cfg.Cache.ViewTTL))
	} else {
		logging.Info("Cache is disabled")
	}

	ctx := context.Background()
	if err := provider.Reload(ctx); err != nil {
		logging.Fatalf("Failed to load snapshot: %v", err)
	}
	if info, ok := provider.Info(); ok && info.Installations == 0 && cfg.Server.LoadOnStart {
		loadInitialSnapshot(ctx, cfg, provider)
	}

	apiServer := api.New(provider, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		ImportWorkers:  cfg.Import.Workers,
	})
	apiServer.SetHealthChecker(&serverHealthChecker{
		storage:   store,
		provider:  provider,
		cache:     cacheImpl,
		startTime: time.Now(),
	})
	if cached, ok := provider.(*report.CachedService); ok {
		apiServer.SetCacheStatsHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics := cached.GetCacheMetrics()
			api.WriteJSONSuccess(w, map[string]any{
				"metrics":  metrics,
				"hit_rate": metrics.HitRate(),
			})
		})
	}

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           apiServer.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		logging.Info("Server starting", slog.String("address", "http://"+cfg.Server.Address()))
		logging.Infof("    http://%s/api/dashboard  - Dashboard", cfg.Server.Address())
		logging.Infof("    http://%s/api/imports    - Upload spreadsheets (POST)", cfg.Server.Address())
		if cacheImpl != nil {
			logging.Infof("    http://%s/api/cache/stats - Cache statistics", cfg.Server.Address())
		}

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown timed out, forcing close", slog.Any("error", err))
		if err := server.Close(); err != nil {
			logging.Error("Server force close error", slog.Any("error", err))
		}
	}

	logging.Info("Server stopped")
}

// loadInitialSnapshot imports the configured paths into an empty store.
// Failures are logged; the server still starts with the empty snapshot.
func loadInitialSnapshot(ctx context.Context, cfg *config.Config, provider report.Provider) {
	fs := afero.NewOsFs()
	var sources []importer.Source
	for _, p := range cfg.Import.Paths {
		found, err := importer.DiscoverSources(fs, p, cfg.Import.Recursive)
		if err != nil {
			logging.Warn("Skipping import path", slog.String("path", p), logging.Err(err))
			continue
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		logging.Warn("load_on_start is set but no spreadsheets were found")
		return
	}

	imp := importer.New(provider, importer.Options{Workers: cfg.Import.Workers})
	summary, err := imp.Import(ctx, sources)
	if err != nil {
		logging.Error("Initial import failed", logging.Err(err))
		return
	}
	logging.Info("Initial snapshot imported",
		logging.ImportID(summary.Batch.ID),
		logging.Count("installation", summary.Batch.Installations))
}
