package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/cubetab/internal/audit"
	"github.com/JonMunkholm/cubetab/internal/cache"
	"github.com/JonMunkholm/cubetab/internal/config"
	"github.com/JonMunkholm/cubetab/internal/core"
	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/logging"
	"github.com/JonMunkholm/cubetab/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	catalog, err := cube.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.Catalog.Path, "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded",
		"path", cfg.Catalog.Path,
		"cubes", len(catalog.Cubes),
		"data_accesses", len(catalog.Items),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	var queryCache cache.QueryCache = cache.NoCache{}
	if cfg.Cache.Enabled {
		queryCache = cache.NewMemory(cfg.Cache.DefaultTTL)
	}

	service, err := core.NewService(core.Config{
		Catalog:      catalog,
		Executor:     cube.NewSQLExecutor(pool),
		Cache:        queryCache,
		Audit:        audit.NewHelper("query-service", auditStore(cfg.Audit.Store, pool)),
		Limiter:      core.NewQueryLimiter(cfg.Query.MaxConcurrent, cfg.Query.MaxWaitTime),
		QueryTimeout: cfg.Query.Timeout,
		MaxRowLimit:  cfg.Query.MaxRowLimit,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	if cfg.Cache.Enabled {
		go service.StartCacheJanitor(jobCtx, cfg.Cache.JanitorInterval)
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for queries to complete", "active", status.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("queries did not complete in time", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// auditStore builds the audit store named by AUDIT_STORE.
func auditStore(kind string, pool *pgxpool.Pool) audit.Store {
	logStore := audit.LogStore{Logger: slog.Default()}
	pgStore := audit.PostgresStore{DB: pool}

	switch strings.ToLower(kind) {
	case "postgres":
		return pgStore
	case "both":
		return audit.MultiStore{logStore, pgStore}
	case "none":
		return nil
	default:
		return logStore
	}
}
