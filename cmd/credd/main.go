package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mwhitford/domaincred/internal/config"
	"github.com/mwhitford/domaincred/internal/credential"
	"github.com/mwhitford/domaincred/internal/credibility"
	"github.com/mwhitford/domaincred/internal/dataforseo"
	"github.com/mwhitford/domaincred/internal/diaglog"
	"github.com/mwhitford/domaincred/internal/server"
	"github.com/mwhitford/domaincred/internal/storage/sqlite"
	"github.com/mwhitford/domaincred/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// .env holds the provider credential fallback in development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.Init("domaincred", logger)
	if err != nil {
		logger.Error("failed to init telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.Storage.Path, sqlite.WithMaxLogEntries(cfg.Log.MaxEntries))
	if err != nil {
		logger.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	diag := diaglog.New(store, logger)
	resolver := credential.NewResolver(store)
	registry := dataforseo.NewRegistry(resolver, diag,
		dataforseo.WithBaseURL(cfg.Provider.BaseURL),
		dataforseo.WithTimeout(time.Duration(cfg.Provider.TimeoutMs)*time.Millisecond),
		dataforseo.WithMaxRetries(cfg.Provider.MaxRetries),
		dataforseo.WithRetryDelay(time.Duration(cfg.Provider.RetryDelayMs)*time.Millisecond),
		dataforseo.WithRateLimit(cfg.Provider.RateLimitPerMinute),
	)

	svc := credibility.NewService(
		func(ctx context.Context, clientCode string) (credibility.MetricsClient, error) {
			return registry.ClientFor(ctx, clientCode)
		},
		store, logger)

	srv := server.New(cfg.Server.Port, logger)
	server.NewHandler(svc, diag, logger).Routes(srv.Router)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server failed", slog.String("error", err.Error()))
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
	}
}
