package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vearutop/spendcache"
	"github.com/vearutop/spendcache/internal/advisor"
	"github.com/vearutop/spendcache/internal/config"
	"github.com/vearutop/spendcache/internal/httpapi"
	"github.com/vearutop/spendcache/internal/insights"
	"github.com/vearutop/spendcache/internal/ledger"
	"github.com/vearutop/spendcache/internal/logging"
	"github.com/vearutop/spendcache/internal/metrics"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

// application holds wired components.
type application struct {
	logger  logging.Logger
	tracker *metrics.Tracker
	store   *cache.Memory
	handler http.Handler
}

func newApplication(cfg config.Config) (*application, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	tracker := metrics.NewTracker(cfg.Metrics.Namespace)

	store := cache.NewMemory(cache.MemoryConfig{
		Name:                     "insights",
		Logger:                   logger,
		Stats:                    tracker,
		TimeToLive:               cfg.Cache.TimeToLive,
		DeleteExpiredJobInterval: cfg.Cache.DeleteExpiredJobInterval,
		ItemsCountReportInterval: cfg.Cache.ItemsCountReportInterval,
		HeapInUseSoftLimit:       cfg.Cache.HeapInUseSoftLimit,
	})

	aside := cache.NewAside(cache.AsideConfig{
		Name:            "insights",
		Store:           store,
		TimeToLive:      cfg.Cache.TimeToLive,
		Deduplicate:     cfg.Cache.Deduplicate,
		UnstampedWrites: cfg.Cache.UnstampedWrites,
		Logger:          logger,
		Stats:           tracker,
	})

	invalidator := &cache.Invalidator{Logger: logger, Stats: tracker}
	invalidator.Add(aside)

	repo := ledger.NewMemoryRepository()

	adv := advisor.NewClient(advisor.Config{
		BaseURL:     cfg.Advisor.BaseURL,
		APIKey:      cfg.Advisor.APIKey,
		Model:       cfg.Advisor.Model,
		Temperature: cfg.Advisor.Temperature,
		Timeout:     cfg.Advisor.Timeout,
		Logger:      logger,
	})

	svc := insights.NewService(repo, adv, insights.Config{
		Cache:  aside,
		Logger: logger,
		Stats:  tracker,
	})

	return &application{
		logger:  logger,
		tracker: tracker,
		store:   store,
		handler: httpapi.NewRouter(httpapi.Deps{
			Repository:  repo,
			Insights:    svc,
			Invalidator: invalidator,
			Logger:      logger,
			Metrics:     tracker.Handler(),
			Middlewares: []func(http.Handler) http.Handler{tracker.Middleware},
			CORSOrigins: cfg.HTTP.CORSOrigins,
		}),
	}, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	app, err := newApplication(cfg)
	if err != nil {
		return err
	}

	defer func() {
		app.store.Close()
		_ = app.logger.Sync() //nolint:errcheck // Sync fails on non-file outputs.
	}()

	if cfg.Advisor.APIKey == "" {
		app.logger.Warn(ctx, "advisor api key is not configured, serving fallback tips")
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      app.handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		app.logger.Important(ctx, "starting server", "addr", cfg.HTTP.Addr, "version", version)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	app.logger.Important(context.Background(), "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
