package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"saasan/internal/cache"
	"saasan/internal/db"
	"saasan/internal/events"
	"saasan/internal/router"
	"saasan/internal/services"
	"saasan/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
}

func serveRun(parent context.Context) error {
	logger := commonRun()
	if !globalFlags.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	projections, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	if closer, ok := projections.(io.Closer); ok {
		defer closer.Close()
	}

	publisher, err := events.New(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, logger)
	if err != nil {
		return fmt.Errorf("init events: %w", err)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := services.New(services.Options{
		DB:                gdb,
		Store:             store,
		Cache:             projections,
		Publisher:         publisher,
		Metrics:           services.NewMetrics(registry),
		Logger:            logger,
		UploadTimeout:     cfg.Storage.UploadTimeout,
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
		MaxFilesPerUpload: cfg.Storage.MaxFilesPerUpload,
	})

	go svc.Refresher.Run(ctx)

	engine := router.New(router.Deps{
		DB:                gdb,
		Services:          svc,
		Logger:            logger,
		Registry:          registry,
		JWTSecret:         []byte(cfg.Auth.JWTSecret),
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRPS:      cfg.Server.RateLimitRPS,
		RateLimitBurst:    cfg.Server.RateLimitBurst,
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
		MaxFilesPerUpload: cfg.Storage.MaxFilesPerUpload,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: engine,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("saasan server starting", "addr", srv.Addr, "storage", cfg.Storage.Backend, "cache", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
