package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finintel/internal/amqp"
	"finintel/internal/backend"
	"finintel/internal/cache"
	"finintel/internal/cli"
	"finintel/internal/core"
	apphttp "finintel/internal/http"
	"finintel/internal/log"
	"finintel/internal/services"
	"finintel/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	startup := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(startup, "Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger.Logger).CreateBackend(startup, backendCfg)
	if err != nil {
		logger.ErrorContext(startup, "Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer source.Close()

	reader := source.Reader
	var ready apphttp.ReadinessCheck

	// With a refresh interval the source is mirrored into SQLite and reports
	// are served from the mirror.
	var refresher *services.RefreshProcessor
	var mirror *storage.SQLiteRepository
	if cfg.RefreshInterval > 0 {
		mirror = cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer mirror.Close()
		reader = mirror
		ready = mirror.Ping
	} else if repo, ok := source.Reader.(*storage.SQLiteRepository); ok {
		ready = repo.Ping
	}

	reports := cache.NewLRUCache[core.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reports)

	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		dialCtx, cancel := context.WithTimeout(startup, 30*time.Second)
		amqpClient, err = amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		cancel()
		if err != nil {
			logger.WarnContext(startup, "Failed to initialize AMQP client, continuing without report events", log.FieldError, err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	svc := services.NewReportService(reader, reports, publisher)
	if mirror != nil {
		refresher = services.NewRefreshProcessor(source.Reader, mirror, svc, services.RefreshProcessorConfig{PollInterval: cfg.RefreshInterval})
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
		Ready:        ready,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Server shutdown error", log.FieldError, err)
		}
		if refresher != nil {
			if err := refresher.Stop(shutdownCtx); err != nil {
				logger.WarnContext(shutdownCtx, "Refresh processor stop failed", log.FieldError, err)
			}
		}
		cacheManager.Stop()
	})

	if refresher != nil {
		if _, err := refresher.RefreshOnce(ctx); err != nil {
			logger.ErrorContext(ctx, "Initial dataset refresh failed", log.FieldError, err)
		}
		if err := refresher.Start(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to start refresh processor", log.FieldError, err)
			os.Exit(1)
		}
	}
	cacheManager.Start(ctx, cfg.ReportCacheTTL)

	logger.InfoContext(ctx, "Starting finintel server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"refresh_interval", cfg.RefreshInterval,
		"events", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}

