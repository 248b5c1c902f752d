package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finintel/internal/amqp"
	"finintel/internal/cache"
	"finintel/internal/cli"
	"finintel/internal/log"
	"finintel/internal/worker"
)

// seenReportsTTL bounds how long a handled fingerprint suppresses repeat alerts.
const seenReportsTTL = 24 * time.Hour

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	startup := context.Background()

	if err := cfg.RequireAMQP(); err != nil {
		logger.ErrorContext(startup, "Worker needs a message broker", log.FieldError, err)
		os.Exit(1)
	}

	logger.InfoContext(startup, "Starting finintel-worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	dialCtx, cancelDial := context.WithTimeout(startup, time.Minute)
	amqpClient, err := amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	cancelDial()
	if err != nil {
		logger.ErrorContext(startup, "Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	seen := cache.NewLRUCache[struct{}](1024, seenReportsTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(seen)

	alerts := worker.NewAlertWorker(seen, worker.LogNotifier)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cacheManager.Stop()
	})
	cacheManager.Start(ctx, time.Hour)

	if err := amqpClient.ConsumeReportComputed(ctx, alerts.HandleReportComputed); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Worker stopped gracefully")
}
