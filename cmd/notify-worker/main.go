package main

import (
	"context"
	"errors"
	"os"
	"time"

	"sysfinance/internal/cli"
	applog "sysfinance/internal/log"
	"sysfinance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting notify-worker")

	if cfg.AMQPURL == "" {
		logger.Error("notify-worker needs AMQP_URL to consume ledger events")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process; notifications will not reach the API")
	}

	db := cli.OpenStore(context.Background(), logger, cfg)
	defer func() {
		if db.Cleanup != nil {
			_ = db.Cleanup()
		}
	}()

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifier := worker.NewNotifyWorker(db.Store)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := amqpClient.ConsumeEvents(ctx, notifier.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("notify-worker stopped")
}
