// Command recurring-sweep materializes the current month's recurring
// transactions for every user, then exits. Generation is idempotent per
// template and month, so the sweep can be run as often as an operator likes,
// for example from cron, alongside the login-time generation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysfinance/internal/cli"
	applog "sysfinance/internal/log"
	"sysfinance/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentRecurring)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if db.Cleanup != nil {
			_ = db.Cleanup()
		}
	}()

	var publisher services.EventPublisher
	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	generator := services.NewRecurringGenerator(db.Store, services.RecurringBalanceMode(cfg.RecurringBalanceMode), nil, publisher)

	start := time.Now()
	created, err := generator.GenerateAll(ctx, start)
	if err != nil {
		logger.Error("Recurring sweep failed", applog.FieldError, err, "created", created)
		os.Exit(1)
	}
	logger.Info("Recurring sweep complete",
		"created", created,
		"mode", generator.Mode(),
		"duration", time.Since(start).Round(time.Millisecond))
}
