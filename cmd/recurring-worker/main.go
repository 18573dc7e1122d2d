// recurring-worker realizes due recurring transactions into the ledger on a
// fixed interval. Realized rows flow through the normal creation path, so
// they are published to the export pipeline like any hand-entered one.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.ExportPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, realized rows stay pending until the export worker sweeps",
				log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	txSvc := services.NewTransactionService(repo, publisher, logger)
	recurringSvc := services.NewRecurringService(repo, txSvc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("recurring processor configured",
		"interval", cfg.RecurringInterval.String(),
		"db", cfg.SQLiteDBPath)

	apply := func(now time.Time) {
		count, err := recurringSvc.ApplyDue(ctx, now)
		if err != nil {
			logger.Error("apply cycle failed", log.FieldError, err)
			return
		}
		if count > 0 {
			logger.Info("apply cycle complete", log.FieldCount, count)
		}
	}

	apply(time.Now())

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				apply(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", "signal", sig.String())
	cancel()
}
