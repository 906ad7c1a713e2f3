package main

import (
	"context"
	"errors"
	"time"

	"budgethero/internal/amqp"
	"budgethero/internal/cli"
	"budgethero/internal/config"
	"budgethero/internal/log"
	"budgethero/internal/services"
	gsheet "budgethero/internal/sheets/google"
	"budgethero/internal/storage"
	"budgethero/internal/worker"
)

// syncConcurrency bounds how many user tabs a full resync rewrites at once.
const syncConcurrency = 4

func main() {
	cfg, logger, err := cli.Setup(log.ComponentWorker, (*config.Config).ValidateWorker)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	logger.Info("Starting budgethero-worker")
	loc, _ := cfg.Location()

	// The worker reads ledgers straight from the shared SQLite database
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err, "path", cfg.SQLiteDBPath)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	// read-only use: no notifier, no blobs
	svc := services.NewBudgetService(services.Options{
		Store:    repo,
		Location: loc,
		Logger:   logger.WithComponent(log.ComponentBudget),
		Currency: cfg.CurrencySymbol,
	})

	syncWorker := worker.NewSyncWorker(svc, repo, sheetsClient, logger, syncConcurrency)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.InstanceID)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeChanges(ctx, syncWorker.HandleChangeMessage); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
				cancel(err)
			}
		}()
		logger.Info("Consuming change messages", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - relying on periodic resync only", "interval", cfg.SyncInterval)
	}

	processor := worker.NewProcessor(syncWorker, worker.ProcessorConfig{
		ResyncInterval: cfg.SyncInterval,
	}, logger)
	if err := processor.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start resync processor", err)
	}

	shutdownCtx, done := cli.GracefulShutdown(ctx, logger, 30*time.Second, func(stopCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(stopCtx); err != nil {
			logger.Warn("Resync processor did not stop cleanly", log.FieldError, err)
		}
		cancel(context.Canceled)
	})
	cli.WaitForShutdown(shutdownCtx, done)
}
