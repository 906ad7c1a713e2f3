package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgethero/internal/amqp"
	"budgethero/internal/auth"
	"budgethero/internal/backend"
	"budgethero/internal/blob"
	"budgethero/internal/cache"
	"budgethero/internal/cli"
	"budgethero/internal/config"
	apphttp "budgethero/internal/http"
	"budgethero/internal/live"
	"budgethero/internal/log"
	"budgethero/internal/services"
)

func main() {
	cfg, logger, err := cli.Setup(log.ComponentApp, (*config.Config).Validate)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	loc, _ := cfg.Location()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	stores, err := factory.CreateStore(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize document store", err, "backend", backendCfg.Type)
	}
	defer closeQuietly(logger, "document store", stores.Cleanup)

	blobs, err := factory.CreateBlobStore(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize blob store", err, "blob_backend", backendCfg.Blob)
	}
	defer closeQuietly(logger, "blob store", blobs.Cleanup)

	hub := live.NewHub()
	defer hub.Close()

	// Writes reach local sessions through the hub and, when configured, the
	// other instances and the sync worker through the fanout exchange.
	var notifier live.Notifier = hub
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", cfg.InstanceID)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()
		notifier = live.MultiNotifier{hub, client}

		go func() {
			// the client drops this instance's own broadcasts
			err := client.ConsumeBroadcast(ctx, func(_ context.Context, msg *amqp.ChangeMessage) error {
				hub.Deliver(live.Change{UserID: msg.UserID, Collection: msg.Collection})
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change broadcast consumer stopped", log.FieldError, err)
			}
		}()
		logger.Info("AMQP change broadcast enabled", "exchange", cfg.AMQPExchange, "instance", cfg.InstanceID)
	}

	svc := services.NewBudgetService(services.Options{
		Store:    stores.Store,
		Notifier: notifier,
		Feed:     hub,
		Blobs:    blobs.Blobs,
		Location: loc,
		Logger:   logger.WithComponent(log.ComponentBudget),
		Currency: cfg.CurrencySymbol,
	})

	dashboards := cache.NewLRUCache[services.DashboardView](cfg.CacheSize, cfg.CacheTTL)
	svc.WithDashboardCache(dashboards)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	cacheManager.Register(dashboards)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	// changes from other instances bypass this service's own invalidation
	stopInvalidation := hub.SubscribeAll(func(c live.Change) { svc.InvalidateUser(c.UserID) })
	defer stopInvalidation()

	var files blob.Store
	if backendCfg.Blob == backend.LocalBlob {
		files = blobs.Blobs
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:   svc,
		Files:     files,
		Ready:     stores.Ready,
		Auth:      auth.New(cfg.AuthHeader),
		CacheSize: dashboards.Size,
		Logger:    logger,
	})

	shutdownCtx, done := cli.GracefulShutdown(ctx, logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting HTTP server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"blob_backend", backendCfg.Blob,
		"timezone", loc.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server failed to start", err)
	}
	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server shutdown completed")
}

func closeQuietly(logger *log.Logger, what string, cleanup backend.CleanupFunc) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Warn("Cleanup failed", "resource", what, log.FieldError, err)
	}
}
