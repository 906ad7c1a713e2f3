// Package cli holds the start-up and shutdown steps shared by
// cmd/budgethero and cmd/budgethero-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgethero/internal/config"
	"budgethero/internal/log"
)

// Setup loads .env (when present) and the environment configuration, then
// installs the default logger for component at the configured level. The
// config is checked with validate; its error is returned as is so the
// caller decides how to exit.
func Setup(component string, validate func(*config.Config) error) (*config.Config, *log.Logger, error) {
	// Errors are ignored: .env only exists in local development
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if validate != nil {
		if err := validate(cfg); err != nil {
			return cfg, logger, err
		}
	}
	return cfg, logger, nil
}

// Fatal logs msg with err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{log.FieldError, err}, args...)...)
	os.Exit(1)
}

// GracefulShutdown waits for SIGINT/SIGTERM or for parent to end, then runs
// cleanup bounded by timeout. The returned context is cancelled after
// cleanup; done is closed once everything has finished.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-parent.Done():
			logger.Info("Shutting down", "reason", fmt.Sprint(context.Cause(parent)))
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has
// returned.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
