package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("transaction core stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("transaction core exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting transaction core",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"store", cfg.Repository.Driver,
		"log_level", cfg.Logger.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.expiration.Start(gctx)
		return nil
	})
	g.Go(func() error {
		a.repair.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("ops server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
