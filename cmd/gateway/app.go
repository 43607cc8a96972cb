package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/biller"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore/memory"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore/postgres"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/events"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/handler"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/metrics"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/repository"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/service"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "txcore"

// app holds the wired transaction core. The services are the entry points the
// API layer calls into.
type app struct {
	Charges *service.ChargeThreeDService
	Lookups *service.LookupThreeDsTwoService
	Rebills *service.RebillUpdateService

	expiration *worker.ExpirationWorker
	repair     *worker.RepairWorker
	server     *http.Server
	closers    []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusCollector(metricsNamespace)
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store, err := a.openStore(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	repo := repository.NewTransactionRepository(store, repository.Config{
		MaxWriteAttempts: cfg.Repository.MaxWriteAttempts,
		BaseDelay:        cfg.Repository.BaseDelay,
	}, collector, logger)

	billers := biller.NewBreakerClient(
		biller.NewHTTPClient(cfg.BillerClient, logger),
		cfg.Breaker,
		collector,
		logger,
	)

	bi := events.Multi{events.NewLogSink(logger)}
	if cfg.Events.RedisAddress != "" {
		sink, err := events.NewRedisStreamSink(cfg.Events, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, sink.Close)
		bi = append(bi, sink)
	}

	a.Charges = service.NewChargeThreeDService(billers, bi, collector, logger)
	a.Lookups = service.NewLookupThreeDsTwoService(billers, a.Charges, bi, collector, logger, service.LookupOptions{
		NSFCardUploadEnabled: cfg.Features.NSFCardUpload,
	})
	a.Rebills = service.NewRebillUpdateService(repo, billers, bi, logger)

	a.expiration = worker.NewExpirationWorker(repo, bi, cfg.Worker.Interval, cfg.Worker.BatchSize, cfg.Worker.PendingTTL, logger)
	a.repair = worker.NewRepairWorker(repo, cfg.Worker.Interval, cfg.Worker.BatchSize, logger)

	mux := http.NewServeMux()
	handler.NewOpsHandler(registry, map[string]handler.Pinger{"store": store}).RegisterRoutes(mux)

	h := handler.Recovery(logger)(mux)
	h = handler.Timeout(cfg.Server.WriteTimeout)(h)

	a.server = &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("transaction core ready",
		"nsf_card_upload", cfg.Features.NSFCardUpload,
		"bi_sinks", len(bi),
	)
	return a, nil
}

type pingableStore interface {
	docstore.Store
	handler.Pinger
}

func (a *app) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pingableStore, error) {
	if cfg.Repository.Driver == "memory" {
		logger.Warn("using in-memory document store; data is lost on restart")
		return memory.New(), nil
	}

	store, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
