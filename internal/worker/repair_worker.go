package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

// RepairWorker walks the stored transactions page by page. Reading a
// transaction through the repository repairs its interaction log, so the sweep
// heals documents that no request happens to touch.
type RepairWorker struct {
	repo      ports.TransactionRepository
	interval  time.Duration
	batchSize int
	offset    int
	logger    *slog.Logger
}

func NewRepairWorker(repo ports.TransactionRepository, interval time.Duration, batchSize int, logger *slog.Logger) *RepairWorker {
	return &RepairWorker{
		repo:      repo,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *RepairWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting repair sweep", "interval", w.interval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping repair sweep")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce reads the next page and returns how many transactions were visited.
// After a short page the sweep starts over from the beginning.
func (w *RepairWorker) RunOnce(ctx context.Context) int {
	page, err := w.repo.FindAllBy(ctx, ports.Criteria{}, &ports.OrderBy{Field: "createdAt"}, w.batchSize, w.offset)
	if err != nil {
		// Skip the page so one unreadable document cannot stall the sweep.
		w.logger.Error("repair sweep failed", "offset", w.offset, "error", err)
		w.offset += w.batchSize
		return 0
	}

	if len(page) < w.batchSize {
		w.offset = 0
	} else {
		w.offset += len(page)
	}

	w.logger.Debug("repair sweep page", "visited", len(page), "next_offset", w.offset)
	return len(page)
}
