// Package worker runs the background sweeps of the transaction core.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

const expiredReason = "3DS authentication timed out"

// ExpirationWorker aborts transactions left pending on a 3DS challenge the
// customer never completed.
type ExpirationWorker struct {
	repo       ports.TransactionRepository
	bi         ports.BILogger
	interval   time.Duration
	batchSize  int
	pendingTTL time.Duration
	logger     *slog.Logger
}

func NewExpirationWorker(
	repo ports.TransactionRepository,
	bi ports.BILogger,
	interval time.Duration,
	batchSize int,
	pendingTTL time.Duration,
	logger *slog.Logger,
) *ExpirationWorker {
	return &ExpirationWorker{
		repo:       repo,
		bi:         bi,
		interval:   interval,
		batchSize:  batchSize,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

func (w *ExpirationWorker) Start(ctx context.Context) {
	w.logger.Info("expiration worker started", "interval", w.interval, "pending_ttl", w.pendingTTL)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiration worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes a single batch and returns how many transactions were aborted.
func (w *ExpirationWorker) RunOnce(ctx context.Context) int {
	expired, err := w.processExpirations(ctx)
	if err != nil {
		w.logger.Error("expiration processing failed", "error", err)
	}
	return expired
}

func (w *ExpirationWorker) processExpirations(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-w.pendingTTL)

	pending, err := w.repo.FindAllBy(ctx,
		ports.Criteria{"status": string(domain.StatusPending)},
		&ports.OrderBy{Field: "createdAt"},
		w.batchSize, 0,
	)
	if err != nil {
		return 0, err
	}

	var processed, expired int
	for _, tx := range pending {
		if !tx.CreatedAt().Before(cutoff) {
			break
		}
		processed++
		err := w.markAsAborted(ctx, tx)
		if domain.IsErrorCode(err, domain.ErrCodeStatusChanged) {
			w.logger.Info("transaction settled before expiry, skipping", "transaction_id", tx.ID())
			continue
		}
		if err != nil {
			w.logger.Error("failed to process expiration",
				"transaction_id", tx.ID(),
				"error", err,
			)
			continue
		}
		expired++
	}

	if processed > 0 {
		w.logger.Info("processed expiration check",
			"processed", processed,
			"marked_aborted", expired,
		)
	}
	return expired, nil
}

func (w *ExpirationWorker) markAsAborted(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Abort(expiredReason); err != nil {
		return err
	}
	if _, err := w.repo.UpdateIfStatus(ctx, tx, domain.StatusPending); err != nil {
		return err
	}
	for _, e := range tx.PullEvents() {
		w.bi.Write(ctx, e)
	}
	w.bi.Write(ctx, domain.NewTransactionUpdatedEvent(tx))
	return nil
}
