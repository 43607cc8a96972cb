// Package repository stores transactions in a document store and repairs
// interaction logs that were left inconsistent by partial writes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

const (
	TransactionsCollection = "transactions"
	PivotCollection        = "transaction_biller_interactions"
	InteractionsCollection = "biller_interactions"
)

const detailFetchConcurrency = 8

type Config struct {
	MaxWriteAttempts int
	BaseDelay        time.Duration
}

type TransactionRepository struct {
	store   docstore.Store
	cfg     Config
	metrics ports.Metrics
	logger  *slog.Logger
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

func NewTransactionRepository(store docstore.Store, cfg Config, metrics ports.Metrics, logger *slog.Logger) *TransactionRepository {
	if cfg.MaxWriteAttempts < 1 {
		cfg.MaxWriteAttempts = 1
	}
	return &TransactionRepository{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

func (r *TransactionRepository) Add(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	return r.save(ctx, tx)
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	return r.save(ctx, tx)
}

// save mirrors every interaction into the pivot and detail collections before
// writing the primary document, so repair always has a source to rebuild from.
func (r *TransactionRepository) save(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	d, err := toDocumentModel(tx)
	if err != nil {
		return nil, fmt.Errorf("map transaction %s: %w", tx.ID(), err)
	}

	if err := r.mirrorInteractions(ctx, d.ID, tx); err != nil {
		return nil, err
	}
	if err := r.writeDocument(ctx, TransactionsCollection, d.ID, d); err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateIfStatus writes tx only while the stored status still equals expected.
// When the stored transaction has moved on, nothing is written and a
// STATUS_CHANGED error is returned. Interactions are mirrored after the
// conditional write lands so a rejected write leaves no repair sources behind.
func (r *TransactionRepository) UpdateIfStatus(ctx context.Context, tx *domain.Transaction, expected domain.Status) (*domain.Transaction, error) {
	d, err := toDocumentModel(tx)
	if err != nil {
		return nil, fmt.Errorf("map transaction %s: %w", tx.ID(), err)
	}
	doc, err := toDocument(d)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", TransactionsCollection, d.ID, err)
	}

	expect := docstore.Filter{Field: "status", Value: string(expected)}
	err = r.withRetry(ctx, TransactionsCollection, d.ID, func(ctx context.Context) error {
		return r.store.SetIf(ctx, TransactionsCollection, d.ID, doc, expect)
	})
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		r.logger.Info("stored status changed, write skipped",
			"transaction_id", d.ID,
			"expected_status", expected,
			"status", tx.Status(),
		)
		return nil, domain.NewStatusChangedError(d.ID, expected)
	}
	if err != nil {
		return nil, err
	}

	if err := r.mirrorInteractions(ctx, d.ID, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) mirrorInteractions(ctx context.Context, txID string, tx *domain.Transaction) error {
	for _, i := range tx.Interactions().All() {
		if err := r.mirrorInteraction(ctx, txID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransactionRepository) mirrorInteraction(ctx context.Context, txID string, i domain.BillerInteraction) error {
	interactionID := i.ID.String()
	detail := interactionDocument{BillerInteraction: i, TransactionID: txID}
	if err := r.writeDocument(ctx, InteractionsCollection, interactionID, detail); err != nil {
		return err
	}
	pivot := pivotDocument{
		TransactionID: txID,
		InteractionID: interactionID,
		CreatedAt:     formatTime(i.CreatedAt),
	}
	return r.writeDocument(ctx, PivotCollection, txID+"_"+interactionID, pivot)
}

func (r *TransactionRepository) writeDocument(ctx context.Context, collection, id string, v any) error {
	doc, err := toDocument(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return r.withRetry(ctx, collection, id, func(ctx context.Context) error {
		return r.store.Set(ctx, collection, id, doc)
	})
}

// withRetry runs op until it succeeds, fails with a non-transient code, or the
// attempt budget is spent.
func (r *TransactionRepository) withRetry(ctx context.Context, collection, id string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("write %s/%s: %w", collection, id, err)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		code := docstore.CodeOf(err)
		if !docstore.IsTransient(code) {
			return fmt.Errorf("write %s/%s: %w", collection, id, err)
		}

		r.metrics.RecordStoreWriteRetry(collection, string(code))
		r.logger.Warn("transient store write failure",
			"collection", collection,
			"id", id,
			"attempt", attempt+1,
			"code", code,
			"error", err,
		)

		if attempt < r.cfg.MaxWriteAttempts-1 {
			if err := sleep(ctx, r.backoff(attempt)); err != nil {
				return fmt.Errorf("write %s/%s: %w", collection, id, err)
			}
		}
	}

	return &StoreError{
		Collection: collection,
		ID:         id,
		Attempts:   r.cfg.MaxWriteAttempts,
		Err:        lastErr,
	}
}

// backoff doubles the base delay per attempt and adds up to one base delay of jitter.
func (r *TransactionRepository) backoff(attempt int) time.Duration {
	if r.cfg.BaseDelay <= 0 {
		return 0
	}
	base := r.cfg.BaseDelay * time.Duration(1<<attempt)
	return base + time.Duration(rand.Int64N(int64(r.cfg.BaseDelay)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.findByID(ctx, id, map[string]bool{})
}

func (r *TransactionRepository) findByID(ctx context.Context, id string, seen map[string]bool) (*domain.Transaction, error) {
	doc, err := r.store.Get(ctx, TransactionsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return r.hydrate(ctx, id, doc, seen)
}

// hydrate decodes a stored transaction, repairing its interaction log when it
// is unreadable or unbalanced, and resolves the previous transaction chain.
func (r *TransactionRepository) hydrate(ctx context.Context, id string, doc docstore.Document, seen map[string]bool) (*domain.Transaction, error) {
	var d transactionDocument
	if err := fromDocument(doc, &d); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", id, err)
	}

	interactions, decodeErr := decodeInteractions(d.BillerInteractions)
	if decodeErr != nil || !domain.BalancedInteractions(interactions) {
		r.logger.Warn("inconsistent biller interactions, repairing",
			"transaction_id", id,
			"interactions", len(interactions),
			"decode_error", decodeErr,
		)
		repaired, err := r.repair(ctx, &d, interactions)
		if err != nil {
			return nil, err
		}
		interactions = repaired
	}

	seen[id] = true
	var previous *domain.Transaction
	if prevID := d.PreviousTransactionID; prevID != "" {
		if seen[prevID] {
			r.logger.Error("cycle in previous transaction chain", "transaction_id", id, "previous_transaction_id", prevID)
		} else {
			p, err := r.findByID(ctx, prevID, seen)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, domain.NewPreviousTransactionNotFoundError(prevID)
			}
			previous = p
		}
	}

	tx, err := toDomainModel(&d, interactions, previous)
	if err != nil {
		return nil, fmt.Errorf("restore transaction %s: %w", id, err)
	}
	return tx, nil
}

// repair rebuilds the interaction log from the pivot and detail collections and
// writes the corrected document back. When neither source holds anything the
// stored data is returned unchanged.
func (r *TransactionRepository) repair(ctx context.Context, d *transactionDocument, original []domain.BillerInteraction) ([]domain.BillerInteraction, error) {
	pivots, err := r.store.Query(ctx, PivotCollection, docstore.Query{
		Filters: []docstore.Filter{{Field: "transactionId", Value: d.ID}},
		OrderBy: "createdAt",
	})
	if err != nil {
		return nil, fmt.Errorf("repair transaction %s: load pivots: %w", d.ID, err)
	}

	ids := make([]string, 0, len(pivots))
	for _, p := range pivots {
		var pivot pivotDocument
		if err := fromDocument(p.Data, &pivot); err != nil {
			return nil, fmt.Errorf("repair transaction %s: decode pivot %s: %w", d.ID, p.ID, err)
		}
		ids = append(ids, pivot.InteractionID)
	}

	details := make([]*domain.BillerInteraction, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchConcurrency)
	for n, interactionID := range ids {
		g.Go(func() error {
			doc, err := r.store.Get(gctx, InteractionsCollection, interactionID)
			if errors.Is(err, docstore.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load interaction %s: %w", interactionID, err)
			}
			var detail interactionDocument
			if err := fromDocument(doc, &detail); err != nil {
				return fmt.Errorf("decode interaction %s: %w", interactionID, err)
			}
			details[n] = &detail.BillerInteraction
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("repair transaction %s: %w", d.ID, err)
	}

	var repaired []domain.BillerInteraction
	for _, i := range details {
		if i != nil {
			repaired = append(repaired, *i)
		}
	}
	if len(repaired) == 0 {
		r.logger.Warn("no interactions to repair from, keeping stored data", "transaction_id", d.ID)
		r.metrics.RecordRepair(false)
		return original, nil
	}
	sort.SliceStable(repaired, func(a, b int) bool {
		return repaired[a].CreatedAt.Before(repaired[b].CreatedAt)
	})

	encoded, err := encodeInteractions(repaired)
	if err != nil {
		return nil, err
	}
	d.BillerInteractions = encoded

	if err := r.writeDocument(ctx, TransactionsCollection, d.ID, d); err != nil {
		r.logger.Error("failed to persist repaired transaction",
			"transaction_id", d.ID,
			"error", err,
		)
		r.metrics.RecordRepair(false)
		return repaired, nil
	}

	r.logger.Info("repaired biller interactions",
		"transaction_id", d.ID,
		"before", len(original),
		"after", len(repaired),
	)
	r.metrics.RecordRepair(true)
	return repaired, nil
}

func (r *TransactionRepository) FindAllBy(ctx context.Context, criteria ports.Criteria, orderBy *ports.OrderBy, limit, offset int) ([]*domain.Transaction, error) {
	q := docstore.Query{Limit: limit, Offset: offset}

	fields := make([]string, 0, len(criteria))
	for f := range criteria {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		q.Filters = append(q.Filters, docstore.Filter{Field: f, Value: criteria[f]})
	}
	if orderBy != nil {
		q.OrderBy = orderBy.Field
		q.Descending = orderBy.Descending
	}

	snaps, err := r.store.Query(ctx, TransactionsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}

	out := make([]*domain.Transaction, 0, len(snaps))
	for _, s := range snaps {
		tx, err := r.hydrate(ctx, s.ID, s.Data, map[string]bool{})
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
