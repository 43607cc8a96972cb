package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

// RebillUpdateService changes or cancels the recurring charge set up by an earlier transaction.
// The earlier transaction is only read.
type RebillUpdateService struct {
	repo    ports.TransactionRepository
	adapter ports.ChargeAdapter
	bi      ports.BILogger
	logger  *slog.Logger
}

func NewRebillUpdateService(
	repo ports.TransactionRepository,
	adapter ports.ChargeAdapter,
	bi ports.BILogger,
	logger *slog.Logger,
) *RebillUpdateService {
	return &RebillUpdateService{
		repo:    repo,
		adapter: adapter,
		bi:      bi,
		logger:  logger,
	}
}

func (s *RebillUpdateService) UpdateRebill(ctx context.Context, previousID string, p domain.RebillUpdateParams) (*domain.Transaction, error) {
	previous, err := s.loadPrevious(ctx, previousID)
	if err != nil {
		return nil, err
	}
	tx, err := domain.NewRebillUpdateTransaction(ctx, previous, p)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, tx, s.adapter.Update)
}

func (s *RebillUpdateService) CancelRebill(ctx context.Context, previousID string) (*domain.Transaction, error) {
	previous, err := s.loadPrevious(ctx, previousID)
	if err != nil {
		return nil, err
	}
	tx, err := domain.NewCancelRebillTransaction(ctx, previous)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, tx, s.adapter.SuspendRebill)
}

func (s *RebillUpdateService) loadPrevious(ctx context.Context, id string) (*domain.Transaction, error) {
	previous, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load previous transaction %s: %w", id, err)
	}
	if previous == nil {
		return nil, domain.NewPreviousTransactionNotFoundError(id)
	}
	return previous, nil
}

func (s *RebillUpdateService) run(ctx context.Context, tx *domain.Transaction, call chargeFunc) (*domain.Transaction, error) {
	if _, err := s.repo.Add(ctx, tx); err != nil {
		return nil, fmt.Errorf("store rebill transaction %s: %w", tx.ID(), err)
	}
	publishEvents(ctx, s.bi, tx)

	resp, err := call(ctx, tx)
	if err != nil {
		s.logger.Error("rebill call failed",
			"transaction_id", tx.ID(),
			"previous_transaction_id", tx.PreviousTransactionID().String(),
			"error", err,
		)
		return tx, fmt.Errorf("rebill transaction %s: %w", tx.ID(), err)
	}

	if err := tx.UpdateFromBillerResponse(resp); err != nil {
		return tx, fmt.Errorf("apply biller response to transaction %s: %w", tx.ID(), err)
	}
	if _, err := s.repo.Update(ctx, tx); err != nil {
		return tx, fmt.Errorf("store rebill transaction %s: %w", tx.ID(), err)
	}
	publishEvents(ctx, s.bi, tx)
	return tx, nil
}
