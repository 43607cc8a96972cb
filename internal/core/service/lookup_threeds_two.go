package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

type LookupParams struct {
	Request ports.LookupRequest
	// IsNsfSupported is set when the caller can handle a stored card after an NSF decline.
	IsNsfSupported bool
}

type LookupOptions struct {
	NSFCardUploadEnabled bool
}

// LookupThreeDsTwoService drives the 3DS2 lookup step and its frictionless bypass.
type LookupThreeDsTwoService struct {
	lookup  ports.LookupAdapter
	charges *ChargeThreeDService
	bi      ports.BILogger
	metrics ports.Metrics
	logger  *slog.Logger
	opts    LookupOptions
}

func NewLookupThreeDsTwoService(
	lookup ports.LookupAdapter,
	charges *ChargeThreeDService,
	bi ports.BILogger,
	metrics ports.Metrics,
	logger *slog.Logger,
	opts LookupOptions,
) *LookupThreeDsTwoService {
	return &LookupThreeDsTwoService{
		lookup:  lookup,
		charges: charges,
		bi:      bi,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
	}
}

func (s *LookupThreeDsTwoService) PerformTransaction(ctx context.Context, tx *domain.Transaction, p LookupParams) (*domain.Transaction, error) {
	if !tx.IsPending() {
		s.logger.Info("transaction already settled, skipping lookup",
			"transaction_id", tx.ID(),
			"status", tx.Status(),
		)
		return tx, nil
	}

	resp, err := s.lookup.PerformLookup(ctx, tx, p.Request)
	if err != nil {
		s.logger.Error("3ds2 lookup failed",
			"transaction_id", tx.ID(),
			"biller", tx.BillerName(),
			"error", err,
		)
		return tx, fmt.Errorf("3ds2 lookup for transaction %s: %w", tx.ID(), err)
	}
	return s.ManageTransactionByLookupResponse(ctx, tx, resp, p.IsNsfSupported)
}

// ManageTransactionByLookupResponse applies a lookup outcome. When the biller
// waves 3DS off the card is charged directly. Otherwise the lookup response is
// applied with 3DS on, and the transaction-updated event is held back while a
// step-up challenge is still outstanding.
func (s *LookupThreeDsTwoService) ManageTransactionByLookupResponse(
	ctx context.Context,
	tx *domain.Transaction,
	resp domain.LookupResponse,
	isNsfSupported bool,
) (*domain.Transaction, error) {
	s.metrics.RecordLookup(string(tx.BillerName()), resp.ThreeDsAuthIsRequired())

	if resp.ShouldRetryWithoutThreeD() {
		return s.bypass(ctx, tx, resp, isNsfSupported)
	}

	tx.UpdateTransactionWith3D(true)
	if v := resp.ThreedsVersion(); v > 0 {
		tx.UpdateThreedsVersion(v)
	}
	if err := tx.UpdateFromBillerResponse(resp); err != nil {
		return tx, fmt.Errorf("apply lookup response to transaction %s: %w", tx.ID(), err)
	}
	publishEvents(ctx, s.bi, tx)
	s.bi.Write(ctx, domain.NewThreeDSTwoLookupEvent(tx, resp))

	if !resp.ThreeDsAuthIsRequired() {
		s.bi.Write(ctx, domain.NewTransactionUpdatedEvent(tx))
	} else {
		s.logger.Info("3ds step-up required",
			"transaction_id", tx.ID(),
			"threeds_version", tx.ThreedsVersion(),
		)
	}
	return tx, nil
}

func (s *LookupThreeDsTwoService) bypass(
	ctx context.Context,
	tx *domain.Transaction,
	resp domain.LookupResponse,
	isNsfSupported bool,
) (*domain.Transaction, error) {
	s.logger.Info("3ds bypassed by lookup, charging directly",
		"transaction_id", tx.ID(),
		"biller", tx.BillerName(),
	)
	tx.UpdateTransactionWith3D(false)
	tx.UpdateThreedsVersion(0)
	tx.AddBillerInteraction(resp)

	if err := s.charges.chargeOnce(ctx, tx); err != nil {
		return tx, err
	}

	if tx.IsNsf() && s.opts.NSFCardUploadEnabled && isNsfSupported {
		if _, err := s.charges.CardUpload(ctx, tx); err != nil {
			s.logger.Warn("nsf card upload failed",
				"transaction_id", tx.ID(),
				"error", err,
			)
		}
	}

	s.bi.Write(ctx, domain.NewTransactionUpdatedEvent(tx))
	return tx, nil
}
