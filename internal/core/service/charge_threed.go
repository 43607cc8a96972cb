package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

// ErrCardUploadRejected is returned when the biller refuses to store the card.
// The live transaction is left untouched in that case.
var ErrCardUploadRejected = errors.New("card upload rejected by biller")

type chargeFunc func(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)

// ChargeThreeDService runs a charge against a biller and performs at most one
// follow-up attempt when the biller asks to switch 3DS on or off.
type ChargeThreeDService struct {
	adapter ports.ChargeAdapter
	bi      ports.BILogger
	metrics ports.Metrics
	logger  *slog.Logger
}

func NewChargeThreeDService(
	adapter ports.ChargeAdapter,
	bi ports.BILogger,
	metrics ports.Metrics,
	logger *slog.Logger,
) *ChargeThreeDService {
	return &ChargeThreeDService{
		adapter: adapter,
		bi:      bi,
		metrics: metrics,
		logger:  logger,
	}
}

// ChargeNewCreditCard needs the clear card of a freshly created transaction; a
// pending transaction restored from storage is refused before the biller is called.
func (s *ChargeThreeDService) ChargeNewCreditCard(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.IsPending() {
		if err := requireClearCard(tx); err != nil {
			return tx, err
		}
	}
	return s.charge(ctx, tx, s.adapter.ChargeNewCreditCard, true)
}

// ChargeExistingCreditCard charges a stored card. A retry with 3DS only happens
// when the biller settings enable simplified 3DS.
func (s *ChargeThreeDService) ChargeExistingCreditCard(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	return s.charge(ctx, tx, s.adapter.ChargeExistingCreditCard, domain.SimplifiedThreeD(tx.BillerChargeSettings()))
}

func (s *ChargeThreeDService) charge(ctx context.Context, tx *domain.Transaction, call chargeFunc, threeDRetryAllowed bool) (*domain.Transaction, error) {
	if !tx.IsPending() {
		s.logger.Info("transaction already settled, skipping charge",
			"transaction_id", tx.ID(),
			"status", tx.Status(),
		)
		return tx, nil
	}

	resp, err := s.attempt(ctx, tx, call)
	if err != nil {
		return tx, fmt.Errorf("charge transaction %s: %w", tx.ID(), err)
	}

	switch {
	case threeDRetryAllowed && resp.ShouldRetryWithThreeD():
		s.logger.Info("biller requested 3DS, retrying charge",
			"transaction_id", tx.ID(),
			"biller", tx.BillerName(),
			"code", resp.Code(),
		)
		tx.UpdateTransactionWith3D(true)
		tx.AddBillerInteraction(resp)
		s.metrics.RecordThreeDSRetry(string(tx.BillerName()), true)
		resp, err = s.attempt(ctx, tx, call)

	case resp.ShouldRetryWithoutThreeD():
		s.logger.Info("biller requested charge without 3DS, retrying charge",
			"transaction_id", tx.ID(),
			"biller", tx.BillerName(),
			"code", resp.Code(),
		)
		tx.UpdateTransactionWith3D(false)
		tx.UpdateThreedsVersion(0)
		tx.AddBillerInteraction(resp)
		s.metrics.RecordThreeDSRetry(string(tx.BillerName()), false)
		resp, err = s.attempt(ctx, tx, call)
	}
	if err != nil {
		return tx, fmt.Errorf("retry charge transaction %s: %w", tx.ID(), err)
	}

	if err := s.apply(ctx, tx, resp); err != nil {
		return tx, err
	}
	return tx, nil
}

// chargeOnce performs a single new-card charge with no 3DS retry and applies its result.
func (s *ChargeThreeDService) chargeOnce(ctx context.Context, tx *domain.Transaction) error {
	if err := requireClearCard(tx); err != nil {
		return err
	}
	resp, err := s.attempt(ctx, tx, s.adapter.ChargeNewCreditCard)
	if err != nil {
		return fmt.Errorf("charge transaction %s: %w", tx.ID(), err)
	}
	return s.apply(ctx, tx, resp)
}

func (s *ChargeThreeDService) attempt(ctx context.Context, tx *domain.Transaction, call chargeFunc) (domain.BillerResponse, error) {
	start := time.Now()
	resp, err := call(ctx, tx)
	if err != nil {
		s.metrics.RecordChargeAttempt(string(tx.BillerName()), "error", time.Since(start))
		s.logger.Error("biller charge failed",
			"transaction_id", tx.ID(),
			"biller", tx.BillerName(),
			"error", err,
		)
		return nil, err
	}
	s.metrics.RecordChargeAttempt(string(tx.BillerName()), responseLabel(resp), time.Since(start))
	return resp, nil
}

func (s *ChargeThreeDService) apply(ctx context.Context, tx *domain.Transaction, resp domain.BillerResponse) error {
	if err := tx.UpdateFromBillerResponse(resp); err != nil {
		return fmt.Errorf("apply biller response to transaction %s: %w", tx.ID(), err)
	}
	publishEvents(ctx, s.bi, tx)
	return nil
}

// CardUpload stores the transaction's card with the biller. The call runs on a
// detached copy; only the stored card reference and the upload interactions are
// merged back, and only when the biller approved the upload.
func (s *ChargeThreeDService) CardUpload(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if err := requireClearCard(tx); err != nil {
		return tx, err
	}
	detached := tx.Clone()
	baseline := detached.Interactions().Len()
	biller := string(tx.BillerName())

	resp, err := s.adapter.CardUpload(ctx, detached)
	if err != nil {
		s.metrics.RecordCardUpload(biller, false)
		return tx, fmt.Errorf("card upload for transaction %s: %w", tx.ID(), err)
	}
	detached.AddBillerInteraction(resp)

	if !resp.Approved() {
		s.metrics.RecordCardUpload(biller, false)
		s.logger.Warn("card upload rejected",
			"transaction_id", tx.ID(),
			"biller", biller,
			"code", resp.Code(),
			"reason", resp.Reason(),
		)
		return tx, fmt.Errorf("transaction %s: %w (%s)", tx.ID(), ErrCardUploadRejected, resp.Code())
	}

	if p, ok := resp.(domain.CardHashProvider); ok {
		detached.RecordCardHash(p.CardHash())
	}
	tx.MergeCardUpload(detached, baseline)
	s.metrics.RecordCardUpload(biller, true)
	return tx, nil
}

func requireClearCard(tx *domain.Transaction) error {
	if err := domain.RequireClearCard(tx.PaymentInformation()); err != nil {
		return fmt.Errorf("transaction %s: %w", tx.ID(), err)
	}
	return nil
}

func responseLabel(r domain.BillerResponse) string {
	switch {
	case r.Pending():
		return string(domain.StatusPending)
	case r.Approved():
		return string(domain.StatusApproved)
	case r.Declined():
		return string(domain.StatusDeclined)
	case r.Aborted():
		return string(domain.StatusAborted)
	default:
		return "unknown"
	}
}

func publishEvents(ctx context.Context, bi ports.BILogger, tx *domain.Transaction) {
	for _, e := range tx.PullEvents() {
		bi.Write(ctx, e)
	}
}
