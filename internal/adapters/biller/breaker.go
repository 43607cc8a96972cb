package biller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
	"github.com/sony/gobreaker"
)

// Biller is the full surface the breaker protects.
type Biller interface {
	ports.ChargeAdapter
	ports.LookupAdapter
}

// BreakerClient fails fast with ErrBillerUnavailable while the biller gateway
// keeps failing. Declines are answers, not failures; only transport and 5xx
// errors count against the breaker.
type BreakerClient struct {
	inner  Biller
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

var _ Biller = (*BreakerClient)(nil)

func NewBreakerClient(inner Biller, cfg config.BreakerConfig, metrics ports.Metrics, logger *slog.Logger) *BreakerClient {
	const name = "biller_gateway"
	metrics.RecordBreakerState(name, gobreaker.StateClosed.String())

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.RecordBreakerState(name, to.String())
		},
		IsSuccessful: func(err error) bool {
			var billerErr *BillerError
			if errors.As(err, &billerErr) {
				return billerErr.StatusCode < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerClient{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

func (b *BreakerClient) ChargeNewCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return execute(b, tx, func() (domain.BillerResponse, error) { return b.inner.ChargeNewCreditCard(ctx, tx) })
}

func (b *BreakerClient) ChargeExistingCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return execute(b, tx, func() (domain.BillerResponse, error) { return b.inner.ChargeExistingCreditCard(ctx, tx) })
}

func (b *BreakerClient) SuspendRebill(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return execute(b, tx, func() (domain.BillerResponse, error) { return b.inner.SuspendRebill(ctx, tx) })
}

func (b *BreakerClient) Update(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return execute(b, tx, func() (domain.BillerResponse, error) { return b.inner.Update(ctx, tx) })
}

func (b *BreakerClient) CardUpload(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return execute(b, tx, func() (domain.BillerResponse, error) { return b.inner.CardUpload(ctx, tx) })
}

func (b *BreakerClient) PerformLookup(ctx context.Context, tx *domain.Transaction, req ports.LookupRequest) (domain.LookupResponse, error) {
	return execute(b, tx, func() (domain.LookupResponse, error) { return b.inner.PerformLookup(ctx, tx, req) })
}

func execute[T any](b *BreakerClient, tx *domain.Transaction, call func() (T, error)) (T, error) {
	var zero T
	out, err := b.cb.Execute(func() (interface{}, error) {
		return call()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("circuit breaker open - biller call rejected",
			"transaction_id", tx.ID(),
			"biller", tx.BillerName(),
		)
		return zero, ErrBillerUnavailable
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}
