// Package biller talks to the biller gateway over HTTP. Every biller sits
// behind the same normalized API; the biller name and its charge settings
// travel in the request body.
package biller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

const (
	pathChargeNewCard    = "/api/v1/charges"
	pathChargeStoredCard = "/api/v1/charges/stored-card"
	pathSuspendRebill    = "/api/v1/rebills/suspend"
	pathUpdateRebill     = "/api/v1/rebills/update"
	pathCardUpload       = "/api/v1/cards"
	pathLookup           = "/api/v1/threeds/lookup"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

var (
	_ ports.ChargeAdapter = (*HTTPClient)(nil)
	_ ports.LookupAdapter = (*HTTPClient)(nil)
)

func NewHTTPClient(cfg config.BillerClientConfig, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		logger:     logger,
	}
}

func (c *HTTPClient) ChargeNewCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return c.send(ctx, tx, pathChargeNewCard)
}

func (c *HTTPClient) ChargeExistingCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return c.send(ctx, tx, pathChargeStoredCard)
}

func (c *HTTPClient) SuspendRebill(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return c.send(ctx, tx, pathSuspendRebill)
}

func (c *HTTPClient) Update(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return c.send(ctx, tx, pathUpdateRebill)
}

func (c *HTTPClient) CardUpload(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return c.send(ctx, tx, pathCardUpload)
}

func (c *HTTPClient) PerformLookup(ctx context.Context, tx *domain.Transaction, in ports.LookupRequest) (domain.LookupResponse, error) {
	req, err := newLookupRequest(tx, in)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := c.post(ctx, pathLookup, req, idempotencyKey(tx, pathLookup))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) send(ctx context.Context, tx *domain.Transaction, path string) (domain.BillerResponse, error) {
	req, err := newChargeRequest(tx)
	if err != nil {
		return nil, fmt.Errorf("build biller request: %w", err)
	}
	resp, err := c.post(ctx, path, req, idempotencyKey(tx, path))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// idempotencyKey is stable across retries of one call and changes with every
// interaction recorded on the transaction, so a follow-up charge gets a new key.
func idempotencyKey(tx *domain.Transaction, path string) string {
	return fmt.Sprintf("%s:%s:%d", tx.ID(), path, tx.Interactions().Len())
}

func (c *HTTPClient) post(ctx context.Context, path string, req chargeRequest, key string) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshalling json: %w", err)
	}

	requestedAt := time.Now().UTC()
	raw, err := c.retry(ctx, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, path, body, key)
	})
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}
	resp.request = req.obfuscated()
	resp.response = string(raw)
	resp.requestedAt = requestedAt
	resp.respondedAt = time.Now().UTC()
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, path string, body []byte, key string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		if e.Message == "" {
			e.Message = string(raw)
		}
		return nil, &BillerError{Code: e.Err, Message: e.Message, StatusCode: resp.StatusCode}
	}
	return raw, nil
}

func (c *HTTPClient) retry(ctx context.Context, operation func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		raw, err := operation(ctx)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < c.maxRetries {
			c.logger.Warn("retrying biller call", "attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// isRetryable reports whether the call may be repeated under the same idempotency key.
func isRetryable(err error) bool {
	var billerErr *BillerError
	if errors.As(err, &billerErr) {
		return billerErr.StatusCode >= 500 || billerErr.Code == "internal_error"
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// backoff is exponential with up to one base delay of jitter.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	if c.baseDelay <= 0 {
		return 0
	}
	base := c.baseDelay * time.Duration(1<<attempt)
	return base + time.Duration(rand.Int64N(int64(c.baseDelay)))
}
