package tests

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/biller"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/events"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/metrics"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/repository"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain/domaintest"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/service"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/tests/testhelpers"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBiller answers charges by path. A new-card charge without 3DS is asked
// to retry with 3DS on.
type fakeBiller struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeBiller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		With3D bool `json:"with3D"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/v1/charges" && !req.With3D:
		w.Write([]byte(`{"status":"declined","code":"228","reason":"3ds required","retryWithThreeD":true}`))
	case r.URL.Path == "/api/v1/cards":
		w.Write([]byte(`{"status":"approved","code":"0","reason":"card stored","cardHash":"stored-hash-1"}`))
	default:
		w.Write([]byte(`{"status":"approved","code":"0","reason":"approved"}`))
	}
}

func (f *fakeBiller) calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.paths {
		if p == path {
			n++
		}
	}
	return n
}

type stack struct {
	db      *testhelpers.TestDatabase
	biller  *fakeBiller
	repo    *repository.TransactionRepository
	charges *service.ChargeThreeDService
	rebills *service.RebillUpdateService
	metrics *metrics.MemoryCollector
}

func setupStack(t *testing.T) *stack {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testhelpers.SetupTestDatabase(t)

	fb := &fakeBiller{}
	server := httptest.NewServer(fb)
	t.Cleanup(server.Close)

	m := metrics.NewMemoryCollector()
	client := biller.NewHTTPClient(config.BillerClientConfig{
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}, logger)
	gateway := biller.NewBreakerClient(client, config.BreakerConfig{
		MaxRequests:      1,
		Timeout:          time.Second,
		FailureThreshold: 5,
	}, m, logger)

	repo := repository.NewTransactionRepository(db.Store, repository.Config{
		MaxWriteAttempts: 3,
		BaseDelay:        time.Millisecond,
	}, m, logger)
	bi := events.NewLogSink(logger)

	return &stack{
		db:      db,
		biller:  fb,
		repo:    repo,
		charges: service.NewChargeThreeDService(gateway, bi, m, logger),
		rebills: service.NewRebillUpdateService(repo, gateway, bi, logger),
		metrics: m,
	}
}

func TestIntegration_ChargeRetriesWithThreeDAndPersists(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	tx := domaintest.NewCharge(t)
	_, err := s.repo.Add(ctx, tx)
	require.NoError(t, err)

	tx, err = s.charges.ChargeNewCreditCard(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, tx.Status())
	assert.True(t, tx.With3D())
	assert.Equal(t, 2, s.biller.calls("/api/v1/charges"))

	tx, err = s.charges.CardUpload(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "stored-hash-1", tx.CardHash())

	_, err = s.repo.Update(ctx, tx)
	require.NoError(t, err)

	stored, err := s.repo.FindByID(ctx, tx.ID().String())
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, domain.StatusApproved, stored.Status())
	assert.Equal(t, "stored-hash-1", stored.CardHash())
	assert.Equal(t, 6, stored.Interactions().Len())
	assert.True(t, domain.BalancedInteractions(stored.Interactions().All()))

	card, ok := stored.PaymentInformation().(domain.CreditCardInformation)
	require.True(t, ok)
	assert.Equal(t, domain.ObfuscatedMarker, card.Number)
	assert.Equal(t, 1, metrics.Count(s.metrics, s.metrics.ThreeDSRetries, true))
}

func TestIntegration_RepairsInteractionsInPostgres(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	tx := domaintest.NewCharge(t)
	tx, err := s.charges.ChargeNewCreditCard(ctx, tx)
	require.NoError(t, err)
	_, err = s.repo.Add(ctx, tx)
	require.NoError(t, err)

	_, err = s.db.Store.Pool.Exec(ctx,
		`UPDATE documents SET data = jsonb_set(data, '{billerInteractions}', '"not json"') WHERE collection = $1 AND id = $2`,
		repository.TransactionsCollection, tx.ID().String(),
	)
	require.NoError(t, err)

	stored, err := s.repo.FindByID(ctx, tx.ID().String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, tx.Interactions().Len(), stored.Interactions().Len())

	var raw string
	err = s.db.Store.Pool.QueryRow(ctx,
		`SELECT data->>'billerInteractions' FROM documents WHERE collection = $1 AND id = $2`,
		repository.TransactionsCollection, tx.ID().String(),
	).Scan(&raw)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(raw)))
}

func TestIntegration_RebillUpdateAndCancel(t *testing.T) {
	s := setupStack(t)
	ctx := domaintest.SessionContext()

	parent := domaintest.NewCharge(t)
	parent, err := s.charges.ChargeNewCreditCard(ctx, parent)
	require.NoError(t, err)
	_, err = s.repo.Add(ctx, parent)
	require.NoError(t, err)

	updated, err := s.rebills.UpdateRebill(ctx, parent.ID().String(), domain.RebillUpdateParams{
		Amount:   decimal.RequireFromString("9.99"),
		Currency: "USD",
		Rebill:   &domain.Rebill{Amount: decimal.RequireFromString("9.99"), Frequency: 30, Start: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status())

	cancelled, err := s.rebills.CancelRebill(ctx, parent.ID().String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, cancelled.Status())
	assert.Equal(t, 1, s.biller.calls("/api/v1/rebills/update"))
	assert.Equal(t, 1, s.biller.calls("/api/v1/rebills/suspend"))

	stored, err := s.repo.FindByID(ctx, updated.ID().String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.PreviousTransaction())
	assert.Equal(t, parent.ID(), stored.PreviousTransaction().ID())

	children, err := s.repo.FindAllBy(ctx, ports.Criteria{"previousTransactionId": parent.ID().String()}, nil, 10, 0)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestIntegration_ExpirationWorkerAbortsStalePending(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	tx := domaintest.NewCharge(t)
	_, err := s.repo.Add(ctx, tx)
	require.NoError(t, err)

	w := worker.NewExpirationWorker(s.repo, events.Multi{}, time.Hour, 10, -time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 1, w.RunOnce(ctx))

	stored, err := s.repo.FindByID(ctx, tx.ID().String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusAborted, stored.Status())
}
