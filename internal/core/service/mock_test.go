package service

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain/domaintest"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

type chargeStub func(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)

// MockChargeAdapter
type MockChargeAdapter struct {
	mu     sync.Mutex
	calls  map[string]int
	with3D []bool

	ChargeNewCreditCardFn      chargeStub
	ChargeExistingCreditCardFn chargeStub
	SuspendRebillFn            chargeStub
	UpdateFn                   chargeStub
	CardUploadFn               chargeStub
}

func (m *MockChargeAdapter) inc(method string, tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
	m.with3D = append(m.with3D, tx.With3D())
}

func (m *MockChargeAdapter) GetCalls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// With3DHistory returns the transaction's 3DS flag as seen by each call.
func (m *MockChargeAdapter) With3DHistory() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.with3D...)
}

func (m *MockChargeAdapter) call(ctx context.Context, method string, fn chargeStub, tx *domain.Transaction) (domain.BillerResponse, error) {
	m.inc(method, tx)
	if fn != nil {
		return fn(ctx, tx)
	}
	return domaintest.ApprovedResponse(), nil
}

func (m *MockChargeAdapter) ChargeNewCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return m.call(ctx, "ChargeNewCreditCard", m.ChargeNewCreditCardFn, tx)
}

func (m *MockChargeAdapter) ChargeExistingCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return m.call(ctx, "ChargeExistingCreditCard", m.ChargeExistingCreditCardFn, tx)
}

func (m *MockChargeAdapter) SuspendRebill(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return m.call(ctx, "SuspendRebill", m.SuspendRebillFn, tx)
}

func (m *MockChargeAdapter) Update(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return m.call(ctx, "Update", m.UpdateFn, tx)
}

func (m *MockChargeAdapter) CardUpload(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
	return m.call(ctx, "CardUpload", m.CardUploadFn, tx)
}

// responses returns a stub that answers with each response in turn.
func responses(rs ...*domaintest.Response) chargeStub {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		r := rs[min(i, len(rs)-1)]
		i++
		return r, nil
	}
}

// MockLookupAdapter
type MockLookupAdapter struct {
	Calls           int
	PerformLookupFn func(ctx context.Context, tx *domain.Transaction, req ports.LookupRequest) (domain.LookupResponse, error)
}

func (m *MockLookupAdapter) PerformLookup(ctx context.Context, tx *domain.Transaction, req ports.LookupRequest) (domain.LookupResponse, error) {
	m.Calls++
	if m.PerformLookupFn != nil {
		return m.PerformLookupFn(ctx, tx, req)
	}
	r := domaintest.ApprovedResponse()
	r.Version = 2
	return r, nil
}

// MockBILogger records every event written.
type MockBILogger struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *MockBILogger) Write(ctx context.Context, event domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockBILogger) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventName())
	}
	return out
}

func (m *MockBILogger) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

type nopMetrics struct{}

func (nopMetrics) RecordChargeAttempt(string, string, time.Duration) {}
func (nopMetrics) RecordThreeDSRetry(string, bool)                  {}
func (nopMetrics) RecordCardUpload(string, bool)                    {}
func (nopMetrics) RecordLookup(string, bool)                        {}
func (nopMetrics) RecordStoreWriteRetry(string, string)             {}
func (nopMetrics) RecordRepair(bool)                                {}
func (nopMetrics) RecordBreakerState(string, string)                {}

// MockTransactionRepository keeps transactions in memory.
type MockTransactionRepository struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction

	AddFn      func(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	UpdateFn   func(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	FindByIDFn func(ctx context.Context, id string) (*domain.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionRepository) Add(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if m.AddFn != nil {
		return m.AddFn(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID().String()] = tx.Clone()
	return tx, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, tx)
	}
	return m.Add(ctx, tx)
}

func (m *MockTransactionRepository) UpdateIfStatus(ctx context.Context, tx *domain.Transaction, expected domain.Status) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.transactions[tx.ID().String()]
	if !ok || stored.Status() != expected {
		return nil, domain.NewStatusChangedError(tx.ID().String(), expected)
	}
	m.transactions[tx.ID().String()] = tx.Clone()
	return tx, nil
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.transactions[id]; ok {
		return tx.Clone(), nil
	}
	return nil, nil
}

func (m *MockTransactionRepository) FindAllBy(ctx context.Context, criteria ports.Criteria, orderBy *ports.OrderBy, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		out = append(out, tx.Clone())
	}
	return out, nil
}
