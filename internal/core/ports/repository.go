package ports

import (
	"context"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
)

// Criteria filters documents by field equality, e.g. {"status": "pending"}.
type Criteria map[string]any

type OrderBy struct {
	Field      string
	Descending bool
}

// TransactionRepository persists the transaction aggregate.
type TransactionRepository interface {
	// Add and Update both upsert the full document.
	Add(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	Update(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	// UpdateIfStatus writes only while the stored status still equals expected,
	// otherwise it fails with domain.ErrCodeStatusChanged.
	UpdateIfStatus(ctx context.Context, tx *domain.Transaction, expected domain.Status) (*domain.Transaction, error)

	// FindByID returns nil, nil when no transaction is stored under id.
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	FindAllBy(ctx context.Context, criteria Criteria, orderBy *OrderBy, limit, offset int) ([]*domain.Transaction, error)
}
