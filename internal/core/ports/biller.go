package ports

import (
	"context"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
)

// ChargeAdapter is a biller's charge and rebill surface. Every call reports the
// raw request and response so they land in the transaction's audit trail.
type ChargeAdapter interface {
	ChargeNewCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)
	ChargeExistingCreditCard(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)
	SuspendRebill(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)
	Update(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)
	CardUpload(ctx context.Context, tx *domain.Transaction) (domain.BillerResponse, error)
}

// LookupRequest carries the card and device data the 3DS2 lookup needs.
// The card fields are never persisted.
type LookupRequest struct {
	CardNumber          string
	ExpirationMonth     int
	ExpirationYear      int
	CVV                 string
	DeviceFingerprintID string
	ReturnURL           string
	MerchantAccount     string
}

type LookupAdapter interface {
	PerformLookup(ctx context.Context, tx *domain.Transaction, req LookupRequest) (domain.LookupResponse, error)
}
