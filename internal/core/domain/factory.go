package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChargeParams struct {
	SiteID         string
	Amount         decimal.Decimal
	Currency       string
	Rebill         *Rebill
	PaymentType    string
	Payment        PaymentInformation
	BillerSettings BillerChargeSettings
	With3D         bool
	ThreedsVersion int
}

// NewChargeTransaction creates a pending charge for the session carried by ctx.
func NewChargeTransaction(ctx context.Context, p ChargeParams) (*Transaction, error) {
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		return nil, NewMissingInformationError("sessionId")
	}
	if p.SiteID == "" {
		return nil, NewMissingInformationError("siteId")
	}
	charge, err := NewChargeInformation(p.Amount, p.Currency, p.Rebill)
	if err != nil {
		return nil, err
	}
	payment, err := validatePayment(p.Payment)
	if err != nil {
		return nil, err
	}
	settings, err := validateBillerSettings(p.BillerSettings)
	if err != nil {
		return nil, err
	}
	if p.ThreedsVersion < 0 || p.ThreedsVersion > 2 {
		return nil, NewInvalidInformationError("threedsVersion", "expected 0, 1 or 2")
	}

	paymentType := p.PaymentType
	if paymentType == "" {
		paymentType = PaymentTypeCreditCard
	}

	ts := now()
	t := &Transaction{
		id:                   uuid.New(),
		kind:                 KindCharge,
		sessionID:            sessionID,
		siteID:               p.SiteID,
		status:               StatusPending,
		paymentType:          paymentType,
		paymentInformation:   payment,
		chargeInformation:    &charge,
		billerName:           settings.Biller(),
		billerChargeSettings: settings,
		with3D:               p.With3D,
		threedsVersion:       p.ThreedsVersion,
		createdAt:            ts,
		updatedAt:            ts,
	}
	t.record(EventTransactionCreated)
	return t, nil
}

type RebillUpdateParams struct {
	Amount   decimal.Decimal
	Currency string
	Rebill   *Rebill
	// Payment replaces the card on file; when nil the previous payment is carried forward.
	Payment PaymentInformation
}

// NewRebillUpdateTransaction creates a pending update of the recurring charge
// established by previous. previous is referenced, never modified.
func NewRebillUpdateTransaction(ctx context.Context, previous *Transaction, p RebillUpdateParams) (*Transaction, error) {
	t, err := newRebillTransaction(ctx, previous)
	if err != nil {
		return nil, err
	}
	if p.Currency == "" {
		return nil, NewMissingInformationError("currency")
	}
	if len(p.Currency) != 3 {
		return nil, NewInvalidInformationError("currency", "expected ISO 4217 code")
	}
	if p.Amount.IsNegative() {
		return nil, NewInvalidInformationError("amount", "cannot be negative")
	}
	if p.Rebill == nil {
		return nil, NewMissingInformationError("rebill")
	}
	charge, err := NewChargeInformation(p.Rebill.Amount, p.Currency, p.Rebill)
	if err != nil {
		return nil, err
	}
	charge.Amount = p.Amount
	t.chargeInformation = &charge

	if p.Payment != nil {
		payment, err := validatePayment(p.Payment)
		if err != nil {
			return nil, err
		}
		t.paymentInformation = payment
	}

	t.record(EventTransactionCreated)
	return t, nil
}

// NewCancelRebillTransaction creates a pending cancellation of previous's recurring charge.
func NewCancelRebillTransaction(ctx context.Context, previous *Transaction) (*Transaction, error) {
	t, err := newRebillTransaction(ctx, previous)
	if err != nil {
		return nil, err
	}
	t.record(EventTransactionCreated)
	return t, nil
}

// newRebillTransaction copies forward the identifying fields a rebill record does
// not collect on its own.
func newRebillTransaction(ctx context.Context, previous *Transaction) (*Transaction, error) {
	if previous == nil {
		return nil, NewMissingInformationError("previousTransaction")
	}
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		return nil, NewMissingInformationError("sessionId")
	}
	if previous.siteID == "" {
		return nil, NewMissingInformationError("siteId")
	}
	if _, err := validateBillerSettings(previous.billerChargeSettings); err != nil {
		return nil, err
	}

	prevID := previous.id
	ts := now()
	return &Transaction{
		id:                    uuid.New(),
		kind:                  KindRebillUpdate,
		sessionID:             sessionID,
		siteID:                previous.siteID,
		status:                StatusPending,
		paymentType:           previous.paymentType,
		paymentInformation:    previous.paymentInformation,
		billerName:            previous.billerName,
		billerChargeSettings:  previous.billerChargeSettings,
		cardHash:              previous.cardHash,
		previousTransactionID: &prevID,
		previousTransaction:   previous,
		createdAt:             ts,
		updatedAt:             ts,
	}, nil
}

// validatePayment returns the value variant of p, so pointer variants never
// reach the aggregate.
func validatePayment(p PaymentInformation) (PaymentInformation, error) {
	v, ok := paymentValue(p)
	if !ok {
		return nil, NewMissingInformationError("paymentInformation")
	}
	if err := validateStruct(v); err != nil {
		return nil, err
	}
	return v, nil
}

func paymentValue(p PaymentInformation) (PaymentInformation, bool) {
	switch v := p.(type) {
	case CreditCardInformation, CardTemplateInformation:
		return v, true
	case *CreditCardInformation:
		if v != nil {
			return *v, true
		}
	case *CardTemplateInformation:
		if v != nil {
			return *v, true
		}
	}
	return nil, false
}
