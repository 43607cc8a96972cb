package domain_test

import (
	"context"
	"testing"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain/domaintest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChargeTransaction(t *testing.T) {
	t.Run("creates a pending charge", func(t *testing.T) {
		ctx := domain.WithSessionID(context.Background(), "sess-1")
		p := domaintest.DefaultChargeParams(t)

		tx, err := domain.NewChargeTransaction(ctx, p)

		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID())
		assert.Equal(t, domain.KindCharge, tx.Kind())
		assert.Equal(t, "sess-1", tx.SessionID())
		assert.Equal(t, domain.StatusPending, tx.Status())
		assert.Equal(t, domain.BillerRocketgate, tx.BillerName())
		assert.Equal(t, domain.PaymentTypeCreditCard, tx.PaymentType())
		assert.Equal(t, 0, tx.Interactions().Len())
		assert.Nil(t, tx.PreviousTransactionID())

		events := tx.PullEvents()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTransactionCreated, events[0].Name)
	})

	cases := []struct {
		name  string
		ctx   context.Context
		edit  func(*domain.ChargeParams)
		code  string
		field string
	}{
		{"missing session", context.Background(), func(*domain.ChargeParams) {}, domain.ErrCodeMissingInformation, "sessionId"},
		{"missing site", nil, func(p *domain.ChargeParams) { p.SiteID = "" }, domain.ErrCodeMissingInformation, "siteId"},
		{"missing currency", nil, func(p *domain.ChargeParams) { p.Currency = "" }, domain.ErrCodeMissingInformation, "currency"},
		{"invalid currency", nil, func(p *domain.ChargeParams) { p.Currency = "DOLLARS" }, domain.ErrCodeInvalidInformation, "currency"},
		{"zero amount", nil, func(p *domain.ChargeParams) { p.Amount = decimal.Zero }, domain.ErrCodeMissingInformation, "amount"},
		{"negative amount", nil, func(p *domain.ChargeParams) { p.Amount = decimal.NewFromInt(-1) }, domain.ErrCodeInvalidInformation, "amount"},
		{"missing payment", nil, func(p *domain.ChargeParams) { p.Payment = nil }, domain.ErrCodeMissingInformation, "paymentInformation"},
		{"missing settings", nil, func(p *domain.ChargeParams) { p.BillerSettings = nil }, domain.ErrCodeMissingInformation, "billerChargeSettings"},
		{"incomplete settings", nil, func(p *domain.ChargeParams) {
			p.BillerSettings = domain.RocketgateChargeSettings{MerchantID: "1"}
		}, domain.ErrCodeMissingInformation, "merchantPassword"},
		{"template without hash", nil, func(p *domain.ChargeParams) {
			p.Payment = domain.CardTemplateInformation{FirstSix: "411111"}
		}, domain.ErrCodeMissingInformation, "cardHash"},
		{"invalid threeds version", nil, func(p *domain.ChargeParams) { p.ThreedsVersion = 3 }, domain.ErrCodeInvalidInformation, "threedsVersion"},
		{"nil card pointer", nil, func(p *domain.ChargeParams) {
			p.Payment = (*domain.CreditCardInformation)(nil)
		}, domain.ErrCodeMissingInformation, "paymentInformation"},
		{"nil settings pointer", nil, func(p *domain.ChargeParams) {
			p.BillerSettings = (*domain.RocketgateChargeSettings)(nil)
		}, domain.ErrCodeMissingInformation, "billerChargeSettings"},
		{"incomplete settings pointer", nil, func(p *domain.ChargeParams) {
			p.BillerSettings = &domain.RocketgateChargeSettings{MerchantID: "1"}
		}, domain.ErrCodeMissingInformation, "merchantPassword"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := tc.ctx
			if ctx == nil {
				ctx = domaintest.SessionContext()
			}
			p := domaintest.DefaultChargeParams(t)
			tc.edit(&p)

			_, err := domain.NewChargeTransaction(ctx, p)

			var de *domain.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.field, de.Field)
		})
	}
}

func TestNewChargeTransaction_PointerVariants(t *testing.T) {
	card := domaintest.CreditCard(t)
	settings := domaintest.RocketgateSettings()
	settings.SimplifiedThreeD = true

	p := domaintest.DefaultChargeParams(t)
	p.Payment = &card
	p.BillerSettings = &settings

	tx, err := domain.NewChargeTransaction(domaintest.SessionContext(), p)

	require.NoError(t, err)
	assert.Equal(t, card, tx.PaymentInformation())
	assert.Equal(t, settings, tx.BillerChargeSettings())
	assert.Equal(t, domain.BillerRocketgate, tx.BillerName())
	assert.True(t, domain.SimplifiedThreeD(tx.BillerChargeSettings()))
	assert.True(t, domain.SimplifiedThreeD(&settings))

	template := domain.CardTemplateInformation{CardHash: "hash-1", FirstSix: "411111", LastFour: "1111"}
	p.Payment = &template
	tx, err = domain.NewChargeTransaction(domaintest.SessionContext(), p)
	require.NoError(t, err)
	assert.Equal(t, template, tx.PaymentInformation())
}

func TestSimplifiedThreeD(t *testing.T) {
	assert.False(t, domain.SimplifiedThreeD(nil))
	assert.False(t, domain.SimplifiedThreeD(domain.EpochChargeSettings{}))
	assert.False(t, domain.SimplifiedThreeD((*domain.RocketgateChargeSettings)(nil)))
	assert.True(t, domain.SimplifiedThreeD(domain.RocketgateChargeSettings{SimplifiedThreeD: true}))
}

func TestNewCreditCardInformation(t *testing.T) {
	t.Run("rejects non numeric numbers", func(t *testing.T) {
		_, err := domain.NewCreditCardInformation("4111-1111-1111", "123", 1, 2030, domain.CardHolder{})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidInformation))
	})

	t.Run("requires cvv", func(t *testing.T) {
		_, err := domain.NewCreditCardInformation(domaintest.TestCardNumber, "", 1, 2030, domain.CardHolder{})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingInformation))
	})
}

func TestNewRebillUpdateTransaction(t *testing.T) {
	previous := domaintest.NewCharge(t)
	ctx := domaintest.SessionContext()

	t.Run("copies identifying fields from previous", func(t *testing.T) {
		tx, err := domain.NewRebillUpdateTransaction(ctx, previous, domain.RebillUpdateParams{
			Amount:   decimal.Zero,
			Currency: "USD",
			Rebill:   &domain.Rebill{Amount: decimal.RequireFromString("29.99"), Frequency: 30, Start: 30},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.KindRebillUpdate, tx.Kind())
		require.NotNil(t, tx.PreviousTransactionID())
		assert.Equal(t, previous.ID(), *tx.PreviousTransactionID())
		assert.Equal(t, previous.SiteID(), tx.SiteID())
		assert.Equal(t, previous.BillerName(), tx.BillerName())
		assert.Equal(t, previous.PaymentInformation(), tx.PaymentInformation())
		assert.Equal(t, 30, tx.ChargeInformation().Rebill.Frequency)
		assert.Equal(t, domain.StatusPending, previous.Status())
	})

	t.Run("requires rebill", func(t *testing.T) {
		_, err := domain.NewRebillUpdateTransaction(ctx, previous, domain.RebillUpdateParams{Currency: "USD"})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingInformation))
	})

	t.Run("requires previous", func(t *testing.T) {
		_, err := domain.NewCancelRebillTransaction(ctx, nil)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingInformation))
	})

	t.Run("cancel carries previous reference", func(t *testing.T) {
		tx, err := domain.NewCancelRebillTransaction(ctx, previous)
		require.NoError(t, err)
		assert.Equal(t, previous.ID(), *tx.PreviousTransactionID())
		assert.Nil(t, tx.ChargeInformation())
	})
}
