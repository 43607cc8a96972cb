package domain_test

import (
	"testing"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain/domaintest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_UpdateFromBillerResponse(t *testing.T) {
	t.Run("decline records code, reason and one interaction pair", func(t *testing.T) {
		tx := domaintest.NewCharge(t)

		err := tx.UpdateFromBillerResponse(domaintest.DeclinedResponse("D1", "insufficient funds"))

		require.NoError(t, err)
		assert.Equal(t, domain.StatusDeclined, tx.Status())
		assert.Equal(t, "D1", tx.Code())
		assert.Equal(t, "insufficient funds", tx.Reason())
		assert.Len(t, tx.Interactions().Requests(), 1)
		assert.Len(t, tx.Interactions().Responses(), 1)

		events := tx.PullEvents()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTransactionDeclined, events[0].Name)
		assert.Equal(t, "D1", events[0].Code)
		require.NotNil(t, events[0].Interaction)
		assert.Equal(t, domain.InteractionResponse, events[0].Interaction.Type)
	})

	t.Run("pending response appends without transition", func(t *testing.T) {
		tx := domaintest.NewCharge(t)

		require.NoError(t, tx.UpdateFromBillerResponse(domaintest.PendingResponse()))

		assert.Equal(t, domain.StatusPending, tx.Status())
		assert.Equal(t, 2, tx.Interactions().Len())
		assert.Empty(t, tx.PullEvents())
	})

	t.Run("nsf flag is carried onto the transaction", func(t *testing.T) {
		tx := domaintest.NewCharge(t)
		r := domaintest.DeclinedResponse("NSF", "insufficient funds")
		r.Nsf = true

		require.NoError(t, tx.UpdateFromBillerResponse(r))
		assert.True(t, tx.IsNsf())
	})

	t.Run("decline carrying a retry signal still settles", func(t *testing.T) {
		tx := domaintest.NewCharge(t)
		r := domaintest.DeclinedResponse("3D", "3ds required")
		r.RetryWithThreeD = true

		require.NoError(t, tx.UpdateFromBillerResponse(r))

		assert.Equal(t, domain.StatusDeclined, tx.Status())
		assert.Equal(t, "3D", tx.Code())
	})

	t.Run("bare retry signal appends without transition", func(t *testing.T) {
		tx := domaintest.NewCharge(t)
		r := domaintest.PendingResponse()
		r.RetryWithoutThreeD = true

		require.NoError(t, tx.UpdateFromBillerResponse(r))

		assert.Equal(t, domain.StatusPending, tx.Status())
		assert.Equal(t, 2, tx.Interactions().Len())
	})

	t.Run("terminal transaction rejects a definitive response and keeps its log", func(t *testing.T) {
		tx := domaintest.NewCharge(t)
		require.NoError(t, tx.UpdateFromBillerResponse(domaintest.ApprovedResponse()))
		before := tx.Interactions().Len()

		err := tx.UpdateFromBillerResponse(domaintest.DeclinedResponse("D1", "late"))

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeIllegalTransition))
		assert.Equal(t, domain.StatusApproved, tx.Status())
		assert.Equal(t, before, tx.Interactions().Len())
	})
}

func TestTransaction_TerminalTransitions(t *testing.T) {
	tx := domaintest.NewCharge(t)
	require.NoError(t, tx.Abort("step-up expired"))
	assert.Equal(t, "step-up expired", tx.Reason())

	assert.True(t, domain.IsErrorCode(tx.Approve(), domain.ErrCodeIllegalTransition))
	assert.True(t, domain.IsErrorCode(tx.Decline("D1", "x"), domain.ErrCodeIllegalTransition))
	assert.True(t, domain.IsErrorCode(tx.Abort("again"), domain.ErrCodeIllegalTransition))
	assert.Equal(t, domain.StatusAborted, tx.Status())
	assert.Equal(t, "step-up expired", tx.Reason())
}

func TestTransaction_InteractionsAreAppendOnly(t *testing.T) {
	tx := domaintest.NewCharge(t)
	tx.AddBillerInteraction(domaintest.RetryResponse(true))
	first := tx.Interactions().Since(0)

	require.NoError(t, tx.UpdateFromBillerResponse(domaintest.ApprovedResponse()))

	after := tx.Interactions().Since(0)
	require.Len(t, after, len(first)+2)
	assert.Equal(t, first, after[:len(first)])
}

func TestTransaction_CloneAndMergeCardUpload(t *testing.T) {
	tx := domaintest.NewCharge(t)
	require.NoError(t, tx.UpdateFromBillerResponse(domaintest.ApprovedResponse()))
	baseline := tx.Interactions().Len()

	detached := tx.Clone()
	upload := domaintest.ApprovedResponse()
	upload.StoredCard = "card-hash-1"
	detached.AddBillerInteraction(upload)
	detached.RecordCardHash(upload.CardHash())
	detached.UpdateTransactionWith3D(true)

	assert.Equal(t, baseline, tx.Interactions().Len())
	assert.Empty(t, tx.CardHash())

	tx.MergeCardUpload(detached, baseline)

	assert.Equal(t, baseline+2, tx.Interactions().Len())
	assert.Equal(t, "card-hash-1", tx.CardHash())
	assert.Equal(t, domain.StatusApproved, tx.Status())
	assert.Equal(t, "0", tx.Code())
	assert.False(t, tx.With3D())
}

func TestTransaction_ObfuscatedEventPayment(t *testing.T) {
	tx, err := domain.NewChargeTransaction(domaintest.SessionContext(), domaintest.DefaultChargeParams(t))
	require.NoError(t, err)

	events := tx.PullEvents()
	require.Len(t, events, 1)
	card, ok := events[0].Payment.(domain.CreditCardInformation)
	require.True(t, ok)
	assert.Equal(t, domain.ObfuscatedMarker, card.Number)
	assert.Equal(t, domain.ObfuscatedMarker, card.CVV)
	assert.Equal(t, "411111", card.FirstSix)
	assert.Equal(t, "1111", card.LastFour)

	original := tx.PaymentInformation().(domain.CreditCardInformation)
	assert.Equal(t, domaintest.TestCardNumber, original.Number)
}

func TestTransaction_SpawnCrossSale(t *testing.T) {
	tx := domaintest.NewCharge(t)

	x, err := tx.SpawnCrossSale("site-xsale", domain.ChargeInformation{
		Amount:   decimal.RequireFromString("9.99"),
		Currency: "USD",
	})

	require.NoError(t, err)
	assert.NotEqual(t, tx.ID(), x.ID())
	assert.Equal(t, tx.SessionID(), x.SessionID())
	assert.Equal(t, "site-xsale", x.SiteID())
	assert.Equal(t, tx.BillerName(), x.BillerName())
	assert.True(t, x.ChargeInformation().Amount.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, domain.StatusPending, x.Status())
}

func TestTransaction_SnapshotRestore(t *testing.T) {
	tx := domaintest.NewCharge(t)
	tx.UpdateTransactionWith3D(true)
	tx.UpdateThreedsVersion(2)
	require.NoError(t, tx.UpdateFromBillerResponse(domaintest.ApprovedResponse()))
	tx.PullEvents()

	restored := domain.RestoreTransaction(tx.Snapshot())

	assert.Equal(t, tx.Snapshot(), restored.Snapshot())
	assert.Empty(t, restored.PullEvents())
}
