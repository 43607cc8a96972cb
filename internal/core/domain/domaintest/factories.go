// Package domaintest provides fixtures shared by the domain, service and repository tests.
package domaintest

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	TestCardNumber = "4111111111111111"
	TestCVV        = "123"
)

// Response is a scripted biller answer. It satisfies domain.LookupResponse and
// domain.CardHashProvider.
type Response struct {
	ResultCode   string
	ResultReason string
	Result       domain.Status

	RetryWithThreeD    bool
	RetryWithoutThreeD bool
	Nsf                bool

	AuthRequired bool
	Version      int
	StoredCard   string

	Request     string
	Reply       string
	RequestedAt time.Time
	RespondedAt time.Time
}

func (r *Response) Code() string                   { return r.ResultCode }
func (r *Response) Reason() string                 { return r.ResultReason }
func (r *Response) Approved() bool                 { return r.Result == domain.StatusApproved }
func (r *Response) Declined() bool                 { return r.Result == domain.StatusDeclined }
func (r *Response) Pending() bool                  { return r.Result == domain.StatusPending }
func (r *Response) Aborted() bool                  { return r.Result == domain.StatusAborted }
func (r *Response) ShouldRetryWithThreeD() bool    { return r.RetryWithThreeD }
func (r *Response) ShouldRetryWithoutThreeD() bool { return r.RetryWithoutThreeD }
func (r *Response) IsNsfTransaction() bool         { return r.Nsf }
func (r *Response) RequestPayload() string         { return r.Request }
func (r *Response) ResponsePayload() string        { return r.Reply }
func (r *Response) RequestDate() time.Time         { return r.RequestedAt }
func (r *Response) ResponseDate() time.Time        { return r.RespondedAt }
func (r *Response) ThreeDsAuthIsRequired() bool    { return r.AuthRequired }
func (r *Response) ThreedsVersion() int            { return r.Version }
func (r *Response) CardHash() string               { return r.StoredCard }

func newResponse(status domain.Status, code, reason string) *Response {
	at := time.Now().UTC()
	return &Response{
		ResultCode:   code,
		ResultReason: reason,
		Result:       status,
		Request:      `{"op":"charge"}`,
		Reply:        `{"code":"` + code + `"}`,
		RequestedAt:  at,
		RespondedAt:  at.Add(time.Millisecond),
	}
}

func ApprovedResponse() *Response {
	return newResponse(domain.StatusApproved, "0", "approved")
}

func DeclinedResponse(code, reason string) *Response {
	return newResponse(domain.StatusDeclined, code, reason)
}

func AbortedResponse(reason string) *Response {
	return newResponse(domain.StatusAborted, "abort", reason)
}

func PendingResponse() *Response {
	return newResponse(domain.StatusPending, "pending", "awaiting authentication")
}

// RetryResponse is a declined answer that asks for another attempt with or without 3DS.
func RetryResponse(withThreeD bool) *Response {
	r := newResponse(domain.StatusDeclined, "3DS", "retry requested")
	r.RetryWithThreeD = withThreeD
	r.RetryWithoutThreeD = !withThreeD
	return r
}

func CreditCard(t *testing.T) domain.CreditCardInformation {
	t.Helper()
	card, err := domain.NewCreditCardInformation(TestCardNumber, TestCVV, 12, 2030, domain.CardHolder{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		ZipCode:   "H0H0H0",
		Country:   "CA",
	})
	require.NoError(t, err)
	return card
}

func RocketgateSettings() domain.RocketgateChargeSettings {
	return domain.RocketgateChargeSettings{
		MerchantID:       "1483462469",
		MerchantPassword: "secret",
		MerchantSiteID:   "1",
	}
}

// DefaultChargeParams returns a valid 14.97 USD charge on a new card.
func DefaultChargeParams(t *testing.T) domain.ChargeParams {
	return domain.ChargeParams{
		SiteID:         "site-" + uuid.NewString(),
		Amount:         decimal.RequireFromString("14.97"),
		Currency:       "USD",
		Payment:        CreditCard(t),
		BillerSettings: RocketgateSettings(),
	}
}

// SessionContext returns a context carrying a fresh session id.
func SessionContext() context.Context {
	return domain.WithSessionID(context.Background(), "sess-"+uuid.NewString())
}

// NewCharge builds a pending charge transaction with its creation event drained.
func NewCharge(t *testing.T) *domain.Transaction {
	t.Helper()
	return NewChargeWith(t, DefaultChargeParams(t))
}

func NewChargeWith(t *testing.T, p domain.ChargeParams) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewChargeTransaction(SessionContext(), p)
	require.NoError(t, err)
	tx.PullEvents()
	return tx
}
