package biller

import (
	"encoding/json"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

type cardPayload struct {
	Number          string             `json:"ccNumber,omitempty"`
	CVV             string             `json:"cvv,omitempty"`
	ExpirationMonth int                `json:"cardExpirationMonth,omitempty"`
	ExpirationYear  int                `json:"cardExpirationYear,omitempty"`
	CardHash        string             `json:"cardHash,omitempty"`
	Holder          *domain.CardHolder `json:"holder,omitempty"`
}

type chargeRequest struct {
	TransactionID         string                    `json:"transactionId"`
	PreviousTransactionID string                    `json:"previousTransactionId,omitempty"`
	SessionID             string                    `json:"sessionId"`
	SiteID                string                    `json:"siteId"`
	Biller                string                    `json:"biller"`
	Settings              map[string]any            `json:"settings,omitempty"`
	Charge                *domain.ChargeInformation `json:"charge,omitempty"`
	Card                  *cardPayload              `json:"card,omitempty"`
	With3D                bool                      `json:"with3D"`
	ThreedsVersion        int                       `json:"threedsVersion,omitempty"`

	DeviceFingerprintID string `json:"deviceFingerprintId,omitempty"`
	ReturnURL           string `json:"returnUrl,omitempty"`
	MerchantAccount     string `json:"merchantAccount,omitempty"`
}

func newChargeRequest(tx *domain.Transaction) (chargeRequest, error) {
	req := chargeRequest{
		TransactionID:  tx.ID().String(),
		SessionID:      tx.SessionID(),
		SiteID:         tx.SiteID(),
		Biller:         string(tx.BillerName()),
		Charge:         tx.ChargeInformation(),
		Card:           newCardPayload(tx),
		With3D:         tx.With3D(),
		ThreedsVersion: tx.ThreedsVersion(),
	}
	if id := tx.PreviousTransactionID(); id != nil {
		req.PreviousTransactionID = id.String()
	}
	if s := tx.BillerChargeSettings(); s != nil {
		settings, err := domain.MarshalBillerSettings(s)
		if err != nil {
			return chargeRequest{}, err
		}
		req.Settings = settings
	}
	return req, nil
}

func newLookupRequest(tx *domain.Transaction, in ports.LookupRequest) (chargeRequest, error) {
	req, err := newChargeRequest(tx)
	if err != nil {
		return chargeRequest{}, err
	}
	card := &cardPayload{
		Number:          in.CardNumber,
		CVV:             in.CVV,
		ExpirationMonth: in.ExpirationMonth,
		ExpirationYear:  in.ExpirationYear,
	}
	if req.Card != nil {
		card.Holder = req.Card.Holder
	}
	req.Card = card
	req.DeviceFingerprintID = in.DeviceFingerprintID
	req.ReturnURL = in.ReturnURL
	req.MerchantAccount = in.MerchantAccount
	return req, nil
}

func newCardPayload(tx *domain.Transaction) *cardPayload {
	switch p := tx.PaymentInformation().(type) {
	case domain.CreditCardInformation:
		holder := p.Holder
		c := &cardPayload{
			Number:          p.Number,
			CVV:             p.CVV,
			ExpirationMonth: p.ExpirationMonth,
			ExpirationYear:  p.ExpirationYear,
			Holder:          &holder,
		}
		if tx.CardHash() != "" {
			c.CardHash = tx.CardHash()
		}
		return c
	case domain.CardTemplateInformation:
		return &cardPayload{CardHash: p.CardHash}
	default:
		if tx.CardHash() != "" {
			return &cardPayload{CardHash: tx.CardHash()}
		}
		return nil
	}
}

// obfuscated returns the JSON form of r that is safe to keep in the audit trail.
func (r chargeRequest) obfuscated() string {
	if r.Card != nil {
		c := *r.Card
		if c.Number != "" {
			c.Number = domain.ObfuscatedMarker
		}
		if c.CVV != "" {
			c.CVV = domain.ObfuscatedMarker
		}
		r.Card = &c
	}
	if r.Settings != nil {
		settings := make(map[string]any, len(r.Settings))
		for k, v := range r.Settings {
			settings[k] = v
		}
		for _, secret := range []string{"merchantPassword", "password", "apiKey"} {
			if _, ok := settings[secret]; ok {
				settings[secret] = domain.ObfuscatedMarker
			}
		}
		r.Settings = settings
	}
	raw, _ := json.Marshal(r)
	return string(raw)
}

// Response is the biller gateway's normalized answer to any call.
type Response struct {
	Status             string `json:"status"`
	ResultCode         string `json:"code"`
	ResultReason       string `json:"reason"`
	RetryWithThreeD    bool   `json:"retryWithThreeD"`
	RetryWithoutThreeD bool   `json:"retryWithoutThreeD"`
	Nsf                bool   `json:"nsf"`
	AuthRequired       bool   `json:"threeDsAuthRequired"`
	Version            int    `json:"threedsVersion"`
	StoredCardHash     string `json:"cardHash"`

	request     string
	response    string
	requestedAt time.Time
	respondedAt time.Time
}

var (
	_ domain.LookupResponse   = (*Response)(nil)
	_ domain.CardHashProvider = (*Response)(nil)
)

func (r *Response) Code() string   { return r.ResultCode }
func (r *Response) Reason() string { return r.ResultReason }

func (r *Response) Approved() bool { return r.Status == string(domain.StatusApproved) }
func (r *Response) Declined() bool { return r.Status == string(domain.StatusDeclined) }
func (r *Response) Pending() bool  { return r.Status == string(domain.StatusPending) }
func (r *Response) Aborted() bool  { return r.Status == string(domain.StatusAborted) }

func (r *Response) ShouldRetryWithThreeD() bool    { return r.RetryWithThreeD }
func (r *Response) ShouldRetryWithoutThreeD() bool { return r.RetryWithoutThreeD }
func (r *Response) IsNsfTransaction() bool         { return r.Nsf }

func (r *Response) RequestPayload() string  { return r.request }
func (r *Response) ResponsePayload() string { return r.response }
func (r *Response) RequestDate() time.Time  { return r.requestedAt }
func (r *Response) ResponseDate() time.Time { return r.respondedAt }

func (r *Response) ThreeDsAuthIsRequired() bool { return r.AuthRequired }
func (r *Response) ThreedsVersion() int         { return r.Version }
func (r *Response) CardHash() string            { return r.StoredCardHash }
