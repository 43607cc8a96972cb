package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/google/uuid"
)

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type transactionDocument struct {
	ID                    string                    `json:"id"`
	Kind                  string                    `json:"transactionType"`
	SessionID             string                    `json:"sessionId"`
	SiteID                string                    `json:"siteId"`
	Status                string                    `json:"status"`
	Code                  string                    `json:"code,omitempty"`
	Reason                string                    `json:"reason,omitempty"`
	PaymentType           string                    `json:"paymentType"`
	PaymentInformation    *paymentDocument          `json:"paymentInformation,omitempty"`
	ChargeInformation     *domain.ChargeInformation `json:"chargeInformation,omitempty"`
	BillerName            string                    `json:"billerName"`
	BillerChargeSettings  map[string]any            `json:"billerChargeSettings,omitempty"`
	BillerInteractions    string                    `json:"billerInteractions"`
	With3D                bool                      `json:"with3D"`
	ThreedsVersion        int                       `json:"threedsVersion"`
	IsNsf                 bool                      `json:"isNsf"`
	CardHash              string                    `json:"cardHash,omitempty"`
	PreviousTransactionID string                    `json:"previousTransactionId,omitempty"`
	CreatedAt             string                    `json:"createdAt"`
	UpdatedAt             string                    `json:"updatedAt"`
}

// paymentDocument never carries the card number or cvv.
type paymentDocument struct {
	Kind            domain.PaymentInformationKind `json:"kind"`
	CardHash        string                        `json:"cardHash,omitempty"`
	FirstSix        string                        `json:"first6,omitempty"`
	LastFour        string                        `json:"last4,omitempty"`
	ExpirationMonth int                           `json:"cardExpirationMonth,omitempty"`
	ExpirationYear  int                           `json:"cardExpirationYear,omitempty"`
	Holder          *domain.CardHolder            `json:"holder,omitempty"`
}

type pivotDocument struct {
	TransactionID string `json:"transactionId"`
	InteractionID string `json:"interactionId"`
	CreatedAt     string `json:"createdAt"`
}

type interactionDocument struct {
	domain.BillerInteraction
	TransactionID string `json:"transactionId"`
}

func toDocumentModel(tx *domain.Transaction) (*transactionDocument, error) {
	s := tx.Snapshot()
	interactions, err := encodeInteractions(s.Interactions)
	if err != nil {
		return nil, err
	}

	d := &transactionDocument{
		ID:                 s.ID.String(),
		Kind:               string(s.Kind),
		SessionID:          s.SessionID,
		SiteID:             s.SiteID,
		Status:             string(s.Status),
		Code:               s.Code,
		Reason:             s.Reason,
		PaymentType:        s.PaymentType,
		PaymentInformation: toPaymentDocument(s.PaymentInformation),
		ChargeInformation:  s.ChargeInformation,
		BillerName:         string(s.BillerName),
		BillerInteractions: interactions,
		With3D:             s.With3D,
		ThreedsVersion:     s.ThreedsVersion,
		IsNsf:              s.IsNsf,
		CardHash:           s.CardHash,
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
	}
	if s.BillerChargeSettings != nil {
		settings, err := domain.MarshalBillerSettings(s.BillerChargeSettings)
		if err != nil {
			return nil, err
		}
		d.BillerChargeSettings = settings
	}
	if s.PreviousTransactionID != nil {
		d.PreviousTransactionID = s.PreviousTransactionID.String()
	}
	return d, nil
}

func toDomainModel(d *transactionDocument, interactions []domain.BillerInteraction, previous *domain.Transaction) (*domain.Transaction, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("transaction id %q: %w", d.ID, err)
	}
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(d.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s := domain.TransactionSnapshot{
		ID:                  id,
		Kind:                domain.TransactionKind(d.Kind),
		SessionID:           d.SessionID,
		SiteID:              d.SiteID,
		Status:              status,
		Code:                d.Code,
		Reason:              d.Reason,
		PaymentType:         d.PaymentType,
		PaymentInformation:  fromPaymentDocument(d.PaymentInformation),
		ChargeInformation:   d.ChargeInformation,
		BillerName:          domain.BillerName(d.BillerName),
		Interactions:        interactions,
		With3D:              d.With3D,
		ThreedsVersion:      d.ThreedsVersion,
		IsNsf:               d.IsNsf,
		CardHash:            d.CardHash,
		PreviousTransaction: previous,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}
	if d.BillerChargeSettings != nil {
		settings, err := domain.UnmarshalBillerSettings(d.BillerChargeSettings)
		if err != nil {
			return nil, err
		}
		s.BillerChargeSettings = settings
	}
	if d.PreviousTransactionID != "" {
		prev, err := uuid.Parse(d.PreviousTransactionID)
		if err != nil {
			return nil, fmt.Errorf("previous transaction id %q: %w", d.PreviousTransactionID, err)
		}
		s.PreviousTransactionID = &prev
	}
	return domain.RestoreTransaction(s), nil
}

func toPaymentDocument(p domain.PaymentInformation) *paymentDocument {
	switch v := p.(type) {
	case nil:
		return nil
	case domain.CreditCardInformation:
		holder := v.Holder
		return &paymentDocument{
			Kind:            v.Kind(),
			FirstSix:        v.FirstSix,
			LastFour:        v.LastFour,
			ExpirationMonth: v.ExpirationMonth,
			ExpirationYear:  v.ExpirationYear,
			Holder:          &holder,
		}
	case domain.CardTemplateInformation:
		return &paymentDocument{
			Kind:     v.Kind(),
			CardHash: v.CardHash,
			FirstSix: v.FirstSix,
			LastFour: v.LastFour,
		}
	default:
		panic(fmt.Sprintf("unhandled payment information %T", p))
	}
}

// fromPaymentDocument restores a stored card with its sensitive fields obfuscated.
func fromPaymentDocument(d *paymentDocument) domain.PaymentInformation {
	if d == nil {
		return nil
	}
	if d.Kind == domain.PaymentStoredTemplate {
		return domain.CardTemplateInformation{
			CardHash: d.CardHash,
			FirstSix: d.FirstSix,
			LastFour: d.LastFour,
		}
	}
	c := domain.CreditCardInformation{
		Number:          domain.ObfuscatedMarker,
		CVV:             domain.ObfuscatedMarker,
		ExpirationMonth: d.ExpirationMonth,
		ExpirationYear:  d.ExpirationYear,
		FirstSix:        d.FirstSix,
		LastFour:        d.LastFour,
	}
	if d.Holder != nil {
		c.Holder = *d.Holder
	}
	return c
}

func encodeInteractions(items []domain.BillerInteraction) (string, error) {
	if items == nil {
		items = []domain.BillerInteraction{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode biller interactions: %w", err)
	}
	return string(raw), nil
}

func decodeInteractions(s string) ([]domain.BillerInteraction, error) {
	if s == "" {
		return nil, nil
	}
	var items []domain.BillerInteraction
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("decode biller interactions: %w", err)
	}
	return items, nil
}

// toDocument and fromDocument convert between typed models and the store's
// schemaless form through JSON.
func toDocument(v any) (docstore.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc docstore.Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
