package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is anything published to the BI logger.
type Event interface {
	EventName() string
}

const (
	EventTransactionCreated  = "transaction.created"
	EventTransactionApproved = "transaction.approved"
	EventTransactionDeclined = "transaction.declined"
	EventTransactionAborted  = "transaction.aborted"

	EventThreeDSTwoLookup   = "bi.threeds2_lookup"
	EventTransactionUpdated = "bi.transaction_updated"
)

// DomainEvent is an immutable snapshot recorded on creation and on every status transition.
type DomainEvent struct {
	Name          string             `json:"name"`
	TransactionID uuid.UUID          `json:"transactionId"`
	SessionID     string             `json:"sessionId"`
	Kind          TransactionKind    `json:"transactionType"`
	Status        Status             `json:"status"`
	Code          string             `json:"code,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	Biller        BillerName         `json:"biller"`
	Interaction   *BillerInteraction `json:"billerInteraction,omitempty"`
	Payment       PaymentInformation `json:"payment,omitempty"`
	Charge        *ChargeInformation `json:"charge,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

func (e DomainEvent) EventName() string { return e.Name }

func newDomainEvent(name string, t *Transaction) DomainEvent {
	e := DomainEvent{
		Name:          name,
		TransactionID: t.id,
		SessionID:     t.sessionID,
		Kind:          t.kind,
		Status:        t.status,
		Code:          t.code,
		Reason:        t.reason,
		Biller:        t.billerName,
		OccurredAt:    now(),
	}
	if t.paymentInformation != nil {
		e.Payment = t.paymentInformation.Obfuscated()
	}
	if t.chargeInformation != nil {
		c := t.chargeInformation.clone()
		e.Charge = &c
	}
	if responses := t.interactions.Responses(); len(responses) > 0 {
		last := responses[len(responses)-1]
		e.Interaction = &last
	}
	return e
}

// ThreeDSTwoLookupEvent reports the outcome of a 3DS2 lookup.
type ThreeDSTwoLookupEvent struct {
	TransactionID         uuid.UUID  `json:"transactionId"`
	SessionID             string     `json:"sessionId"`
	Biller                BillerName `json:"biller"`
	Status                Status     `json:"status"`
	Code                  string     `json:"code,omitempty"`
	Reason                string     `json:"reason,omitempty"`
	ThreeDsAuthIsRequired bool       `json:"threeDsAuthIsRequired"`
	ThreedsVersion        int        `json:"threedsVersion"`
	OccurredAt            time.Time  `json:"occurredAt"`
}

func (ThreeDSTwoLookupEvent) EventName() string { return EventThreeDSTwoLookup }

func NewThreeDSTwoLookupEvent(t *Transaction, r LookupResponse) ThreeDSTwoLookupEvent {
	return ThreeDSTwoLookupEvent{
		TransactionID:         t.id,
		SessionID:             t.sessionID,
		Biller:                t.billerName,
		Status:                t.status,
		Code:                  r.Code(),
		Reason:                r.Reason(),
		ThreeDsAuthIsRequired: r.ThreeDsAuthIsRequired(),
		ThreedsVersion:        r.ThreedsVersion(),
		OccurredAt:            now(),
	}
}

// TransactionUpdatedEvent is the BI record of a transaction's latest settled state.
type TransactionUpdatedEvent struct {
	TransactionID  uuid.UUID          `json:"transactionId"`
	SessionID      string             `json:"sessionId"`
	Biller         BillerName         `json:"biller"`
	Status         Status             `json:"status"`
	Code           string             `json:"code,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	With3D         bool               `json:"with3D"`
	ThreedsVersion int                `json:"threedsVersion"`
	IsNsf          bool               `json:"isNsf"`
	Payment        PaymentInformation `json:"payment,omitempty"`
	Charge         *ChargeInformation `json:"charge,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

func (TransactionUpdatedEvent) EventName() string { return EventTransactionUpdated }

func NewTransactionUpdatedEvent(t *Transaction) TransactionUpdatedEvent {
	e := TransactionUpdatedEvent{
		TransactionID:  t.id,
		SessionID:      t.sessionID,
		Biller:         t.billerName,
		Status:         t.status,
		Code:           t.code,
		Reason:         t.reason,
		With3D:         t.with3D,
		ThreedsVersion: t.threedsVersion,
		IsNsf:          t.isNsf,
		OccurredAt:     now(),
	}
	if t.paymentInformation != nil {
		e.Payment = t.paymentInformation.Obfuscated()
	}
	if t.chargeInformation != nil {
		c := t.chargeInformation.clone()
		e.Charge = &c
	}
	return e
}
