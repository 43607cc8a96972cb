// Package domain holds the transaction aggregate, its status machine and the biller audit trail.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

var now = func() time.Time { return time.Now().UTC() }

type TransactionKind string

const (
	KindCharge       TransactionKind = "charge"
	KindRebillUpdate TransactionKind = "rebillUpdate"
)

// Transaction is the aggregate routed through a biller. It is mutated only through
// its methods so the status machine and the append-only interaction log hold.
type Transaction struct {
	id        uuid.UUID
	kind      TransactionKind
	sessionID string
	siteID    string

	status Status
	code   string
	reason string

	paymentType          string
	paymentInformation   PaymentInformation
	chargeInformation    *ChargeInformation
	billerName           BillerName
	billerChargeSettings BillerChargeSettings

	interactions   InteractionLog
	with3D         bool
	threedsVersion int
	isNsf          bool
	cardHash       string

	previousTransactionID *uuid.UUID
	previousTransaction   *Transaction

	createdAt time.Time
	updatedAt time.Time

	events []DomainEvent
}

func (t *Transaction) ID() uuid.UUID { return t.id }
func (t *Transaction) Kind() TransactionKind { return t.kind }
func (t *Transaction) SessionID() string { return t.sessionID }
func (t *Transaction) SiteID() string { return t.siteID }
func (t *Transaction) Status() Status { return t.status }
func (t *Transaction) Code() string { return t.code }
func (t *Transaction) Reason() string { return t.reason }
func (t *Transaction) PaymentType() string { return t.paymentType }
func (t *Transaction) BillerName() BillerName { return t.billerName }
func (t *Transaction) With3D() bool { return t.with3D }
func (t *Transaction) ThreedsVersion() int { return t.threedsVersion }
func (t *Transaction) IsNsf() bool { return t.isNsf }
func (t *Transaction) CardHash() string { return t.cardHash }
func (t *Transaction) CreatedAt() time.Time { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time { return t.updatedAt }
func (t *Transaction) IsPending() bool { return t.status == StatusPending }
func (t *Transaction) Interactions() InteractionLog { return NewInteractionLog(t.interactions.items...) }
func (t *Transaction) PreviousTransaction() *Transaction { return t.previousTransaction }

func (t *Transaction) PaymentInformation() PaymentInformation { return t.paymentInformation }
func (t *Transaction) BillerChargeSettings() BillerChargeSettings { return t.billerChargeSettings }

func (t *Transaction) ChargeInformation() *ChargeInformation {
	if t.chargeInformation == nil {
		return nil
	}
	c := t.chargeInformation.clone()
	return &c
}

func (t *Transaction) PreviousTransactionID() *uuid.UUID {
	if t.previousTransactionID == nil {
		return nil
	}
	id := *t.previousTransactionID
	return &id
}

// UpdateTransactionWith3D toggles whether the next biller call uses 3DS.
func (t *Transaction) UpdateTransactionWith3D(with3D bool) {
	t.with3D = with3D
	t.touch()
}

func (t *Transaction) UpdateThreedsVersion(version int) {
	t.threedsVersion = version
	t.touch()
}

// AddBillerInteraction appends the request and response carried by r without touching status.
func (t *Transaction) AddBillerInteraction(r BillerResponse) {
	t.interactions.Append(
		NewBillerInteraction(InteractionRequest, r.RequestPayload(), r.RequestDate()),
		NewBillerInteraction(InteractionResponse, r.ResponsePayload(), r.ResponseDate()),
	)
	t.touch()
}

// UpdateFromBillerResponse appends the interaction pair and, when the response is
// definitive, records its code and reason and moves to the resulting status.
func (t *Transaction) UpdateFromBillerResponse(r BillerResponse) error {
	target, definitive := resultingStatus(r)
	if definitive {
		if err := t.status.CanTransitionTo(target); err != nil {
			return err
		}
	}

	t.AddBillerInteraction(r)
	if r.IsNsfTransaction() {
		t.isNsf = true
	}
	if !definitive {
		return nil
	}
	t.code = r.Code()
	t.reason = r.Reason()
	return t.transition(target)
}

func (t *Transaction) Approve() error {
	return t.transition(StatusApproved)
}

func (t *Transaction) Decline(code, reason string) error {
	if err := t.status.CanTransitionTo(StatusDeclined); err != nil {
		return err
	}
	t.code, t.reason = code, reason
	return t.transition(StatusDeclined)
}

func (t *Transaction) Abort(reason string) error {
	if err := t.status.CanTransitionTo(StatusAborted); err != nil {
		return err
	}
	t.reason = reason
	return t.transition(StatusAborted)
}

func (t *Transaction) transition(target Status) error {
	if err := t.status.CanTransitionTo(target); err != nil {
		return err
	}
	t.status = target
	t.touch()

	switch target {
	case StatusApproved:
		t.record(EventTransactionApproved)
	case StatusDeclined:
		t.record(EventTransactionDeclined)
	case StatusAborted:
		t.record(EventTransactionAborted)
	}
	return nil
}

// PullEvents returns the recorded domain events and clears them.
func (t *Transaction) PullEvents() []DomainEvent {
	events := t.events
	t.events = nil
	return events
}

func (t *Transaction) record(name string) {
	t.events = append(t.events, newDomainEvent(name, t))
}

func (t *Transaction) touch() {
	t.updatedAt = now()
}

// Clone returns a detached deep copy. Pending events are not carried over.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.interactions = NewInteractionLog(t.interactions.items...)
	c.chargeInformation = t.ChargeInformation()
	c.previousTransactionID = t.PreviousTransactionID()
	c.events = nil
	return &c
}

// MergeCardUpload copies the outcome of a card upload performed on a detached
// clone back into t. Only the stored card reference and the interactions the
// upload appended are merged; status, code and reason stay as they are.
func (t *Transaction) MergeCardUpload(detached *Transaction, baseline int) {
	if detached == nil || detached.id != t.id {
		return
	}
	t.interactions.Append(detached.interactions.Since(baseline)...)
	if detached.cardHash != "" {
		t.cardHash = detached.cardHash
	}
	t.touch()
}

// RecordCardHash stores the biller's card reference returned by a card upload.
func (t *Transaction) RecordCardHash(hash string) {
	t.cardHash = hash
	t.touch()
}

// SpawnCrossSale creates a cross-sale charge sharing this transaction's session,
// payment and biller settings under a new id.
func (t *Transaction) SpawnCrossSale(siteID string, charge ChargeInformation) (*Transaction, error) {
	if t.kind != KindCharge {
		return nil, NewInvalidInformationError("transactionType", "cross-sales only spawn from charges")
	}
	if siteID == "" {
		return nil, NewMissingInformationError("siteId")
	}
	charge, err := NewChargeInformation(charge.Amount, charge.Currency, charge.Rebill)
	if err != nil {
		return nil, err
	}
	ts := now()
	x := &Transaction{
		id:                   uuid.New(),
		kind:                 KindCharge,
		sessionID:            t.sessionID,
		siteID:               siteID,
		status:               StatusPending,
		paymentType:          t.paymentType,
		paymentInformation:   t.paymentInformation,
		chargeInformation:    &charge,
		billerName:           t.billerName,
		billerChargeSettings: t.billerChargeSettings,
		with3D:               t.with3D,
		threedsVersion:       t.threedsVersion,
		createdAt:            ts,
		updatedAt:            ts,
	}
	x.record(EventTransactionCreated)
	return x, nil
}

// TransactionSnapshot is the exported state used to persist and rebuild a Transaction.
type TransactionSnapshot struct {
	ID                    uuid.UUID
	Kind                  TransactionKind
	SessionID             string
	SiteID                string
	Status                Status
	Code                  string
	Reason                string
	PaymentType           string
	PaymentInformation    PaymentInformation
	ChargeInformation     *ChargeInformation
	BillerName            BillerName
	BillerChargeSettings  BillerChargeSettings
	Interactions          []BillerInteraction
	With3D                bool
	ThreedsVersion        int
	IsNsf                 bool
	CardHash              string
	PreviousTransactionID *uuid.UUID
	PreviousTransaction   *Transaction
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (t *Transaction) Snapshot() TransactionSnapshot {
	return TransactionSnapshot{
		ID:                    t.id,
		Kind:                  t.kind,
		SessionID:             t.sessionID,
		SiteID:                t.siteID,
		Status:                t.status,
		Code:                  t.code,
		Reason:                t.reason,
		PaymentType:           t.paymentType,
		PaymentInformation:    t.paymentInformation,
		ChargeInformation:     t.ChargeInformation(),
		BillerName:            t.billerName,
		BillerChargeSettings:  t.billerChargeSettings,
		Interactions:          slices.Clone(t.interactions.items),
		With3D:                t.with3D,
		ThreedsVersion:        t.threedsVersion,
		IsNsf:                 t.isNsf,
		CardHash:              t.cardHash,
		PreviousTransactionID: t.PreviousTransactionID(),
		PreviousTransaction:   t.previousTransaction,
		CreatedAt:             t.createdAt,
		UpdatedAt:             t.updatedAt,
	}
}

// RestoreTransaction rebuilds a persisted transaction. No events are recorded.
func RestoreTransaction(s TransactionSnapshot) *Transaction {
	t := &Transaction{
		id:                    s.ID,
		kind:                  s.Kind,
		sessionID:             s.SessionID,
		siteID:                s.SiteID,
		status:                s.Status,
		code:                  s.Code,
		reason:                s.Reason,
		paymentType:           s.PaymentType,
		paymentInformation:    s.PaymentInformation,
		billerName:            s.BillerName,
		billerChargeSettings:  s.BillerChargeSettings,
		interactions:          NewInteractionLog(s.Interactions...),
		with3D:                s.With3D,
		threedsVersion:        s.ThreedsVersion,
		isNsf:                 s.IsNsf,
		cardHash:              s.CardHash,
		previousTransaction:   s.PreviousTransaction,
		createdAt:             s.CreatedAt,
		updatedAt:             s.UpdatedAt,
	}
	if s.ChargeInformation != nil {
		c := s.ChargeInformation.clone()
		t.chargeInformation = &c
	}
	if s.PreviousTransactionID != nil {
		id := *s.PreviousTransactionID
		t.previousTransactionID = &id
	}
	return t
}
