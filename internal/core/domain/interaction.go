package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionRequest  InteractionType = "request"
	InteractionResponse InteractionType = "response"
)

// BillerInteraction is one raw payload exchanged with a biller, kept for audit and reconciliation.
type BillerInteraction struct {
	ID        uuid.UUID       `json:"id"`
	Type      InteractionType `json:"type"`
	Payload   string          `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewBillerInteraction(t InteractionType, payload string, createdAt time.Time) BillerInteraction {
	if createdAt.IsZero() {
		createdAt = now()
	}
	return BillerInteraction{
		ID:        uuid.New(),
		Type:      t,
		Payload:   payload,
		CreatedAt: createdAt.UTC(),
	}
}

// InteractionLog is the append-only audit trail of a transaction.
// Balanced request/response pairs are not enforced on append: a pending
// transaction may legitimately hold more requests than responses.
type InteractionLog struct {
	items []BillerInteraction
}

func NewInteractionLog(items ...BillerInteraction) InteractionLog {
	var l InteractionLog
	l.Append(items...)
	return l
}

func (l *InteractionLog) Append(items ...BillerInteraction) {
	l.items = append(l.items, items...)
}

func (l InteractionLog) Len() int {
	return len(l.items)
}

// All returns a copy of the log ordered by creation time, oldest first.
func (l InteractionLog) All() []BillerInteraction {
	out := slices.Clone(l.items)
	slices.SortStableFunc(out, func(a, b BillerInteraction) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (l InteractionLog) Requests() []BillerInteraction {
	return l.ofType(InteractionRequest)
}

func (l InteractionLog) Responses() []BillerInteraction {
	return l.ofType(InteractionResponse)
}

// IsBalanced reports whether the log holds as many requests as responses.
func (l InteractionLog) IsBalanced() bool {
	return BalancedInteractions(l.items)
}

// Since returns the interactions appended after the first n entries, in append order.
func (l InteractionLog) Since(n int) []BillerInteraction {
	if n >= len(l.items) {
		return nil
	}
	return slices.Clone(l.items[n:])
}

func (l InteractionLog) ofType(t InteractionType) []BillerInteraction {
	var out []BillerInteraction
	for _, i := range l.All() {
		if i.Type == t {
			out = append(out, i)
		}
	}
	return out
}

func BalancedInteractions(items []BillerInteraction) bool {
	var requests, responses int
	for _, i := range items {
		switch i.Type {
		case InteractionRequest:
			requests++
		case InteractionResponse:
			responses++
		}
	}
	return requests == responses
}
