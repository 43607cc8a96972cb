package domain

import "time"

// BillerResponse is what a biller adapter reports back for a single call.
type BillerResponse interface {
	Code() string
	Reason() string

	Approved() bool
	Declined() bool
	Pending() bool
	Aborted() bool

	ShouldRetryWithThreeD() bool
	ShouldRetryWithoutThreeD() bool
	IsNsfTransaction() bool

	RequestPayload() string
	ResponsePayload() string
	RequestDate() time.Time
	ResponseDate() time.Time
}

// LookupResponse is the outcome of the 3DS2 lookup step.
type LookupResponse interface {
	BillerResponse
	ThreeDsAuthIsRequired() bool
	ThreedsVersion() int
}

// CardHashProvider is implemented by card upload responses that return a stored card reference.
type CardHashProvider interface {
	CardHash() string
}

// resultingStatus maps a definitive response to the status it leads to.
// Pending responses and bare retry signals are not definitive. A declined or
// aborted response that also carries a retry signal is still definitive: the
// charge service acts on retry signals before it applies a response, so a
// signal that reaches this point was either already spent or not honoured.
func resultingStatus(r BillerResponse) (Status, bool) {
	if r.Pending() {
		return StatusPending, false
	}
	switch {
	case r.Approved():
		return StatusApproved, true
	case r.Declined():
		return StatusDeclined, true
	case r.Aborted():
		return StatusAborted, true
	}
	return StatusPending, false
}
