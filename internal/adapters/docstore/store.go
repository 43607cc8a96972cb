// Package docstore defines the document store the transaction repository writes to.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Document is a schemaless JSON object.
type Document map[string]any

// Snapshot is a document together with its key.
type Snapshot struct {
	ID   string
	Data Document
}

// Filter matches documents whose top-level Field equals Value.
type Filter struct {
	Field string
	Value any
}

type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// Store is an eventually consistent key/value document store. Writes are
// upserts; nothing is ever deleted.
type Store interface {
	// Get returns ErrNotFound when no document is stored under id.
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	// SetIf replaces an existing document only while its stored expect.Field
	// still equals expect.Value. A missing or diverged document yields
	// ErrPreconditionFailed and nothing is written.
	SetIf(ctx context.Context, collection, id string, doc Document, expect Filter) error
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
}

// Code classifies store failures the way the backing service reports them.
type Code string

const (
	CodeUnknown            Code = "unknown"
	CodeNotFound           Code = "not-found"
	CodeInvalidArgument    Code = "invalid-argument"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeUnavailable        Code = "unavailable"
	CodeDeadlineExceeded   Code = "deadline-exceeded"
	CodeResourceExhausted  Code = "resource-exhausted"
	CodeAborted            Code = "aborted"
	CodeInternal           Code = "internal"
)

var (
	ErrNotFound           = &Error{Code: CodeNotFound, Err: errors.New("document not found")}
	ErrPreconditionFailed = &Error{Code: CodeFailedPrecondition, Err: errors.New("stored document does not match")}
)

// Error carries the store's code for a failed operation.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("docstore %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("docstore %s %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works
// regardless of the operation that produced it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func NewError(op string, code Code, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the store code from err. Context expiry maps to deadline-exceeded.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeDeadlineExceeded
	}
	return CodeUnknown
}

// IsTransient reports whether a write that failed with code may succeed if retried.
func IsTransient(code Code) bool {
	switch code {
	case CodeUnavailable, CodeDeadlineExceeded, CodeResourceExhausted, CodeAborted, CodeInternal:
		return true
	default:
		return false
	}
}
