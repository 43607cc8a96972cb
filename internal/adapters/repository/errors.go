package repository

import (
	"errors"
	"fmt"
)

var ErrMaxWriteAttemptsExceeded = errors.New("maximum write attempts exceeded")

// StoreError is returned when a write kept failing with transient errors until
// the attempt budget ran out. It matches both ErrMaxWriteAttemptsExceeded and
// the last underlying cause.
type StoreError struct {
	Collection string
	ID         string
	Attempts   int
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("write %s/%s failed after %d attempts: %v", e.Collection, e.ID, e.Attempts, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrMaxWriteAttemptsExceeded, e.Err}
}
