package biller

import (
	"errors"
	"fmt"
)

// ErrBillerUnavailable is returned while the circuit breaker is rejecting calls.
var ErrBillerUnavailable = errors.New("biller unavailable")

type BillerError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *BillerError) Error() string {
	return fmt.Sprintf("biller error: %s (status: %d)", e.Message, e.StatusCode)
}

type errorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}
