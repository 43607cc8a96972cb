package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeIllegalTransition           = "INVALID_TRANSITION"
	ErrCodeMissingInformation          = "MISSING_INFORMATION"
	ErrCodeInvalidInformation          = "INVALID_INFORMATION"
	ErrCodeTransactionNotFound         = "TRANSACTION_NOT_FOUND"
	ErrCodePreviousTransactionNotFound = "PREVIOUS_TRANSACTION_NOT_FOUND"
	ErrCodeStatusChanged               = "STATUS_CHANGED"
)

func NewIllegalTransitionError(from, to Status) *DomainError {
	return &DomainError{
		Code:    ErrCodeIllegalTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewMissingInformationError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingInformation,
		Message: fmt.Sprintf("missing information: %s", field),
		Field:   field,
	}
}

func NewInvalidInformationError(field string, reason string) *DomainError {
	msg := fmt.Sprintf("invalid information: %s", field)
	if reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, reason)
	}
	return &DomainError{
		Code:    ErrCodeInvalidInformation,
		Message: msg,
		Field:   field,
	}
}

func NewTransactionNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionNotFound,
		Message: fmt.Sprintf("transaction with ID %s not found", id),
	}
}

func NewPreviousTransactionNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePreviousTransactionNotFound,
		Message: fmt.Sprintf("previous transaction with ID %s not found", id),
	}
}

// NewStatusChangedError reports that a conditional write found the stored
// transaction no longer in the expected status.
func NewStatusChangedError(id string, expected Status) *DomainError {
	return &DomainError{
		Code:    ErrCodeStatusChanged,
		Message: fmt.Sprintf("transaction %s is no longer %s", id, expected),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsValidationError reports whether err is caller-fixable missing or invalid information.
func IsValidationError(err error) bool {
	return IsErrorCode(err, ErrCodeMissingInformation) || IsErrorCode(err, ErrCodeInvalidInformation)
}

// IsNotFound reports whether err is a transaction or previous-transaction lookup miss.
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeTransactionNotFound) || IsErrorCode(err, ErrCodePreviousTransactionNotFound)
}
