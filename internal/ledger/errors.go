package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input (empty title, bad cost).
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeInvalidDifficulty indicates an unknown difficulty tier.
	ErrCodeInvalidDifficulty ErrorCode = "INVALID_DIFFICULTY"

	// ErrCodeCoinSplit indicates distributed subtask coins do not add up to
	// the parent's tier reward.
	ErrCodeCoinSplit ErrorCode = "COIN_SPLIT_MISMATCH"

	// ErrCodeInvalidRecurrence indicates an unusable recurrence rule.
	ErrCodeInvalidRecurrence ErrorCode = "INVALID_RECURRENCE"

	// ErrCodeInsufficientFunds indicates the balance cannot cover a cost.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
)

// Error is returned when an operation is rejected before any mutation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID identifies the affected entity, when there is one.
	ID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (id=%s)", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is any rejected-input ledger error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var le *Error
	return errors.As(err, &le)
}

// IsInsufficientFunds reports whether err rejected a spend for lack of coins.
func IsInsufficientFunds(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == ErrCodeInsufficientFunds
	}
	return false
}

// CodeOf returns the code of a ledger error, or "" for other errors.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func validationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func insufficientFunds(id string, cost, balance int) *Error {
	return &Error{
		Code:    ErrCodeInsufficientFunds,
		Message: fmt.Sprintf("costs %d coins, balance is %d", cost, balance),
		ID:      id,
	}
}
