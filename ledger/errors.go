/*
errors.go - Error types for the balance ledger

ERROR CATEGORIES:
  1. Business rule violations - state is left unchanged:
     ErrInvalidKey, ErrInvalidAmount, ErrDuplicateKey,
     ErrInsufficientBalance, ErrNoMatchingDebit
  2. Persistence failures - the operation did not happen:
     ErrPersistence

USAGE:
  _, err := l.Debit(ctx, key, amount, desc, actor)
  if errors.Is(err, ledger.ErrDuplicateKey) {
      // already debited; retrying with the same key is always safe
  }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidKey is returned when a debit or credit has no business key.
	ErrInvalidKey = errors.New("business key is required")

	// ErrInvalidAmount is returned when a debit amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrDuplicateKey is returned when the key already has an un-reversed debit.
	ErrDuplicateKey = errors.New("key already debited")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoMatchingDebit is returned when a credit finds nothing to reverse.
	ErrNoMatchingDebit = errors.New("no matching debit")

	// ErrPersistence is returned when the durable write did not complete.
	ErrPersistence = errors.New("ledger persistence failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateKeyError points at the debit that is still open for the key.
type DuplicateKeyError struct {
	Key          string
	ExistingTxID string
	Amount       decimal.Decimal
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("key %q already debited (tx: %s, amount %s)", e.Key, e.ExistingTxID, e.Amount.StringFixed(2))
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, shortfall %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// PersistenceError wraps the storage failure behind ErrPersistence.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true for business rule violations.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNoMatchingDebit)
}
