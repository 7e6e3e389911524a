// Package ledgererror defines the error taxonomy of the ledger engine.
//
// Sentinel errors name the failure kind and are matched with errors.Is.
// The struct types carry context (which source, which operation) and unwrap
// to their sentinel so callers never need to type-switch.
package ledgererror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrMissingCategory     = errors.New("category is required")
	ErrMissingSource       = errors.New("payment source is required")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSourceNotFound      = errors.New("payment source not found")
	ErrPersistence         = errors.New("persistence error")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrMissingReason       = errors.New("excuse reason is required")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDueNotFound         = errors.New("due not found")
	ErrDueClosed           = errors.New("due is already settled or excused")
	ErrPartialTransfer     = errors.New("transfer partially applied")
	ErrSameSource          = errors.New("transfer source and destination are the same")
	ErrMissingName         = errors.New("payment source name is required")
	ErrLinkedEntry         = errors.New("entry belongs to a due or transfer")
)

// ValidationError reports a request rejected before any mutation happened.
type ValidationError struct {
	Field string
	Value string
	Kind  error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Kind)
	}
	return fmt.Sprintf("validation failed for %s='%s': %v", e.Field, e.Value, e.Kind)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// MutationError reports a failed balance adjustment. Err is either
// ErrSourceNotFound or a wrapped store error joined with ErrPersistence.
type MutationError struct {
	SourceID string
	Op       string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s on source %s: %v", e.Op, e.SourceID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// TransactionError is the single consolidated failure of a ledger operation.
// It matches ErrTransactionFailed and also unwraps to the step that failed.
// CompensationErr is set when the compensating action itself failed, which
// leaves the source out of step with its transaction log until reconciled.
type TransactionError struct {
	Op              string
	SourceID        string
	Cause           error
	CompensationErr error
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("%v: %s on source %s: %v", ErrTransactionFailed, e.Op, e.SourceID, e.Cause)
	if e.CompensationErr != nil {
		msg += fmt.Sprintf(" (compensation failed: %v)", e.CompensationErr)
	}
	return msg
}

func (e *TransactionError) Unwrap() []error {
	errs := []error{ErrTransactionFailed}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.CompensationErr != nil {
		errs = append(errs, e.CompensationErr)
	}
	return errs
}

// Compensated reports whether the compensating action ran cleanly.
func (e *TransactionError) Compensated() bool {
	return e.CompensationErr == nil
}

// TransferError reports a transfer whose second leg failed after the first
// leg committed. The committed leg is not unwound.
type TransferError struct {
	FromID       string
	ToID         string
	CommittedLeg string
	Err          error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%v: %s -> %s, leg %s committed: %v",
		ErrPartialTransfer, e.FromID, e.ToID, e.CommittedLeg, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrPartialTransfer, e.Err}
}

// DueError reports a rejected or failed dues transition.
type DueError struct {
	DueID string
	Op    string
	Err   error
}

func (e *DueError) Error() string {
	return fmt.Sprintf("%s on due %s: %v", e.Op, e.DueID, e.Err)
}

func (e *DueError) Unwrap() error {
	return e.Err
}
