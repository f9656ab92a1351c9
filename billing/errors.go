/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Policy violations - mutating a locked invoice, duplicate non-cancelled
     invoices for the same contract/month. These fail loudly.
  2. Data errors - malformed or missing required fields encountered
     mid-computation. These fail the single record, never the whole batch.
  3. Not-found errors - missing referenced entities.

Advisory conditions are NOT errors; they are Warning values attached to the
invoice by the validation engine.

SEE ALSO:
  - generator.go: raises policy violations
  - store.go: stores surface ErrDuplicateBilling from the uniqueness constraint
*/
package billing

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBillingLocked is returned for any mutation attempt on a locked
	// invoice. Locked is terminal and immutable.
	ErrBillingLocked = errors.New("billing is locked")

	// ErrDuplicateBilling is returned when a second non-cancelled invoice
	// would exist for the same contract, year, and month.
	ErrDuplicateBilling = errors.New("duplicate billing for contract and month")

	// ErrInvalidTransition is returned for a lifecycle transition the state
	// machine does not allow (e.g. locking a draft).
	ErrInvalidTransition = errors.New("invalid billing status transition")

	// ErrInvalidRecord is returned when a contract or invoice is missing a
	// required field mid-computation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrContractNotFound is returned when a referenced contract doesn't exist.
	ErrContractNotFound = errors.New("contract not found")

	// ErrBillingNotFound is returned when a referenced invoice doesn't exist.
	ErrBillingNotFound = errors.New("billing not found")

	// ErrCompanyNotFound is returned when a referenced company doesn't exist.
	ErrCompanyNotFound = errors.New("company not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LockedError reports a rejected mutation on a locked invoice.
type LockedError struct {
	BillingID BillingID
	LockedBy  string
	LockedAt  *time.Time
}

func (e *LockedError) Error() string {
	if e.LockedBy != "" {
		return fmt.Sprintf("billing %s is locked by %s", e.BillingID, e.LockedBy)
	}
	return fmt.Sprintf("billing %s is locked", e.BillingID)
}

func (e *LockedError) Unwrap() error { return ErrBillingLocked }

// DuplicateBillingError reports a duplicate non-cancelled invoice.
type DuplicateBillingError struct {
	ContractID ContractID
	Year       int
	Month      int
	ExistingID BillingID
}

func (e *DuplicateBillingError) Error() string {
	return fmt.Sprintf("billing already exists for contract %s in %d-%02d (existing: %s)",
		e.ContractID, e.Year, e.Month, e.ExistingID)
}

func (e *DuplicateBillingError) Unwrap() error { return ErrDuplicateBilling }

// TransitionError reports a disallowed lifecycle transition.
type TransitionError struct {
	BillingID BillingID
	From      BillingStatus
	To        BillingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("billing %s: cannot transition from %s to %s", e.BillingID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// RecordError reports a malformed field on a single record. Batch generation
// records it and continues with the remaining contracts.
type RecordError struct {
	ContractID ContractID
	Field      string
	Reason     string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("contract %s: invalid %s: %s", e.ContractID, e.Field, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrInvalidRecord }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input or a
// policy violation rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBillingLocked) ||
		errors.Is(err, ErrDuplicateBilling) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidRecord)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrBillingNotFound) ||
		errors.Is(err, ErrCompanyNotFound)
}
