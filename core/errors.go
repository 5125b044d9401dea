/*
errors.go - Centralized error types for the payment core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Outer layers (HTTP handlers) map these to status codes without ever
  inspecting error strings.

ERROR CATEGORIES:
  1. Resolution errors  - Identifier resolves to nothing / duplicate key
  2. Authorization errors - Passkey mismatch, lockout, admin PIN
  3. Invariant errors   - Credit limit, reservation state machine
  4. Store errors       - Database-level failures

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, core.ErrCreditLimitExceeded) { ... }

    var pe *core.PasskeyError
    if errors.As(err, &pe) { show(pe.AttemptsLeft) }

SEE ALSO:
  - engine.go: Returns these from the transfer operations
  - reservation.go: State machine violations
*/
package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when no account matches a supplied identifier
	// through any of the resolver's fallback keys.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateID is returned when a create or rename would reuse an
	// existing primary key.
	ErrDuplicateID = errors.New("duplicate account id")

	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidPasskey is returned on a passkey mismatch. Wrapped by
	// PasskeyError which carries the attempts-remaining count.
	ErrInvalidPasskey = errors.New("invalid passkey")

	// ErrMalformedPasskey is returned when a passkey is not exactly four digits.
	ErrMalformedPasskey = errors.New("passkey must be 4 digits")

	// ErrAccountLocked is returned once failed attempts reach the lockout
	// threshold. Even a correct passkey is rejected until an admin unlocks.
	ErrAccountLocked = errors.New("account locked")

	// ErrCreditLimitExceeded is returned when a purchase would push the
	// balance below -CreditLimit. Wrapped by CreditLimitError.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")

	// ErrInvalidPin is returned when a withdrawal carries the wrong operator PIN.
	ErrInvalidPin = errors.New("invalid admin pin")

	// ErrMissingName is returned when account creation omits the student name.
	ErrMissingName = errors.New("full name is required")

	// ErrAlreadyResolved guards reservation idempotency: a RESOLVED request
	// can never be resolved again.
	ErrAlreadyResolved = errors.New("reservation already resolved")

	// ErrNotPending is returned when accepting a reservation that is not PENDING.
	ErrNotPending = errors.New("reservation is not pending")

	// ErrUnavailable is returned when the store cannot be reached. Partial
	// aggregate results are never returned alongside it.
	ErrUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CreditLimitError reports a rejected purchase with the balance math that
// rejected it. The transaction it aborted left no partial writes.
type CreditLimitError struct {
	Key       AccountKey
	Balance   decimal.Decimal
	Requested decimal.Decimal
	Limit     decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("credit limit exceeded: balance %s, requested %s, limit -%s",
		e.Balance, e.Requested, e.Limit)
}

func (e *CreditLimitError) Unwrap() error { return ErrCreditLimitExceeded }

// PasskeyError reports a mismatch with the number of attempts remaining
// before lockout.
type PasskeyError struct {
	Key          AccountKey
	AttemptsLeft int
}

func (e *PasskeyError) Error() string {
	return fmt.Sprintf("invalid passkey: %d attempts remaining", e.AttemptsLeft)
}

func (e *PasskeyError) Unwrap() error { return ErrInvalidPasskey }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing account or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether the error is due to invalid caller input or
// a business rule, as opposed to an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPasskey) ||
		errors.Is(err, ErrMalformedPasskey) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrCreditLimitExceeded) ||
		errors.Is(err, ErrInvalidPin) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrAlreadyResolved) ||
		errors.Is(err, ErrNotPending)
}
