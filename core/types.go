/*
Package core provides the balance-transfer and consistency engine for the
canteen payment system.

PURPOSE:
  This package contains the domain types and algorithms that mutate student
  balances: identifier resolution, passkey verification, atomic top-up /
  purchase / withdrawal transfers, the reservation workflow, and the
  read-side reporting aggregator.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: two-decimal rounding built on decimal.Decimal
  - Transaction: An immutable ledger entry recording a balance change
  - AccountKey / TransactionID / RequestID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Ledger entries are never updated, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Atomicity: Balance write + ledger append commit as one unit
  4. Auditability: Every entry snapshots the account at transfer time

SEE ALSO:
  - engine.go: TopUp/Purchase/Withdraw transfer engine
  - ledger.go: Ledger read/replay helpers
  - store.go: Persistence interfaces
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Two-decimal currency amounts
// =============================================================================

// CreditLimit is the fixed debt ceiling: no purchase may push a balance
// below -CreditLimit.
var CreditLimit = decimal.NewFromInt(500)

// Round2 applies the system-wide rounding policy: two decimal places,
// applied per transfer step (never accumulated as floating error).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustMoney parses a decimal literal, returning zero on malformed input.
// Intended for constants and tests, not user input.
func MustMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// AccountKey is the stable primary key of a student account. It doubles as
// the payload encoded in the student's QR code.
type AccountKey string

type TransactionID string

type RequestID string

// =============================================================================
// TRANSACTION - Immutable ledger entry
// =============================================================================

type TransactionType string

const (
	TxTopup      TransactionType = "TOPUP"      // Balance increased (admin or resolved reservation)
	TxPurchase   TransactionType = "PURCHASE"   // Balance decreased at the point of sale
	TxWithdrawal TransactionType = "WITHDRAWAL" // Operator removed cash from the drawer
)

// Locations partition ledger entries for reporting. Free-form by contract,
// but these two cover every writer in the system.
const (
	LocationAdmin   = "ADMIN"
	LocationCanteen = "CANTEEN"
)

// Transaction is an append-only ledger entry. Amount is always the positive
// magnitude of the transfer; direction is implied by Type.
//
// StudentName/Grade/Section are denormalized snapshots taken at transfer
// time so historical reports stay stable across renames and edits.
// PreviousBalance/NewBalance are nil for WITHDRAWAL entries, which are not
// tied to any account.
type Transaction struct {
	ID          TransactionID
	StudentKey  AccountKey
	StudentName string
	Grade       string
	Section     string

	Type   TransactionType
	Amount decimal.Decimal

	PreviousBalance *decimal.Decimal
	NewBalance      *decimal.Decimal

	Location  string
	Timestamp time.Time // assigned server-side at commit, UTC
}

// Signed returns the delta this entry applies to its account's balance:
// positive for top-ups, negative for purchases. Withdrawals do not touch an
// account balance and contribute zero.
func (t Transaction) Signed() decimal.Decimal {
	switch t.Type {
	case TxTopup:
		return t.Amount
	case TxPurchase:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// =============================================================================
// NOTIFICATION - Reservation workflow side effects
// =============================================================================

type Notification struct {
	ID         string
	StudentKey AccountKey
	Title      string
	Message    string
	Read       bool
	Timestamp  time.Time
}
