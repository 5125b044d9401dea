/*
account.go - Student account model

PURPOSE:
  One balance record per student. The account is the only mutable shared
  resource in the system; everything else is append-only or derived.

LOOKUP KEYS:
  Key       - primary key, unique, the document identity and QR payload
  StudentID - secondary fallback field; normally equals Key but diverges
              after a rename (the old id keeps resolving through it)
  LRN       - external 12-digit learner reference number, third fallback

DEFAULTS:
  Defaults are applied once at deserialization via Normalize(), never
  scattered through call sites: absent balance means zero, absent
  StudentID mirrors the primary key.

SEE ALSO:
  - resolver.go: Fallback lookup ordering
  - verify.go: PasskeyHash and lockout fields
*/
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the balance record for one student.
// PasskeyHash is write-only from the client's perspective: it is never
// serialized into API responses.
type Account struct {
	Key       AccountKey
	StudentID string
	LRN       string

	FullName string
	Grade    string
	Section  string

	PasskeyHash string

	Balance        decimal.Decimal
	AccountLocked  bool
	FailedAttempts int

	QRData    string
	CreatedAt time.Time
}

// GradeSection renders the display form used in ledger snapshots and
// reservation records.
func (a *Account) GradeSection() string {
	gs := strings.TrimSpace(a.Grade + " - " + a.Section)
	return strings.Trim(gs, " -")
}

// Normalize applies deserialization defaults so the rest of the code never
// branches on absent fields.
func (a *Account) Normalize() {
	if a.StudentID == "" {
		a.StudentID = string(a.Key)
	}
	if a.QRData == "" {
		a.QRData = QRDataFor(a.Key)
	}
}

// QRDataFor derives the scannable payload for a primary key. Regenerated
// whenever the key changes (see Engine.RenameAccount).
func QRDataFor(key AccountKey) string {
	return fmt.Sprintf("canteen:v1:%s", key)
}

// NormalizeIdentifier canonicalizes a caller-supplied identifier before
// resolution: trimmed and upper-cased, matching how keys are issued.
func NormalizeIdentifier(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}
