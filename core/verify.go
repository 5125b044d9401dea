/*
verify.go - Passkey verification and lockout policy

PURPOSE:
  Compares a 4-digit passkey against the stored one-way hash and applies
  the lockout-after-failure policy. Consulted by Purchase (authorization)
  and by login.

HASH COST:
  bcrypt at MinCost. This is deliberate: the credential space is 4 digits
  and verification sits on the interactive POS path, so the original
  system traded hash hardness for scan latency. Raising the cost here
  changes that latency profile; do not without measuring.

LOCKOUT:
  failedAttempts increments on each mismatch; at 5 the account locks in
  the same write. Counter updates go through Store.UpdateLockout, a
  narrow write OUTSIDE the financial transaction. Concurrent mismatches
  may race the counter slightly; that is accepted (it only affects a
  defensive threshold, never money).

SEE ALSO:
  - engine.go: Purchase verifies before entering the atomic unit
  - store.go: UpdateLockout contract
*/
package core

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// MaxFailedAttempts is the lockout threshold.
const MaxFailedAttempts = 5

// DefaultPasskey is assigned at account creation when none is supplied.
const DefaultPasskey = "1234"

// Verifier checks passkeys and maintains the lockout counters.
type Verifier struct {
	Store Store
	Log   *logrus.Logger
}

func NewVerifier(store Store, log *logrus.Logger) *Verifier {
	if log == nil {
		log = logrus.New()
	}
	return &Verifier{Store: store, Log: log}
}

// ValidPasskey reports whether the supplied credential is exactly four digits.
func ValidPasskey(passkey string) bool {
	if len(passkey) != 4 {
		return false
	}
	for _, r := range passkey {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HashPasskey hashes a validated passkey. Returns ErrMalformedPasskey for
// anything that is not four digits.
func HashPasskey(passkey string) (string, error) {
	if !ValidPasskey(passkey) {
		return "", ErrMalformedPasskey
	}
	h, err := bcrypt.GenerateFromPassword([]byte(passkey), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify compares the supplied passkey against the account's hash.
//
// Returns nil on match, ErrAccountLocked when the account is locked (no
// comparison attempted), or a *PasskeyError on mismatch. Lockout counter
// updates are best-effort side writes; their failure is logged, not
// propagated, and the caller's error is unchanged by them.
func (v *Verifier) Verify(ctx context.Context, a *Account, passkey string) error {
	if a.AccountLocked {
		return ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasskeyHash), []byte(passkey)) == nil {
		if a.FailedAttempts > 0 {
			// Fire-and-forget reset. Racing a concurrent mismatch only
			// relaxes a defensive counter.
			a.FailedAttempts = 0
			if err := v.Store.UpdateLockout(ctx, a.Key, 0, false); err != nil {
				v.Log.WithFields(logrus.Fields{
					"student": a.Key,
				}).WithError(err).Warn("failed to reset lockout counter")
			}
		}
		return nil
	}

	a.FailedAttempts++
	if a.FailedAttempts >= MaxFailedAttempts {
		a.AccountLocked = true
	}
	if err := v.Store.UpdateLockout(ctx, a.Key, a.FailedAttempts, a.AccountLocked); err != nil {
		v.Log.WithFields(logrus.Fields{
			"student": a.Key,
		}).WithError(err).Warn("failed to record failed attempt")
	}

	left := MaxFailedAttempts - a.FailedAttempts
	if left < 0 {
		left = 0
	}
	return &PasskeyError{Key: a.Key, AttemptsLeft: left}
}
