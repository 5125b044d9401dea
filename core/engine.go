/*
engine.go - Balance transfer engine

PURPOSE:
  Implements every operation that mutates a student balance: TopUp,
  Purchase, Withdraw, plus the account lifecycle (create, rename, delete,
  passkey update, unlock). Each transfer runs as one atomic unit: the
  balance write and the ledger append commit together or not at all.

TRANSFER FLOW:
  request ──▶ resolve identifier ──▶ verify passkey (Purchase only)
          ──▶ WithTx { re-read account, compute, write + append }
          ──▶ emit event (after commit, never before)

INVARIANTS:
  1. balance >= -CreditLimit after every Purchase (checked in-transaction)
  2. No partial writes: a rejected transfer leaves balance AND ledger untouched
  3. Transaction closures re-read state through the transactional view,
     so store-level retries cannot lose concurrent updates
  4. TopUp and reservation resolution only ever increase a balance

PURCHASE AUTHORIZATION:
  Passkey verification happens BEFORE the atomic unit. Verification is
  read-only on match, and its lockout counter writes are deliberately
  outside the retried transaction (see verify.go), so re-hashing on every
  store retry would buy nothing and cost latency.

SEE ALSO:
  - reservation.go: Drives applyTopUp from the resolve transition
  - store.go: WithTx contract
*/
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine executes balance transfers against a transactional store.
// AdminPIN authorizes cash withdrawals; an empty PIN disables them.
type Engine struct {
	Store    TxStore
	Verifier *Verifier
	Events   EventSink
	Log      *logrus.Logger
	AdminPIN string

	// Now is the commit-timestamp clock. Overridable in tests.
	Now func() time.Time
}

func NewEngine(store TxStore, events EventSink, log *logrus.Logger) *Engine {
	if events == nil {
		events = NopSink{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		Store:    store,
		Verifier: NewVerifier(store, log),
		Events:   events,
		Log:      log,
		Now:      time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// newLedgerEntry snapshots the account into an immutable ledger entry.
func (e *Engine) newLedgerEntry(a *Account, typ TransactionType, amount decimal.Decimal, prev, next *decimal.Decimal, location string) Transaction {
	return Transaction{
		ID:              TransactionID(uuid.NewString()),
		StudentKey:      a.Key,
		StudentName:     a.FullName,
		Grade:           a.Grade,
		Section:         a.Section,
		Type:            typ,
		Amount:          Round2(amount),
		PreviousBalance: prev,
		NewBalance:      next,
		Location:        location,
		Timestamp:       e.now(),
	}
}

// =============================================================================
// TOP-UP
// =============================================================================

// TopUp credits an account and appends a TOPUP ledger entry atomically.
func (e *Engine) TopUp(ctx context.Context, identifier string, amount decimal.Decimal, location string) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if location == "" {
		location = LocationAdmin
	}

	var out *Transaction
	err := e.Store.WithTx(ctx, func(s Store) error {
		a, err := ResolveAccount(ctx, s, identifier)
		if err != nil {
			return err
		}
		tx, err := e.applyTopUp(ctx, s, a, amount, location)
		if err != nil {
			return err
		}
		out = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"operation": "topup",
		"student":   out.StudentKey,
		"amount":    out.Amount,
		"balance":   out.NewBalance,
	}).Info("balance credited")
	e.Events.Emit(EventBalanceUpdate, map[string]any{
		"studentKey": out.StudentKey,
		"balance":    out.NewBalance,
	})
	return out, nil
}

// applyTopUp performs the credit against an account already read under the
// caller's transaction. Shared with reservation resolution so both paths
// produce identical ledger entries.
func (e *Engine) applyTopUp(ctx context.Context, s Store, a *Account, amount decimal.Decimal, location string) (*Transaction, error) {
	prev := a.Balance
	next := Round2(prev.Add(amount))

	a.Balance = next
	if err := s.PutAccount(ctx, a); err != nil {
		return nil, err
	}

	tx := e.newLedgerEntry(a, TxTopup, amount, &prev, &next, location)
	if err := s.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// PURCHASE
// =============================================================================

// Purchase debits an account after passkey authorization, enforcing the
// credit-limit invariant inside the atomic unit.
func (e *Engine) Purchase(ctx context.Context, identifier string, amount decimal.Decimal, passkey string) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	// Authorize before entering the retryable unit. A mismatch or lockout
	// never touches the balance.
	a, err := ResolveAccount(ctx, e.Store, identifier)
	if err != nil {
		return nil, err
	}
	if err := e.Verifier.Verify(ctx, a, passkey); err != nil {
		return nil, err
	}

	var out *Transaction
	err = e.Store.WithTx(ctx, func(s Store) error {
		// Re-read under the transaction; the pre-authorization read may be stale.
		cur, err := s.GetAccount(ctx, a.Key)
		if err != nil {
			return err
		}
		if cur.AccountLocked {
			return ErrAccountLocked
		}

		prev := cur.Balance
		next := Round2(prev.Sub(amount))
		if next.LessThan(CreditLimit.Neg()) {
			return &CreditLimitError{Key: cur.Key, Balance: prev, Requested: amount, Limit: CreditLimit}
		}

		cur.Balance = next
		if err := s.PutAccount(ctx, cur); err != nil {
			return err
		}

		tx := e.newLedgerEntry(cur, TxPurchase, amount, &prev, &next, LocationCanteen)
		if err := s.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		out = &tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"operation": "purchase",
		"student":   out.StudentKey,
		"amount":    out.Amount,
		"balance":   out.NewBalance,
	}).Info("balance debited")
	e.Events.Emit(EventBalanceUpdate, map[string]any{
		"studentKey": out.StudentKey,
		"balance":    out.NewBalance,
	})
	return out, nil
}

// =============================================================================
// WITHDRAWAL
// =============================================================================

// Withdraw records an operator cash withdrawal. It is not tied to any
// account: the entry carries no balance snapshots and only affects the
// derived cash-on-hand aggregate. Cash-on-hand going negative is a
// reporting anomaly, not an error.
func (e *Engine) Withdraw(ctx context.Context, amount decimal.Decimal, adminPin string) (*Transaction, error) {
	if e.AdminPIN == "" || adminPin != e.AdminPIN {
		return nil, ErrInvalidPin
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	tx := Transaction{
		ID:        TransactionID(uuid.NewString()),
		Type:      TxWithdrawal,
		Amount:    Round2(amount),
		Location:  LocationAdmin,
		Timestamp: e.now(),
	}
	err := e.Store.WithTx(ctx, func(s Store) error {
		return s.AppendTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"operation": "withdrawal",
		"amount":    tx.Amount,
	}).Info("cash withdrawn")
	return &tx, nil
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

type CreateAccountInput struct {
	ID       string // optional; generated when empty
	FullName string
	Grade    string
	Section  string
	Passkey  string // optional; DefaultPasskey when empty
	LRN      string // optional external 12-digit reference
}

// CreateAccount registers a student with a zero balance. The primary key
// is generated when the caller supplies none, and the duplicate check
// happens inside the same transaction as the write.
func (e *Engine) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, ErrMissingName
	}

	passkey := in.Passkey
	if passkey == "" {
		passkey = DefaultPasskey
	}
	hash, err := HashPasskey(passkey)
	if err != nil {
		return nil, err
	}

	key := NormalizeIdentifier(in.ID)
	if key == "" {
		key = newAccountKey()
	}

	a := &Account{
		Key:         AccountKey(key),
		StudentID:   key,
		LRN:         strings.TrimSpace(in.LRN),
		FullName:    name,
		Grade:       strings.TrimSpace(in.Grade),
		Section:     strings.TrimSpace(in.Section),
		PasskeyHash: hash,
		Balance:     decimal.Zero,
		QRData:      QRDataFor(AccountKey(key)),
		CreatedAt:   e.now(),
	}

	err = e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, a.Key); err == nil {
			return fmt.Errorf("key %q: %w", key, ErrDuplicateID)
		} else if !IsNotFound(err) {
			return err
		}
		return s.PutAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"operation": "create",
		"student":   a.Key,
	}).Info("account created")
	e.Events.Emit(EventStudentCreated, map[string]any{
		"studentKey": a.Key,
		"fullName":   a.FullName,
	})
	return a, nil
}

// RenameAccount moves an account to a new primary key as one atomic unit:
// read old, write new, delete old. Fails entirely (no new key created) if
// the target exists. The secondary StudentID keeps its old value so the
// previous identifier still resolves through the fallback chain, and the
// QR payload is regenerated for the new key.
func (e *Engine) RenameAccount(ctx context.Context, oldKey, newKey string) (*Account, error) {
	ok := NormalizeIdentifier(oldKey)
	nk := NormalizeIdentifier(newKey)
	if nk == "" || nk == ok {
		return nil, fmt.Errorf("new key %q: %w", newKey, ErrDuplicateID)
	}

	var moved *Account
	err := e.Store.WithTx(ctx, func(s Store) error {
		old, err := s.GetAccount(ctx, AccountKey(ok))
		if err != nil {
			return err
		}
		if _, err := s.GetAccount(ctx, AccountKey(nk)); err == nil {
			return fmt.Errorf("key %q: %w", nk, ErrDuplicateID)
		} else if !IsNotFound(err) {
			return err
		}

		next := *old
		next.Key = AccountKey(nk)
		next.QRData = QRDataFor(next.Key)
		if err := s.PutAccount(ctx, &next); err != nil {
			return err
		}
		if err := s.DeleteAccount(ctx, old.Key); err != nil {
			return err
		}
		moved = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Events.Emit(EventStudentDeleted, map[string]any{"studentKey": AccountKey(ok)})
	e.Events.Emit(EventStudentCreated, map[string]any{
		"studentKey": moved.Key,
		"fullName":   moved.FullName,
	})
	return moved, nil
}

// DeleteAccount removes a student record. Ledger entries survive: history
// is never rewritten.
func (e *Engine) DeleteAccount(ctx context.Context, key string) error {
	k := AccountKey(NormalizeIdentifier(key))
	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, k); err != nil {
			return err
		}
		return s.DeleteAccount(ctx, k)
	})
	if err != nil {
		return err
	}
	e.Events.Emit(EventStudentDeleted, map[string]any{"studentKey": k})
	return nil
}

// UpdatePasskey re-hashes the credential and clears any lockout in the
// same write.
func (e *Engine) UpdatePasskey(ctx context.Context, identifier, newPasskey string) error {
	hash, err := HashPasskey(newPasskey)
	if err != nil {
		return err
	}
	return e.Store.WithTx(ctx, func(s Store) error {
		a, err := ResolveAccount(ctx, s, identifier)
		if err != nil {
			return err
		}
		a.PasskeyHash = hash
		a.FailedAttempts = 0
		a.AccountLocked = false
		return s.PutAccount(ctx, a)
	})
}

// UnlockAccount is the admin override for a locked-out student.
func (e *Engine) UnlockAccount(ctx context.Context, identifier string) error {
	a, err := ResolveAccount(ctx, e.Store, identifier)
	if err != nil {
		return err
	}
	return e.Store.UpdateLockout(ctx, a.Key, 0, false)
}

// VerifyPasskey resolves and authorizes in one call; the login path.
// On success the caller receives the account record (handlers strip the
// hash before serializing).
func (e *Engine) VerifyPasskey(ctx context.Context, identifier, passkey string) (*Account, error) {
	a, err := ResolveAccount(ctx, e.Store, identifier)
	if err != nil {
		return nil, err
	}
	if err := e.Verifier.Verify(ctx, a, passkey); err != nil {
		return nil, err
	}
	return a, nil
}

func newAccountKey() string {
	return "S-" + strings.ToUpper(uuid.NewString()[:8])
}
