/*
store.go - Persistence interfaces for accounts, ledger, reservations

PURPOSE:
  Defines the interface between the domain logic and the database. The
  design targets an abstract transactional document store: point lookups
  by key, indexed field-equality queries, range scans, and multi-document
  atomic transactions.

KEY INTERFACES:
  Store:   Point lookups, field queries, writes, ledger append/scan
  TxStore: Store plus WithTx for atomic multi-document units

APPEND-ONLY CONTRACT:
  The ledger has Append and read methods only. No update, no delete.
  Balance history is always reconstructible by replaying entries.

TRANSACTIONS:
  WithTx executes a closure against a transactional view of the store.
  The closure MUST re-read any state it mutates through that view, never
  from variables captured before entry: the store may retry the closure
  on conflict, and a stale capture is a lost update.

LOCKOUT SIDE PATH:
  UpdateLockout is a narrow write touching only the failed-attempts
  counter and lock flag. It deliberately bypasses WithTx so defensive
  bookkeeping never contends with financial transfers, and it must never
  write the balance field.

IMPLEMENTATIONS:
  - core/store/memory.go: In-memory, mutex + snapshot rollback
  - store/sqlite/sqlite.go: SQLite with WAL and immediate transactions

SEE ALSO:
  - engine.go: The only writer of accounts and ledger entries
  - report.go: Read-only consumer of the scan methods
*/
package core

import (
	"context"
	"time"
)

// Store is the document-store capability surface used by the engine.
type Store interface {
	// --- Accounts ---

	// GetAccount is a point lookup by primary key. Returns ErrNotFound.
	GetAccount(ctx context.Context, key AccountKey) (*Account, error)

	// FindAccountByStudentID is a field-equality query on the secondary id,
	// limit 1. The field is not guaranteed unique; implementations must
	// break ties deterministically by earliest CreatedAt, then key.
	FindAccountByStudentID(ctx context.Context, studentID string) (*Account, error)

	// FindAccountByLRN is a field-equality query on the LRN, limit 1.
	// Same tie-break as FindAccountByStudentID.
	FindAccountByLRN(ctx context.Context, lrn string) (*Account, error)

	// PutAccount upserts the full account record.
	PutAccount(ctx context.Context, a *Account) error

	// DeleteAccount removes the record. Returns ErrNotFound if absent.
	DeleteAccount(ctx context.Context, key AccountKey) error

	// ListAccounts returns all accounts. Used by reporting scans.
	ListAccounts(ctx context.Context) ([]*Account, error)

	// UpdateLockout writes only the lockout fields (see file header).
	UpdateLockout(ctx context.Context, key AccountKey, failedAttempts int, locked bool) error

	// --- Ledger (append-only) ---

	// AppendTransaction adds one immutable ledger entry.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// Transactions returns entries newest-first. limit <= 0 means all.
	Transactions(ctx context.Context, limit int) ([]Transaction, error)

	// TransactionsByStudent returns one account's entries newest-first.
	TransactionsByStudent(ctx context.Context, key AccountKey, limit int) ([]Transaction, error)

	// TransactionsInRange returns entries with from <= Timestamp < to,
	// oldest-first. Used by the reporting aggregator.
	TransactionsInRange(ctx context.Context, from, to time.Time) ([]Transaction, error)

	// --- Reservations ---

	PutRequest(ctx context.Context, r *TopupRequest) error
	GetRequest(ctx context.Context, id RequestID) (*TopupRequest, error)

	// ListRequests filters by status; empty status means all. Newest-first.
	ListRequests(ctx context.Context, status RequestStatus) ([]*TopupRequest, error)

	// --- Notifications ---

	PutNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	NotificationsByStudent(ctx context.Context, key AccountKey) ([]*Notification, error)
}

// TxStore wraps Store with atomic multi-document transactions.
//
// If fn returns an error the unit is rolled back; nothing is partially
// applied. Implementations may invoke fn more than once on conflict, so fn
// must be pure apart from writes through its Store argument.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
