// Package store provides the in-memory TxStore implementation.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lunchbox/canteen-core/core"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds everything under one mutex. WithTx keeps the lock for the
// whole closure, which makes concurrent units serializable - the same
// guarantee the SQLite store gets from immediate transactions.
//
// All reads return copies so a caller mutating a returned record cannot
// bypass PutAccount or corrupt a pending rollback snapshot.
type Memory struct {
	mu            sync.Mutex
	accounts      map[core.AccountKey]core.Account
	transactions  []core.Transaction
	requests      map[core.RequestID]core.TopupRequest
	notifications map[string]core.Notification
}

func NewMemory() *Memory {
	return &Memory{
		accounts:      make(map[core.AccountKey]core.Account),
		requests:      make(map[core.RequestID]core.TopupRequest),
		notifications: make(map[string]core.Notification),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) GetAccount(ctx context.Context, key core.AccountKey) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAccountLocked(key)
}

func (m *Memory) getAccountLocked(key core.AccountKey) (*core.Account, error) {
	a, ok := m.accounts[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := a
	cp.Normalize()
	return &cp, nil
}

func (m *Memory) FindAccountByStudentID(ctx context.Context, studentID string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(func(a core.Account) bool { return a.StudentID == studentID })
}

func (m *Memory) FindAccountByLRN(ctx context.Context, lrn string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(func(a core.Account) bool { return a.LRN != "" && a.LRN == lrn })
}

// findLocked scans all accounts and applies the deterministic tie-break:
// earliest CreatedAt wins, then lexicographic key.
func (m *Memory) findLocked(match func(core.Account) bool) (*core.Account, error) {
	var best *core.Account
	for _, a := range m.accounts {
		if !match(a) {
			continue
		}
		cp := a
		if best == nil ||
			cp.CreatedAt.Before(best.CreatedAt) ||
			(cp.CreatedAt.Equal(best.CreatedAt) && cp.Key < best.Key) {
			best = &cp
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	best.Normalize()
	return best, nil
}

func (m *Memory) PutAccount(ctx context.Context, a *core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putAccountLocked(a)
}

func (m *Memory) putAccountLocked(a *core.Account) error {
	m.accounts[a.Key] = *a
	return nil
}

func (m *Memory) DeleteAccount(ctx context.Context, key core.AccountKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAccountLocked(key)
}

func (m *Memory) deleteAccountLocked(key core.AccountKey) error {
	if _, ok := m.accounts[key]; !ok {
		return core.ErrNotFound
	}
	delete(m.accounts, key)
	return nil
}

func (m *Memory) ListAccounts(ctx context.Context) ([]*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAccountsLocked()
}

func (m *Memory) listAccountsLocked() ([]*core.Account, error) {
	out := make([]*core.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		cp := a
		cp.Normalize()
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) UpdateLockout(ctx context.Context, key core.AccountKey, failedAttempts int, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLockoutLocked(key, failedAttempts, locked)
}

func (m *Memory) updateLockoutLocked(key core.AccountKey, failedAttempts int, locked bool) error {
	a, ok := m.accounts[key]
	if !ok {
		return core.ErrNotFound
	}
	a.FailedAttempts = failedAttempts
	a.AccountLocked = locked
	m.accounts[key] = a
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Memory) appendLocked(tx core.Transaction) error {
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *Memory) Transactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactionsLocked(nil, limit), nil
}

func (m *Memory) TransactionsByStudent(ctx context.Context, key core.AccountKey, limit int) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactionsLocked(func(tx core.Transaction) bool { return tx.StudentKey == key }, limit), nil
}

// transactionsLocked returns newest-first (reverse append order).
func (m *Memory) transactionsLocked(match func(core.Transaction) bool, limit int) []core.Transaction {
	out := []core.Transaction{}
	for i := len(m.transactions) - 1; i >= 0; i-- {
		tx := m.transactions[i]
		if match != nil && !match(tx) {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (m *Memory) TransactionsInRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeLocked(from, to), nil
}

func (m *Memory) rangeLocked(from, to time.Time) []core.Transaction {
	out := []core.Transaction{}
	for _, tx := range m.transactions {
		if !tx.Timestamp.Before(from) && tx.Timestamp.Before(to) {
			out = append(out, tx)
		}
	}
	return out
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (m *Memory) PutRequest(ctx context.Context, r *core.TopupRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRequestLocked(r)
}

func (m *Memory) putRequestLocked(r *core.TopupRequest) error {
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) GetRequest(ctx context.Context, id core.RequestID) (*core.TopupRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRequestLocked(id)
}

func (m *Memory) getRequestLocked(id core.RequestID) (*core.TopupRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (m *Memory) ListRequests(ctx context.Context, status core.RequestStatus) ([]*core.TopupRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequestsLocked(status)
}

func (m *Memory) listRequestsLocked(status core.RequestStatus) ([]*core.TopupRequest, error) {
	out := []*core.TopupRequest{}
	for _, r := range m.requests {
		if status != "" && r.Status != status {
			continue
		}
		cp := r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (m *Memory) PutNotification(ctx context.Context, n *core.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putNotificationLocked(n)
}

func (m *Memory) putNotificationLocked(n *core.Notification) error {
	m.notifications[n.ID] = *n
	return nil
}

func (m *Memory) GetNotification(ctx context.Context, id string) (*core.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getNotificationLocked(id)
}

func (m *Memory) getNotificationLocked(id string) (*core.Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := n
	return &cp, nil
}

func (m *Memory) NotificationsByStudent(ctx context.Context, key core.AccountKey) ([]*core.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsLocked(key)
}

func (m *Memory) notificationsLocked(key core.AccountKey) ([]*core.Notification, error) {
	out := []*core.Notification{}
	for _, n := range m.notifications {
		if n.StudentKey != key {
			continue
		}
		cp := n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// =============================================================================
// TRANSACTIONS (WithTx)
// =============================================================================

// WithTx executes fn while holding the store lock. The closure sees a view
// whose writes apply immediately; on error the pre-transaction snapshot is
// restored, so the unit is all-or-nothing. Because the lock is held for
// the whole closure, concurrent units serialize.
func (m *Memory) WithTx(ctx context.Context, fn func(core.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts      map[core.AccountKey]core.Account
	transactions  []core.Transaction
	requests      map[core.RequestID]core.TopupRequest
	notifications map[string]core.Notification
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		accounts:      make(map[core.AccountKey]core.Account, len(m.accounts)),
		transactions:  append([]core.Transaction{}, m.transactions...),
		requests:      make(map[core.RequestID]core.TopupRequest, len(m.requests)),
		notifications: make(map[string]core.Notification, len(m.notifications)),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.requests {
		s.requests[k] = v
	}
	for k, v := range m.notifications {
		s.notifications[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.transactions = s.transactions
	m.requests = s.requests
	m.notifications = s.notifications
}

// txView delegates to the parent's locked methods; the parent lock is held
// by WithTx for the closure's whole lifetime.
type txView struct {
	parent *Memory
}

func (tv *txView) GetAccount(_ context.Context, key core.AccountKey) (*core.Account, error) {
	return tv.parent.getAccountLocked(key)
}

func (tv *txView) FindAccountByStudentID(_ context.Context, studentID string) (*core.Account, error) {
	return tv.parent.findLocked(func(a core.Account) bool { return a.StudentID == studentID })
}

func (tv *txView) FindAccountByLRN(_ context.Context, lrn string) (*core.Account, error) {
	return tv.parent.findLocked(func(a core.Account) bool { return a.LRN != "" && a.LRN == lrn })
}

func (tv *txView) PutAccount(_ context.Context, a *core.Account) error {
	return tv.parent.putAccountLocked(a)
}

func (tv *txView) DeleteAccount(_ context.Context, key core.AccountKey) error {
	return tv.parent.deleteAccountLocked(key)
}

func (tv *txView) ListAccounts(_ context.Context) ([]*core.Account, error) {
	return tv.parent.listAccountsLocked()
}

func (tv *txView) UpdateLockout(_ context.Context, key core.AccountKey, failedAttempts int, locked bool) error {
	return tv.parent.updateLockoutLocked(key, failedAttempts, locked)
}

func (tv *txView) AppendTransaction(_ context.Context, tx core.Transaction) error {
	return tv.parent.appendLocked(tx)
}

func (tv *txView) Transactions(_ context.Context, limit int) ([]core.Transaction, error) {
	return tv.parent.transactionsLocked(nil, limit), nil
}

func (tv *txView) TransactionsByStudent(_ context.Context, key core.AccountKey, limit int) ([]core.Transaction, error) {
	return tv.parent.transactionsLocked(func(tx core.Transaction) bool { return tx.StudentKey == key }, limit), nil
}

func (tv *txView) TransactionsInRange(_ context.Context, from, to time.Time) ([]core.Transaction, error) {
	return tv.parent.rangeLocked(from, to), nil
}

func (tv *txView) PutRequest(_ context.Context, r *core.TopupRequest) error {
	return tv.parent.putRequestLocked(r)
}

func (tv *txView) GetRequest(_ context.Context, id core.RequestID) (*core.TopupRequest, error) {
	return tv.parent.getRequestLocked(id)
}

func (tv *txView) ListRequests(_ context.Context, status core.RequestStatus) ([]*core.TopupRequest, error) {
	return tv.parent.listRequestsLocked(status)
}

func (tv *txView) PutNotification(_ context.Context, n *core.Notification) error {
	return tv.parent.putNotificationLocked(n)
}

func (tv *txView) GetNotification(_ context.Context, id string) (*core.Notification, error) {
	return tv.parent.getNotificationLocked(id)
}

func (tv *txView) NotificationsByStudent(_ context.Context, key core.AccountKey) ([]*core.Notification, error) {
	return tv.parent.notificationsLocked(key)
}
