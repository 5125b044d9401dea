/*
Package sqlite provides the SQLite-backed implementation of core.TxStore.

PURPOSE:
  Persists accounts, the append-only ledger, reservations, and
  notifications. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  The transactions table has INSERT and SELECT paths only. No UPDATE, no
  DELETE. History is never rewritten.

CONCURRENCY:
  A process-wide mutex serializes writers, and WithTx additionally wraps
  the closure in one database transaction, so an atomic unit either
  commits fully or rolls back fully. Commits that hit SQLITE_BUSY (another
  process holding the file) are retried with backoff.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block, single
  writer at a time, better crash recovery.

TIME COLUMNS:
  All timestamps are stored as UTC unix nanoseconds (INTEGER). Range
  scans and the resolver's CreatedAt tie-break need a total order that
  text dates with variable precision cannot give.

USAGE:
  st, err := sqlite.New("./data/canteen.db")
  defer st.Close()
  engine := core.NewEngine(st, sink, log)

SEE ALSO:
  - core/store.go: Interface contracts
  - core/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lunchbox/canteen-core/core"
)

// Store implements core.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Student accounts (the only mutable shared resource)
	CREATE TABLE IF NOT EXISTS accounts (
		key TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		lrn TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL,
		grade TEXT NOT NULL DEFAULT '',
		section TEXT NOT NULL DEFAULT '',
		passkey_hash TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		account_locked INTEGER NOT NULL DEFAULT 0,
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		qr_data TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	-- Fallback lookup fields (not unique by contract; resolver tie-breaks)
	CREATE INDEX IF NOT EXISTS idx_accounts_student_id ON accounts(student_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_lrn ON accounts(lrn) WHERE lrn != '';

	-- Ledger (append-only; INSERT and SELECT only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		student_key TEXT NOT NULL DEFAULT '',
		student_name TEXT NOT NULL DEFAULT '',
		grade TEXT NOT NULL DEFAULT '',
		section TEXT NOT NULL DEFAULT '',
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		previous_balance TEXT,
		new_balance TEXT,
		location TEXT NOT NULL DEFAULT '',
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_student ON transactions(student_key, ts DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_ts ON transactions(ts);
	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(tx_type);

	-- Top-up reservations
	CREATE TABLE IF NOT EXISTS topup_requests (
		id TEXT PRIMARY KEY,
		student_key TEXT NOT NULL,
		student_name TEXT NOT NULL DEFAULT '',
		grade_section TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		scheduled_date TEXT NOT NULL DEFAULT '',
		time_slot TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		ts INTEGER NOT NULL,
		approved_at INTEGER,
		resolved_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status ON topup_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_student ON topup_requests(student_key);

	-- Notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		student_key TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		read INTEGER NOT NULL DEFAULT 0,
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_student ON notifications(student_key, ts DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query helper can
// run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = `key, student_id, lrn, full_name, grade, section, passkey_hash,
	balance, account_locked, failed_attempts, qr_data, created_at`

func (s *Store) GetAccount(ctx context.Context, key core.AccountKey) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getAccount(ctx, s.db, key)
}

func getAccount(ctx context.Context, db dbtx, key core.AccountKey) (*core.Account, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE key = ?`, key)
	return scanAccountRow(row)
}

func (s *Store) FindAccountByStudentID(ctx context.Context, studentID string) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findAccount(ctx, s.db, "student_id", studentID)
}

func (s *Store) FindAccountByLRN(ctx context.Context, lrn string) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findAccount(ctx, s.db, "lrn", lrn)
}

// findAccount is the limit-1 field query with the deterministic tie-break:
// earliest created_at first, then key.
func findAccount(ctx context.Context, db dbtx, field, value string) (*core.Account, error) {
	if value == "" {
		return nil, core.ErrNotFound
	}
	row := db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+field+` = ?
		 ORDER BY created_at ASC, key ASC LIMIT 1`, value)
	return scanAccountRow(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(row *sql.Row) (*core.Account, error) {
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return a, err
}

func scanAccount(sc rowScanner) (*core.Account, error) {
	var (
		a         core.Account
		balance   string
		locked    int
		createdAt int64
	)
	err := sc.Scan(&a.Key, &a.StudentID, &a.LRN, &a.FullName, &a.Grade, &a.Section,
		&a.PasskeyHash, &balance, &locked, &a.FailedAttempts, &a.QRData, &createdAt)
	if err != nil {
		return nil, err
	}

	a.Balance = parseMoney(balance)
	a.AccountLocked = locked != 0
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	a.Normalize()
	return &a, nil
}

func (s *Store) PutAccount(ctx context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putAccount(ctx, s.db, a)
}

func putAccount(ctx context.Context, db dbtx, a *core.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			student_id = excluded.student_id,
			lrn = excluded.lrn,
			full_name = excluded.full_name,
			grade = excluded.grade,
			section = excluded.section,
			passkey_hash = excluded.passkey_hash,
			balance = excluded.balance,
			account_locked = excluded.account_locked,
			failed_attempts = excluded.failed_attempts,
			qr_data = excluded.qr_data`,
		a.Key, a.StudentID, a.LRN, a.FullName, a.Grade, a.Section, a.PasskeyHash,
		a.Balance.String(), boolInt(a.AccountLocked), a.FailedAttempts, a.QRData,
		a.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, key core.AccountKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAccount(ctx, s.db, key)
}

func deleteAccount(ctx context.Context, db dbtx, key core.AccountKey) error {
	res, err := db.ExecContext(ctx, `DELETE FROM accounts WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, db dbtx) ([]*core.Account, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	out := []*core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateLockout writes only the lockout fields. It never touches the
// balance column, so racing a concurrent transfer cannot lose money.
func (s *Store) UpdateLockout(ctx context.Context, key core.AccountKey, failedAttempts int, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateLockout(ctx, s.db, key, failedAttempts, locked)
}

func updateLockout(ctx context.Context, db dbtx, key core.AccountKey, failedAttempts int, locked bool) error {
	res, err := db.ExecContext(ctx,
		`UPDATE accounts SET failed_attempts = ?, account_locked = ? WHERE key = ?`,
		failedAttempts, boolInt(locked), key)
	if err != nil {
		return fmt.Errorf("failed to update lockout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

const txColumns = `id, student_key, student_name, grade, section, tx_type, amount,
	previous_balance, new_balance, location, ts`

func (s *Store) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, db dbtx, tx core.Transaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.StudentKey, tx.StudentName, tx.Grade, tx.Section,
		tx.Type, tx.Amount.String(),
		nullMoney(tx.PreviousBalance), nullMoney(tx.NewBalance),
		tx.Location, tx.Timestamp.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *Store) Transactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queryTransactions(ctx, s.db,
		`SELECT `+txColumns+` FROM transactions ORDER BY ts DESC, id DESC`+limitClause(limit))
}

func (s *Store) TransactionsByStudent(ctx context.Context, key core.AccountKey, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transactionsByStudent(ctx, s.db, key, limit)
}

func transactionsByStudent(ctx context.Context, db dbtx, key core.AccountKey, limit int) ([]core.Transaction, error) {
	return queryTransactions(ctx, db,
		`SELECT `+txColumns+` FROM transactions WHERE student_key = ?
		 ORDER BY ts DESC, id DESC`+limitClause(limit), key)
}

func (s *Store) TransactionsInRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transactionsInRange(ctx, s.db, from, to)
}

func transactionsInRange(ctx context.Context, db dbtx, from, to time.Time) ([]core.Transaction, error) {
	return queryTransactions(ctx, db,
		`SELECT `+txColumns+` FROM transactions WHERE ts >= ? AND ts < ?
		 ORDER BY ts ASC, id ASC`,
		from.UTC().UnixNano(), to.UTC().UnixNano())
}

func limitClause(limit int) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

func queryTransactions(ctx context.Context, db dbtx, query string, args ...any) ([]core.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			tx         core.Transaction
			amount     string
			prev, next sql.NullString
			ts         int64
		)
		if err := rows.Scan(&tx.ID, &tx.StudentKey, &tx.StudentName, &tx.Grade, &tx.Section,
			&tx.Type, &amount, &prev, &next, &tx.Location, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount = parseMoney(amount)
		tx.PreviousBalance = nullableMoney(prev)
		tx.NewBalance = nullableMoney(next)
		tx.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

// =============================================================================
// RESERVATIONS
// =============================================================================

const requestColumns = `id, student_key, student_name, grade_section, amount,
	scheduled_date, time_slot, status, ts, approved_at, resolved_at`

func (s *Store) PutRequest(ctx context.Context, r *core.TopupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putRequest(ctx, s.db, r)
}

func putRequest(ctx context.Context, db dbtx, r *core.TopupRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO topup_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approved_at = excluded.approved_at,
			resolved_at = excluded.resolved_at`,
		r.ID, r.StudentKey, r.StudentName, r.GradeSection, r.Amount.String(),
		r.ScheduledDate, r.TimeSlot, r.Status, r.Timestamp.UTC().UnixNano(),
		nullTime(r.ApprovedAt), nullTime(r.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id core.RequestID) (*core.TopupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, db dbtx, id core.RequestID) (*core.TopupRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM topup_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return r, err
}

func (s *Store) ListRequests(ctx context.Context, status core.RequestStatus) ([]*core.TopupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listRequests(ctx, s.db, status)
}

func listRequests(ctx context.Context, db dbtx, status core.RequestStatus) ([]*core.TopupRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM topup_requests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY ts DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	out := []*core.TopupRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(sc rowScanner) (*core.TopupRequest, error) {
	var (
		r                  core.TopupRequest
		amount             string
		ts                 int64
		approved, resolved sql.NullInt64
	)
	err := sc.Scan(&r.ID, &r.StudentKey, &r.StudentName, &r.GradeSection, &amount,
		&r.ScheduledDate, &r.TimeSlot, &r.Status, &ts, &approved, &resolved)
	if err != nil {
		return nil, err
	}
	r.Amount = parseMoney(amount)
	r.Timestamp = time.Unix(0, ts).UTC()
	r.ApprovedAt = timeFromNull(approved)
	r.ResolvedAt = timeFromNull(resolved)
	return &r, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (s *Store) PutNotification(ctx context.Context, n *core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putNotification(ctx, s.db, n)
}

func putNotification(ctx context.Context, db dbtx, n *core.Notification) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO notifications (id, student_key, title, message, read, ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET read = excluded.read`,
		n.ID, n.StudentKey, n.Title, n.Message, boolInt(n.Read), n.Timestamp.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to put notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (*core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getNotification(ctx, s.db, id)
}

func getNotification(ctx context.Context, db dbtx, id string) (*core.Notification, error) {
	var (
		n    core.Notification
		read int
		ts   int64
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, student_key, title, message, read, ts FROM notifications WHERE id = ?`, id).
		Scan(&n.ID, &n.StudentKey, &n.Title, &n.Message, &read, &ts)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	n.Read = read != 0
	n.Timestamp = time.Unix(0, ts).UTC()
	return &n, nil
}

func (s *Store) NotificationsByStudent(ctx context.Context, key core.AccountKey) ([]*core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notificationsByStudent(ctx, s.db, key)
}

func notificationsByStudent(ctx context.Context, db dbtx, key core.AccountKey) ([]*core.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, student_key, title, message, read, ts FROM notifications
		 WHERE student_key = ? ORDER BY ts DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []*core.Notification{}
	for rows.Next() {
		var (
			n    core.Notification
			read int
			ts   int64
		)
		if err := rows.Scan(&n.ID, &n.StudentKey, &n.Title, &n.Message, &read, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Read = read != 0
		n.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, &n)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (core.TxStore interface)
// =============================================================================

const busyRetries = 3

// WithTx executes fn within one database transaction under the writer
// mutex. Rolled back entirely if fn errors. A commit hitting SQLITE_BUSY
// (another process holding the file) re-runs the whole closure, which is
// why closures must re-read state through the view they are given.
func (s *Store) WithTx(ctx context.Context, fn func(core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
		lastErr = s.runTx(ctx, fn)
		if lastErr == nil || !isBusyError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (s *Store) runTx(ctx context.Context, fn func(core.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every Store method through the open sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetAccount(ctx context.Context, key core.AccountKey) (*core.Account, error) {
	return getAccount(ctx, ts.tx, key)
}

func (ts *txStore) FindAccountByStudentID(ctx context.Context, studentID string) (*core.Account, error) {
	return findAccount(ctx, ts.tx, "student_id", studentID)
}

func (ts *txStore) FindAccountByLRN(ctx context.Context, lrn string) (*core.Account, error) {
	return findAccount(ctx, ts.tx, "lrn", lrn)
}

func (ts *txStore) PutAccount(ctx context.Context, a *core.Account) error {
	return putAccount(ctx, ts.tx, a)
}

func (ts *txStore) DeleteAccount(ctx context.Context, key core.AccountKey) error {
	return deleteAccount(ctx, ts.tx, key)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]*core.Account, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) UpdateLockout(ctx context.Context, key core.AccountKey, failedAttempts int, locked bool) error {
	return updateLockout(ctx, ts.tx, key, failedAttempts, locked)
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) Transactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	return queryTransactions(ctx, ts.tx,
		`SELECT `+txColumns+` FROM transactions ORDER BY ts DESC, id DESC`+limitClause(limit))
}

func (ts *txStore) TransactionsByStudent(ctx context.Context, key core.AccountKey, limit int) ([]core.Transaction, error) {
	return transactionsByStudent(ctx, ts.tx, key, limit)
}

func (ts *txStore) TransactionsInRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	return transactionsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) PutRequest(ctx context.Context, r *core.TopupRequest) error {
	return putRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id core.RequestID) (*core.TopupRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) ListRequests(ctx context.Context, status core.RequestStatus) ([]*core.TopupRequest, error) {
	return listRequests(ctx, ts.tx, status)
}

func (ts *txStore) PutNotification(ctx context.Context, n *core.Notification) error {
	return putNotification(ctx, ts.tx, n)
}

func (ts *txStore) GetNotification(ctx context.Context, id string) (*core.Notification, error) {
	return getNotification(ctx, ts.tx, id)
}

func (ts *txStore) NotificationsByStudent(ctx context.Context, key core.AccountKey) ([]*core.Notification, error) {
	return notificationsByStudent(ctx, ts.tx, key)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullMoney(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableMoney(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d := parseMoney(ns.String)
	return &d
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixNano()
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
