package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/canteen-core/core"
	"github.com/lunchbox/canteen-core/core/store"
	"github.com/lunchbox/canteen-core/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func acct(key string, createdAt time.Time) *core.Account {
	return &core.Account{
		Key:         core.AccountKey(key),
		StudentID:   key,
		FullName:    "Student " + key,
		PasskeyHash: "hash",
		CreatedAt:   createdAt,
	}
}

func TestSQLite_AccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := acct("A1", time.Date(2026, 8, 30, 10, 30, 0, 123456789, time.UTC))
	a.LRN = "123456789012"
	a.Grade = "7"
	a.Section = "Sampaguita"
	a.Balance = core.MustMoney("-12.50")
	a.FailedAttempts = 2
	a.QRData = core.QRDataFor(a.Key)
	require.NoError(t, st.PutAccount(ctx, a))

	got, err := st.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, a.StudentID, got.StudentID)
	assert.Equal(t, a.LRN, got.LRN)
	assert.True(t, got.Balance.Equal(core.MustMoney("-12.50")))
	assert.Equal(t, 2, got.FailedAttempts)
	assert.False(t, got.AccountLocked)
	assert.True(t, got.CreatedAt.Equal(a.CreatedAt), "nanosecond precision survives")

	_, err = st.GetAccount(ctx, "GHOST")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLite_PutAccountUpserts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := acct("A1", time.Now().UTC())
	require.NoError(t, st.PutAccount(ctx, a))
	a.Balance = core.MustMoney("77")
	require.NoError(t, st.PutAccount(ctx, a))

	got, err := st.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(core.MustMoney("77")))

	all, err := st.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_FindTieBreak(t *testing.T) {
	// Same CreatedAt on a shared student id: lexicographically smaller key wins.
	ctx := context.Background()
	st := newTestStore(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	b := acct("B", at)
	b.StudentID = "SHARED"
	a := acct("A", at)
	a.StudentID = "SHARED"
	require.NoError(t, st.PutAccount(ctx, b))
	require.NoError(t, st.PutAccount(ctx, a))

	got, err := st.FindAccountByStudentID(ctx, "SHARED")
	require.NoError(t, err)
	assert.Equal(t, core.AccountKey("A"), got.Key)

	// Earlier CreatedAt beats key order.
	c := acct("Z", at.Add(-time.Hour))
	c.StudentID = "SHARED"
	require.NoError(t, st.PutAccount(ctx, c))
	got, err = st.FindAccountByStudentID(ctx, "SHARED")
	require.NoError(t, err)
	assert.Equal(t, core.AccountKey("Z"), got.Key)
}

func TestSQLite_UpdateLockout(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := acct("A1", time.Now().UTC())
	a.Balance = core.MustMoney("42")
	require.NoError(t, st.PutAccount(ctx, a))

	require.NoError(t, st.UpdateLockout(ctx, "A1", 5, true))
	got, err := st.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, got.AccountLocked)
	assert.Equal(t, 5, got.FailedAttempts)
	assert.True(t, got.Balance.Equal(core.MustMoney("42")), "balance column untouched")

	assert.ErrorIs(t, st.UpdateLockout(ctx, "GHOST", 1, false), core.ErrNotFound)
}

func TestSQLite_LedgerRoundTripAndOrdering(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	prev := core.MustMoney("10")
	next := core.MustMoney("30")
	entries := []core.Transaction{
		{ID: "t1", StudentKey: "A1", StudentName: "Maria", Type: core.TxTopup, Amount: core.MustMoney("20"), PreviousBalance: &prev, NewBalance: &next, Location: core.LocationAdmin, Timestamp: base},
		{ID: "t2", StudentKey: "A1", Type: core.TxPurchase, Amount: core.MustMoney("5"), Timestamp: base.Add(time.Hour)},
		{ID: "t3", Type: core.TxWithdrawal, Amount: core.MustMoney("100"), Location: core.LocationAdmin, Timestamp: base.Add(2 * time.Hour)},
	}
	for _, tx := range entries {
		require.NoError(t, st.AppendTransaction(ctx, tx))
	}

	all, err := st.Transactions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, core.TransactionID("t3"), all[0].ID, "newest first")
	assert.Nil(t, all[0].PreviousBalance, "withdrawal has no snapshots")

	require.NotNil(t, all[2].PreviousBalance)
	assert.True(t, all[2].PreviousBalance.Equal(prev))
	assert.True(t, all[2].NewBalance.Equal(next))

	mine, err := st.TransactionsByStudent(ctx, "A1", 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, core.TransactionID("t2"), mine[0].ID)

	// Half-open range, oldest-first.
	ranged, err := st.TransactionsInRange(ctx, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, core.TransactionID("t1"), ranged[0].ID)
}

func TestSQLite_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.PutAccount(ctx, acct("A1", time.Now().UTC())))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(s core.Store) error {
		a, err := s.GetAccount(ctx, "A1")
		require.NoError(t, err)
		a.Balance = decimal.NewFromInt(999)
		require.NoError(t, s.PutAccount(ctx, a))
		require.NoError(t, s.AppendTransaction(ctx, core.Transaction{ID: "t1", StudentKey: "A1", Type: core.TxTopup, Amount: decimal.NewFromInt(999), Timestamp: time.Now().UTC()}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := st.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())
	txs, err := st.Transactions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSQLite_RequestsAndNotifications(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	req := &core.TopupRequest{
		ID:            "r1",
		StudentKey:    "A1",
		StudentName:   "Maria",
		GradeSection:  "7 - Sampaguita",
		Amount:        core.MustMoney("25"),
		ScheduledDate: "2026-09-01",
		TimeSlot:      "07:30-08:00",
		Status:        core.RequestPending,
		Timestamp:     now,
	}
	require.NoError(t, st.PutRequest(ctx, req))

	approved := now.Add(time.Hour)
	req.Status = core.RequestAccepted
	req.ApprovedAt = &approved
	require.NoError(t, st.PutRequest(ctx, req))

	got, err := st.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, core.RequestAccepted, got.Status)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, got.ApprovedAt.Equal(approved))
	assert.Nil(t, got.ResolvedAt)

	pending, err := st.ListRequests(ctx, core.RequestPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
	all, err := st.ListRequests(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n := &core.Notification{ID: "n1", StudentKey: "A1", Title: "Payment received", Message: "hi", Timestamp: now}
	require.NoError(t, st.PutNotification(ctx, n))
	n.Read = true
	require.NoError(t, st.PutNotification(ctx, n))

	notes, err := st.NotificationsByStudent(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Read)
}

func TestSQLite_BehavesLikeMemoryUnderEngine(t *testing.T) {
	// The same transfer scenario must produce identical end states on both
	// store implementations.
	ctx := context.Background()

	run := func(t *testing.T, s core.TxStore) (decimal.Decimal, int) {
		e := core.NewEngine(s, core.NopSink{}, nil)
		_, err := e.CreateAccount(ctx, core.CreateAccountInput{ID: "A1", FullName: "Maria Santos"})
		require.NoError(t, err)
		_, err = e.TopUp(ctx, "A1", core.MustMoney("50"), "")
		require.NoError(t, err)
		_, err = e.Purchase(ctx, "A1", core.MustMoney("40"), core.DefaultPasskey)
		require.NoError(t, err)
		_, err = e.Purchase(ctx, "A1", core.MustMoney("520"), core.DefaultPasskey)
		require.ErrorIs(t, err, core.ErrCreditLimitExceeded)

		a, err := s.GetAccount(ctx, "A1")
		require.NoError(t, err)
		txs, err := s.TransactionsByStudent(ctx, "A1", 0)
		require.NoError(t, err)
		return a.Balance, len(txs)
	}

	memBal, memTxs := run(t, store.NewMemory())
	sqlBal, sqlTxs := run(t, newTestStore(t))

	assert.True(t, memBal.Equal(sqlBal))
	assert.Equal(t, memTxs, sqlTxs)
	assert.True(t, sqlBal.Equal(core.MustMoney("10")))
}
