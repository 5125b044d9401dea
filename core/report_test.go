package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/canteen-core/core"
)

func TestSplitPurchase_Attribution(t *testing.T) {
	cases := []struct {
		name       string
		previous   string
		amount     string
		wantCash   string
		wantCredit string
	}{
		{"fully funded", "100", "30", "30", "0"},
		{"exactly funded", "30", "30", "30", "0"},
		{"partially funded", "10", "30", "10", "20"},
		{"zero balance", "0", "30", "0", "30"},
		{"already indebted", "-50", "30", "0", "30"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cash, credit := core.SplitPurchase(money(tc.previous), money(tc.amount))
			assert.True(t, cash.Equal(money(tc.wantCash)), "cash: want %s got %s", tc.wantCash, cash)
			assert.True(t, credit.Equal(money(tc.wantCredit)), "credit: want %s got %s", tc.wantCredit, credit)
			assert.True(t, cash.Add(credit).Equal(money(tc.amount)), "parts sum to the amount")
		})
	}
}

func TestDailyStats_SingleDay(t *testing.T) {
	// GIVEN: a day with a top-up, two purchases and a withdrawal
	ctx := context.Background()
	e := newTestEngine(t)
	day := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return day }
	mustCreate(t, e, "A1", "Maria Santos")

	_, err := e.TopUp(ctx, "A1", money("20"), "")
	require.NoError(t, err)
	_, err = e.Purchase(ctx, "A1", money("15"), "1234") // prev 20: all cash
	require.NoError(t, err)
	_, err = e.Purchase(ctx, "A1", money("12"), "1234") // prev 5: 5 cash, 7 credit
	require.NoError(t, err)
	_, err = e.Withdraw(ctx, money("8"), "9999")
	require.NoError(t, err)

	// Previous-day noise must not leak in.
	e.Now = func() time.Time { return day.AddDate(0, 0, -1) }
	_, err = e.TopUp(ctx, "A1", money("999"), "")
	require.NoError(t, err)

	g := core.NewAggregator(e.Store)
	stats, err := g.DailyStats(ctx, day, "")
	require.NoError(t, err)

	assert.Equal(t, "2026-08-30", stats.Date)
	assert.True(t, stats.TotalSales.Equal(money("27")))
	assert.Equal(t, 2, stats.PurchaseCount)
	assert.True(t, stats.CashCollected.Equal(money("20")))
	assert.True(t, stats.CreditIssued.Equal(money("7")))
	assert.True(t, stats.TodayTopups.Equal(money("20")))
	assert.True(t, stats.TodayWithdrawals.Equal(money("8")))
}

func TestDailyStats_LocationFilter(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	day := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return day }
	mustCreate(t, e, "A1", "Maria Santos")

	_, err := e.TopUp(ctx, "A1", money("20"), core.LocationAdmin)
	require.NoError(t, err)
	_, err = e.Purchase(ctx, "A1", money("5"), "1234")
	require.NoError(t, err)

	g := core.NewAggregator(e.Store)
	stats, err := g.DailyStats(ctx, day, core.LocationCanteen)
	require.NoError(t, err)
	assert.True(t, stats.TotalSales.Equal(money("5")))
	assert.True(t, stats.TodayTopups.IsZero(), "admin top-up filtered out")
}

func TestDailyStats_UTCDayBoundary(t *testing.T) {
	// A transaction at 23:59:59Z belongs to that day; 00:00:00Z to the next.
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreate(t, e, "A1", "Maria Santos")

	e.Now = func() time.Time { return time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC) }
	_, err := e.TopUp(ctx, "A1", money("1"), "")
	require.NoError(t, err)
	e.Now = func() time.Time { return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC) }
	_, err = e.TopUp(ctx, "A1", money("2"), "")
	require.NoError(t, err)

	g := core.NewAggregator(e.Store)
	d1, err := g.DailyStats(ctx, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.True(t, d1.TodayTopups.Equal(money("1")))
	d2, err := g.DailyStats(ctx, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.True(t, d2.TodayTopups.Equal(money("2")))
}

func TestWeeklySeries_TrailingSevenDays(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	end := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	mustCreate(t, e, "A1", "Maria Santos")

	// One purchase per day for the last 8 days; the oldest must fall off.
	for i := 0; i < 8; i++ {
		day := end.AddDate(0, 0, -i)
		e.Now = func() time.Time { return day }
		_, err := e.Purchase(ctx, "A1", money("10"), "1234")
		require.NoError(t, err)
	}
	// Top-ups never appear in the sales series.
	_, err := e.TopUp(ctx, "A1", money("500"), "")
	require.NoError(t, err)

	g := core.NewAggregator(e.Store)
	series, err := g.WeeklySeries(ctx, end)
	require.NoError(t, err)
	require.Len(t, series, 7)

	assert.Equal(t, "2026-08-24", series[0].Date)
	assert.Equal(t, "2026-08-30", series[6].Date)
	for i, b := range series {
		assert.True(t, b.Sales.Equal(money("10")), "bucket %d", i)
		assert.Equal(t, 1, b.Count, "bucket %d", i)
	}
}

func TestSystemStats(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreate(t, e, "A1", "Maria Santos")
	mustCreate(t, e, "B2", "Juan Dela Cruz")
	mustCreate(t, e, "C3", "Ana Reyes")

	_, err := e.TopUp(ctx, "A1", money("100"), "")
	require.NoError(t, err)
	_, err = e.Purchase(ctx, "B2", money("30"), "1234") // B2 -> -30
	require.NoError(t, err)
	_, err = e.Purchase(ctx, "C3", money("45.50"), "1234") // C3 -> -45.50
	require.NoError(t, err)
	_, err = e.Withdraw(ctx, money("25"), "9999")
	require.NoError(t, err)

	g := core.NewAggregator(e.Store)
	stats, err := g.SystemStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.AccountCount)
	assert.Equal(t, 2, stats.IndebtedCount)
	assert.True(t, stats.OutstandingCredit.Equal(money("75.50")))
	assert.True(t, stats.TotalSystemCash.Equal(money("75")), "topups minus withdrawals, purchases excluded")
}

func TestAggregator_EmptyLedger(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	g := core.NewAggregator(e.Store)

	stats, err := g.DailyStats(ctx, time.Now(), "")
	require.NoError(t, err)
	assert.True(t, stats.TotalSales.Equal(decimal.Zero))
	assert.Zero(t, stats.PurchaseCount)

	sys, err := g.SystemStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, sys.AccountCount)
	assert.True(t, sys.TotalSystemCash.IsZero())
}
