/*
report.go - Read-side reporting aggregator

PURPOSE:
  Derives daily and weekly financials from the append-only ledger plus a
  point-in-time scan of account balances. Pure reads; never mutates state.

CASH/CREDIT ATTRIBUTION:
  A purchase is split into the portion covered by funds the student
  actually had (cash) and the portion that created or extended debt
  (credit):

    previousBalance <= 0          -> credit = amount
    otherwise                     -> credit = max(0, amount - previousBalance)
    cash = amount - credit

DAY BOUNDARIES:
  UTC everywhere, for both the daily stats and the weekly buckets. The
  system this replaces used UTC days for daily stats but local calendar
  days for the weekly series; that split was an inconsistency, and one
  convention had to be picked. Callers wanting local days shift the
  requested date themselves.

ERRORS:
  Any store failure propagates as ErrUnavailable. Partial aggregates are
  never returned.
*/
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATE SHAPES
// =============================================================================

// DailyStats summarizes one UTC day of ledger activity.
type DailyStats struct {
	Date             string // YYYY-MM-DD, UTC
	TotalSales       decimal.Decimal
	CashCollected    decimal.Decimal
	CreditIssued     decimal.Decimal
	PurchaseCount    int
	TodayTopups      decimal.Decimal
	TodayWithdrawals decimal.Decimal
}

// DayBucket is one calendar day in the weekly purchase series.
type DayBucket struct {
	Date  string // YYYY-MM-DD, UTC
	Sales decimal.Decimal
	Count int
}

// SystemStats is the point-in-time system view.
type SystemStats struct {
	OutstandingCredit decimal.Decimal // sum of |balance| over indebted accounts
	TotalSystemCash   decimal.Decimal // all-time topups minus withdrawals
	AccountCount      int
	IndebtedCount     int
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes report views from the store. Safe for concurrent use.
type Aggregator struct {
	Store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{Store: store}
}

// SplitPurchase applies the cash/credit attribution rule to one purchase.
func SplitPurchase(previous, amount decimal.Decimal) (cash, credit decimal.Decimal) {
	if previous.Sign() <= 0 {
		return decimal.Zero, amount
	}
	credit = amount.Sub(previous)
	if credit.Sign() < 0 {
		credit = decimal.Zero
	}
	return amount.Sub(credit), credit
}

// utcDay returns the UTC day window containing t.
func utcDay(t time.Time) (from, to time.Time) {
	u := t.UTC()
	from = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}

// DailyStats aggregates one UTC day. location filters PURCHASE/TOPUP
// entries by their reporting tag; empty means all locations.
func (g *Aggregator) DailyStats(ctx context.Context, date time.Time, location string) (*DailyStats, error) {
	from, to := utcDay(date)
	txs, err := g.Store.TransactionsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", ErrUnavailable)
	}

	stats := &DailyStats{Date: from.Format("2006-01-02")}
	for _, tx := range txs {
		if location != "" && tx.Location != location {
			continue
		}
		switch tx.Type {
		case TxPurchase:
			stats.TotalSales = stats.TotalSales.Add(tx.Amount)
			stats.PurchaseCount++
			prev := decimal.Zero
			if tx.PreviousBalance != nil {
				prev = *tx.PreviousBalance
			}
			cash, credit := SplitPurchase(prev, tx.Amount)
			stats.CashCollected = stats.CashCollected.Add(cash)
			stats.CreditIssued = stats.CreditIssued.Add(credit)
		case TxTopup:
			stats.TodayTopups = stats.TodayTopups.Add(tx.Amount)
		case TxWithdrawal:
			stats.TodayWithdrawals = stats.TodayWithdrawals.Add(tx.Amount)
		}
	}
	return stats, nil
}

// WeeklySeries buckets PURCHASE amounts by UTC day for the trailing 7-day
// window ending on (and including) the given day.
func (g *Aggregator) WeeklySeries(ctx context.Context, end time.Time) ([]DayBucket, error) {
	dayStart, dayEnd := utcDay(end)
	from := dayStart.AddDate(0, 0, -6)

	txs, err := g.Store.TransactionsInRange(ctx, from, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("weekly series: %w", ErrUnavailable)
	}

	buckets := make([]DayBucket, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		d := from.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = DayBucket{Date: d}
		index[d] = i
	}

	for _, tx := range txs {
		if tx.Type != TxPurchase {
			continue
		}
		i, ok := index[tx.Timestamp.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		buckets[i].Sales = buckets[i].Sales.Add(tx.Amount)
		buckets[i].Count++
	}
	return buckets, nil
}

// SystemStats computes the global view. The outstanding-credit figure is a
// point-in-time account scan, not ledger-derived; TotalSystemCash is a
// full-history scan and is only computed when this method is called.
func (g *Aggregator) SystemStats(ctx context.Context) (*SystemStats, error) {
	accounts, err := g.Store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("system stats: %w", ErrUnavailable)
	}

	stats := &SystemStats{AccountCount: len(accounts)}
	for _, a := range accounts {
		if a.Balance.Sign() < 0 {
			stats.OutstandingCredit = stats.OutstandingCredit.Add(a.Balance.Abs())
			stats.IndebtedCount++
		}
	}

	txs, err := g.Store.Transactions(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("system stats: %w", ErrUnavailable)
	}
	for _, tx := range txs {
		switch tx.Type {
		case TxTopup:
			stats.TotalSystemCash = stats.TotalSystemCash.Add(tx.Amount)
		case TxWithdrawal:
			stats.TotalSystemCash = stats.TotalSystemCash.Sub(tx.Amount)
		}
	}
	return stats, nil
}
