/*
ledger.go - Read-side access to the append-only ledger

PURPOSE:
  The ledger is the source of truth: for any account, replaying its
  entries in order from a zero starting balance must reproduce the
  current balance. This file holds the read helpers and the replay
  check used by tests and audits.

SEE ALSO:
  - store.go: Append/scan methods the reader delegates to
  - report.go: Aggregation over ledger ranges
*/
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit caps transaction listings when the caller does not
// pick a limit.
const DefaultHistoryLimit = 50

// LedgerReader exposes transaction history to the API layer.
type LedgerReader struct {
	Store Store
}

func NewLedgerReader(store Store) *LedgerReader {
	return &LedgerReader{Store: store}
}

// Recent returns ledger entries newest-first. An empty identifier means
// the whole ledger; limit <= 0 applies DefaultHistoryLimit.
func (l *LedgerReader) Recent(ctx context.Context, identifier string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if identifier == "" {
		return l.Store.Transactions(ctx, limit)
	}
	a, err := ResolveAccount(ctx, l.Store, identifier)
	if err != nil {
		return nil, err
	}
	return l.Store.TransactionsByStudent(ctx, a.Key, limit)
}

// ReplayBalance sums signed amounts oldest-first from a zero starting
// state. Given one account's full history it must equal the stored
// balance; tests assert this invariant after every scenario.
func ReplayBalance(txs []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.Signed())
	}
	return balance
}
