/*
resolver.go - Multi-key account resolution

PURPOSE:
  Every account-mutating operation accepts a caller-supplied identifier
  that may be the primary key (QR scan), the secondary student id, or the
  LRN. Resolution tries each in order, first match wins.

ORDERING:
  1. Point lookup by primary key   (cheapest)
  2. Field query on StudentID      (limit 1, deterministic tie-break)
  3. Field query on LRN            (limit 1, deterministic tie-break)

  The ordering is a latency optimization. StudentID is not guaranteed
  unique; when several accounts share one, the store's tie-break (earliest
  CreatedAt, then key) decides which is returned. Tests document this
  rather than rely on it.

SEE ALSO:
  - store.go: Tie-break contract on the Find methods
  - account.go: NormalizeIdentifier
*/
package core

import (
	"context"
	"fmt"
)

// ResolveAccount resolves an identifier to exactly one account through the
// fallback chain. Each step is attempted only if the previous produced
// nothing. Returns ErrNotFound when every step misses.
//
// When called inside TxStore.WithTx with the transactional view, the
// returned account is the transaction's own read and is safe to mutate.
func ResolveAccount(ctx context.Context, s Store, identifier string) (*Account, error) {
	id := NormalizeIdentifier(identifier)
	if id == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrNotFound)
	}

	a, err := s.GetAccount(ctx, AccountKey(id))
	if err == nil {
		return a, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	a, err = s.FindAccountByStudentID(ctx, id)
	if err == nil {
		return a, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	a, err = s.FindAccountByLRN(ctx, id)
	if err == nil {
		return a, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	return nil, fmt.Errorf("identifier %q: %w", identifier, ErrNotFound)
}
