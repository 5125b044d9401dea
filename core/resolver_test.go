package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/canteen-core/core"
	"github.com/lunchbox/canteen-core/core/store"
)

func TestResolveAccount_FallbackChain(t *testing.T) {
	// GIVEN: an account reachable by key, student id and LRN
	ctx := context.Background()
	e := newTestEngine(t)
	a, err := e.CreateAccount(ctx, core.CreateAccountInput{
		ID:       "A1",
		FullName: "Maria Santos",
		LRN:      "123456789012",
	})
	require.NoError(t, err)

	for _, id := range []string{"A1", "a1", "  A1  ", "123456789012"} {
		got, err := core.ResolveAccount(ctx, e.Store, id)
		require.NoError(t, err, "identifier %q", id)
		assert.Equal(t, a.Key, got.Key, "identifier %q", id)
	}

	_, err = core.ResolveAccount(ctx, e.Store, "UNKNOWN")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = core.ResolveAccount(ctx, e.Store, "   ")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResolveAccount_OldIDAfterRename(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreate(t, e, "A1", "Maria Santos")
	_, err := e.RenameAccount(ctx, "A1", "B2")
	require.NoError(t, err)

	got, err := core.ResolveAccount(ctx, e.Store, "A1")
	require.NoError(t, err)
	assert.Equal(t, core.AccountKey("B2"), got.Key,
		"old identifier resolves through the secondary id after a rename")
}

func TestResolveAccount_DuplicateSecondaryIDIsDeterministic(t *testing.T) {
	// StudentID is not guaranteed unique. When two accounts share one, the
	// earliest-created account wins, every time.
	ctx := context.Background()
	m := store.NewMemory()

	older := &core.Account{
		Key:       "K2",
		StudentID: "SHARED",
		FullName:  "First Enrolled",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &core.Account{
		Key:       "K1",
		StudentID: "SHARED",
		FullName:  "Second Enrolled",
		CreatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.PutAccount(ctx, newer))
	require.NoError(t, m.PutAccount(ctx, older))

	for i := 0; i < 10; i++ {
		got, err := core.ResolveAccount(ctx, m, "SHARED")
		require.NoError(t, err)
		assert.Equal(t, core.AccountKey("K2"), got.Key, "earliest CreatedAt wins")
	}
}

func TestResolveAccount_PrimaryKeyBeatsSecondary(t *testing.T) {
	// An identifier that is someone's primary key and someone else's
	// student id resolves to the primary-key owner.
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.PutAccount(ctx, &core.Account{Key: "X9", StudentID: "X9", FullName: "Owner"}))
	require.NoError(t, m.PutAccount(ctx, &core.Account{Key: "Y1", StudentID: "X9", FullName: "Claimant"}))

	got, err := core.ResolveAccount(ctx, m, "X9")
	require.NoError(t, err)
	assert.Equal(t, core.AccountKey("X9"), got.Key)
}
