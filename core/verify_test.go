package core_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/canteen-core/core"
)

func TestValidPasskey(t *testing.T) {
	valid := []string{"0000", "1234", "9999"}
	for _, p := range valid {
		assert.True(t, core.ValidPasskey(p), p)
	}
	invalid := []string{"", "123", "12345", "12a4", "12.4", "١٢٣٤"}
	for _, p := range invalid {
		assert.False(t, core.ValidPasskey(p), p)
	}
}

func TestHashPasskey_RejectsMalformed(t *testing.T) {
	_, err := core.HashPasskey("abc")
	assert.ErrorIs(t, err, core.ErrMalformedPasskey)
}

func TestVerify_LockoutAfterFiveMismatches(t *testing.T) {
	// GIVEN: an account with the default passkey
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreate(t, e, "A1", "Maria Santos")

	// WHEN: five consecutive mismatches
	for i := 1; i <= core.MaxFailedAttempts; i++ {
		_, err := e.VerifyPasskey(ctx, "A1", "0000")
		require.ErrorIs(t, err, core.ErrInvalidPasskey, "attempt %d", i)

		var pe *core.PasskeyError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, core.MaxFailedAttempts-i, pe.AttemptsLeft, "attempt %d", i)
	}

	// THEN: the account is locked, even for the correct passkey
	_, err := e.VerifyPasskey(ctx, "A1", core.DefaultPasskey)
	assert.ErrorIs(t, err, core.ErrAccountLocked)

	a, err := e.Store.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, a.AccountLocked)
	assert.Equal(t, core.MaxFailedAttempts, a.FailedAttempts)
}

func TestVerify_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreate(t, e, "A1", "Maria Santos")

	for i := 0; i < 3; i++ {
		_, err := e.VerifyPasskey(ctx, "A1", "0000")
		require.Error(t, err)
	}
	_, err := e.VerifyPasskey(ctx, "A1", core.DefaultPasskey)
	require.NoError(t, err)

	a, err := e.Store.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.Zero(t, a.FailedAttempts, "counter cleared on the first match")
	assert.False(t, a.AccountLocked)
}

func TestVerify_AdminUnlockRestoresAccess(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreate(t, e, "A1", "Maria Santos")

	for i := 0; i < core.MaxFailedAttempts; i++ {
		e.VerifyPasskey(ctx, "A1", "0000")
	}
	_, err := e.VerifyPasskey(ctx, "A1", core.DefaultPasskey)
	require.ErrorIs(t, err, core.ErrAccountLocked)

	require.NoError(t, e.UnlockAccount(ctx, "A1"))
	_, err = e.VerifyPasskey(ctx, "A1", core.DefaultPasskey)
	assert.NoError(t, err)
}

func TestPasskeyError_Message(t *testing.T) {
	err := &core.PasskeyError{Key: "A1", AttemptsLeft: 2}
	assert.ErrorIs(t, err, core.ErrInvalidPasskey)
	assert.Contains(t, fmt.Sprint(err), "2")
}
