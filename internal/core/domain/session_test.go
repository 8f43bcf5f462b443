package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exoslabs/cosigner/internal/core/domain"
)

const testDuration = int64(600)

func TestComputeRemaining(t *testing.T) {
	tests := []struct {
		name     string
		now      int64
		lockTime int64
		expected int64
	}{
		{"fresh_lock", 1000, 1000, 600},
		{"halfway", 1300, 1000, 300},
		{"one_second_left", 1599, 1000, 1},
		{"exactly_expired", 1600, 1000, 0},
		{"long_expired", 5000, 1000, 0},
		{"future_timestamp_clock_skew", 990, 1000, 610},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining := domain.ComputeRemaining(tt.now, tt.lockTime, testDuration)
			require.Equal(t, tt.expected, remaining)
		})
	}
}

func TestNewSigningSession(t *testing.T) {
	snapshot := testSnapshot(t, false)

	t.Run("singlesig_wallet", func(t *testing.T) {
		session, err := domain.NewSigningSession(
			"test", "wallethash", false, snapshot, testDuration, nil, 1000,
		)
		require.NoError(t, err)
		require.Equal(t, domain.SessionIdle, session.State)
		require.Zero(t, session.TimeRemaining)
	})

	t.Run("multisig_without_lock", func(t *testing.T) {
		session, err := domain.NewSigningSession(
			"test", "wallethash", true, snapshot, testDuration, nil, 1000,
		)
		require.NoError(t, err)
		require.Equal(t, domain.SessionAwaitingLock, session.State)
	})

	t.Run("multisig_with_unexpired_lock", func(t *testing.T) {
		lock := &domain.LockRecord{WalletHash: "wallethash", Timestamp: 900}
		session, err := domain.NewSigningSession(
			"test", "wallethash", true, snapshot, testDuration, lock, 1000,
		)
		require.NoError(t, err)
		require.Equal(t, domain.SessionLocked, session.State)
		require.Equal(t, int64(500), session.TimeRemaining)
	})

	t.Run("multisig_with_expired_lock", func(t *testing.T) {
		lock := &domain.LockRecord{WalletHash: "wallethash", Timestamp: 100}
		session, err := domain.NewSigningSession(
			"test", "wallethash", true, snapshot, testDuration, lock, 1000,
		)
		require.NoError(t, err)
		require.Equal(t, domain.SessionAwaitingLock, session.State)
	})

	t.Run("invalid_args", func(t *testing.T) {
		_, err := domain.NewSigningSession(
			"", "wallethash", true, snapshot, testDuration, nil, 1000,
		)
		require.ErrorIs(t, err, domain.ErrSessionMissingID)

		_, err = domain.NewSigningSession(
			"test", "", true, snapshot, testDuration, nil, 1000,
		)
		require.ErrorIs(t, err, domain.ErrSessionMissingWallet)

		_, err = domain.NewSigningSession(
			"test", "wallethash", true, nil, testDuration, nil, 1000,
		)
		require.ErrorIs(t, err, domain.ErrSessionMissingSnapshot)

		_, err = domain.NewSigningSession(
			"test", "wallethash", true, snapshot, 0, nil, 1000,
		)
		require.ErrorIs(t, err, domain.ErrSessionMissingDuration)
	})
}

func TestObserveLock(t *testing.T) {
	t.Run("seeds_countdown_from_lock_timestamp", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)
		require.Equal(t, domain.SessionAwaitingLock, session.State)

		lock := &domain.LockRecord{WalletHash: "wallethash", Timestamp: 950}
		session.ObserveLock(lock, 1000)
		require.Equal(t, domain.SessionLocked, session.State)
		require.Equal(t, int64(550), session.TimeRemaining)
	})

	t.Run("nil_lock_seeds_full_duration", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)

		session.ObserveLock(nil, 1000)
		require.Equal(t, domain.SessionLocked, session.State)
		require.Equal(t, testDuration, session.TimeRemaining)
	})

	t.Run("noop_on_other_states", func(t *testing.T) {
		session := newTestSession(t, false, nil, 1000)
		require.Equal(t, domain.SessionIdle, session.State)

		session.ObserveLock(nil, 1000)
		require.Equal(t, domain.SessionIdle, session.State)
	})
}

func TestTick(t *testing.T) {
	t.Run("counts_down_to_expiry", func(t *testing.T) {
		lock := &domain.LockRecord{WalletHash: "wallethash", Timestamp: 998}
		session := newTestSession(t, true, lock, 1000)
		require.Equal(t, domain.SessionLocked, session.State)
		require.Equal(t, int64(598), session.TimeRemaining)

		session.TimeRemaining = 2
		require.False(t, session.Tick())
		require.Equal(t, int64(1), session.TimeRemaining)
		require.True(t, session.Tick())
		require.Equal(t, domain.SessionExpired, session.State)
		require.Zero(t, session.TimeRemaining)

		// further ticks are no-ops.
		require.False(t, session.Tick())
		require.Equal(t, domain.SessionExpired, session.State)
	})

	t.Run("noop_when_not_locked", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)
		require.False(t, session.Tick())
		require.Equal(t, domain.SessionAwaitingLock, session.State)

		session.Close()
		require.False(t, session.Tick())
		require.Equal(t, domain.SessionClosed, session.State)
	})
}

func TestCanSignCanBroadcast(t *testing.T) {
	session := newTestSession(t, true, nil, 1000)
	require.True(t, session.CanSign(true))
	require.False(t, session.CanSign(false))
	require.True(t, session.CanBroadcast(true))
	require.False(t, session.CanBroadcast(false))

	session.ApplySignedTx(testSnapshot(t, true))
	require.False(t, session.CanSign(true))
	require.True(t, session.CanBroadcast(true))

	session.Close()
	require.False(t, session.CanSign(true))
	require.False(t, session.CanBroadcast(true))
}

func TestApplySignedTx(t *testing.T) {
	t.Run("complete_tx_resets_saved", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)
		session.MarkSaved()
		require.True(t, session.Saved)

		session.ApplySignedTx(testSnapshot(t, true))
		require.True(t, session.Snapshot.Complete)
		require.False(t, session.Saved)
	})

	t.Run("dropped_after_close", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)
		original := session.Snapshot

		session.Close()
		session.ApplySignedTx(testSnapshot(t, true))
		require.Equal(t, original, session.Snapshot)
	})
}

func TestCloseAndLockRelease(t *testing.T) {
	t.Run("close_is_idempotent", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)
		require.True(t, session.Close())
		require.True(t, session.IsClosed())
		require.False(t, session.Close())
	})

	t.Run("lock_released_at_most_once", func(t *testing.T) {
		session := newTestSession(t, true, nil, 1000)
		require.True(t, session.NeedsLockRelease())
		require.True(t, session.MarkLockReleased())
		require.False(t, session.NeedsLockRelease())
		require.False(t, session.MarkLockReleased())
	})

	t.Run("singlesig_never_holds_lock", func(t *testing.T) {
		session := newTestSession(t, false, nil, 1000)
		require.False(t, session.NeedsLockRelease())
	})
}

func newTestSession(
	t *testing.T, multisig bool, lock *domain.LockRecord, now int64,
) *domain.SigningSession {
	t.Helper()

	session, err := domain.NewSigningSession(
		"test", "wallethash", multisig, testSnapshot(t, false), testDuration,
		lock, now,
	)
	require.NoError(t, err)
	return session
}

func testSnapshot(t *testing.T, complete bool) *domain.TxSnapshot {
	t.Helper()

	numSigned := 0
	if complete {
		numSigned = 1
	}
	snapshot, err := domain.NewTxSnapshot(randomTxHex(t, 1, numSigned), nil)
	require.NoError(t, err)
	return snapshot
}
