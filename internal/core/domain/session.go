package domain

import (
	"fmt"
)

const (
	// SessionIdle means the wallet is not multisig, no cooperative lock is
	// involved and no countdown runs.
	SessionIdle SessionState = iota
	// SessionAwaitingLock means the wallet is multisig and no unexpired lock
	// was found at session start. The lock is implicitly created by the first
	// successful cooperative sign request.
	SessionAwaitingLock
	// SessionLocked means a lock is held or observed and the countdown runs.
	SessionLocked
	// SessionExpired means the countdown hit zero while the session was open.
	SessionExpired
	// SessionClosed is terminal.
	SessionClosed
)

var (
	ErrSessionMissingID       = fmt.Errorf("missing session id")
	ErrSessionMissingWallet   = fmt.Errorf("missing wallet hash")
	ErrSessionMissingSnapshot = fmt.Errorf("missing transaction snapshot")
	ErrSessionMissingDuration = fmt.Errorf("missing session duration")
	ErrSessionNotFound        = fmt.Errorf("session not found")

	sessionStateString = map[SessionState]string{
		SessionIdle:         "idle",
		SessionAwaitingLock: "awaiting_lock",
		SessionLocked:       "locked",
		SessionExpired:      "expired",
		SessionClosed:       "closed",
	}
)

type SessionState int

func (s SessionState) String() string {
	return sessionStateString[s]
}

// SigningSession represents one transaction presented for cooperative review
// and signing. It owns the countdown/lock state machine: all transitions are
// pure in-memory mutations, any I/O (coordinator, wallet daemon) is performed
// by the application layer around them.
type SigningSession struct {
	ID            string
	WalletHash    string
	Multisig      bool
	Snapshot      *TxSnapshot
	State         SessionState
	Duration      int64
	TimeRemaining int64
	Saved         bool
	LockReleased  bool
	Description   string
	CreatedAt     int64
}

// NewSigningSession returns a session seeded according to the wallet type and
// the lock possibly found at the coordination point:
//   - non-multisig wallets get an Idle session, no countdown;
//   - an unexpired remote lock means another party already started this
//     signing round, so the countdown starts from the lock lifetime left;
//   - otherwise the session awaits the lock implicitly created by signing.
func NewSigningSession(
	id, walletHash string, multisig bool, snapshot *TxSnapshot,
	duration int64, lock *LockRecord, now int64,
) (*SigningSession, error) {
	if id == "" {
		return nil, ErrSessionMissingID
	}
	if walletHash == "" {
		return nil, ErrSessionMissingWallet
	}
	if snapshot == nil {
		return nil, ErrSessionMissingSnapshot
	}
	if duration <= 0 {
		return nil, ErrSessionMissingDuration
	}

	state := SessionIdle
	remaining := int64(0)
	if multisig {
		state = SessionAwaitingLock
		if lock != nil {
			if r := lock.Remaining(now, duration); r > 0 {
				state = SessionLocked
				remaining = r
			}
		}
	}

	return &SigningSession{
		ID:            id,
		WalletHash:    walletHash,
		Multisig:      multisig,
		Snapshot:      snapshot,
		State:         state,
		Duration:      duration,
		TimeRemaining: remaining,
		CreatedAt:     now,
	}, nil
}

// ObserveLock moves an awaiting session to Locked once the cooperative lock
// shows up at the coordination point, typically right after the first
// successful sign request. A nil record seeds the countdown from now, since
// the signing layer has just created the lock on our behalf.
func (s *SigningSession) ObserveLock(lock *LockRecord, now int64) {
	if s.State != SessionAwaitingLock {
		return
	}

	s.TimeRemaining = s.Duration
	if lock != nil {
		s.TimeRemaining = lock.Remaining(now, s.Duration)
	}
	s.State = SessionLocked
}

// Tick advances the countdown by one second of elapsed wall time and returns
// whether the session just expired. Ticks on any state but Locked are no-ops
// so a terminal transition always wins over a pending tick.
func (s *SigningSession) Tick() bool {
	if s.State != SessionLocked {
		return false
	}

	s.TimeRemaining--
	if s.TimeRemaining <= 0 {
		s.TimeRemaining = 0
		s.State = SessionExpired
		return true
	}
	return false
}

// CanSign returns whether the sign action is currently permitted: the
// transaction is still incomplete, the wallet can contribute a signature and
// the session did not expire nor close.
func (s *SigningSession) CanSign(walletCanSign bool) bool {
	if s.Snapshot.Complete {
		return false
	}
	if s.State == SessionExpired || s.State == SessionClosed {
		return false
	}
	return walletCanSign
}

// CanBroadcast returns whether the broadcast action is currently permitted.
func (s *SigningSession) CanBroadcast(broadcastable bool) bool {
	if s.State == SessionClosed {
		return false
	}
	return broadcastable
}

// ApplySignedTx replaces the session snapshot with the one of the (possibly
// fully) signed transaction. Sign completions arriving after the session was
// closed are silently dropped.
func (s *SigningSession) ApplySignedTx(snapshot *TxSnapshot) {
	if s.State == SessionClosed || snapshot == nil {
		return
	}

	s.Snapshot = snapshot
	if snapshot.Complete {
		// A fresh complete signature set makes the session saveable again.
		s.Saved = false
	}
}

// MarkSaved flags the transaction as durably persisted or exported.
func (s *SigningSession) MarkSaved() {
	s.Saved = true
}

// Close transitions the session to its terminal state and reports whether
// the call actually closed it. Repeated closes are tolerated.
func (s *SigningSession) Close() bool {
	if s.State == SessionClosed {
		return false
	}
	s.State = SessionClosed
	return true
}

// IsClosed returns whether the session reached its terminal state.
func (s *SigningSession) IsClosed() bool {
	return s.State == SessionClosed
}

// IsExpired returns whether the countdown hit zero while the session was
// still open.
func (s *SigningSession) IsExpired() bool {
	return s.State == SessionExpired
}

// NeedsLockRelease returns whether the cooperative lock for this wallet has
// still to be released. Non-multisig sessions never hold a lock.
func (s *SigningSession) NeedsLockRelease() bool {
	return s.Multisig && !s.LockReleased
}

// MarkLockReleased records that the lock has been released and reports
// whether this is the first release. Guarantees the delete against the
// coordinator happens at most once per session.
func (s *SigningSession) MarkLockReleased() bool {
	if s.LockReleased {
		return false
	}
	s.LockReleased = true
	return true
}
