package domain

// LockRecord is the advisory cooperative-signing lock stored by the remote
// coordination service. At most one record exists per wallet identity, its
// absence means no signing round is in progress.
// The record is shared across all cooperating participants: this process only
// reads it to seed the session countdown and deletes it on release, it never
// assumes exclusive write access.
type LockRecord struct {
	WalletHash string
	Timestamp  int64
}

// Remaining returns the lifetime left for the lock, in seconds, given the
// configured session duration. The remote timestamp is authoritative, only
// the delta is computed against the local clock.
func (l LockRecord) Remaining(now, duration int64) int64 {
	return ComputeRemaining(now, l.Timestamp, duration)
}

// ComputeRemaining returns duration - (now - lockTimestamp) clamped to zero.
func ComputeRemaining(now, lockTimestamp, duration int64) int64 {
	remaining := duration - (now - lockTimestamp)
	if remaining < 0 {
		return 0
	}
	return remaining
}
