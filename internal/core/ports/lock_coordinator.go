package ports

import (
	"context"

	"github.com/exoslabs/cosigner/internal/core/domain"
)

// LockCoordinator is the abstraction for the remote key-value store holding
// the cooperative-signing lock records, keyed by wallet identity.
// Lock creation and refresh are a side effect of a successful cooperative
// sign request and belong to the signing subsystem: the session controller
// only reads records to seed countdowns and deletes them on release.
type LockCoordinator interface {
	// GetLock returns the lock record for the given wallet identity, or nil
	// if the wallet is currently unlocked.
	GetLock(ctx context.Context, walletHash string) (*domain.LockRecord, error)
	// DeleteLock removes the lock record for the given wallet identity.
	// Deleting an absent record is not an error.
	DeleteLock(ctx context.Context, walletHash string) error
}
