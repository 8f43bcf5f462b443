package inmemorylock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/exoslabs/cosigner/internal/core/domain"
	inmemorylock "github.com/exoslabs/cosigner/internal/infrastructure/lock-coordinator/inmemory"
)

func TestLockCoordinator(t *testing.T) {
	ctx := context.Background()
	walletHash := "a1b2c3"

	svc := inmemorylock.NewLockCoordinator()

	lock, err := svc.GetLock(ctx, walletHash)
	require.NoError(t, err)
	require.Nil(t, lock)

	// deleting a missing lock is tolerated.
	require.NoError(t, svc.DeleteLock(ctx, walletHash))

	record := domain.LockRecord{
		WalletHash: walletHash, Timestamp: time.Now().Unix(),
	}
	seeder := svc.(interface {
		PutLock(ctx context.Context, record domain.LockRecord) error
	})
	require.NoError(t, seeder.PutLock(ctx, record))

	lock, err = svc.GetLock(ctx, walletHash)
	require.NoError(t, err)
	require.NotNil(t, lock)
	require.Equal(t, record.Timestamp, lock.Timestamp)

	require.NoError(t, svc.DeleteLock(ctx, walletHash))
	lock, err = svc.GetLock(ctx, walletHash)
	require.NoError(t, err)
	require.Nil(t, lock)
}
