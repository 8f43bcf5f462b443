package inmemorylock

import (
	"context"
	"sync"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
)

// service is an in-memory ports.LockCoordinator, useful for single-node
// setups and for testing. It mimics the remote coordinator semantics:
// locks are advisory records keyed by wallet hash.
type service struct {
	locks map[string]domain.LockRecord
	lock  *sync.RWMutex
}

func NewLockCoordinator() ports.LockCoordinator {
	return &service{
		locks: make(map[string]domain.LockRecord),
		lock:  &sync.RWMutex{},
	}
}

func (s *service) GetLock(
	_ context.Context, walletHash string,
) (*domain.LockRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	record, ok := s.locks[walletHash]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *service) DeleteLock(_ context.Context, walletHash string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.locks, walletHash)
	return nil
}

// PutLock stores a lock record, it's meant for the participant that opens
// the signing round and for seeding test fixtures.
func (s *service) PutLock(_ context.Context, record domain.LockRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.locks[record.WalletHash] = record
	return nil
}
