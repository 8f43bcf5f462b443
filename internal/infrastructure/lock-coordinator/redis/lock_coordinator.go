package redislock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
)

const lockKeyPrefix = "signing_lock"

type lockRecord struct {
	Timestamp int64 `json:"timestamp"`
}

// service implements ports.LockCoordinator on top of a redis instance
// shared by all the cosigners of a wallet. Locks are placed by whoever
// starts a signing round, this service only observes and deletes them.
type service struct {
	client *redis.Client

	log func(format string, a ...interface{})
}

func NewLockCoordinator(
	addr, password string, db int,
) (ports.LockCoordinator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("lock coordinator: %s", format)
		log.Debugf(format, a...)
	}
	return &service{client, logFn}, nil
}

func (s *service) GetLock(
	ctx context.Context, walletHash string,
) (*domain.LockRecord, error) {
	payload, err := s.client.Get(ctx, lockKey(walletHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to retrieve signing lock")
	}

	var record lockRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, errors.Wrap(err, "failed to decode signing lock")
	}

	return &domain.LockRecord{
		WalletHash: walletHash,
		Timestamp:  record.Timestamp,
	}, nil
}

func (s *service) DeleteLock(ctx context.Context, walletHash string) error {
	if err := s.client.Del(ctx, lockKey(walletHash)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete signing lock")
	}

	s.log("deleted lock for wallet %s", walletHash)
	return nil
}

// PutLock stores a lock record, it's meant for the participant that opens
// the signing round and for seeding test fixtures. Not part of the
// LockCoordinator interface on purpose.
func (s *service) PutLock(ctx context.Context, lock domain.LockRecord) error {
	payload, _ := json.Marshal(lockRecord{Timestamp: lock.Timestamp})
	if err := s.client.Set(
		ctx, lockKey(lock.WalletHash), payload, 0,
	).Err(); err != nil {
		return errors.Wrap(err, "failed to store signing lock")
	}
	return nil
}

func lockKey(walletHash string) string {
	return fmt.Sprintf("%s:%s", lockKeyPrefix, walletHash)
}
