package db_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
	dbbadger "github.com/exoslabs/cosigner/internal/infrastructure/storage/db/badger"
	"github.com/exoslabs/cosigner/internal/infrastructure/storage/db/inmemory"
)

var ctx = context.Background()

func TestSessionRepository(t *testing.T) {
	repoManagers, err := newRepoManagers(
		func(repoType string) ports.SessionEventHandler {
			return func(event domain.SessionEvent) {
				t.Logf(
					"received event from %s repo: {EventType: %s, SessionID: %s}\n",
					repoType, event.EventType, event.Session.ID,
				)
			}
		},
	)
	require.NoError(t, err)

	for name, repoManager := range repoManagers {
		t.Run(name, func(t *testing.T) {
			testSessionRepository(t, repoManager.SessionRepository())
		})
	}
}

func testSessionRepository(t *testing.T, repo domain.SessionRepository) {
	session := newTestSession(t)

	t.Run("add_session", func(t *testing.T) {
		got, err := repo.GetSession(ctx, session.ID)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
		require.Nil(t, got)

		done, err := repo.AddSession(ctx, session)
		require.NoError(t, err)
		require.True(t, done)

		done, err = repo.AddSession(ctx, session)
		require.NoError(t, err)
		require.False(t, done)

		got, err = repo.GetSession(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, session.ID, got.ID)
		require.Equal(t, session.Snapshot.TxID, got.Snapshot.TxID)
		require.Equal(t, session.State, got.State)

		sessions, err := repo.GetAllSessions(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
	})

	t.Run("update_session", func(t *testing.T) {
		err := repo.UpdateSession(
			ctx, session.ID,
			func(s *domain.SigningSession) (*domain.SigningSession, error) {
				s.ObserveLock(nil, time.Now().Unix())
				return s, nil
			},
		)
		require.NoError(t, err)

		got, err := repo.GetSession(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, domain.SessionLocked, got.State)
		require.Equal(t, session.Duration, got.TimeRemaining)

		err = repo.UpdateSession(
			ctx, "unknown",
			func(s *domain.SigningSession) (*domain.SigningSession, error) {
				return s, nil
			},
		)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("delete_session", func(t *testing.T) {
		err := repo.DeleteSession(ctx, session.ID)
		require.NoError(t, err)

		got, err := repo.GetSession(ctx, session.ID)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
		require.Nil(t, got)

		err = repo.DeleteSession(ctx, session.ID)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func newRepoManagers(
	handlerFactory func(repoType string) ports.SessionEventHandler,
) (map[string]ports.RepoManager, error) {
	inmemoryRepoManager := inmemory.NewRepoManager()
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil)
	if err != nil {
		return nil, err
	}

	repoManagers := map[string]ports.RepoManager{
		"inmemory": inmemoryRepoManager,
		"badger":   badgerRepoManager,
	}
	for repoType, repoManager := range repoManagers {
		repoManager.RegisterHandlerForSessionEvent(
			domain.SessionStarted, handlerFactory(repoType),
		)
		repoManager.RegisterHandlerForSessionEvent(
			domain.SessionEnded, handlerFactory(repoType),
		)
	}
	return repoManagers, nil
}

func newTestSession(t *testing.T) *domain.SigningSession {
	t.Helper()

	snapshot, err := domain.NewTxSnapshot(randomTxHex(t), nil)
	require.NoError(t, err)

	session, err := domain.NewSigningSession(
		randomHex(16), randomHex(32), true, snapshot, 600, nil,
		time.Now().Unix(),
	)
	require.NoError(t, err)
	return session
}

func randomTxHex(t *testing.T) string {
	t.Helper()

	tx := wire.NewMsgTx(2)
	var prevHash chainhash.Hash
	// nolint:errcheck
	rand.Read(prevHash[:])
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	script := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	tx.AddTxOut(wire.NewTxOut(100000, script))

	buf := bytes.Buffer{}
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

func randomHex(size int) string {
	buf := make([]byte, size)
	// nolint:errcheck
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
