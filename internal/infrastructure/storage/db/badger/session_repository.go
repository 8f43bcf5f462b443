package dbbadger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/exoslabs/cosigner/internal/core/domain"
)

type sessionRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.SessionEvent
	externalChEvents chan domain.SessionEvent
	lock             *sync.Mutex

	log func(format string, a ...interface{})
}

func NewSessionRepository(store *badgerhold.Store) domain.SessionRepository {
	return newSessionRepository(store)
}

func newSessionRepository(store *badgerhold.Store) *sessionRepository {
	chEvents := make(chan domain.SessionEvent, 10)
	externalChEvents := make(chan domain.SessionEvent, 10)
	lock := &sync.Mutex{}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("session repository: %s", format)
		log.Debugf(format, a...)
	}
	return &sessionRepository{store, chEvents, externalChEvents, lock, logFn}
}

func (r *sessionRepository) AddSession(
	ctx context.Context, session *domain.SigningSession,
) (bool, error) {
	done, err := r.insertSession(ctx, session)
	if err != nil {
		return false, err
	}

	if done {
		go r.publishEvent(domain.SessionEvent{
			EventType: domain.SessionStarted,
			Session:   *session,
		})
	}

	return done, nil
}

func (r *sessionRepository) GetSession(
	ctx context.Context, sessionID string,
) (*domain.SigningSession, error) {
	return r.getSession(ctx, sessionID)
}

func (r *sessionRepository) GetAllSessions(
	ctx context.Context,
) ([]domain.SigningSession, error) {
	var sessions []domain.SigningSession
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &sessions, nil)
	} else {
		err = r.store.Find(&sessions, nil)
	}
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) UpdateSession(
	ctx context.Context, sessionID string,
	updateFn func(*domain.SigningSession) (*domain.SigningSession, error),
) error {
	session, err := r.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	wasComplete := session.Snapshot.Complete

	updatedSession, err := updateFn(session)
	if err != nil {
		return err
	}

	if err := r.updateSession(ctx, updatedSession); err != nil {
		return err
	}

	if updatedSession.Snapshot.Complete && !wasComplete {
		go r.publishEvent(domain.SessionEvent{
			EventType: domain.SessionSigned,
			Session:   *updatedSession,
		})
	}

	return nil
}

func (r *sessionRepository) DeleteSession(
	ctx context.Context, sessionID string,
) error {
	session, err := r.getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := r.deleteSession(ctx, sessionID); err != nil {
		return err
	}

	go r.publishEvent(domain.SessionEvent{
		EventType: domain.SessionEnded,
		Session:   *session,
	})

	return nil
}

func (r *sessionRepository) GetEventChannel() chan domain.SessionEvent {
	return r.externalChEvents
}

func (r *sessionRepository) insertSession(
	ctx context.Context, session *domain.SigningSession,
) (bool, error) {
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(tx, session.ID, *session)
	} else {
		err = r.store.Insert(session.ID, *session)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *sessionRepository) getSession(
	ctx context.Context, sessionID string,
) (*domain.SigningSession, error) {
	var err error
	var session domain.SigningSession

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, sessionID, &session)
	} else {
		err = r.store.Get(sessionID, &session)
	}

	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepository) updateSession(
	ctx context.Context, session *domain.SigningSession,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(tx, session.ID, *session)
	}
	return r.store.Update(session.ID, *session)
}

func (r *sessionRepository) deleteSession(
	ctx context.Context, sessionID string,
) error {
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxDelete(tx, sessionID, domain.SigningSession{})
	} else {
		err = r.store.Delete(sessionID, domain.SigningSession{})
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return domain.ErrSessionNotFound
		}
		return err
	}

	return nil
}

func (r *sessionRepository) publishEvent(event domain.SessionEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *sessionRepository) close() {
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}
