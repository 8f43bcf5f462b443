package inmemory

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/exoslabs/cosigner/internal/core/domain"
)

type sessionInmemoryStore struct {
	sessions map[string]*domain.SigningSession
	lock     *sync.RWMutex
}

type sessionRepository struct {
	store            *sessionInmemoryStore
	chEvents         chan domain.SessionEvent
	externalChEvents chan domain.SessionEvent
	chLock           *sync.Mutex

	log func(format string, a ...interface{})
}

func NewSessionRepository() domain.SessionRepository {
	return newSessionRepository()
}

func newSessionRepository() *sessionRepository {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("session repository: %s", format)
		log.Debugf(format, a...)
	}
	return &sessionRepository{
		store: &sessionInmemoryStore{
			sessions: make(map[string]*domain.SigningSession),
			lock:     &sync.RWMutex{},
		},
		chEvents:         make(chan domain.SessionEvent, 10),
		externalChEvents: make(chan domain.SessionEvent, 10),
		chLock:           &sync.Mutex{},
		log:              logFn,
	}
}

func (r *sessionRepository) AddSession(
	_ context.Context, session *domain.SigningSession,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.sessions[session.ID]; ok {
		return false, nil
	}

	sessionCopy := *session
	r.store.sessions[session.ID] = &sessionCopy

	go r.publishEvent(domain.SessionEvent{
		EventType: domain.SessionStarted,
		Session:   sessionCopy,
	})

	return true, nil
}

func (r *sessionRepository) GetSession(
	_ context.Context, sessionID string,
) (*domain.SigningSession, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	session, ok := r.store.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

func (r *sessionRepository) GetAllSessions(
	_ context.Context,
) ([]domain.SigningSession, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	sessions := make([]domain.SigningSession, 0, len(r.store.sessions))
	for _, session := range r.store.sessions {
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (r *sessionRepository) UpdateSession(
	_ context.Context, sessionID string,
	updateFn func(*domain.SigningSession) (*domain.SigningSession, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	session, ok := r.store.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	wasComplete := session.Snapshot.Complete

	sessionCopy := *session
	updatedSession, err := updateFn(&sessionCopy)
	if err != nil {
		return err
	}

	r.store.sessions[sessionID] = updatedSession

	if updatedSession.Snapshot.Complete && !wasComplete {
		go r.publishEvent(domain.SessionEvent{
			EventType: domain.SessionSigned,
			Session:   *updatedSession,
		})
	}

	return nil
}

func (r *sessionRepository) DeleteSession(
	_ context.Context, sessionID string,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	session, ok := r.store.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	delete(r.store.sessions, sessionID)

	go r.publishEvent(domain.SessionEvent{
		EventType: domain.SessionEnded,
		Session:   *session,
	})

	return nil
}

func (r *sessionRepository) GetEventChannel() chan domain.SessionEvent {
	return r.externalChEvents
}

func (r *sessionRepository) publishEvent(event domain.SessionEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *sessionRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}
