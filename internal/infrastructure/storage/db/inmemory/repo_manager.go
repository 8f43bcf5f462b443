package inmemory

import (
	"sync"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
)

type repoManager struct {
	sessionRepository *sessionRepository

	sessionEventHandlers *handlerMap
}

// NewRepoManager is the factory for creating a new in-memory implementation
// of the ports.RepoManager interface.
func NewRepoManager() ports.RepoManager {
	rm := &repoManager{
		sessionRepository:    newSessionRepository(),
		sessionEventHandlers: newHandlerMap(),
	}

	go rm.listenToSessionEvents()

	return rm
}

func (rm *repoManager) SessionRepository() domain.SessionRepository {
	return rm.sessionRepository
}

func (rm *repoManager) RegisterHandlerForSessionEvent(
	eventType domain.SessionEventType, handler ports.SessionEventHandler,
) {
	rm.sessionEventHandlers.set(int(eventType), handler)
}

func (rm *repoManager) Close() {
	rm.sessionRepository.close()
}

func (rm *repoManager) listenToSessionEvents() {
	for event := range rm.sessionRepository.chEvents {
		if handlers, ok := rm.sessionEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.SessionEventHandler)(event)
			}
		}
	}
}

// handlerMap is a util type to prevent race conditions when registering
// or retrieving handlers for events.
type handlerMap struct {
	handlersByEventType map[int][]interface{}
	lock                *sync.RWMutex
}

func newHandlerMap() *handlerMap {
	return &handlerMap{
		handlersByEventType: make(map[int][]interface{}),
		lock:                &sync.RWMutex{},
	}
}

func (m *handlerMap) set(key int, val interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.handlersByEventType[key] = append(m.handlersByEventType[key], val)
}

func (m *handlerMap) get(key int) ([]interface{}, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, ok := m.handlersByEventType[key]
	return val, ok
}
