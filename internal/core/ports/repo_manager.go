package ports

import (
	"github.com/exoslabs/cosigner/internal/core/domain"
)

type SessionEventHandler func(event domain.SessionEvent)

// RepoManager is the abstraction for any kind of service intended to manage
// domain repositories implementations of the same concrete type.
type RepoManager interface {
	// SessionRepository returns the signing session repository.
	SessionRepository() domain.SessionRepository

	// RegisterHandlerForSessionEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForSessionEvent(
		eventType domain.SessionEventType, handler SessionEventHandler,
	)

	// Close closes the connection with the concrete repositories
	// implementations.
	Close()
}
