package domain

import "context"

const (
	SessionStarted SessionEventType = iota
	SessionSigned
	SessionEnded
)

var (
	sessionTypeString = map[SessionEventType]string{
		SessionStarted: "SessionStarted",
		SessionSigned:  "SessionSigned",
		SessionEnded:   "SessionEnded",
	}
)

type SessionEventType int

func (t SessionEventType) String() string {
	return sessionTypeString[t]
}

// SessionEvent holds info about an event occured within the repository.
type SessionEvent struct {
	EventType SessionEventType
	Session   SigningSession
}

// SessionRepository is the abstraction for any kind of database intended to
// persist the active SigningSessions.
type SessionRepository interface {
	// AddSession adds the provided session to the repository by preventing
	// duplicates. Generates a SessionStarted event if successful.
	AddSession(ctx context.Context, session *SigningSession) (bool, error)
	// GetSession returns the session identified by the given id, or
	// ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*SigningSession, error)
	// GetAllSessions returns all sessions currently in the repository.
	GetAllSessions(ctx context.Context) ([]SigningSession, error)
	// UpdateSession allows to commit multiple changes to the same session in
	// a transactional way.
	UpdateSession(
		ctx context.Context, id string,
		updateFn func(session *SigningSession) (*SigningSession, error),
	) error
	// DeleteSession removes the session identified by the given id from the
	// repository. Generates a SessionEnded event if successful.
	DeleteSession(ctx context.Context, id string) error
	// GetEventChannel returns the channel of SessionEvents.
	GetEventChannel() chan SessionEvent
}
