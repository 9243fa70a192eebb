package storage

import "time"

// SessionEvent is one recorded session lifecycle transition. The event log
// is diagnostic history only; nothing is rebuilt from it on restart.
type SessionEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"` // created | established | failed | closed
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for the session event log.
type Store interface {
	// SaveSessionEvent appends one lifecycle event
	SaveSessionEvent(ev *SessionEvent) error

	// GetSessionEvents returns events for one session, newest first
	GetSessionEvents(sessionID string, limit int) ([]*SessionEvent, error)

	// GetRecentEvents returns the newest events across all sessions
	GetRecentEvents(limit int) ([]*SessionEvent, error)

	// GetStats returns the total event count and a per-kind breakdown
	GetStats() (total int, byKind map[string]int, err error)

	// Lifecycle
	Close() error
}
