package storage

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using a SQLite backend.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initDB initializes the database schema
func (s *SQLiteStore) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON session_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_events_created ON session_events(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSessionEvent appends one lifecycle event
func (s *SQLiteStore) SaveSessionEvent(ev *SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := ev.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	res, err := s.db.Exec(
		"INSERT INTO session_events (session_id, kind, created_at) VALUES (?, ?, ?)",
		ev.SessionID, ev.Kind, at,
	)
	if err != nil {
		return err
	}

	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// GetSessionEvents returns events for one session, newest first
func (s *SQLiteStore) GetSessionEvents(sessionID string, limit int) ([]*SessionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, session_id, kind, created_at FROM session_events WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetRecentEvents returns the newest events across all sessions
func (s *SQLiteStore) GetRecentEvents(limit int) ([]*SessionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, session_id, kind, created_at FROM session_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetStats returns the total event count and a per-kind breakdown
func (s *SQLiteStore) GetStats() (int, map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM session_events GROUP BY kind")
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	total := 0
	byKind := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return 0, nil, err
		}
		byKind[kind] = count
		total += count
	}

	return total, byKind, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// scanEvents reads session events from a query result
func scanEvents(rows *sql.Rows) ([]*SessionEvent, error) {
	var events []*SessionEvent
	for rows.Next() {
		ev := &SessionEvent{}
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Kind, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
