package storage

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store using a MySQL backend.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore creates a new MySQL-backed store from a DSN.
func NewMySQLStore(dsn string) (Store, error) {
	// created_at scans into time.Time only with parseTime enabled
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &MySQLStore{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initDB initializes the database schema
func (s *MySQLStore) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_events (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		session_id VARCHAR(64) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_events_session (session_id),
		INDEX idx_events_created (created_at)
	)`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSessionEvent appends one lifecycle event
func (s *MySQLStore) SaveSessionEvent(ev *SessionEvent) error {
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
func (s *MySQLStore) GetSessionEvents(sessionID string, limit int) ([]*SessionEvent, error) {
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
func (s *MySQLStore) GetRecentEvents(limit int) ([]*SessionEvent, error) {
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
func (s *MySQLStore) GetStats() (int, map[string]int, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
