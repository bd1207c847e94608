package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"connectdeck/internal/models"
)

// ErrSnapshotNotFound means no snapshot is cached for the session id
var ErrSnapshotNotFound = errors.New("session snapshot not found")

// SnapshotStore persists session snapshots keyed by session id. It exists for
// offline resilience: the backend owns canonical state, this is the local
// copy served when the backend is unreachable.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a snapshot store over the cache database
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save upserts the session's snapshot
func (s *SnapshotStore) Save(session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	_, err = s.db.DB.Exec(
		s.db.Dialect.RewriteQuery(s.db.Dialect.UpsertSnapshotQuery()),
		session.ID, string(session.Status), payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

// Get loads the snapshot for a session id
func (s *SnapshotStore) Get(sessionID string) (*models.Session, error) {
	var payload []byte
	err := s.db.QueryRow(
		"SELECT payload FROM session_snapshots WHERE session_id = ?",
		sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	session := &models.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return session, nil
}

// Delete removes the snapshot for a session id
func (s *SnapshotStore) Delete(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM session_snapshots WHERE session_id = ?", sessionID)
	return err
}

// PruneCompleted removes completed-session snapshots last updated before the
// cutoff. Returns the number of snapshots removed.
func (s *SnapshotStore) PruneCompleted(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM session_snapshots WHERE status = ? AND updated_at < ?",
		string(models.StatusCompleted), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}

// ExportAll returns every cached snapshot, newest first, for the cachetool
// export command
func (s *SnapshotStore) ExportAll() ([]models.Session, error) {
	rows, err := s.db.Query(
		"SELECT payload FROM session_snapshots ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var session models.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
