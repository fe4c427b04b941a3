package eventstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteSnapshotStore is an embedded, CGo-free SnapshotStore backend for
// single-binary deployments where a Postgres instance is unavailable. It
// keeps one row per streamId, overwritten on every Save, matching the "most
// recent snapshot wins" semantics Load expects.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// OpenSQLiteSnapshotStore opens (and migrates, if needed) a snapshot store
// at path. Use ":memory:" for ephemeral/test use.
func OpenSQLiteSnapshotStore(path string) (*SQLiteSnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open sqlite snapshot store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		stream_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		state_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: migrate sqlite snapshot store: %w", err)
	}
	return &SQLiteSnapshotStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSnapshotStore) Save(streamID string, version int64, state interface{}) (Snapshot, error) {
	snap, err := newSnapshot(streamID, version, state)
	if err != nil {
		return Snapshot{}, err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eventstore: marshal snapshot state: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (stream_id, version, state_json, state_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stream_id) DO UPDATE SET
			version=excluded.version,
			state_json=excluded.state_json,
			state_hash=excluded.state_hash,
			created_at=excluded.created_at`,
		streamID, version, string(stateJSON), snap.StateHash, snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eventstore: save sqlite snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLiteSnapshotStore) Load(streamID string) (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT version, state_json, state_hash, created_at
		FROM snapshots WHERE stream_id = ?`, streamID)

	var version int64
	var stateJSON, stateHash, createdAt string
	if err := row.Scan(&version, &stateJSON, &stateHash, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("eventstore: load sqlite snapshot: %w", err)
	}

	var state interface{}
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("eventstore: decode sqlite snapshot state: %w", err)
	}

	return &Snapshot{
		StreamID:  streamID,
		Version:   version,
		State:     state,
		StateHash: stateHash,
		CreatedAt: createdAt,
	}, nil
}
