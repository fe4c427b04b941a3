package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSnapshotStore is the production SnapshotStore backend: a single
// table holding the most recent snapshot per stream, upserted on every Save.
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore wraps an already-open *sql.DB (the caller owns
// its lifecycle, matching the outbox/ledger stores' convention of accepting
// a shared connection pool rather than opening their own).
func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// Migrate creates the snapshots table if it does not already exist.
func (s *PostgresSnapshotStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS event_store_snapshots (
		stream_id TEXT PRIMARY KEY,
		version BIGINT NOT NULL,
		state_json JSONB NOT NULL,
		state_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("eventstore: migrate postgres snapshot store: %w", err)
	}
	return nil
}

// SaveContext upserts the snapshot for streamID. Save exists for symmetry
// with the SnapshotStore interface and delegates to SaveContext with a
// background context.
func (s *PostgresSnapshotStore) SaveContext(ctx context.Context, streamID string, version int64, state interface{}) (Snapshot, error) {
	snap, err := newSnapshot(streamID, version, state)
	if err != nil {
		return Snapshot{}, err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eventstore: marshal snapshot state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_store_snapshots (stream_id, version, state_json, state_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stream_id) DO UPDATE SET
			version = EXCLUDED.version,
			state_json = EXCLUDED.state_json,
			state_hash = EXCLUDED.state_hash,
			created_at = EXCLUDED.created_at
	`, streamID, version, stateJSON, snap.StateHash, snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eventstore: save postgres snapshot: %w", err)
	}
	return snap, nil
}

func (s *PostgresSnapshotStore) Save(streamID string, version int64, state interface{}) (Snapshot, error) {
	return s.SaveContext(context.Background(), streamID, version, state)
}

// LoadContext fetches the most recent snapshot for streamID, or nil if none
// has been saved yet.
func (s *PostgresSnapshotStore) LoadContext(ctx context.Context, streamID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT version, state_json, state_hash, created_at
		FROM event_store_snapshots WHERE stream_id = $1
	`, streamID)

	var version int64
	var stateJSON []byte
	var stateHash, createdAt string
	if err := row.Scan(&version, &stateJSON, &stateHash, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("eventstore: load postgres snapshot: %w", err)
	}

	var state interface{}
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, fmt.Errorf("eventstore: corrupt snapshot state for stream %s: %w", streamID, err)
	}

	return &Snapshot{
		StreamID:  streamID,
		Version:   version,
		State:     state,
		StateHash: stateHash,
		CreatedAt: createdAt,
	}, nil
}

func (s *PostgresSnapshotStore) Load(streamID string) (*Snapshot, error) {
	return s.LoadContext(context.Background(), streamID)
}
