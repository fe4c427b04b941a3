package eventstore

import (
	"sync"
	"time"

	"github.com/attestia/trustengine/pkg/canonicalize"
)

// SnapshotStore is the content-addressed snapshot sibling to the event log:
// save computes stateHash and createdAt, load returns the most recent
// snapshot for a stream, and VerifyIntegrity is a pure recompute-and-compare
// usable against any Snapshot value regardless of backend.
type SnapshotStore interface {
	Save(streamID string, version int64, state interface{}) (Snapshot, error)
	Load(streamID string) (*Snapshot, error)
}

// VerifyIntegrity recomputes a snapshot's stateHash from its state and
// compares it to the stored hash. Tampered state is detected this way
// regardless of which backend produced the snapshot.
func VerifyIntegrity(snap Snapshot) bool {
	recomputed, err := canonicalize.Digest(snap.State)
	if err != nil {
		return false
	}
	return recomputed == snap.StateHash
}

func newSnapshot(streamID string, version int64, state interface{}) (Snapshot, error) {
	hash, err := canonicalize.Digest(state)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		StreamID:  streamID,
		Version:   version,
		State:     state,
		StateHash: hash,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// MemorySnapshotStore is the simplest SnapshotStore: an in-process map,
// not persisted, one slot per stream holding its latest snapshot.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemorySnapshotStore returns an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]Snapshot)}
}

func (m *MemorySnapshotStore) Save(streamID string, version int64, state interface{}) (Snapshot, error) {
	snap, err := newSnapshot(streamID, version, state)
	if err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	m.snapshots[streamID] = snap
	m.mu.Unlock()
	return snap, nil
}

func (m *MemorySnapshotStore) Load(streamID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[streamID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}
