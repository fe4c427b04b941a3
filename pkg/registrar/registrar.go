// Package registrar implements the structural registrar: an ordered state
// registry that accepts only root declarations and self-transitions,
// enforcing fail-closed rejection and deterministic snapshot/replay.
package registrar

import (
	"log/slog"
	"sync"

	"github.com/attestia/trustengine/pkg/canonicalize"
)

// State is a registered entity: its structure may mark isRoot=true.
type State struct {
	ID        string                 `json:"id"`
	Structure map[string]interface{} `json:"structure"`
	Data      interface{}            `json:"data"`
}

func (s State) isRoot() bool {
	v, _ := s.Structure["isRoot"].(bool)
	return v
}

// Transition is (from: stateId | nil, to: State).
type Transition struct {
	From *string
	To   State
}

// Accepted is returned on a successful Register.
type Accepted struct {
	OrderIndex int64
}

// Violation names the rejected classification and a human detail.
type Violation struct {
	Classification string
	Detail         string
}

// RejectedError carries one or more violations; it implements error so
// Register's failure path composes with the rest of the error taxonomy.
type RejectedError struct {
	Violations []Violation
}

func (e *RejectedError) Error() string {
	if len(e.Violations) == 0 {
		return "transition rejected"
	}
	return e.Violations[0].Classification + ": " + e.Violations[0].Detail
}

func reject(classification, detail string) (Accepted, error) {
	return Accepted{}, &RejectedError{Violations: []Violation{{Classification: classification, Detail: detail}}}
}

type transitionRecord struct {
	OrderIndex int64
	From       *string
	To         State
}

// Registrar is one logical instance: id -> state, an ordered transition log
// with strictly increasing orderIndex, and a lineage predecessor map.
type Registrar struct {
	mu          sync.Mutex
	logger      *slog.Logger
	states      map[string]State
	transitions []transitionRecord
	lineage     map[string][]string
}

// New returns an empty Registrar. logger defaults to slog.Default() and
// receives a Warn record for every rejected transition (HALT,
// EXPLICIT_LINEAGE, UNKNOWN_PARENT, EMPTY_ID).
func New(logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		logger:  logger,
		states:  make(map[string]State),
		lineage: make(map[string][]string),
	}
}

// Register accepts a root declaration or a self-transition and rejects
// everything else, fail-closed: neither state nor orderIndex mutate on
// rejection.
func (r *Registrar) Register(t Transition) (Accepted, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.To.ID == "" {
		return r.reject("EMPTY_ID", "state id must not be empty")
	}

	switch {
	case t.From == nil:
		if !t.To.isRoot() {
			return r.reject("EXPLICIT_LINEAGE", "non-root transition must declare an existing parent")
		}
		if _, exists := r.states[t.To.ID]; exists {
			return r.reject("HALT", "state "+t.To.ID+" is already registered as a root")
		}
		return r.accept(t)

	case *t.From == t.To.ID:
		if _, exists := r.states[t.To.ID]; !exists {
			return r.reject("UNKNOWN_PARENT", "self-transition target "+t.To.ID+" is not registered")
		}
		return r.accept(t)

	default:
		if _, exists := r.states[*t.From]; !exists {
			return r.reject("UNKNOWN_PARENT", "from id "+*t.From+" is not registered")
		}
		return r.reject("EXPLICIT_LINEAGE", "only self-transitions are supported, not parent-child lineage")
	}
}

// reject logs the violation at Warn before returning it, so rejected
// transitions are observable without the caller having to inspect the
// returned error.
func (r *Registrar) reject(classification, detail string) (Accepted, error) {
	r.logger.Warn("registrar: transition rejected", "classification", classification, "detail", detail)
	return reject(classification, detail)
}

func (r *Registrar) accept(t Transition) (Accepted, error) {
	orderIndex := int64(len(r.transitions))
	r.states[t.To.ID] = t.To
	r.transitions = append(r.transitions, transitionRecord{OrderIndex: orderIndex, From: t.From, To: t.To})
	r.lineage[t.To.ID] = append(r.lineage[t.To.ID], t.To.ID)
	return Accepted{OrderIndex: orderIndex}, nil
}

// GetLineage returns the ordered sequence of updates observed for id.
func (r *Registrar) GetLineage(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lineage[id]...)
}

// Get returns the current state for id.
func (r *Registrar) Get(id string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[id]
	return s, ok
}

// RegisteredCount returns the number of accepted transitions.
func (r *Registrar) RegisteredCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.transitions))
}

// Snapshot is the deterministic, canonically hashable export of a
// Registrar's full state.
type Snapshot struct {
	Ordering     SnapshotOrdering         `json:"ordering"`
	RegistryHash string                   `json:"registry_hash"`
	States       map[string]State         `json:"states"`
	Transitions  []SnapshotTransition     `json:"transitions"`
}

// SnapshotOrdering carries one past the highest accepted orderIndex, i.e.
// the number of accepted transitions (0 when none).
type SnapshotOrdering struct {
	MaxIndex int64 `json:"max_index"`
}

// SnapshotTransition is the serializable form of an accepted transition.
type SnapshotTransition struct {
	OrderIndex int64   `json:"orderIndex"`
	From       *string `json:"from"`
	To         State   `json:"to"`
}

// Snapshot produces a deterministic object whose canonical form hashes
// stably across processes.
func (r *Registrar) Snapshot() (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		States: make(map[string]State, len(r.states)),
	}
	for id, s := range r.states {
		snap.States[id] = s
	}
	for _, tr := range r.transitions {
		snap.Transitions = append(snap.Transitions, SnapshotTransition{
			OrderIndex: tr.OrderIndex,
			From:       tr.From,
			To:         tr.To,
		})
		if tr.OrderIndex+1 > snap.Ordering.MaxIndex {
			snap.Ordering.MaxIndex = tr.OrderIndex + 1
		}
	}

	hash, err := canonicalize.Digest(map[string]interface{}{
		"ordering":    snap.Ordering,
		"states":      snap.States,
		"transitions": snap.Transitions,
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap.RegistryHash = hash

	return snap, nil
}

// FromSnapshot reconstructs a Registrar whose subsequent behaviour is
// indistinguishable from the one that produced snap: the next accepted
// transition yields orderIndex == len(snap.Transitions).
func FromSnapshot(snap Snapshot, logger *slog.Logger) *Registrar {
	r := New(logger)
	for id, s := range snap.States {
		r.states[id] = s
	}
	for _, tr := range snap.Transitions {
		r.transitions = append(r.transitions, transitionRecord{
			OrderIndex: tr.OrderIndex,
			From:       tr.From,
			To:         tr.To,
		})
		r.lineage[tr.To.ID] = append(r.lineage[tr.To.ID], tr.To.ID)
	}
	return r
}
