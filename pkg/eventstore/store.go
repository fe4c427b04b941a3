package eventstore

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/trust"
)

// GenesisHash is the prevHash of the first event ever appended to a store.
var GenesisHash = strings.Repeat("0", 64)

// Persister durably appends a batch of StoredEvents. It must persist all of
// batch atomically (single write plus a flush to the device) before
// returning nil; any error must leave no partial trace an append can mistake
// for success.
type Persister interface {
	Append(batch []StoredEvent) error
}

// Subscription is returned by Subscribe/SubscribeAll. Unsubscribe is
// idempotent.
type Subscription struct {
	store *Store
	id    uint64
	all   bool
	key   string
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.store.unsubscribe(s)
}

type handlerEntry struct {
	id      uint64
	handler func(StoredEvent)
}

// Store is a single logical event store instance: one backing persister,
// one in-memory index, one hash chain. All mutations are serialized by mu so
// concurrent callers observe the single-threaded-cooperative ordering the
// trust engine requires.
type Store struct {
	mu sync.Mutex

	persister Persister
	logger    *slog.Logger

	streams   map[string][]StoredEvent
	all       []StoredEvent
	nextPos   int64
	lastHash  string

	streamSubs map[string][]handlerEntry
	allSubs    []handlerEntry
	nextSubID  uint64
}

// New constructs a Store backed by persister, seeded with any previously
// recovered events (in global-position order) so construction from a
// crash-recovered backend reproduces the exact pre-crash indices.
func New(persister Persister, recovered []StoredEvent, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		persister:  persister,
		logger:     logger,
		streams:    make(map[string][]StoredEvent),
		streamSubs: make(map[string][]handlerEntry),
		lastHash:   GenesisHash,
		nextPos:    1,
	}
	for _, ev := range recovered {
		s.streams[ev.StreamID] = append(s.streams[ev.StreamID], ev)
		s.all = append(s.all, ev)
		if ev.GlobalPosition >= s.nextPos {
			s.nextPos = ev.GlobalPosition + 1
		}
		s.lastHash = ev.SelfHash
	}
	return s
}

// Append assigns versions and global positions to events, persists them,
// then dispatches to subscribers. It fails with INVALID_STREAM_ID on an
// empty streamID, EMPTY_APPEND on an empty event list, CONCURRENCY_CONFLICT
// when opts.ExpectedVersion does not hold, and VALIDATION_FAILED when an
// event cannot be canonicalized or persistence fails; a failed append leaves
// the in-memory state unchanged.
func (s *Store) Append(streamID string, events []Event, opts AppendOptions) (AppendResult, error) {
	if streamID == "" {
		return AppendResult{}, trust.New(trust.CodeInvalidStreamID, "streamId must not be empty")
	}
	if len(events) == 0 {
		return AppendResult{}, trust.New(trust.CodeEmptyAppend, "events must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.streams[streamID]
	currentVersion := int64(len(current))

	if opts.ExpectedVersion.set {
		if opts.ExpectedVersion.noStream {
			if currentVersion != 0 {
				return AppendResult{}, trust.New(trust.CodeConcurrencyConflict, "stream already exists")
			}
		} else if currentVersion != opts.ExpectedVersion.version {
			return AppendResult{}, trust.New(trust.CodeConcurrencyConflict, "expected version mismatch")
		}
	}

	fromVersion := currentVersion + 1
	batch := make([]StoredEvent, len(events))
	prevHash := s.lastHash
	pos := s.nextPos

	for i, ev := range events {
		version := fromVersion + int64(i)
		selfHash, err := canonicalize.Digest(map[string]interface{}{
			"prevHash":       prevHash,
			"streamId":       streamID,
			"version":        version,
			"globalPosition": pos,
			"event":          ev,
		})
		if err != nil {
			return AppendResult{}, trust.Wrap(trust.CodeValidationFailed, "event is not canonicalizable", err)
		}
		batch[i] = StoredEvent{
			Event:          ev,
			StreamID:       streamID,
			Version:        version,
			GlobalPosition: pos,
			AppendedAt:     nowRFC3339(),
			PrevHash:       prevHash,
			SelfHash:       selfHash,
		}
		prevHash = selfHash
		pos++
	}

	if err := s.persister.Append(batch); err != nil {
		return AppendResult{}, trust.Wrap(trust.CodeValidationFailed, "persistence failed, append rejected", err)
	}

	s.streams[streamID] = append(s.streams[streamID], batch...)
	s.all = append(s.all, batch...)
	s.nextPos = pos
	s.lastHash = prevHash

	s.dispatch(streamID, batch)

	return AppendResult{
		StreamID:    streamID,
		FromVersion: fromVersion,
		ToVersion:   fromVersion + int64(len(events)) - 1,
		Count:       len(events),
	}, nil
}

func (s *Store) dispatch(streamID string, batch []StoredEvent) {
	streamHandlers := append([]handlerEntry(nil), s.streamSubs[streamID]...)
	allHandlers := append([]handlerEntry(nil), s.allSubs...)

	for _, ev := range batch {
		for _, h := range streamHandlers {
			s.invoke(h, ev)
		}
		for _, h := range allHandlers {
			s.invoke(h, ev)
		}
	}
}

func (s *Store) invoke(h handlerEntry, ev StoredEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("eventstore: subscriber handler panicked", "recover", r)
		}
	}()
	h.handler(ev)
}

// Read returns events from a single stream in version order.
func (s *Store) Read(streamID string, opts ReadOptions) ([]StoredEvent, error) {
	fromVersion := opts.FromVersion
	if fromVersion == 0 {
		fromVersion = 1
	}
	if fromVersion < 1 {
		return nil, trust.New(trust.CodeInvalidVersion, "fromVersion must be >= 1")
	}
	direction := opts.Direction
	if direction == "" {
		direction = Forward
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []StoredEvent
	if direction == Backward {
		for i := len(s.streams[streamID]) - 1; i >= 0; i-- {
			ev := s.streams[streamID][i]
			if ev.Version <= fromVersion {
				out = append(out, ev)
				if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
					break
				}
			}
		}
	} else {
		for _, ev := range s.streams[streamID] {
			if ev.Version >= fromVersion {
				out = append(out, ev)
				if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
					break
				}
			}
		}
	}
	return out, nil
}

// ReadAll returns events from the global log in position order.
func (s *Store) ReadAll(opts ReadAllOptions) ([]StoredEvent, error) {
	fromPosition := opts.FromPosition
	if fromPosition == 0 {
		fromPosition = 1
	}
	direction := opts.Direction
	if direction == "" {
		direction = Forward
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []StoredEvent
	if direction == Backward {
		for i := len(s.all) - 1; i >= 0; i-- {
			ev := s.all[i]
			if ev.GlobalPosition <= fromPosition {
				out = append(out, ev)
				if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
					break
				}
			}
		}
	} else {
		for _, ev := range s.all {
			if ev.GlobalPosition >= fromPosition {
				out = append(out, ev)
				if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
					break
				}
			}
		}
	}
	return out, nil
}

// Subscribe registers handler for every event appended to streamID from now
// on, invoked synchronously in append order after persistence.
func (s *Store) Subscribe(streamID string, handler func(StoredEvent)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.streamSubs[streamID] = append(s.streamSubs[streamID], handlerEntry{id: id, handler: handler})
	return &Subscription{store: s, id: id, key: streamID}
}

// SubscribeAll registers handler for every event appended to any stream.
func (s *Store) SubscribeAll(handler func(StoredEvent)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.allSubs = append(s.allSubs, handlerEntry{id: id, handler: handler})
	return &Subscription{store: s, id: id, all: true}
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.all {
		s.allSubs = removeHandler(s.allSubs, sub.id)
		return
	}
	s.streamSubs[sub.key] = removeHandler(s.streamSubs[sub.key], sub.id)
}

func removeHandler(list []handlerEntry, id uint64) []handlerEntry {
	out := list[:0:0]
	for _, h := range list {
		if h.id != id {
			out = append(out, h)
		}
	}
	return out
}

// StreamExists reports whether any event has ever been appended to id.
func (s *Store) StreamExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams[id]) > 0
}

// StreamVersion returns the highest version appended to id, or 0.
func (s *Store) StreamVersion(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.streams[id]))
}

// GlobalPosition returns the highest global position assigned so far, or 0.
func (s *Store) GlobalPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextPos - 1
}

// VerifyIntegrity walks the global log recomputing every selfHash and
// checking prev-links. It is idempotent and side-effect-free.
func (s *Store) VerifyIntegrity() IntegrityResult {
	s.mu.Lock()
	all := append([]StoredEvent(nil), s.all...)
	s.mu.Unlock()

	result := IntegrityResult{Valid: true}
	prevHash := GenesisHash

	for _, ev := range all {
		if !strings.EqualFold(ev.PrevHash, prevHash) {
			result.Valid = false
			result.Errors = append(result.Errors, "prevHash mismatch at globalPosition "+itoa(ev.GlobalPosition))
		}
		recomputed, err := canonicalize.Digest(map[string]interface{}{
			"prevHash":       ev.PrevHash,
			"streamId":       ev.StreamID,
			"version":        ev.Version,
			"globalPosition": ev.GlobalPosition,
			"event":          ev.Event,
		})
		if err != nil || recomputed != ev.SelfHash {
			result.Valid = false
			result.Errors = append(result.Errors, "selfHash mismatch at globalPosition "+itoa(ev.GlobalPosition))
		}
		prevHash = ev.SelfHash
		result.LastVerifiedPosition = ev.GlobalPosition
	}

	return result
}
