// Package governance implements the event-sourced N-of-M signer/quorum
// store: every accepted mutation is an event, state is rebuilt by replaying
// the event log through one apply function, and quorum can never exceed
// total signer weight.
package governance

import (
	"sort"
	"sync"
	"time"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/trust"
)

// EventType enumerates the governance lifecycle events.
type EventType string

const (
	SignerAdded   EventType = "signer_added"
	SignerRemoved EventType = "signer_removed"
	QuorumChanged EventType = "quorum_changed"
	PolicyRotated EventType = "policy_rotated"
	SLAPolicySet  EventType = "sla_policy_set"
)

// Event is one accepted governance mutation.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// Signer is one member of the signer set.
type Signer struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	Weight  int    `json:"weight"`
	AddedAt string `json:"addedAt"`
}

// SLAPolicy is the current SLA reference.
type SLAPolicy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     int    `json:"version"`
	TargetCount int    `json:"targetCount"`
}

// PolicySnapshot is the public view GetCurrentPolicy returns.
type PolicySnapshot struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Signers   []Signer  `json:"signers"`
	Quorum    int       `json:"quorum"`
	UpdatedAt string    `json:"updatedAt"`
}

// Store is one logical governance instance. mu guards every field so
// concurrent AddSigner/RemoveSigner/ChangeQuorum/CheckQuorum calls (e.g. from
// witness.SubmitMultiSig racing an externally-triggered mutation) observe the
// single-threaded-cooperative ordering the trust engine requires, matching
// eventstore.Store and registrar.Registrar.
type Store struct {
	mu sync.Mutex

	signers     map[string]Signer
	signerOrder []string
	quorum      int
	version     int64
	updatedAt   string
	events      []Event
	slaPolicy   *SLAPolicy
}

// New returns an empty governance Store.
func New() *Store {
	return &Store{signers: make(map[string]Signer)}
}

func (s *Store) totalWeight() int {
	total := 0
	for _, sgn := range s.signers {
		total += sgn.Weight
	}
	return total
}

// AddSigner fails if address is already present or weight < 1.
func (s *Store) AddSigner(address, label string, weight int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.signers[address]; exists {
		return trust.New(trust.CodeValidationFailed, "signer "+address+" already present")
	}
	if weight < 1 {
		return trust.New(trust.CodeValidationFailed, "signer weight must be >= 1")
	}
	return s.applyAndRecord(Event{
		Type:      SignerAdded,
		Timestamp: nowRFC3339(),
		Payload: map[string]interface{}{
			"address": address,
			"label":   label,
			"weight":  weight,
		},
	})
}

// RemoveSigner fails if address is absent, or if removal would drop total
// weight below the current quorum.
func (s *Store) RemoveSigner(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sgn, exists := s.signers[address]
	if !exists {
		return trust.New(trust.CodeValidationFailed, "signer "+address+" is not present")
	}
	if s.totalWeight()-sgn.Weight < s.quorum {
		return trust.New(trust.CodeQuorumNotMet, "removing signer "+address+" would drop total weight below quorum")
	}
	return s.applyAndRecord(Event{
		Type:      SignerRemoved,
		Timestamp: nowRFC3339(),
		Payload:   map[string]interface{}{"address": address},
	})
}

// ChangeQuorum fails if newQuorum < 1, or > current total weight when any
// signers exist.
func (s *Store) ChangeQuorum(newQuorum int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newQuorum < 1 {
		return trust.New(trust.CodeValidationFailed, "quorum must be >= 1")
	}
	if len(s.signers) > 0 && newQuorum > s.totalWeight() {
		return trust.New(trust.CodeValidationFailed, "quorum cannot exceed total signer weight")
	}
	return s.applyAndRecord(Event{
		Type:      QuorumChanged,
		Timestamp: nowRFC3339(),
		Payload:   map[string]interface{}{"quorum": newQuorum},
	})
}

// SetSlaPolicy records the current SLA reference, replacing any previous
// one.
func (s *Store) SetSlaPolicy(id, name string, version, targetCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version < 1 {
		return trust.New(trust.CodeValidationFailed, "sla policy version must be >= 1")
	}
	return s.applyAndRecord(Event{
		Type:      SLAPolicySet,
		Timestamp: nowRFC3339(),
		Payload: map[string]interface{}{
			"id":          id,
			"name":        name,
			"version":     version,
			"targetCount": targetCount,
		},
	})
}

func (s *Store) applyAndRecord(ev Event) error {
	if err := s.apply(ev); err != nil {
		return err
	}
	s.events = append(s.events, ev)
	s.version++
	s.updatedAt = ev.Timestamp
	return nil
}

// apply is the single mutation path every event (live or replayed) flows
// through, which is what makes ReplayFrom deterministic.
func (s *Store) apply(ev Event) error {
	switch ev.Type {
	case SignerAdded:
		address, _ := ev.Payload["address"].(string)
		label, _ := ev.Payload["label"].(string)
		weight := toInt(ev.Payload["weight"])
		s.signers[address] = Signer{Address: address, Label: label, Weight: weight, AddedAt: ev.Timestamp}
		s.signerOrder = append(s.signerOrder, address)
	case SignerRemoved:
		address, _ := ev.Payload["address"].(string)
		delete(s.signers, address)
		for i, a := range s.signerOrder {
			if a == address {
				s.signerOrder = append(s.signerOrder[:i], s.signerOrder[i+1:]...)
				break
			}
		}
	case QuorumChanged:
		s.quorum = toInt(ev.Payload["quorum"])
	case SLAPolicySet:
		policy := SLAPolicy{
			ID:          stringOf(ev.Payload["id"]),
			Name:        stringOf(ev.Payload["name"]),
			Version:     toInt(ev.Payload["version"]),
			TargetCount: toInt(ev.Payload["targetCount"]),
		}
		s.slaPolicy = &policy
	case PolicyRotated:
		// no in-memory state beyond the event log itself; recorded for audit.
	default:
		return trust.New(trust.CodeValidationFailed, "unknown governance event type "+string(ev.Type))
	}
	return nil
}

// GetCurrentPolicy exposes a deterministic snapshot of the signer set and
// quorum.
func (s *Store) GetCurrentPolicy() (PolicySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	signers := make([]Signer, 0, len(s.signerOrder))
	addresses := make([]string, 0, len(s.signerOrder))
	for _, addr := range s.signerOrder {
		signers = append(signers, s.signers[addr])
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	hash, err := canonicalize.Digest(map[string]interface{}{
		"version": s.version,
		"signers": addresses,
		"quorum":  s.quorum,
	})
	if err != nil {
		return PolicySnapshot{}, err
	}

	return PolicySnapshot{
		ID:        hash[:16],
		Version:   s.version,
		Signers:   signers,
		Quorum:    s.quorum,
		UpdatedAt: s.updatedAt,
	}, nil
}

// CheckQuorum sums the weights of recognized signers among addresses and
// compares to the current quorum.
func (s *Store) CheckQuorum(addresses []string) (met bool, totalWeight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, addr := range addresses {
		if sgn, ok := s.signers[addr]; ok {
			totalWeight += sgn.Weight
		}
	}
	return totalWeight >= s.quorum, totalWeight
}

// GetEventHistory returns the accepted event log in append order.
func (s *Store) GetEventHistory() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// ReplayFrom resets the store and reapplies events through the same apply
// function every live mutation uses, guaranteeing determinism.
func (s *Store) ReplayFrom(events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signers = make(map[string]Signer)
	s.signerOrder = nil
	s.quorum = 0
	s.version = 0
	s.updatedAt = ""
	s.slaPolicy = nil
	s.events = nil

	for _, ev := range events {
		if err := s.apply(ev); err != nil {
			return err
		}
		s.events = append(s.events, ev)
		s.version++
		s.updatedAt = ev.Timestamp
	}
	return nil
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
