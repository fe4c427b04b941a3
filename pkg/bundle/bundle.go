// Package bundle aggregates per-subsystem state hashes into a single
// exportable, content-addressed bundle, and lets an external party replay
// the bundle's snapshots to recompute and compare every declared hash.
package bundle

import (
	"time"

	"github.com/attestia/trustengine/pkg/canonicalize"
)

// GlobalStateHash combines the per-subsystem hashes into one value.
type GlobalStateHash struct {
	Hash        string            `json:"hash"`
	ComputedAt  string            `json:"computedAt"`
	Subsystems  Subsystems        `json:"subsystems"`
}

// Subsystems is the fixed canonical shape every globalStateHash is folded
// from: ledger, registrum, and a chainId-keyed map of chain hashes.
type Subsystems struct {
	Ledger    string            `json:"ledger"`
	Registrum string            `json:"registrum"`
	Chains    map[string]string `json:"chains,omitempty"`
}

// Bundle is the exportable, portable snapshot external verifiers reduce to
// PASS/FAIL.
type Bundle struct {
	Version           int             `json:"version"`
	LedgerSnapshot    interface{}     `json:"ledgerSnapshot"`
	RegistrumSnapshot interface{}     `json:"registrumSnapshot"`
	GlobalStateHash   GlobalStateHash `json:"globalStateHash"`
	EventHashes       []string        `json:"eventHashes"`
	ChainHashes       map[string]string `json:"chainHashes,omitempty"`
	ExportedAt        string          `json:"exportedAt"`
	BundleHash        string          `json:"bundleHash"`
}

func bundleHashInput(b *Bundle) map[string]interface{} {
	return map[string]interface{}{
		"version":           b.Version,
		"ledgerSnapshot":    b.LedgerSnapshot,
		"registrumSnapshot": b.RegistrumSnapshot,
		"globalStateHash":   b.GlobalStateHash,
		"eventHashes":       b.EventHashes,
		"chainHashes":       b.ChainHashes,
		"exportedAt":        b.ExportedAt,
	}
}

// Export builds a Bundle from the per-subsystem snapshots and hashes. It
// recomputes the ledger and registrum hashes from the snapshots given, so
// the bundle is self-consistent at the moment of export.
func Export(ledgerSnapshot, registrumSnapshot interface{}, eventHashes []string, chainHashes map[string]string) (Bundle, error) {
	ledgerHash, err := canonicalize.Digest(ledgerSnapshot)
	if err != nil {
		return Bundle{}, err
	}
	registrumHash, err := canonicalize.Digest(registrumSnapshot)
	if err != nil {
		return Bundle{}, err
	}

	subsystems := Subsystems{Ledger: ledgerHash, Registrum: registrumHash, Chains: chainHashes}
	computedAt := time.Now().UTC().Format(time.RFC3339)

	globalHash, err := canonicalize.Digest(map[string]interface{}{
		"subsystems": subsystems,
		"computedAt": computedAt,
	})
	if err != nil {
		return Bundle{}, err
	}

	b := Bundle{
		Version:           1,
		LedgerSnapshot:    ledgerSnapshot,
		RegistrumSnapshot: registrumSnapshot,
		GlobalStateHash:   GlobalStateHash{Hash: globalHash, ComputedAt: computedAt, Subsystems: subsystems},
		EventHashes:       eventHashes,
		ChainHashes:       chainHashes,
		ExportedAt:        computedAt,
	}

	bundleHash, err := canonicalize.Digest(bundleHashInput(&b))
	if err != nil {
		return Bundle{}, err
	}
	b.BundleHash = bundleHash

	return b, nil
}

// ReplayResult is PASS iff every recomputation matches the bundle's
// declared hash.
type ReplayResult struct {
	Pass          bool
	Discrepancies []string
}

// Replay reconstructs each subsystem hash from the snapshots the bundle
// carries, combines them into globalStateHash via the fixed canonical
// shape, then recomputes bundleHash, comparing every step against the
// bundle's declared values.
func Replay(b Bundle) (ReplayResult, error) {
	result := ReplayResult{Pass: true}

	ledgerHash, err := canonicalize.Digest(b.LedgerSnapshot)
	if err != nil {
		return ReplayResult{}, err
	}
	if ledgerHash != b.GlobalStateHash.Subsystems.Ledger {
		result.Pass = false
		result.Discrepancies = append(result.Discrepancies, "ledger snapshot hash mismatch")
	}

	registrumHash, err := canonicalize.Digest(b.RegistrumSnapshot)
	if err != nil {
		return ReplayResult{}, err
	}
	if registrumHash != b.GlobalStateHash.Subsystems.Registrum {
		result.Pass = false
		result.Discrepancies = append(result.Discrepancies, "registrum snapshot hash mismatch")
	}

	globalHash, err := canonicalize.Digest(map[string]interface{}{
		"subsystems": b.GlobalStateHash.Subsystems,
		"computedAt": b.GlobalStateHash.ComputedAt,
	})
	if err != nil {
		return ReplayResult{}, err
	}
	if globalHash != b.GlobalStateHash.Hash {
		result.Pass = false
		result.Discrepancies = append(result.Discrepancies, "global state hash mismatch")
	}

	bundleHash, err := canonicalize.Digest(bundleHashInput(&b))
	if err != nil {
		return ReplayResult{}, err
	}
	if bundleHash != b.BundleHash {
		result.Pass = false
		result.Discrepancies = append(result.Discrepancies, "bundle hash mismatch")
	}

	return result, nil
}
