// Package witness builds content-addressed attestation payloads, encodes
// them into a wire memo, and anchors them on a public chain guarded by
// governance quorum. The chain RPC client itself is an external
// collaborator; this package depends only on the Ledger interface below.
package witness

import (
	"time"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/reconcile"
)

// Payload is the content-addressed payload anchored on-chain. Source and
// Summary are open-shape maps, matching the eventstore Event payload idiom,
// since reconciliation and registrum attestations shape them differently.
type Payload struct {
	Hash      string                 `json:"hash"`
	Timestamp string                 `json:"timestamp"`
	Source    map[string]interface{} `json:"source"`
	Summary   map[string]interface{} `json:"summary"`
}

func hashInput(source, summary map[string]interface{}, timestamp string) map[string]interface{} {
	return map[string]interface{}{
		"source":    source,
		"summary":   summary,
		"timestamp": timestamp,
	}
}

// BuildReconciliationPayload assembles the payload for a reconciliation
// attestation.
func BuildReconciliationPayload(report reconcile.Report, attestation reconcile.AttestationRecord) (Payload, error) {
	source := map[string]interface{}{
		"kind":       "reconciliation",
		"reportId":   report.ID,
		"reportHash": attestation.ReportHash,
	}
	summary := map[string]interface{}{
		"clean":      report.Summary.AllReconciled,
		"matched":    report.Summary.Matched,
		"mismatch":   report.Summary.Mismatch,
		"missing":    report.Summary.Missing,
		"attestedBy": attestation.AttestedBy,
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)

	hash, err := canonicalize.Digest(hashInput(source, summary, timestamp))
	if err != nil {
		return Payload{}, err
	}
	return Payload{Hash: hash, Timestamp: timestamp, Source: source, Summary: summary}, nil
}

// BuildRegistrumPayload assembles the payload for a registrar-state
// attestation. summary may be nil.
func BuildRegistrumPayload(stateID string, orderIndex int64, attestedBy string, summary map[string]interface{}) (Payload, error) {
	source := map[string]interface{}{
		"kind":       "registrum",
		"stateId":    stateID,
		"orderIndex": orderIndex,
	}
	merged := make(map[string]interface{}, len(summary)+1)
	for k, v := range summary {
		merged[k] = v
	}
	merged["attestedBy"] = attestedBy
	timestamp := time.Now().UTC().Format(time.RFC3339)

	hash, err := canonicalize.Digest(hashInput(source, merged, timestamp))
	if err != nil {
		return Payload{}, err
	}
	return Payload{Hash: hash, Timestamp: timestamp, Source: source, Summary: merged}, nil
}

// VerifyPayloadHash recomputes Hash from Source/Summary/Timestamp and
// compares it to the declared value.
func VerifyPayloadHash(p Payload) bool {
	hash, err := canonicalize.Digest(hashInput(p.Source, p.Summary, p.Timestamp))
	if err != nil {
		return false
	}
	return hash == p.Hash
}
