package reconcile

import (
	"time"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/registrar"
)

// AttestationRecord wraps a Report with an attestor identity and the
// report's content hash.
type AttestationRecord struct {
	ID              string  `json:"id"`
	ReconciliationID string `json:"reconciliationId"`
	AllReconciled   bool    `json:"allReconciled"`
	Summary         Summary `json:"summary"`
	AttestedBy      string  `json:"attestedBy"`
	AttestedAt      string  `json:"attestedAt"`
	ReportHash      string  `json:"reportHash"`
}

// Attest builds an AttestationRecord for report, attributed to attestorID.
func Attest(id string, report Report, attestorID string) (AttestationRecord, error) {
	hash, err := canonicalize.Digest(report)
	if err != nil {
		return AttestationRecord{}, err
	}
	return AttestationRecord{
		ID:               id,
		ReconciliationID: report.ID,
		AllReconciled:    report.Summary.AllReconciled,
		Summary:          report.Summary,
		AttestedBy:       attestorID,
		AttestedAt:       time.Now().UTC().Format(time.RFC3339),
		ReportHash:       hash,
	}, nil
}

// RegisterAttestation records record as a registrar state whose id is
// "attestation:{attestorId}", self-transitioning on repeat attestations from
// the same attestor.
func RegisterAttestation(r *registrar.Registrar, record AttestationRecord) (registrar.Accepted, error) {
	id := "attestation:" + record.AttestedBy
	state := registrar.State{
		ID:        id,
		Structure: map[string]interface{}{"isRoot": true},
		Data:      record,
	}

	if _, exists := r.Get(id); exists {
		return r.Register(registrar.Transition{From: &id, To: state})
	}
	return r.Register(registrar.Transition{From: nil, To: state})
}
