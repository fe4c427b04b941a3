package registrar

import "github.com/attestia/trustengine/pkg/canonicalize"

// Attestation is the payload the registrar emits after an accepted
// transition, itself SHA-256-attested via AttestationHash.
type Attestation struct {
	RegistrumVersion string  `json:"registrumVersion"`
	SnapshotHash     string  `json:"snapshot_hash"`
	StateCount       int     `json:"state_count"`
	OrderingMax      int64   `json:"ordering_max"`
	TransitionFrom   *string `json:"transitionFrom"`
	TransitionTo     string  `json:"transitionTo"`
	Mode             string  `json:"mode"`
	AttestationHash  string  `json:"attestationHash"`
}

// Attest builds an Attestation from the registrar's current snapshot and
// the transition just accepted. mode is a caller-supplied label such as
// "root" or "self-transition".
func (r *Registrar) Attest(version string, t Transition, mode string) (Attestation, error) {
	snap, err := r.Snapshot()
	if err != nil {
		return Attestation{}, err
	}

	att := Attestation{
		RegistrumVersion: version,
		SnapshotHash:     snap.RegistryHash,
		StateCount:       len(snap.States),
		OrderingMax:      snap.Ordering.MaxIndex,
		TransitionFrom:   t.From,
		TransitionTo:     t.To.ID,
		Mode:             mode,
	}

	hash, err := canonicalize.Digest(map[string]interface{}{
		"registrumVersion": att.RegistrumVersion,
		"snapshot_hash":    att.SnapshotHash,
		"state_count":      att.StateCount,
		"ordering_max":     att.OrderingMax,
		"transitionFrom":   att.TransitionFrom,
		"transitionTo":     att.TransitionTo,
		"mode":             att.Mode,
	})
	if err != nil {
		return Attestation{}, err
	}
	att.AttestationHash = hash

	return att, nil
}
