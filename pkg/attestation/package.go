// Package attestation builds and verifies self-contained attestation proof
// packages: an attestation, the Merkle inclusion proof that anchors it, and
// a tamper-evident package hash over everything else.
package attestation

import (
	"time"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/merkle"
)

// Package is JSON-portable: serialization then deserialization preserves
// Verify.
type Package struct {
	Version         int           `json:"version"`
	Attestation     interface{}   `json:"attestation"`
	AttestationHash string        `json:"attestationHash"`
	MerkleRoot      string        `json:"merkleRoot"`
	InclusionProof  merkle.Proof  `json:"inclusionProof"`
	PackagedAt      string        `json:"packagedAt"`
	PackageHash     string        `json:"packageHash"`
}

// Build requires tree to have been built from eventHashes, index to be in
// range, and tree to be non-empty. Any violation yields (nil, false).
func Build(attestation interface{}, eventHashes []string, tree *merkle.Tree, index int) (*Package, bool) {
	if tree == nil || tree.IsEmpty() {
		return nil, false
	}
	if index < 0 || index >= len(eventHashes) {
		return nil, false
	}
	if index >= len(tree.Leaves) || tree.Leaves[index] != eventHashes[index] {
		return nil, false
	}

	proof, ok := tree.GenerateProof(index)
	if !ok {
		return nil, false
	}

	attestationHash, err := canonicalize.Digest(attestation)
	if err != nil {
		return nil, false
	}

	pkg := &Package{
		Version:         1,
		Attestation:     attestation,
		AttestationHash: attestationHash,
		MerkleRoot:      tree.Root,
		InclusionProof:  *proof,
		PackagedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	packageHash, err := canonicalize.Digest(packageHashInput(pkg))
	if err != nil {
		return nil, false
	}
	pkg.PackageHash = packageHash

	return pkg, true
}

// Verify recomputes attestationHash, verifies the inclusion proof, checks
// merkleRoot against the proof's root, and recomputes packageHash. Any
// mismatch yields false.
func Verify(pkg Package) bool {
	attestationHash, err := canonicalize.Digest(pkg.Attestation)
	if err != nil || attestationHash != pkg.AttestationHash {
		return false
	}
	if !merkle.Verify(pkg.InclusionProof) {
		return false
	}
	if pkg.MerkleRoot != pkg.InclusionProof.Root {
		return false
	}
	packageHash, err := canonicalize.Digest(packageHashInput(&pkg))
	if err != nil || packageHash != pkg.PackageHash {
		return false
	}
	return true
}

func packageHashInput(pkg *Package) map[string]interface{} {
	return map[string]interface{}{
		"version":         pkg.Version,
		"attestation":     pkg.Attestation,
		"attestationHash": pkg.AttestationHash,
		"merkleRoot":      pkg.MerkleRoot,
		"inclusionProof":  pkg.InclusionProof,
		"packagedAt":      pkg.PackagedAt,
	}
}
