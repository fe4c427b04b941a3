package governance

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/attestia/trustengine/pkg/trust"
)

// VerifySignerSignature checks that sigHex is a valid ed25519 signature by
// the signer identified by pubKeyHex over data, used to authenticate
// governance-guarded submissions against the signer set.
func VerifySignerSignature(pubKeyHex, sigHex string, data []byte) (bool, error) {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("governance: invalid signer public key hex: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("governance: public key has wrong size")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("governance: invalid signature hex: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}

// derivePolicyKey derives per-policy additional-entropy key material via
// HKDF-SHA256, salted by policyID, from a master secret.
func derivePolicyKey(masterSecret []byte, policyID string, size int) ([]byte, error) {
	reader := hkdf.New(sha256.New, masterSecret, []byte(policyID), []byte("attestia/governance/policy-rotation"))
	out := make([]byte, size)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("governance: hkdf derive: %w", err)
	}
	return out, nil
}

// RotatePolicy emits a policy_rotated event recording the derived key's
// digest (never the raw key material) for audit, keyed to policyID via
// HKDF over masterSecret.
func (s *Store) RotatePolicy(masterSecret []byte, policyID string) error {
	if policyID == "" {
		return trust.New(trust.CodeValidationFailed, "policy id must not be empty")
	}
	derived, err := derivePolicyKey(masterSecret, policyID, 32)
	if err != nil {
		return trust.Wrap(trust.CodeValidationFailed, "policy key derivation failed", err)
	}
	digest := sha256.Sum256(derived)

	return s.applyAndRecord(Event{
		Type:      PolicyRotated,
		Timestamp: nowRFC3339(),
		Payload: map[string]interface{}{
			"policyId":       policyID,
			"derivedKeyHash": hex.EncodeToString(digest[:]),
		},
	})
}
