package witness

import (
	"encoding/hex"
	"encoding/json"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/trust"
)

// MemoType is the fixed wire tag every attestia memo carries, hex-encoded
// on the wire per the XRPL-style memo envelope convention.
const MemoType = "attestia/witness/v1"

// MemoFormat is the optional content-type hint for MemoData.
const MemoFormat = "application/json"

// Memo is the three-field wire envelope: MemoType/MemoData are always hex;
// MemoFormat is hex when present.
type Memo struct {
	MemoType   string `json:"memoType"`
	MemoData   string `json:"memoData"`
	MemoFormat string `json:"memoFormat,omitempty"`
}

// EncodeMemo hex-encodes the fixed MemoType and the canonical JSON of
// payload into a Memo.
func EncodeMemo(payload Payload) (Memo, error) {
	raw, err := canonicalize.Canonical(payload)
	if err != nil {
		return Memo{}, err
	}
	return Memo{
		MemoType:   hex.EncodeToString([]byte(MemoType)),
		MemoData:   hex.EncodeToString(raw),
		MemoFormat: hex.EncodeToString([]byte(MemoFormat)),
	}, nil
}

// DecodeMemo reverses EncodeMemo: it rejects any memo whose MemoType does
// not match the fixed tag, then hex- and JSON-decodes MemoData.
func DecodeMemo(memo Memo) (Payload, error) {
	wantType := hex.EncodeToString([]byte(MemoType))
	if memo.MemoType != wantType {
		return Payload{}, trust.New(trust.CodeValidationFailed, "memo is not an attestia witness memo")
	}
	raw, err := hex.DecodeString(memo.MemoData)
	if err != nil {
		return Payload{}, trust.Wrap(trust.CodeValidationFailed, "memo data is not valid hex", err)
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Payload{}, trust.Wrap(trust.CodeValidationFailed, "memo data is not valid JSON", err)
	}
	return payload, nil
}
