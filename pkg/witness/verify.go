package witness

import "context"

// VerificationResult is the outcome of a readback verification against the
// chain an anchoring transaction lives on.
type VerificationResult struct {
	Verified      bool
	Discrepancies []string
}

// Verify fetches the anchoring transaction, locates the attestia memo,
// decodes the payload, and asserts it matches record.Payload by hash and
// internal consistency. Any mismatch populates Discrepancies and sets
// Verified=false; it never returns a non-nil error for a readback mismatch,
// only for a network/lookup failure.
func Verify(ctx context.Context, ledger Ledger, record WitnessRecord) (VerificationResult, error) {
	memo, found, err := ledger.FetchMemo(ctx, record.TxHash)
	if err != nil {
		return VerificationResult{}, err
	}
	if !found {
		return VerificationResult{Verified: false, Discrepancies: []string{"no memo found on transaction " + record.TxHash}}, nil
	}

	decoded, err := DecodeMemo(memo)
	if err != nil {
		return VerificationResult{Verified: false, Discrepancies: []string{"memo did not decode as an attestia payload: " + err.Error()}}, nil
	}

	result := VerificationResult{Verified: true}
	if decoded.Hash != record.Payload.Hash {
		result.Verified = false
		result.Discrepancies = append(result.Discrepancies, "decoded payload hash does not match the witness record's payload hash")
	}
	if !VerifyPayloadHash(decoded) {
		result.Verified = false
		result.Discrepancies = append(result.Discrepancies, "decoded payload fails its own hash self-check")
	}
	return result, nil
}

// FetchPayload is a convenience lookup: it returns the decoded payload for
// txHash, or nil if no attestia memo is present, without asserting it
// against any particular WitnessRecord.
func FetchPayload(ctx context.Context, ledger Ledger, txHash string) (*Payload, error) {
	memo, found, err := ledger.FetchMemo(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	decoded, err := DecodeMemo(memo)
	if err != nil {
		return nil, nil
	}
	return &decoded, nil
}
