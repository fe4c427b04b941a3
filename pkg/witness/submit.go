package witness

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/attestia/trustengine/pkg/governance"
	"github.com/attestia/trustengine/pkg/trust"
)

// retry runs fn up to cfg.MaxAttempts times, sleeping ComputeBackoff(attempt)
// between attempts classified retryable by IsRetryable. Exhaustion, a
// non-retryable error, or context cancellation all surface without a
// partial WitnessRecord ever being returned to the caller. A QUORUM_NOT_MET
// error is returned as is, without a retry.
func retry(ctx context.Context, cfg RetryConfig, payload Payload, fn func() (WitnessRecord, error)) (WitnessRecord, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		attempts++
		record, err := fn()
		if err == nil {
			return record, nil
		}
		lastErr = err
		if code, ok := trust.CodeOf(err); ok && code == trust.CodeQuorumNotMet {
			return WitnessRecord{}, err
		}
		if !IsRetryable(err) {
			break
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := ComputeBackoff(attempt, cfg)
		select {
		case <-ctx.Done():
			return WitnessRecord{}, trust.Wrap(trust.CodeCancelled, "witness submit cancelled during backoff", ctx.Err())
		case <-time.After(delay):
		}
	}

	return WitnessRecord{}, trust.Wrap(trust.CodeWitnessSubmitFailed, "witness submit exhausted retries", &SubmitError{
		Payload:  payload,
		Attempts: attempts,
		Err:      lastErr,
	})
}

// SubmitSingleSigner builds a 1-unit self-send memo transaction, signs it
// with a single signer, submits, and awaits validation, retrying transient
// failures with exponential backoff and jitter.
func SubmitSingleSigner(ctx context.Context, ledger Ledger, cfg RetryConfig, chainID, account string, signer SignerConfig, payload Payload) (WitnessRecord, error) {
	return retry(ctx, cfg, payload, func() (WitnessRecord, error) {
		return submitOnce(ctx, ledger, chainID, account, payload, func(tx PreparedTransaction) (SignedBlob, error) {
			return ledger.SignSingle(ctx, tx, signer)
		})
	})
}

// SubmitMultiSig builds the same prepared transaction, collects an
// independent partial signature from each signer, verifies the collected
// addresses form a quorum under policy before combining and submitting, and
// surfaces QUORUM_NOT_MET without combining signatures or submitting if they
// don't. Sequence/fee autofill and partial signing through ledger run before
// that check.
func SubmitMultiSig(ctx context.Context, ledger Ledger, cfg RetryConfig, chainID, account string, policy *governance.Store, signers []SignerConfig, payload Payload) (WitnessRecord, error) {
	return retry(ctx, cfg, payload, func() (WitnessRecord, error) {
		return submitOnce(ctx, ledger, chainID, account, payload, func(tx PreparedTransaction) (SignedBlob, error) {
			partials := make([]PartialSignature, 0, len(signers))
			addresses := make([]string, 0, len(signers))
			for _, s := range signers {
				partial, err := ledger.SignPartial(ctx, tx, s)
				if err != nil {
					return SignedBlob{}, err
				}
				partials = append(partials, partial)
				addresses = append(addresses, partial.Address)
			}

			if met, _ := policy.CheckQuorum(addresses); !met {
				return SignedBlob{}, trust.New(trust.CodeQuorumNotMet, "collected signer addresses do not meet governance quorum")
			}

			return ledger.CombineSignatures(ctx, tx, partials)
		})
	})
}

func submitOnce(ctx context.Context, ledger Ledger, chainID, account string, payload Payload, sign func(PreparedTransaction) (SignedBlob, error)) (WitnessRecord, error) {
	memo, err := EncodeMemo(payload)
	if err != nil {
		return WitnessRecord{}, err
	}

	sequence, err := ledger.AutofillSequence(ctx, account)
	if err != nil {
		return WitnessRecord{}, err
	}
	fee, err := ledger.AutofillFee(ctx)
	if err != nil {
		return WitnessRecord{}, err
	}

	tx := PreparedTransaction{Account: account, Sequence: sequence, Fee: fee, Memo: memo}

	blob, err := sign(tx)
	if err != nil {
		return WitnessRecord{}, err
	}

	txHash, err := ledger.Submit(ctx, blob)
	if err != nil {
		return WitnessRecord{}, err
	}
	if err := ledger.AwaitValidation(ctx, txHash); err != nil {
		return WitnessRecord{}, err
	}

	return WitnessRecord{
		ID:             uuid.New().String(),
		Payload:        payload,
		ChainID:        chainID,
		TxHash:         txHash,
		WitnessedAt:    time.Now().UTC().Format(time.RFC3339),
		WitnessAccount: account,
	}, nil
}
