package bundle

import (
	"sort"
	"strings"

	"github.com/attestia/trustengine/pkg/canonicalize"
)

// ChainAuditEvent is one observed chain event folded into a per-chain audit
// hash chain, ordered by (SequenceIndex, then Timestamp).
type ChainAuditEvent struct {
	SequenceIndex int64       `json:"sequenceIndex"`
	Timestamp     string      `json:"timestamp"`
	Data          interface{} `json:"data"`
}

// ChainGenesis is the chainId-specific starting hash a per-chain audit fold
// begins from, so that two chains with identical events never collide.
func ChainGenesis(chainID string) string {
	return canonicalize.DigestBytes([]byte("attestia/bundle/chain-genesis:" + chainID))
}

// FoldChainHash folds events (sorted by SequenceIndex, then Timestamp) into
// a hash chain starting from ChainGenesis(chainID).
func FoldChainHash(chainID string, events []ChainAuditEvent) (string, error) {
	sorted := append([]ChainAuditEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SequenceIndex != sorted[j].SequenceIndex {
			return sorted[i].SequenceIndex < sorted[j].SequenceIndex
		}
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	hash := ChainGenesis(chainID)
	for _, ev := range sorted {
		next, err := canonicalize.Digest(map[string]interface{}{"prev": hash, "event": ev})
		if err != nil {
			return "", err
		}
		hash = next
	}
	return hash, nil
}

// CombineChainHashes concatenates chainId-sorted digests and hashes the
// result; AuditMultiChain uses it as its fixed combination rule. Export and
// Replay do not call it: they hash the chain map as part of the canonical
// subsystems object.
func CombineChainHashes(chainHashes map[string]string) string {
	ids := make([]string, 0, len(chainHashes))
	for id := range chainHashes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf strings.Builder
	for _, id := range ids {
		buf.WriteString(chainHashes[id])
	}
	return canonicalize.DigestBytes([]byte(buf.String()))
}

// MultiChainAuditResult is the outcome of folding and combining every
// chain's audit trail and comparing against an optional expected value.
type MultiChainAuditResult struct {
	ChainHashes   map[string]string
	Combined      string
	MatchExpected bool
}

// AuditMultiChain folds every chain's events, combines the resulting
// per-chain hashes, and compares the combination to expectedCombined when
// non-empty.
func AuditMultiChain(eventsByChain map[string][]ChainAuditEvent, expectedCombined string) (MultiChainAuditResult, error) {
	chainHashes := make(map[string]string, len(eventsByChain))
	for chainID, events := range eventsByChain {
		hash, err := FoldChainHash(chainID, events)
		if err != nil {
			return MultiChainAuditResult{}, err
		}
		chainHashes[chainID] = hash
	}

	combined := CombineChainHashes(chainHashes)
	result := MultiChainAuditResult{ChainHashes: chainHashes, Combined: combined}
	if expectedCombined != "" {
		result.MatchExpected = combined == expectedCombined
	} else {
		result.MatchExpected = true
	}
	return result, nil
}
