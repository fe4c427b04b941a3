package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportReplayRoundTrip(t *testing.T) {
	ledgerSnapshot := map[string]interface{}{"balance": "100.00"}
	registrumSnapshot := map[string]interface{}{"registry_hash": "abc123"}
	chainHashes := map[string]string{"eip155:1": "aa", "xrpl:mainnet": "bb"}

	b, err := Export(ledgerSnapshot, registrumSnapshot, []string{"h1", "h2"}, chainHashes)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Version)
	assert.NotEmpty(t, b.BundleHash)

	result, err := Replay(b)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Empty(t, result.Discrepancies)
}

func TestReplayDetectsTamperedSnapshot(t *testing.T) {
	b, err := Export(map[string]interface{}{"balance": "100.00"}, map[string]interface{}{"registry_hash": "abc"}, nil, nil)
	require.NoError(t, err)

	b.LedgerSnapshot = map[string]interface{}{"balance": "999.00"}

	result, err := Replay(b)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Discrepancies, "ledger snapshot hash mismatch")
}

func TestReplayDetectsTamperedBundleHash(t *testing.T) {
	b, err := Export(map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2}, nil, nil)
	require.NoError(t, err)

	b.BundleHash = "0000000000000000000000000000000000000000000000000000000000000000"

	result, err := Replay(b)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Discrepancies, "bundle hash mismatch")
}

func TestFoldChainHashOrdersBySequenceThenTimestamp(t *testing.T) {
	events := []ChainAuditEvent{
		{SequenceIndex: 2, Timestamp: "2025-01-01T00:00:01Z", Data: "b"},
		{SequenceIndex: 1, Timestamp: "2025-01-01T00:00:00Z", Data: "a"},
	}
	reordered := []ChainAuditEvent{events[1], events[0]}

	h1, err := FoldChainHash("eip155:1", events)
	require.NoError(t, err)
	h2, err := FoldChainHash("eip155:1", reordered)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := FoldChainHash("eip155:10", events)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestAuditMultiChainCombinesAndComparesExpected(t *testing.T) {
	eventsByChain := map[string][]ChainAuditEvent{
		"eip155:1":     {{SequenceIndex: 1, Timestamp: "t1", Data: "x"}},
		"xrpl:mainnet": {{SequenceIndex: 1, Timestamp: "t1", Data: "y"}},
	}

	result, err := AuditMultiChain(eventsByChain, "")
	require.NoError(t, err)
	assert.True(t, result.MatchExpected)

	result2, err := AuditMultiChain(eventsByChain, result.Combined)
	require.NoError(t, err)
	assert.True(t, result2.MatchExpected)

	result3, err := AuditMultiChain(eventsByChain, "wrong")
	require.NoError(t, err)
	assert.False(t, result3.MatchExpected)
}
