package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestia/trustengine/pkg/reconcile"
)

func TestLedgerChainMatch_CrossDecimalMatch(t *testing.T) {
	entries := []reconcile.LedgerEntry{{
		ID:     "l1",
		Money:  reconcile.Money{Amount: "1.000000", Currency: "TOKEN", Decimals: 6},
		TxHash: "0xdec",
	}}
	events := []reconcile.ChainEvent{{
		ChainID: "eip155:1", TxHash: "0xdec", Symbol: "TOKEN", Decimals: 18,
		Amount: "1000000000000000000",
	}}

	matches := reconcile.LedgerChainMatch(entries, events)
	require.Len(t, matches, 1)
	assert.Equal(t, reconcile.StatusMatched, matches[0].Status)
}

func TestLedgerChainMatch_AmountMismatch(t *testing.T) {
	entries := []reconcile.LedgerEntry{{
		ID:     "l1",
		Money:  reconcile.Money{Amount: "1.000000", Currency: "TOKEN", Decimals: 6},
		TxHash: "0xdec",
	}}
	events := []reconcile.ChainEvent{{
		ChainID: "eip155:1", TxHash: "0xdec", Symbol: "TOKEN", Decimals: 18,
		Amount: "999999999999999999",
	}}

	matches := reconcile.LedgerChainMatch(entries, events)
	require.Len(t, matches, 1)
	assert.Equal(t, reconcile.StatusAmountMismatch, matches[0].Status)
	assert.NotEmpty(t, matches[0].Discrepancy)
}

func TestLedgerChainMatch_MissingChainAndMissingLedger(t *testing.T) {
	entries := []reconcile.LedgerEntry{{ID: "l1", TxHash: "0xnochain", Money: reconcile.Money{Amount: "1", Currency: "X", Decimals: 0}}}
	events := []reconcile.ChainEvent{{ChainID: "eip155:1", TxHash: "0xorphan", Symbol: "X", Decimals: 0, Amount: "1"}}

	matches := reconcile.LedgerChainMatch(entries, events)
	var statuses []reconcile.MatchStatus
	for _, m := range matches {
		statuses = append(statuses, m.Status)
	}
	assert.Contains(t, statuses, reconcile.StatusMissingChain)
	assert.Contains(t, statuses, reconcile.StatusMissingLedger)
}

func TestReconcile_AllReconciledWhenClean(t *testing.T) {
	intents := []reconcile.Intent{{ID: "i1", CorrelationID: "corr-1", Amount: &reconcile.Money{Amount: "1.00", Currency: "USD", Decimals: 2}}}
	entries := []reconcile.LedgerEntry{{ID: "l1", CorrelationID: "corr-1", Money: reconcile.Money{Amount: "1.00", Currency: "USD", Decimals: 2}}}

	report := reconcile.Reconcile(reconcile.Scope{}, "recon:fixed:1", intents, entries, nil, nil)
	assert.True(t, report.Summary.AllReconciled)
	assert.Equal(t, 1, report.Summary.Matched)
}

func TestReconcile_Determinism(t *testing.T) {
	intents := []reconcile.Intent{{ID: "i1", CorrelationID: "corr-1", Amount: &reconcile.Money{Amount: "1.00", Currency: "USD", Decimals: 2}}}
	entries := []reconcile.LedgerEntry{{ID: "l1", CorrelationID: "corr-1", Money: reconcile.Money{Amount: "1.00", Currency: "USD", Decimals: 2}}}

	r1 := reconcile.Reconcile(reconcile.Scope{}, "recon:fixed:1", intents, entries, nil, nil)
	r2 := reconcile.Reconcile(reconcile.Scope{}, "recon:fixed:1", intents, entries, nil, nil)

	r1.Timestamp = ""
	r2.Timestamp = ""
	assert.Equal(t, r1, r2)
}

func TestIsSettlementPair(t *testing.T) {
	assert.True(t, reconcile.IsSettlementPair(reconcile.ChainArbitrumOne, reconcile.ChainEthereumMainnet))
	assert.True(t, reconcile.IsSettlementPair(reconcile.ChainEthereumMainnet, reconcile.ChainOptimism))
	assert.False(t, reconcile.IsSettlementPair(reconcile.ChainArbitrumOne, reconcile.ChainOptimism))
}

func TestPreventDoubleCounting_KeepsL2DropsL1(t *testing.T) {
	l1 := reconcile.ChainEvent{ChainID: reconcile.ChainEthereumMainnet, TxHash: "l1tx", From: "a", To: "b", Amount: "100", Symbol: "X"}
	l2 := reconcile.ChainEvent{ChainID: reconcile.ChainArbitrumOne, TxHash: "l2tx", From: "a", To: "b", Amount: "100", Symbol: "X"}

	kept, removed := reconcile.PreventDoubleCounting([]reconcile.ChainEvent{l1, l2})
	require.Len(t, kept, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, reconcile.ChainArbitrumOne, kept[0].ChainID)
	assert.Equal(t, reconcile.ChainEthereumMainnet, removed[0].ChainID)
}

func TestPreventDoubleCounting_KeepsAllWhenNoSettlementPair(t *testing.T) {
	a := reconcile.ChainEvent{ChainID: "eip155:137", TxHash: "t1", From: "a", To: "b", Amount: "1", Symbol: "X"}
	b := reconcile.ChainEvent{ChainID: "eip155:56", TxHash: "t2", From: "c", To: "d", Amount: "2", Symbol: "Y"}

	kept, removed := reconcile.PreventDoubleCounting([]reconcile.ChainEvent{a, b})
	assert.Len(t, kept, 2)
	assert.Empty(t, removed)
}

func TestLinkCrossChainEvents_RequiresAtLeastTwoMatches(t *testing.T) {
	a := reconcile.ChainEvent{ChainID: reconcile.ChainArbitrumOne, TxHash: "a", From: "x", To: "y", Amount: "100", Symbol: "TOK"}
	b := reconcile.ChainEvent{ChainID: reconcile.ChainEthereumMainnet, TxHash: "b", From: "x", To: "z", Amount: "100", Symbol: "TOK"}

	links := reconcile.LinkCrossChainEvents([]reconcile.ChainEvent{a, b})
	require.Len(t, links, 1)
	assert.Equal(t, reconcile.LinkSettlement, links[0].Type)
	assert.Equal(t, reconcile.ConfidenceHigh, links[0].Confidence)
}

func TestLinkCrossChainEvents_NoLinkBelowThreshold(t *testing.T) {
	a := reconcile.ChainEvent{ChainID: reconcile.ChainArbitrumOne, TxHash: "a", From: "x", To: "y", Amount: "100", Symbol: "TOK"}
	b := reconcile.ChainEvent{ChainID: reconcile.ChainEthereumMainnet, TxHash: "b", From: "p", To: "q", Amount: "200", Symbol: "OTHER"}

	links := reconcile.LinkCrossChainEvents([]reconcile.ChainEvent{a, b})
	assert.Empty(t, links)
}

func TestAttest_ProducesStableHash(t *testing.T) {
	report := reconcile.Reconcile(reconcile.Scope{}, "recon:fixed:1", nil, nil, nil, nil)
	record, err := reconcile.Attest("att-1", report, "attestor-a")
	require.NoError(t, err)
	assert.NotEmpty(t, record.ReportHash)
	assert.True(t, record.AllReconciled)
}
