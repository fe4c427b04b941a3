// Package reconcile implements the three-way reconciler: intent, ledger
// posting, and on-chain transfer are matched pairwise and assembled into a
// single report, with cross-decimal amount comparison and cross-chain
// dedup/linking run ahead of the core matchers.
package reconcile

// Money is a decimal-string amount in a stated currency at a stated decimal
// precision, e.g. {"1.000000", "TOKEN", 6}.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Decimals int    `json:"decimals"`
}

// Intent is a declared financial action awaiting settlement.
type Intent struct {
	ID            string `json:"id"`
	DeclaredAt    string `json:"declaredAt"`
	ChainID       string `json:"chainId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	TxHash        string `json:"txHash,omitempty"`
	Amount        *Money `json:"amount,omitempty"`
}

// LedgerEntry is a posting in the external ledger.
type LedgerEntry struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlationId"`
	Money         Money  `json:"money"`
	Timestamp     string `json:"timestamp"`
	TxHash        string `json:"txHash,omitempty"`
}

// ChainEvent is an observed on-chain transfer, as supplied by a chain
// observer façade implementation.
type ChainEvent struct {
	ChainID   string `json:"chainId"`
	TxHash    string `json:"txHash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"` // raw integer string at Decimals precision
	Decimals  int    `json:"decimals"`
	Symbol    string `json:"symbol"`
	Timestamp string `json:"timestamp"`
}

// MatchStatus is the outcome of comparing two records.
type MatchStatus string

const (
	StatusMatched        MatchStatus = "matched"
	StatusAmountMismatch MatchStatus = "amount-mismatch"
	StatusMissingChain   MatchStatus = "missing-chain"
	StatusMissingLedger  MatchStatus = "missing-ledger"
	StatusMissingIntent  MatchStatus = "missing-intent"
)

// Match is one row of a matcher's result set.
type Match struct {
	Status       MatchStatus `json:"status"`
	IntentID     string      `json:"intentId,omitempty"`
	LedgerID     string      `json:"ledgerId,omitempty"`
	ChainTxHash  string      `json:"chainTxHash,omitempty"`
	Discrepancy  string      `json:"discrepancy,omitempty"`
}

// Scope filters the readonly slices a reconciliation run over.
type Scope struct {
	ChainID       string
	CorrelationID string
	IntentID      string
	From          string
	To            string
}

// Summary tallies a full reconciliation run.
type Summary struct {
	TotalIntents      int      `json:"totalIntents"`
	TotalLedgerEntries int     `json:"totalLedgerEntries"`
	TotalChainEvents  int      `json:"totalChainEvents"`
	Matched           int      `json:"matched"`
	Mismatch          int      `json:"mismatch"`
	Missing           int      `json:"missing"`
	AllReconciled     bool     `json:"allReconciled"`
	Discrepancies     []string `json:"discrepancies"`
}

// Report is the full three-way reconciliation result.
type Report struct {
	ID                  string  `json:"id"`
	Scope               Scope   `json:"scope"`
	Timestamp           string  `json:"timestamp"`
	IntentLedgerMatches []Match `json:"intentLedgerMatches"`
	LedgerChainMatches  []Match `json:"ledgerChainMatches"`
	IntentChainMatches  []Match `json:"intentChainMatches"`
	Summary             Summary `json:"summary"`
}
