package reconcile

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

var reportCounter uint64

// Reconcile runs all three matchers and assembles a Report. id, when
// non-empty, overrides the default monotonic "recon:{epochMillis}:{counter}"
// identifier so callers can force determinism in tests. logger defaults to
// slog.Default() and receives a Warn record for every discrepancy the
// matchers surface (amount-mismatch, missing-ledger/chain/intent).
func Reconcile(scope Scope, id string, intents []Intent, entries []LedgerEntry, events []ChainEvent, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.Default()
	}

	intentLedger := IntentLedgerMatch(intents, entries)
	ledgerChain := LedgerChainMatch(entries, events)
	intentChain := IntentChainMatch(intents, events)

	logDiscrepancies(logger, intentLedger)
	logDiscrepancies(logger, ledgerChain)
	logDiscrepancies(logger, intentChain)

	if id == "" {
		id = nextReportID()
	}

	report := Report{
		ID:                  id,
		Scope:               scope,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		IntentLedgerMatches: intentLedger,
		LedgerChainMatches:  ledgerChain,
		IntentChainMatches:  intentChain,
	}
	report.Summary = summarize(len(intents), len(entries), len(events), intentLedger, ledgerChain, intentChain)

	return report
}

// logDiscrepancies warns once per non-matched match, so a reconciliation
// run's anomalies are observable without inspecting the returned Report.
func logDiscrepancies(logger *slog.Logger, matches []Match) {
	for _, m := range matches {
		if m.Status == StatusMatched {
			continue
		}
		logger.Warn("reconcile: discrepancy", "status", m.Status, "subject", matchSubject(m), "discrepancy", m.Discrepancy)
	}
}

func nextReportID() string {
	n := atomic.AddUint64(&reportCounter, 1)
	return fmt.Sprintf("recon:%d:%d", time.Now().UTC().UnixMilli(), n)
}

func summarize(totalIntents, totalLedger, totalChain int, matchSets ...[]Match) Summary {
	s := Summary{
		TotalIntents:       totalIntents,
		TotalLedgerEntries: totalLedger,
		TotalChainEvents:   totalChain,
	}

	for _, set := range matchSets {
		for _, m := range set {
			switch m.Status {
			case StatusMatched:
				s.Matched++
			case StatusAmountMismatch:
				s.Mismatch++
				s.Discrepancies = append(s.Discrepancies, m.Discrepancy)
			case StatusMissingChain, StatusMissingLedger, StatusMissingIntent:
				s.Missing++
				s.Discrepancies = append(s.Discrepancies, string(m.Status)+" for "+matchSubject(m))
			}
		}
	}

	s.AllReconciled = s.Mismatch == 0 && s.Missing == 0
	return s
}

func matchSubject(m Match) string {
	switch {
	case m.IntentID != "":
		return "intent " + m.IntentID
	case m.LedgerID != "":
		return "ledger entry " + m.LedgerID
	case m.ChainTxHash != "":
		return "chain tx " + m.ChainTxHash
	default:
		return "unknown"
	}
}
