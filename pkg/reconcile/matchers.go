package reconcile

// LedgerChainMatch indexes chainEvents by txHash and compares each ledger
// entry with a txHash against the matching event, then reports every
// unconsumed chain event as missing-ledger.
func LedgerChainMatch(entries []LedgerEntry, events []ChainEvent) []Match {
	byTxHash := make(map[string][]ChainEvent, len(events))
	for _, e := range events {
		byTxHash[e.TxHash] = append(byTxHash[e.TxHash], e)
	}
	consumed := make(map[string]bool, len(events))

	var matches []Match
	for _, entry := range entries {
		if entry.TxHash == "" {
			continue
		}
		candidates := byTxHash[entry.TxHash]
		var found *ChainEvent
		for i := range candidates {
			if candidates[i].Symbol == entry.Money.Currency {
				found = &candidates[i]
				break
			}
		}
		if found == nil {
			if len(candidates) == 0 {
				matches = append(matches, Match{Status: StatusMissingChain, LedgerID: entry.ID, ChainTxHash: entry.TxHash})
			} else {
				matches = append(matches, Match{
					Status:      StatusAmountMismatch,
					LedgerID:    entry.ID,
					ChainTxHash: entry.TxHash,
					Discrepancy: "no chain event with symbol " + entry.Money.Currency + " for txHash " + entry.TxHash,
				})
			}
			continue
		}
		consumed[entry.TxHash] = true

		matched, discrepancy, err := compareCrossDecimal(entry.Money.Amount, entry.Money.Decimals, found.Amount, found.Decimals)
		if err != nil {
			matches = append(matches, Match{Status: StatusAmountMismatch, LedgerID: entry.ID, ChainTxHash: entry.TxHash, Discrepancy: err.Error()})
			continue
		}
		if matched {
			matches = append(matches, Match{Status: StatusMatched, LedgerID: entry.ID, ChainTxHash: entry.TxHash})
		} else {
			matches = append(matches, Match{Status: StatusAmountMismatch, LedgerID: entry.ID, ChainTxHash: entry.TxHash, Discrepancy: discrepancy})
		}
	}

	for _, e := range events {
		if !consumed[e.TxHash] {
			matches = append(matches, Match{Status: StatusMissingLedger, ChainTxHash: e.TxHash})
		}
	}

	return matches
}

// IntentLedgerMatch joins intents to ledger entries by correlationId. An
// intent amount in a different currency from the entry's is reported as an
// amount-mismatch.
func IntentLedgerMatch(intents []Intent, entries []LedgerEntry) []Match {
	byCorrelation := make(map[string][]LedgerEntry, len(entries))
	for _, e := range entries {
		byCorrelation[e.CorrelationID] = append(byCorrelation[e.CorrelationID], e)
	}
	consumed := make(map[string]bool, len(entries))

	var matches []Match
	for _, intent := range intents {
		candidates := byCorrelation[intent.CorrelationID]
		if len(candidates) == 0 {
			matches = append(matches, Match{Status: StatusMissingLedger, IntentID: intent.ID})
			continue
		}
		entry := candidates[0]
		consumed[entry.ID] = true

		if intent.Amount == nil {
			matches = append(matches, Match{Status: StatusMatched, IntentID: intent.ID, LedgerID: entry.ID})
			continue
		}
		if intent.Amount.Currency != entry.Money.Currency {
			matches = append(matches, Match{Status: StatusAmountMismatch, IntentID: intent.ID, LedgerID: entry.ID,
				Discrepancy: "currency mismatch: intent " + intent.Amount.Currency + " vs ledger " + entry.Money.Currency})
			continue
		}

		matched, discrepancy := compareDecimalToDecimal(intent.Amount.Amount, intent.Amount.Decimals, entry.Money.Amount, entry.Money.Decimals)

		if matched {
			matches = append(matches, Match{Status: StatusMatched, IntentID: intent.ID, LedgerID: entry.ID})
		} else {
			matches = append(matches, Match{Status: StatusAmountMismatch, IntentID: intent.ID, LedgerID: entry.ID, Discrepancy: discrepancy})
		}
	}

	for _, e := range entries {
		if !consumed[e.ID] {
			matches = append(matches, Match{Status: StatusMissingIntent, LedgerID: e.ID})
		}
	}

	return matches
}

// IntentChainMatch joins intents to chain events by (chainId, txHash). When
// that lookup finds nothing and the intent carries a correlationId, it falls
// back to the first chain event on any chain with the intent's txHash.
// Intents that declare neither a chainId nor a txHash produce no row.
// Amounts are compared on the cross-decimal basis.
func IntentChainMatch(intents []Intent, events []ChainEvent) []Match {
	byChainTx := make(map[string]ChainEvent, len(events))
	for _, e := range events {
		byChainTx[e.ChainID+"|"+e.TxHash] = e
	}

	var matches []Match
	for _, intent := range intents {
		if intent.ChainID == "" && intent.TxHash == "" {
			continue
		}
		var event ChainEvent
		var found bool

		if intent.ChainID != "" && intent.TxHash != "" {
			event, found = byChainTx[intent.ChainID+"|"+intent.TxHash]
		}
		if !found && intent.CorrelationID != "" {
			for _, e := range events {
				if e.TxHash == intent.TxHash && intent.TxHash != "" {
					event, found = e, true
					break
				}
			}
		}

		if !found {
			matches = append(matches, Match{Status: StatusMissingChain, IntentID: intent.ID})
			continue
		}

		if intent.Amount == nil {
			matches = append(matches, Match{Status: StatusMatched, IntentID: intent.ID, ChainTxHash: event.TxHash})
			continue
		}

		matched, discrepancy, err := compareCrossDecimal(intent.Amount.Amount, intent.Amount.Decimals, event.Amount, event.Decimals)
		if err != nil {
			matches = append(matches, Match{Status: StatusAmountMismatch, IntentID: intent.ID, ChainTxHash: event.TxHash, Discrepancy: err.Error()})
			continue
		}
		if matched {
			matches = append(matches, Match{Status: StatusMatched, IntentID: intent.ID, ChainTxHash: event.TxHash})
		} else {
			matches = append(matches, Match{Status: StatusAmountMismatch, IntentID: intent.ID, ChainTxHash: event.TxHash, Discrepancy: discrepancy})
		}
	}

	return matches
}

// compareDecimalToDecimal compares two decimal-string amounts, each at its
// own declared precision, on their common maximum decimal basis.
func compareDecimalToDecimal(a string, aDecimals int, b string, bDecimals int) (bool, string) {
	rawA, err := decimalToRaw(a, aDecimals)
	if err != nil {
		return false, err.Error()
	}
	rawB, err := decimalToRaw(b, bDecimals)
	if err != nil {
		return false, err.Error()
	}
	maxDecimals := aDecimals
	if bDecimals > maxDecimals {
		maxDecimals = bDecimals
	}
	scaledA := scaleTo(rawA, aDecimals, maxDecimals)
	scaledB := scaleTo(rawB, bDecimals, maxDecimals)
	if scaledA.Cmp(scaledB) == 0 {
		return true, ""
	}
	return false, "amount mismatch: " + scaledA.String() + " vs " + scaledB.String()
}
