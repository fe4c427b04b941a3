package reconcile

import "sort"

// Chain ID constants follow the CAIP-2-like scheme the chain observer
// façade uses (pkg/chainobserver).
const (
	ChainEthereumMainnet = "eip155:1"
	ChainArbitrumOne     = "eip155:42161"
	ChainOptimism        = "eip155:10"
	ChainBase            = "eip155:8453"
)

var settlesOnEthereum = map[string]bool{
	ChainArbitrumOne: true,
	ChainOptimism:    true,
	ChainBase:        true,
}

// IsSettlementPair reports whether one of a, b is an L2 that settles on the
// other under the fixed Arbitrum/Optimism/Base -> Ethereum mainnet table.
func IsSettlementPair(a, b string) bool {
	return (settlesOnEthereum[a] && b == ChainEthereumMainnet) ||
		(settlesOnEthereum[b] && a == ChainEthereumMainnet)
}

type dedupKey struct {
	amount string
	symbol string
	pair   [2]string
}

func keyFor(e ChainEvent) dedupKey {
	addrs := [2]string{e.From, e.To}
	sort.Strings(addrs[:])
	return dedupKey{amount: e.Amount, symbol: e.Symbol, pair: addrs}
}

// PreventDoubleCounting groups events by (amount, symbol, sorted{from,to});
// when a group contains a settlement pair it keeps the L2 event(s) and
// drops the L1 artifact(s), otherwise it keeps everything.
func PreventDoubleCounting(events []ChainEvent) (kept []ChainEvent, removed []ChainEvent) {
	groups := make(map[dedupKey][]ChainEvent)
	var order []dedupKey
	for _, e := range events {
		k := keyFor(e)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	for _, k := range order {
		group := groups[k]
		if !groupHasSettlementPair(group) {
			kept = append(kept, group...)
			continue
		}
		for _, e := range group {
			if settlesOnEthereum[e.ChainID] {
				kept = append(kept, e)
			} else {
				removed = append(removed, e)
			}
		}
	}

	return kept, removed
}

func groupHasSettlementPair(group []ChainEvent) bool {
	for i := range group {
		for j := i + 1; j < len(group); j++ {
			if IsSettlementPair(group[i].ChainID, group[j].ChainID) {
				return true
			}
		}
	}
	return false
}

// LinkType distinguishes a settlement pairing from a merely structural one.
type LinkType string

const (
	LinkSettlement LinkType = "settlement"
	LinkStructural LinkType = "structural"
)

// Confidence rates a cross-chain link by how many dimensions matched.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Link is a structural relationship discovered between two chain events.
type Link struct {
	A          ChainEvent `json:"a"`
	B          ChainEvent `json:"b"`
	Type       LinkType   `json:"type"`
	Confidence Confidence `json:"confidence"`
	Matches    int        `json:"matches"`
}

// LinkCrossChainEvents counts matches on (amount, symbol, address-overlap)
// for every cross-chain pair and links only those with >= 2 matching
// dimensions.
func LinkCrossChainEvents(events []ChainEvent) []Link {
	var links []Link
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			if a.ChainID == b.ChainID {
				continue
			}

			matches := 0
			if a.Amount == b.Amount {
				matches++
			}
			if a.Symbol == b.Symbol {
				matches++
			}
			if addressOverlap(a, b) {
				matches++
			}

			if matches < 2 {
				continue
			}

			linkType := LinkStructural
			if IsSettlementPair(a.ChainID, b.ChainID) {
				linkType = LinkSettlement
			}
			confidence := ConfidenceMedium
			if matches == 3 {
				confidence = ConfidenceHigh
			}

			links = append(links, Link{A: a, B: b, Type: linkType, Confidence: confidence, Matches: matches})
		}
	}
	return links
}

func addressOverlap(a, b ChainEvent) bool {
	return a.From == b.From || a.From == b.To || a.To == b.From || a.To == b.To
}
