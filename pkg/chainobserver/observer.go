// Package chainobserver defines the minimum read-only interface the
// reconciler and state bundle consume to observe on-chain transfers. The
// actual RPC client wrappers per chain are external collaborators (out of
// scope); this package is the façade plus the ordering/dedup/cap discipline
// every implementation must honor.
package chainobserver

import (
	"context"
	"sort"

	"github.com/attestia/trustengine/pkg/reconcile"
)

// Direction filters a transfer query by the observed account's role.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	Both     Direction = "both"
)

// TransferQuery selects a window of transfers for one address on one chain.
type TransferQuery struct {
	ChainID     string
	Address     string
	Direction   Direction
	FromBlock   *int64
	ToBlock     *int64
	Limit       int
}

// Balance is a native-asset balance observation.
type Balance struct {
	ChainID  string `json:"chainId"`
	Address  string `json:"address"`
	Amount   string `json:"amount"` // raw integer string
	Decimals int    `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// Observer is a read-only view onto one or more chains. Implementations
// must never modify chain state. Chain IDs follow a CAIP-2-like prefix
// scheme (eip155:*, xrpl:*, solana:*).
type Observer interface {
	GetBalance(ctx context.Context, chainID, address string) (Balance, error)
	GetTokenBalance(ctx context.Context, chainID, address, tokenAddress string) (Balance, error)
	GetTransfers(ctx context.Context, query TransferQuery) ([]reconcile.ChainEvent, error)
}

// RawTransfer pairs a reconcile.ChainEvent with the block number and
// direction an Observer implementation fetched it under, before the shared
// NormalizeTransfers discipline (sort, dedup, cap) is applied.
type RawTransfer struct {
	Event       reconcile.ChainEvent
	BlockNumber int64
	Incoming    bool
}

// NormalizeTransfers is the shared discipline every Observer implementation
// must apply before returning from GetTransfers: sort by block number
// ascending, deduplicate self-transfers across an incoming+outgoing union by
// txHash, then cap at limit (0 means unlimited) after sorting and dedup.
func NormalizeTransfers(raw []RawTransfer, limit int) []reconcile.ChainEvent {
	sorted := append([]RawTransfer(nil), raw...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BlockNumber < sorted[j].BlockNumber
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]reconcile.ChainEvent, 0, len(sorted))
	for _, r := range sorted {
		if seen[r.Event.TxHash] {
			continue
		}
		seen[r.Event.TxHash] = true
		out = append(out, r.Event)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
