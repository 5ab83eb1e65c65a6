package database

import "github.com/shopspring/decimal"

// Snapshot is the complete persisted record of a ledger.
type Snapshot struct {
	Chain               []BlockData     `json:"chain"`
	Difficulty          uint            `json:"difficulty"`
	PendingTransactions []Tx            `json:"pending_transactions"`
	MiningReward        decimal.Decimal `json:"mining_reward"`
	UTXOSet             map[UTXOID]UTXO `json:"utxo_set"`
}

// LatestBlock returns the last block of the snapshot's chain.
func (s Snapshot) LatestBlock() (BlockData, bool) {
	if len(s.Chain) == 0 {
		return BlockData{}, false
	}

	return s.Chain[len(s.Chain)-1], true
}
