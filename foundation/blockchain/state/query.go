package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/difficulty"
	"github.com/shopspring/decimal"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// ChainInfo summarizes the ledger.
type ChainInfo struct {
	BlockHeight            uint64          `json:"block_height"`
	TotalTransactions      int             `json:"total_transactions"`
	Difficulty             uint            `json:"difficulty"`
	MiningReward           decimal.Decimal `json:"mining_reward"`
	PendingTransactions    int             `json:"pending_transactions"`
	UTXOCount              int             `json:"utxo_count"`
	LatestBlockHash        string          `json:"latest_block_hash"`
	VerifiableTransactions int             `json:"verifiable_transactions"`
	ChainValid             bool            `json:"chain_valid"`
}

// DifficultyInfo reports what the difficulty adjuster observed.
type DifficultyInfo struct {
	Current     uint                    `json:"current"`
	Statistics  *difficulty.Statistics  `json:"statistics,omitempty"`
	Prediction  *difficulty.Prediction  `json:"prediction,omitempty"`
	Adjustments []difficulty.Adjustment `json:"adjustments"`
}

// =============================================================================

// LatestBlock returns the tip of the chain.
func (s *State) LatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestBlock()
}

// BlockByIndex returns the block at the index.
func (s *State) BlockByIndex(index uint64) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint64(len(s.chain)) {
		return database.Block{}, fmt.Errorf("%w: block %d", ErrNotFound, index)
	}

	return s.chain[index], nil
}

// Blocks returns the blocks in the inclusive index range. QueryLatest as the
// upper bound selects up to the tip.
func (s *State) Blocks(from uint64, to uint64) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := uint64(len(s.chain)) - 1
	if to > last {
		to = last
	}

	if from > to {
		return nil
	}

	out := make([]database.Block, 0, to-from+1)
	out = append(out, s.chain[from:to+1]...)

	return out
}

// ChainLength returns the number of blocks including genesis.
func (s *State) ChainLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chain)
}

// TransactionByID returns a confirmed transaction and the index of the
// block holding it.
func (s *State) TransactionByID(txID string) (database.Tx, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, exists := s.txIndex[txID]
	if !exists {
		return database.Tx{}, 0, fmt.Errorf("%w: transaction %s", ErrNotFound, txID)
	}

	return s.chain[loc.block].Trans[loc.position], loc.block, nil
}

// Mempool returns a copy of the pending transactions in arrival order.
func (s *State) Mempool() []database.Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mempool.Copy()
}

// MempoolLength returns the number of pending transactions.
func (s *State) MempoolLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mempool.Count()
}

// Difficulty returns the number of leading zeros a block hash needs.
func (s *State) Difficulty() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.difficulty
}

// MiningReward returns the amount minted by every coinbase.
func (s *State) MiningReward() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.miningReward
}

// DefaultFee returns the fee used when a spend request omits one.
func (s *State) DefaultFee() decimal.Decimal {
	return s.defaultFee
}

// ChainInfo returns the summary of the ledger.
func (s *State) ChainInfo() ChainInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chainInfo()
}

func (s *State) chainInfo() ChainInfo {
	return ChainInfo{
		BlockHeight:            uint64(len(s.chain)),
		TotalTransactions:      len(s.txIndex),
		Difficulty:             s.difficulty,
		MiningReward:           s.miningReward,
		PendingTransactions:    s.mempool.Count(),
		UTXOCount:              s.utxos.Len(),
		LatestBlockHash:        s.latestBlock().Hash,
		VerifiableTransactions: len(s.txIndex),
		ChainValid:             s.validateChain() == nil,
	}
}

// DifficultyStatistics returns the statistics gathered by the difficulty adjuster.
func (s *State) DifficultyStatistics() DifficultyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := DifficultyInfo{
		Current:     s.difficulty,
		Adjustments: s.adjuster.History(),
	}

	if stats, ok := s.adjuster.Statistics(); ok {
		info.Statistics = &stats
	}

	if prediction, ok := s.adjuster.PredictNextAdjustment(); ok {
		info.Prediction = &prediction
	}

	return info
}

// UTXOCount returns the number of unspent outputs.
func (s *State) UTXOCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos.Len()
}
