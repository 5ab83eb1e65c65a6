package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// MinePendingTransactions builds a block holding every pending transaction
// followed by a coinbase paying the reward plus the fees to the reward
// address, solves the proof of work and appends it to the chain. The proof
// of work runs without holding the ledger lock so reads and new transactions
// are served while mining. If the chain moved on in the meantime the block
// is discarded and ErrChainChanged is returned.
func (s *State) MinePendingTransactions(ctx context.Context, rewardAddress string) (database.Block, error) {
	if rewardAddress == "" {
		return database.Block{}, ErrNoRewardAddr
	}

	s.evHandler("state: MinePendingTransactions: MINING: prepare candidate block")

	block, difficulty, err := s.candidateBlock(rewardAddress)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MinePendingTransactions: MINING: perform POW: %s", block)

	// Attempt to solve the POW puzzle. This can be cancelled.
	if err := block.Mine(ctx, difficulty, s.evHandler); err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MinePendingTransactions: MINING: commit block: %s", block)

	if err := s.commitMinedBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// candidateBlock builds the unsolved block on top of the current tip.
func (s *State) candidateBlock(rewardAddress string) (database.Block, uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trans := s.mempool.Copy()

	fees := decimal.Zero
	for _, tx := range trans {
		fees = fees.Add(tx.Fee(s.utxos))
	}

	latest := s.latestBlock()
	height := latest.Index + 1
	now := time.Now().UTC().Unix()

	minted := s.miningReward.Add(fees)
	if !minted.IsPositive() {
		return database.Block{}, 0, fmt.Errorf("%w: nothing to mint without a reward or fees", database.ErrInvalidCoinbase)
	}

	coinbase := database.NewCoinbaseTx(rewardAddress, minted, height, now)
	trans = append(trans, coinbase)

	s.evHandler("state: candidateBlock: height[%d] trans[%d] fees[%s]", height, len(trans), fees)

	return database.NewBlock(height, trans, latest.Hash, now), s.difficulty, nil
}

// commitMinedBlock appends a block this node solved.
func (s *State) commitMinedBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if latest := s.latestBlock(); block.PreviousHash != latest.Hash {
		return fmt.Errorf("%w: mined on %s, tip is %s", ErrChainChanged, block.PreviousHash, latest.Hash)
	}

	// A pending transaction may have been confirmed by a proposed block
	// while the proof of work was running.
	for _, tx := range block.Trans {
		if _, exists := s.txIndex[tx.ID]; exists {
			return fmt.Errorf("%w: %s", ErrChainChanged, tx.ID)
		}
	}

	// Hold our own block to the rules every peer applies to it.
	if err := s.validateBlockTransactions(block); err != nil {
		s.evHandler("state: commitMinedBlock: rejected: %s: %s", block, err)
		return err
	}

	s.appendBlock(block)

	return nil
}

// =============================================================================

// ProcessProposedBlock takes a block solved elsewhere, validates it against
// the tip, the difficulty and the UTXO set, and if that passes, appends it to
// the chain. Any mining in progress is cancelled since its candidate block is
// now stale.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started : %s", block)
	defer s.evHandler("state: ProcessProposedBlock: completed")

	// If the mining operation is being executed it needs to stop
	// immediately. The worker will not start another mining operation
	// until done is called. That allows this function to complete its
	// state changes first.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: ProcessProposedBlock: signal mining operation to terminate")
			done()
		}()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := block.Validate(s.latestBlock(), s.difficulty, s.evHandler); err != nil {
		return err
	}

	if err := s.validateBlockTransactions(block); err != nil {
		return err
	}

	s.appendBlock(block)

	return nil
}

// validateBlockTransactions replays the block against a copy of the UTXO set.
// Every spend must be valid in order, the last transaction must be the only
// coinbase and it may mint at most the reward plus the fees. The lock must
// be held.
func (s *State) validateBlockTransactions(block database.Block) error {
	s.evHandler("state: validateBlockTransactions: blk[%d]: check: transactions against utxo set", block.Index)

	if len(block.Trans) == 0 {
		return fmt.Errorf("%w: block holds no transactions", database.ErrInvalidCoinbase)
	}

	work := s.utxos.Clone()
	fees := decimal.Zero
	last := len(block.Trans) - 1

	for i, tx := range block.Trans {
		if _, exists := s.txIndex[tx.ID]; exists {
			return fmt.Errorf("%w: %s is already confirmed", database.ErrDuplicateTransaction, tx.ID)
		}

		if tx.IsCoinbase() {
			if i != last {
				return fmt.Errorf("%w: coinbase at position %d", database.ErrInvalidCoinbase, i)
			}
			continue
		}

		if err := tx.Validate(work, s.verifier); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}

		fees = fees.Add(tx.Fee(work))
		work.ApplyTransaction(tx)
	}

	coinbase := block.Trans[last]
	if !coinbase.IsCoinbase() {
		return fmt.Errorf("%w: last transaction is not a coinbase", database.ErrInvalidCoinbase)
	}

	if allowed := s.miningReward.Add(fees); coinbase.TotalOutput().GreaterThan(allowed) {
		return fmt.Errorf("%w: mints %s, allowed %s", database.ErrInvalidCoinbase, coinbase.TotalOutput(), allowed)
	}

	return nil
}

// appendBlock adds a validated block to the chain, applies it to the UTXO
// set and index, evicts pending transactions it confirmed or made invalid
// and persists the result. The lock must be held.
func (s *State) appendBlock(block database.Block) {
	s.chain = append(s.chain, block)
	s.index(block)

	confirmed := make(map[string]struct{}, len(block.Trans))
	for _, tx := range block.Trans {
		confirmed[tx.ID] = struct{}{}
	}

	evicted := s.mempool.DeleteIf(func(tx database.Tx) bool {
		if _, exists := confirmed[tx.ID]; exists {
			return true
		}
		for _, in := range tx.Inputs {
			if in.TxID != "" && !s.utxos.Contains(in.UTXOID()) {
				return true
			}
		}
		return false
	})

	s.history.DeleteAll()

	s.evHandler("state: appendBlock: %s: removed[%d] pending[%d]", block, len(evicted), s.mempool.Count())

	if err := s.persist(); err != nil {
		s.evHandler("state: appendBlock: WARNING: %s", err)
	}

	s.blockEvent(block)
}

// =============================================================================

// IsChainValid reports whether every block links to its predecessor and
// carries a valid hash, proof of work and merkle root.
func (s *State) IsChainValid() bool {
	return s.ValidateChain() == nil
}

// ValidateChain walks the chain and returns the first problem found.
func (s *State) ValidateChain() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.validateChain()
}

func (s *State) validateChain() error {
	for i := 1; i < len(s.chain); i++ {
		if err := s.chain[i].Validate(s.chain[i-1], s.difficulty, nil); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}
