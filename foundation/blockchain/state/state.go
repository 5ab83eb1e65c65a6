// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
)

// Set of error variables for ledger processing.
var (
	ErrNotFound     = errors.New("not found")
	ErrChainChanged = errors.New("chain tip changed while mining")
	ErrNoRewardAddr = errors.New("reward address required")
)

// GenesisAddress owns the zero value output of the genesis coinbase.
const GenesisAddress = "genesis"

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultDifficulty       = 4
	DefaultHistoryCacheSize = 500
	DefaultHistoryTTL       = time.Hour
)

// Defaults applied when the configuration leaves an amount unset.
var (
	DefaultMiningReward = decimal.NewFromInt(50)
	DefaultFee          = decimal.RequireFromString("0.01")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start the ledger. A nil
// MiningReward or DefaultFee selects the default, so zero can be configured.
type Config struct {
	Difficulty       uint
	MiningReward     *decimal.Decimal
	DefaultFee       *decimal.Decimal
	GenesisTime      time.Time
	Storage          storage.Storage
	Verifier         signature.Verifier
	HistoryCacheSize uint64
	HistoryTTL       time.Duration
	Adjustment       difficulty.Config
	EvHandler        EventHandler
}

// txLocation records where a confirmed transaction lives in the chain.
type txLocation struct {
	block    uint64
	position int
}

// State manages the ledger: the chain, the UTXO set and the mempool.
type State struct {
	mu sync.RWMutex

	evHandler    EventHandler
	verifier     signature.Verifier
	storage      storage.Storage
	difficulty   uint
	miningReward decimal.Decimal
	defaultFee   decimal.Decimal
	genesisTime  int64

	chain    []database.Block
	utxos    *database.UTXOSet
	mempool  *mempool.Mempool
	txIndex  map[string]txLocation
	history  *ttlcache.Cache[string, []HistoryEntry]
	adjuster *difficulty.Adjuster

	Worker Worker
}

// New constructs the ledger. When the storage holds a snapshot the ledger is
// restored from it, otherwise a new chain starting with the genesis block is
// created.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Difficulty == 0 {
		cfg.Difficulty = DefaultDifficulty
	}
	miningReward := DefaultMiningReward
	if cfg.MiningReward != nil {
		if cfg.MiningReward.IsNegative() {
			return nil, fmt.Errorf("mining reward %s can't be negative", cfg.MiningReward)
		}
		miningReward = *cfg.MiningReward
	}
	defaultFee := DefaultFee
	if cfg.DefaultFee != nil {
		if cfg.DefaultFee.IsNegative() {
			return nil, fmt.Errorf("default fee %s can't be negative", cfg.DefaultFee)
		}
		defaultFee = *cfg.DefaultFee
	}
	if cfg.Verifier == nil {
		cfg.Verifier = signature.Secp256k1{}
	}
	if cfg.HistoryCacheSize == 0 {
		cfg.HistoryCacheSize = DefaultHistoryCacheSize
	}
	if cfg.HistoryTTL == 0 {
		cfg.HistoryTTL = DefaultHistoryTTL
	}
	if cfg.Adjustment.Interval == 0 {
		cfg.Adjustment = difficulty.DefaultConfig()
	}
	if cfg.GenesisTime.IsZero() {
		cfg.GenesisTime = time.Now()
	}

	history := ttlcache.New(
		ttlcache.WithTTL[string, []HistoryEntry](cfg.HistoryTTL),
		ttlcache.WithCapacity[string, []HistoryEntry](cfg.HistoryCacheSize),
	)

	s := State{
		evHandler:    ev,
		verifier:     cfg.Verifier,
		storage:      cfg.Storage,
		difficulty:   cfg.Difficulty,
		miningReward: miningReward,
		defaultFee:   defaultFee,
		genesisTime:  cfg.GenesisTime.UTC().Unix(),
		history:      history,
	}

	s.adjuster = difficulty.New(cfg.Adjustment, float64(cfg.Difficulty))

	if err := s.load(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &s, nil
}

// load restores the ledger from storage or starts a new chain.
func (s *State) load() error {
	if s.storage == nil {
		s.reset()
		return nil
	}

	snapshot, err := s.storage.Read()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.evHandler("state: load: no snapshot found, creating genesis block")
		s.reset()
		return s.persist()

	case err != nil:
		return fmt.Errorf("reading snapshot: %w", err)
	}

	if err := s.restore(snapshot); err != nil {
		return err
	}

	if err := s.validateChain(); err != nil {
		s.evHandler("state: load: WARNING: restored chain is not valid: %s", err)
	}

	return nil
}

// reset puts the ledger back to a chain holding only the genesis block.
func (s *State) reset() {
	genesis := genesisBlock(s.genesisTime)

	s.chain = []database.Block{genesis}
	s.utxos = database.NewUTXOSet()
	s.mempool = mempool.New()
	s.txIndex = make(map[string]txLocation)
	s.adjuster = difficulty.New(s.adjuster.Config(), float64(s.difficulty))
	s.history.DeleteAll()

	s.index(genesis)
}

// genesisBlock constructs block 0. Its single coinbase pays nothing and
// carries no block height.
func genesisBlock(timestamp int64) database.Block {
	coinbase := database.NewTx(
		[]database.TxInput{},
		[]database.TxOutput{{Amount: decimal.Zero, RecipientAddress: GenesisAddress}},
		timestamp,
	)

	return database.NewBlock(0, []database.Tx{coinbase}, hash.GenesisPrevHash, timestamp)
}

// restore replaces the in memory ledger with the snapshot content.
func (s *State) restore(snapshot database.Snapshot) error {
	if len(snapshot.Chain) == 0 {
		return errors.New("snapshot holds no blocks")
	}

	if snapshot.Difficulty > 0 {
		s.difficulty = snapshot.Difficulty
	}
	if !snapshot.MiningReward.IsNegative() {
		s.miningReward = snapshot.MiningReward
	}

	s.chain = make([]database.Block, len(snapshot.Chain))
	s.txIndex = make(map[string]txLocation)
	s.adjuster = difficulty.New(s.adjuster.Config(), float64(s.difficulty))
	s.history.DeleteAll()

	for i, data := range snapshot.Chain {
		s.chain[i] = database.ToBlock(data)
		for pos, tx := range data.Trans {
			s.txIndex[tx.ID] = txLocation{block: data.Index, position: pos}
		}
		s.trackDifficulty(s.chain[i])
	}

	s.utxos = database.NewUTXOSetFrom(snapshot.UTXOSet)
	s.mempool = mempool.New()

	for _, tx := range snapshot.PendingTransactions {
		if tx.IsCoinbase() {
			s.evHandler("state: restore: WARNING: dropping pending coinbase tx[%s]", tx.ID)
			continue
		}
		if err := s.mempool.Add(tx); err != nil {
			s.evHandler("state: restore: WARNING: dropping pending tx[%s]: %s", tx.ID, err)
		}
	}

	s.evHandler("state: restore: blocks[%d] utxos[%d] pending[%d]", len(s.chain), s.utxos.Len(), s.mempool.Count())

	return nil
}

// Shutdown cleanly brings the ledger down, persisting the final state.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all ledger writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	if s.storage == nil {
		return nil
	}

	// Make sure the storage is properly closed.
	defer s.storage.Close()

	return s.Save()
}

// Save writes the current snapshot to storage.
func (s *State) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.persist()
}

// Truncate resets the ledger both in storage and in memory back to the
// genesis block.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: Truncate: resetting the ledger")

	s.reset()

	if s.storage == nil {
		return nil
	}

	if err := s.storage.Reset(); err != nil {
		return err
	}

	return s.persist()
}

// Snapshot returns a copy of the full ledger state.
func (s *State) Snapshot() database.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// =============================================================================

// snapshot builds the snapshot value. The lock must be held.
func (s *State) snapshot() database.Snapshot {
	chain := make([]database.BlockData, len(s.chain))
	for i, block := range s.chain {
		chain[i] = database.NewBlockData(block)
	}

	return database.Snapshot{
		Chain:               chain,
		Difficulty:          s.difficulty,
		PendingTransactions: s.mempool.Copy(),
		MiningReward:        s.miningReward,
		UTXOSet:             s.utxos.Copy(),
	}
}

// persist writes the snapshot to storage. The lock must be held.
func (s *State) persist() error {
	if s.storage == nil {
		return nil
	}

	if err := s.storage.Write(s.snapshot()); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// index applies a block that is already part of the chain to the UTXO set
// and the transaction index. The lock must be held.
func (s *State) index(block database.Block) {
	for pos, tx := range block.Trans {
		s.utxos.ApplyTransaction(tx)
		s.txIndex[tx.ID] = txLocation{block: block.Index, position: pos}
	}

	s.trackDifficulty(block)
}

// trackDifficulty feeds the block to the difficulty adjuster. The result is
// only recorded for statistics, the leading zero difficulty never changes.
func (s *State) trackDifficulty(block database.Block) {
	d := float64(s.difficulty)
	target := difficulty.DifficultyToTarget(d)

	s.adjuster.AddBlockHeader(difficulty.BlockHeader{
		Height:       block.Index,
		TimeStamp:    block.TimeStamp,
		Difficulty:   d,
		Target:       target,
		Hash:         block.Hash,
		PreviousHash: block.PreviousHash,
		Nonce:        block.Nonce,
	})

	if s.adjuster.ShouldAdjust(block.Index + 1) {
		next := s.adjuster.CalculateNextDifficulty(block.Index + 1)
		s.evHandler("state: difficulty: height[%d] suggested difficulty[%.4f]", block.Index+1, next)
	}
}

// latestBlock returns the tip of the chain. The lock must be held.
func (s *State) latestBlock() database.Block {
	return s.chain[len(s.chain)-1]
}
