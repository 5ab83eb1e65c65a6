// Package kv implements the ability to read and write the ledger snapshot
// using the badger key/value store. Every block is stored under its own key
// so the chain can be inspected with badger tooling, and the remaining state
// is stored under a single state key.
package kv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/dgraph-io/badger"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	stateKey    = []byte("state")
	blockPrefix = []byte("block:")
)

// state is everything in the snapshot except the chain itself.
type state struct {
	Blocks              uint64                            `json:"blocks"`
	Difficulty          uint                              `json:"difficulty"`
	PendingTransactions []database.Tx                     `json:"pending_transactions"`
	MiningReward        decimal.Decimal                   `json:"mining_reward"`
	UTXOSet             map[database.UTXOID]database.UTXO `json:"utxo_set"`
}

// KV represents the badger backed storage. This implements the
// storage.Storage interface.
type KV struct {
	db *badger.DB
}

// New opens or creates the badger database at the specified directory.
func New(dir string) (*KV, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger %s: %w", dir, err)
	}

	return &KV{db: db}, nil
}

// Close releases the badger database.
func (kv *KV) Close() error {
	return kv.db.Close()
}

// Write stores the snapshot. Blocks already present are not rewritten
// unless their hash changed.
func (kv *KV) Write(snapshot database.Snapshot) error {
	st := state{
		Blocks:              uint64(len(snapshot.Chain)),
		Difficulty:          snapshot.Difficulty,
		PendingTransactions: snapshot.PendingTransactions,
		MiningReward:        snapshot.MiningReward,
		UTXOSet:             snapshot.UTXOSet,
	}

	stData, err := json.Marshal(st)
	if err != nil {
		return err
	}

	return kv.db.Update(func(txn *badger.Txn) error {
		for _, block := range snapshot.Chain {
			key := blockKey(block.Index)

			var stored database.BlockData
			switch err := get(txn, key, &stored); {
			case err == nil && stored.Hash == block.Hash:
				continue
			case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}

			data, err := json.Marshal(block)
			if err != nil {
				return err
			}

			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("writing block %d: %w", block.Index, err)
			}
		}

		return txn.Set(stateKey, stData)
	})
}

// Read reassembles the snapshot from the stored blocks and state.
func (kv *KV) Read() (database.Snapshot, error) {
	var snapshot database.Snapshot

	err := kv.db.View(func(txn *badger.Txn) error {
		var st state
		if err := get(txn, stateKey, &st); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		snapshot.Difficulty = st.Difficulty
		snapshot.MiningReward = st.MiningReward
		snapshot.PendingTransactions = st.PendingTransactions
		snapshot.UTXOSet = st.UTXOSet
		snapshot.Chain = make([]database.BlockData, st.Blocks)

		for i := range st.Blocks {
			if err := get(txn, blockKey(i), &snapshot.Chain[i]); err != nil {
				return fmt.Errorf("reading block %d: %w", i, err)
			}
		}

		return nil
	})

	if err != nil {
		return database.Snapshot{}, err
	}

	return snapshot, nil
}

// Reset drops every key in the database.
func (kv *KV) Reset() error {
	return kv.db.DropAll()
}

// =============================================================================

func blockKey(index uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], index)
	return key
}

func get(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}
