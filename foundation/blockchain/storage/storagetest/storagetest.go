// Package storagetest provides a conformance test run against every
// storage.Storage implementation.
package storagetest

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Snapshot builds a two block snapshot with one pending transaction.
func Snapshot(t *testing.T) database.Snapshot {
	t.Helper()

	genesis := database.NewBlock(0, []database.Tx{database.NewCoinbaseTx("genesis", decimal.Zero, 0, 1700000000)}, hash.GenesisPrevHash, 1700000000)

	cb := database.NewCoinbaseTx("1miner", decimal.NewFromInt(50), 1, 1700000100)
	block := database.NewBlock(1, []database.Tx{cb}, genesis.Hash, 1700000100)

	us := database.NewUTXOSet()
	us.ApplyTransaction(genesis.Trans[0])
	us.ApplyTransaction(cb)

	pending := database.NewTx(
		[]database.TxInput{{TxID: cb.ID, OutputIndex: 0, Signature: "sig", PublicKey: "pub"}},
		[]database.TxOutput{{Amount: decimal.RequireFromString("12.5"), RecipientAddress: "1bob"}},
		1700000200,
	)

	return database.Snapshot{
		Chain:               []database.BlockData{database.NewBlockData(genesis), database.NewBlockData(block)},
		Difficulty:          2,
		PendingTransactions: []database.Tx{pending},
		MiningReward:        decimal.NewFromInt(50),
		UTXOSet:             us.Copy(),
	}
}

// Run exercises the full Storage contract.
func Run(t *testing.T, strg storage.Storage) {
	t.Helper()

	_, err := strg.Read()
	require.ErrorIs(t, err, storage.ErrNotFound, "empty storage should report not found")

	want := Snapshot(t)
	require.NoError(t, strg.Write(want))

	got, err := strg.Read()
	require.NoError(t, err)
	require.Len(t, got.Chain, 2)
	require.Equal(t, want.Chain[1].Hash, got.Chain[1].Hash)
	require.Equal(t, want.Chain[1].MerkleRoot, got.Chain[1].MerkleRoot)
	require.Equal(t, want.Difficulty, got.Difficulty)
	require.True(t, want.MiningReward.Equal(got.MiningReward))
	require.Len(t, got.PendingTransactions, 1)
	require.Equal(t, want.PendingTransactions[0].ID, got.PendingTransactions[0].ID)
	require.Len(t, got.UTXOSet, len(want.UTXOSet))

	for id, utxo := range want.UTXOSet {
		require.Contains(t, got.UTXOSet, id)
		require.True(t, utxo.Amount.Equal(got.UTXOSet[id].Amount))
	}

	// A rewritten snapshot with a shorter chain replaces the old one.
	want.Chain = want.Chain[:1]
	want.PendingTransactions = nil
	require.NoError(t, strg.Write(want))

	got, err = strg.Read()
	require.NoError(t, err)
	require.Len(t, got.Chain, 1)
	require.Empty(t, got.PendingTransactions)

	require.NoError(t, strg.Reset())

	_, err = strg.Read()
	require.ErrorIs(t, err, storage.ErrNotFound, "reset storage should report not found")
}
