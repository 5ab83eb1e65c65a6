package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
)

func Test_GenesisShape(t *testing.T) {
	t.Log("Given the need to build an unmined block.")
	{
		cb := database.NewCoinbaseTx("genesis", amount("0"), 0, 1_700_000_000)
		b := database.NewBlock(0, []database.Tx{cb}, hash.GenesisPrevHash, 1_700_000_000)

		if b.MerkleRoot != hash.DoubleHash(cb.ID) {
			t.Fatalf("\t%s\tShould use the double hash of the single id as the root.", failed)
		}
		t.Logf("\t%s\tShould use the double hash of the single id as the root.", success)

		if b.Hash != b.CalculateHash() {
			t.Fatalf("\t%s\tShould store the hash of the header.", failed)
		}
		t.Logf("\t%s\tShould store the hash of the header.", success)

		empty := database.NewBlock(1, nil, b.Hash, 1)
		if empty.MerkleRoot != hash.ZeroHash {
			t.Fatalf("\t%s\tShould use the zero hash as the root of an empty block.", failed)
		}
		t.Logf("\t%s\tShould use the zero hash as the root of an empty block.", success)
	}
}

func Test_Mine(t *testing.T) {
	t.Log("Given the need to perform proof of work.")
	{
		cb := database.NewCoinbaseTx("miner", amount("50"), 1, 1_700_000_000)
		b := database.NewBlock(1, []database.Tx{cb}, strings.Repeat("a", 64), 1_700_000_000)

		const difficulty = 2

		if err := b.Mine(context.Background(), difficulty, nil); err != nil {
			t.Fatalf("\t%s\tShould be able to mine the block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine the block.", success)

		if !strings.HasPrefix(b.Hash, "00") {
			t.Fatalf("\t%s\tShould have two leading zeros: %s", failed, b.Hash)
		}
		if b.Hash != b.CalculateHash() {
			t.Fatalf("\t%s\tShould match the recomputed hash.", failed)
		}
		t.Logf("\t%s\tShould produce a solved hash that matches the header.", success)

		if err := b.ValidateContent(difficulty, nil); err != nil {
			t.Fatalf("\t%s\tShould validate: %v", failed, err)
		}
		t.Logf("\t%s\tShould validate.", success)

		b.Nonce++
		if err := b.ValidateContent(difficulty, nil); !errors.Is(err, database.ErrInvalidBlockHash) {
			t.Fatalf("\t%s\tShould detect a changed nonce: %v", failed, err)
		}
		t.Logf("\t%s\tShould detect a changed nonce.", success)
	}
}

func Test_MineCancel(t *testing.T) {
	t.Log("Given the need to stop mining on demand.")
	{
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := database.NewBlock(1, nil, strings.Repeat("a", 64), 1)

		var events []string
		ev := func(v string, args ...any) { events = append(events, v) }

		if err := b.Mine(ctx, 64, ev); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould return the context error: %v", failed, err)
		}
		t.Logf("\t%s\tShould return the context error.", success)

		if len(events) == 0 {
			t.Fatalf("\t%s\tShould report mining events.", failed)
		}
		t.Logf("\t%s\tShould report mining events.", success)
	}
}

func Test_BlockTransactions(t *testing.T) {
	t.Log("Given the need to prove transactions belong to a block.")
	{
		var trans []database.Tx
		for i := 0; i < 5; i++ {
			trans = append(trans, database.NewCoinbaseTx("miner", amount("1"), uint64(i), int64(i)))
		}

		b := database.NewBlock(3, trans[:4], strings.Repeat("b", 64), 10)
		before := b.Hash

		b.AddTransaction(trans[4])
		if b.Hash == before || b.MerkleRoot != b.ComputeMerkleRoot() {
			t.Fatalf("\t%s\tShould recompute the root and hash after adding a transaction.", failed)
		}
		t.Logf("\t%s\tShould recompute the root and hash after adding a transaction.", success)

		for _, tx := range trans {
			proof, err := b.MerkleProof(tx.ID)
			if err != nil {
				t.Fatalf("\t%s\tShould get a proof for %s: %v", failed, tx.ID[:8], err)
			}
			if !b.VerifyTransactionInclusion(tx.ID, proof) {
				t.Fatalf("\t%s\tShould verify inclusion of %s.", failed, tx.ID[:8])
			}
			if b.VerifyTransactionInclusion(trans[0].ID+"x", proof) {
				t.Fatalf("\t%s\tShould reject a proof for another id.", failed)
			}
		}
		t.Logf("\t%s\tShould verify inclusion of every transaction.", success)

		stats := b.MerkleStats()
		if stats.TransactionCount != 5 || stats.MerkleRoot != b.MerkleRoot {
			t.Fatalf("\t%s\tShould report merkle stats: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould report merkle stats.", success)

		if b.Size() == 0 {
			t.Fatalf("\t%s\tShould report a size.", failed)
		}
	}
}

func Test_BlockLinkage(t *testing.T) {
	t.Log("Given the need to link blocks together.")
	{
		genesis := database.NewBlock(0, []database.Tx{database.NewCoinbaseTx("genesis", amount("0"), 0, 1)}, hash.GenesisPrevHash, 1)

		next := database.NewBlock(1, []database.Tx{database.NewCoinbaseTx("miner", amount("50"), 1, 2)}, genesis.Hash, 2)
		if err := next.Mine(context.Background(), 1, nil); err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %v", failed, err)
		}

		if err := next.Validate(genesis, 1, nil); err != nil {
			t.Fatalf("\t%s\tShould validate against its parent: %v", failed, err)
		}
		t.Logf("\t%s\tShould validate against its parent.", success)

		orphan := next
		orphan.PreviousHash = hash.ZeroHash
		if err := orphan.Validate(genesis, 1, nil); !errors.Is(err, database.ErrInvalidPreviousHash) {
			t.Fatalf("\t%s\tShould reject a wrong parent: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a wrong parent.", success)

		if err := next.Validate(next, 1, nil); !errors.Is(err, database.ErrInvalidBlockIndex) {
			t.Fatalf("\t%s\tShould reject a wrong index: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a wrong index.", success)

		data := database.NewBlockData(next)
		data.Trans = append([]database.Tx(nil), data.Trans...)
		data.Trans[0].Outputs = []database.TxOutput{{Amount: amount("5000"), RecipientAddress: "miner"}}
		data.Trans[0].ID = data.Trans[0].CalculateID()

		tampered := database.ToBlock(data)
		if err := tampered.ValidateContent(1, nil); !errors.Is(err, database.ErrMerkleRootMismatch) {
			t.Fatalf("\t%s\tShould detect tampered transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould detect tampered transactions.", success)
	}
}
