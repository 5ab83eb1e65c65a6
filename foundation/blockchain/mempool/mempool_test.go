package mempool_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func spend(ts int64, refs ...string) database.Tx {
	var inputs []database.TxInput
	for _, ref := range refs {
		inputs = append(inputs, database.TxInput{TxID: ref, OutputIndex: 0})
	}

	outputs := []database.TxOutput{{Amount: decimal.NewFromInt(1), RecipientAddress: "bob"}}

	return database.NewTx(inputs, outputs, ts)
}

func TestCRUD(t *testing.T) {
	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
		{
			mp := mempool.New()

			txs := []database.Tx{spend(1, "a"), spend(2, "b"), spend(3, "c", "d")}
			for _, tx := range txs {
				if err := mp.Add(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a transaction: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to add transactions.", success, testID)

			if mp.Count() != len(txs) {
				t.Fatalf("\t%s\tTest %d:\tShould get back the right count: %d", failed, testID, mp.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould get back the right count.", success, testID)

			for i, tx := range mp.Copy() {
				if tx.ID != txs[i].ID {
					t.Fatalf("\t%s\tTest %d:\tShould keep arrival order.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould keep arrival order.", success, testID)

			if owner, ok := mp.Reserved(database.NewUTXOID("d", 0)); !ok || owner != txs[2].ID {
				t.Fatalf("\t%s\tTest %d:\tShould reserve every spent output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reserve every spent output.", success, testID)

			if !mp.Delete(txs[1].ID) {
				t.Fatalf("\t%s\tTest %d:\tShould be able to delete a transaction.", failed, testID)
			}
			if mp.Contains(txs[1].ID) || mp.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould no longer hold the transaction.", failed, testID)
			}
			if _, ok := mp.Reserved(database.NewUTXOID("b", 0)); ok {
				t.Fatalf("\t%s\tTest %d:\tShould release the reservation.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to delete a transaction.", success, testID)

			if err := mp.Add(spend(4, "b")); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept a spend of a released output: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept a spend of a released output.", success, testID)

			removed := mp.DeleteIf(func(tx database.Tx) bool { return len(tx.Inputs) == 2 })
			if len(removed) != 1 || removed[0].ID != txs[2].ID {
				t.Fatalf("\t%s\tTest %d:\tShould delete by predicate.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould delete by predicate.", success, testID)

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate the pool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate the pool.", success, testID)
		}
	}
}

func TestConflicts(t *testing.T) {
	t.Log("Given the need to stop double spends in the pool.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two transactions spend the same output.", testID)
		{
			mp := mempool.New()

			first := spend(1, "a")
			if err := mp.Add(first); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the first spend: %v", failed, testID, err)
			}

			if err := mp.Add(spend(2, "a")); !errors.Is(err, database.ErrUTXOLockedByMempool) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the second spend: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the second spend.", success, testID)

			if err := mp.Add(first); !errors.Is(err, database.ErrDuplicateTransaction) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a duplicate: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a duplicate.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen many goroutines race to spend the same output.", testID)
		{
			mp := mempool.New()

			const racers = 50

			var wg sync.WaitGroup
			var mu sync.Mutex
			var accepted int

			wg.Add(racers)
			for i := 0; i < racers; i++ {
				go func(ts int64) {
					defer wg.Done()
					if err := mp.Add(spend(ts, "contested")); err == nil {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}(int64(i))
			}
			wg.Wait()

			if accepted != 1 || mp.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould accept exactly one spend, got %d.", failed, testID, accepted)
			}
			t.Logf("\t%s\tTest %d:\tShould accept exactly one spend.", success, testID)
		}
	}
}
