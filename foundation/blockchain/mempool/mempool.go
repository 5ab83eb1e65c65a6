// Package mempool maintains the mempool for the blockchain. Transactions are
// kept in arrival order and every output they spend is reserved so no other
// pending transaction can spend it.
package mempool

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Mempool represents the ordered set of pending transactions.
type Mempool struct {
	mu       sync.RWMutex
	pool     []database.Tx
	ids      map[string]struct{}
	reserved map[database.UTXOID]string
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		ids:      make(map[string]struct{}),
		reserved: make(map[database.UTXOID]string),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends the transaction and reserves the outputs it spends. The check
// and the insert happen under the same lock so two transactions spending the
// same output can't both get in.
func (mp *Mempool) Add(tx database.Tx) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.ids[tx.ID]; exists {
		return fmt.Errorf("%w: %s is already pending", database.ErrDuplicateTransaction, tx.ID)
	}

	for _, in := range tx.Inputs {
		if in.TxID == "" {
			continue
		}
		if owner, exists := mp.reserved[in.UTXOID()]; exists {
			return fmt.Errorf("%w: %s is spent by pending %s", database.ErrUTXOLockedByMempool, in.UTXOID(), owner)
		}
	}

	mp.pool = append(mp.pool, tx)
	mp.ids[tx.ID] = struct{}{}
	for _, in := range tx.Inputs {
		if in.TxID == "" {
			continue
		}
		mp.reserved[in.UTXOID()] = tx.ID
	}

	return nil
}

// Delete removes the transaction and releases its reservations. It reports
// whether the transaction was pending.
func (mp *Mempool) Delete(txID string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	removed := mp.deleteIf(func(tx database.Tx) bool { return tx.ID == txID })

	return len(removed) == 1
}

// DeleteIf removes every transaction matching the predicate and returns them.
func (mp *Mempool) DeleteIf(fn func(tx database.Tx) bool) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.deleteIf(fn)
}

func (mp *Mempool) deleteIf(fn func(tx database.Tx) bool) []database.Tx {
	var removed []database.Tx

	kept := mp.pool[:0]
	for _, tx := range mp.pool {
		if !fn(tx) {
			kept = append(kept, tx)
			continue
		}

		removed = append(removed, tx)
		delete(mp.ids, tx.ID)
		for _, in := range tx.Inputs {
			if mp.reserved[in.UTXOID()] == tx.ID {
				delete(mp.reserved, in.UTXOID())
			}
		}
	}

	for i := len(kept); i < len(mp.pool); i++ {
		mp.pool[i] = database.Tx{}
	}
	mp.pool = kept

	return removed
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.ids = make(map[string]struct{})
	mp.reserved = make(map[database.UTXOID]string)
}

// Contains reports whether the transaction is pending.
func (mp *Mempool) Contains(txID string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.ids[txID]
	return exists
}

// Reserved returns the id of the pending transaction spending the output.
func (mp *Mempool) Reserved(id database.UTXOID) (string, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txID, exists := mp.reserved[id]
	return txID, exists
}

// Copy returns the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}
