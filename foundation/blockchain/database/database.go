// Package database handles the data model of the ledger: unspent outputs,
// transactions spending them and blocks batching transactions together.
package database

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UTXOSet maintains the set of unspent outputs keyed by their id. The set
// has no locking of its own, the owner serializes access.
type UTXOSet struct {
	utxos map[UTXOID]UTXO
}

// NewUTXOSet constructs an empty set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{
		utxos: make(map[UTXOID]UTXO),
	}
}

// NewUTXOSetFrom constructs a set from a previously captured copy.
func NewUTXOSetFrom(utxos map[UTXOID]UTXO) *UTXOSet {
	us := NewUTXOSet()
	for id, utxo := range utxos {
		us.utxos[id] = utxo
	}

	return us
}

// UTXO implements the UTXOView interface.
func (us *UTXOSet) UTXO(id UTXOID) (UTXO, bool) {
	utxo, exists := us.utxos[id]
	return utxo, exists
}

// Add inserts the output into the set.
func (us *UTXOSet) Add(utxo UTXO) {
	us.utxos[utxo.ID()] = utxo
}

// Remove deletes the output from the set.
func (us *UTXOSet) Remove(id UTXOID) {
	delete(us.utxos, id)
}

// Contains reports whether the output is in the set.
func (us *UTXOSet) Contains(id UTXOID) bool {
	_, exists := us.utxos[id]
	return exists
}

// Len returns the number of outputs in the set.
func (us *UTXOSet) Len() int {
	return len(us.utxos)
}

// ByAddress returns the unspent outputs owned by the address ordered by id.
func (us *UTXOSet) ByAddress(address string) []UTXO {
	var utxos []UTXO
	for _, utxo := range us.utxos {
		if utxo.RecipientAddress == address && !utxo.IsSpent {
			utxos = append(utxos, utxo)
		}
	}

	sort.Slice(utxos, func(i, j int) bool {
		return utxos[i].ID() < utxos[j].ID()
	})

	return utxos
}

// Balance returns the sum of the unspent outputs owned by the address.
func (us *UTXOSet) Balance(address string) decimal.Decimal {
	balance := decimal.Zero
	for _, utxo := range us.ByAddress(address) {
		balance = balance.Add(utxo.Amount)
	}

	return balance
}

// Select picks outputs of the address largest first until amount is covered.
// Nothing is returned when the address can't cover the amount.
func (us *UTXOSet) Select(address string, amount decimal.Decimal) []UTXO {
	selected, total := SelectUTXOs(us.ByAddress(address), amount, decimal.Zero)
	if total.LessThan(amount) {
		return nil
	}

	return selected
}

// ApplyTransaction removes the outputs spent by the transaction and adds the
// outputs it creates.
func (us *UTXOSet) ApplyTransaction(tx Tx) {
	for _, in := range tx.Inputs {
		if in.TxID == "" {
			continue
		}
		delete(us.utxos, in.UTXOID())
	}

	for i, out := range tx.Outputs {
		utxo := UTXO{
			TxID:             tx.ID,
			OutputIndex:      uint32(i),
			Amount:           out.Amount,
			RecipientAddress: out.RecipientAddress,
		}
		us.utxos[utxo.ID()] = utxo
	}
}

// Clone returns an independent copy of the set.
func (us *UTXOSet) Clone() *UTXOSet {
	return NewUTXOSetFrom(us.utxos)
}

// Copy returns a copy of the underlying map.
func (us *UTXOSet) Copy() map[UTXOID]UTXO {
	cpy := make(map[UTXOID]UTXO, len(us.utxos))
	for id, utxo := range us.utxos {
		cpy[id] = utxo
	}

	return cpy
}
