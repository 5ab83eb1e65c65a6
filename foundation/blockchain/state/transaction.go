package state

import (
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// AddTransaction validates the transaction against the UTXO set and the
// mempool reservations and adds it to the mempool. On success the worker is
// signaled to start mining.
func (s *State) AddTransaction(tx database.Tx) error {
	if err := s.addTransaction(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

func (s *State) addTransaction(tx database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: AddTransaction: started: %s", tx)

	if _, exists := s.txIndex[tx.ID]; exists {
		return fmt.Errorf("%w: %s is already confirmed", database.ErrDuplicateTransaction, tx.ID)
	}

	// Only a miner creates a coinbase, as the last transaction of its block.
	if tx.IsCoinbase() {
		s.evHandler("state: AddTransaction: rejected: %s: coinbase", tx)
		return fmt.Errorf("%w: coinbase can't be submitted", database.ErrInvalidCoinbase)
	}

	if err := tx.Validate(s.utxos, s.verifier); err != nil {
		s.evHandler("state: AddTransaction: rejected: %s: %s", tx, err)
		return err
	}

	// The mempool checks the reservations and inserts under its own lock.
	if err := s.mempool.Add(tx); err != nil {
		s.evHandler("state: AddTransaction: rejected: %s: %s", tx, err)
		return err
	}

	s.history.DeleteAll()
	s.txEvent(tx)

	s.evHandler("state: AddTransaction: completed: pending[%d]", s.mempool.Count())

	return nil
}

// CreateSpendTransaction builds a transaction moving amount from one address
// to another, selecting from the outputs not already reserved by the mempool.
// The transaction is signed when a signer is provided but it is not added to
// the mempool.
func (s *State) CreateSpendTransaction(from string, to string, amount decimal.Decimal, fee decimal.Decimal, signer signature.Signer) (database.Tx, error) {
	if signer != nil && signer.Address() != from {
		return database.Tx{}, fmt.Errorf("%w: signer %s can't spend for %s", database.ErrAddressMismatch, signer.Address(), from)
	}

	s.mu.RLock()
	available := s.availableUTXOs(from)
	s.mu.RUnlock()

	selected, total := database.SelectUTXOs(available, amount, fee)
	if total.LessThan(amount.Add(fee)) {
		return database.Tx{}, fmt.Errorf("%w: available %s, need %s", database.ErrInsufficientInput, total, amount.Add(fee))
	}

	tx, err := database.NewSpendTx(selected, from, to, amount, fee, time.Now().UTC().Unix())
	if err != nil {
		return database.Tx{}, err
	}

	if signer == nil {
		return tx, nil
	}

	return tx.Sign(signer)
}

// =============================================================================

// Balance returns the sum of the unspent outputs owned by the address.
// Outputs reserved by pending transactions are still counted.
func (s *State) Balance(address string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos.Balance(address)
}

// UTXOsByAddress returns every unspent output owned by the address.
func (s *State) UTXOsByAddress(address string) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos.ByAddress(address)
}

// AvailableUTXOs returns the unspent outputs owned by the address that no
// pending transaction is spending.
func (s *State) AvailableUTXOs(address string) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.availableUTXOs(address)
}

func (s *State) availableUTXOs(address string) []database.UTXO {
	var available []database.UTXO
	for _, utxo := range s.utxos.ByAddress(address) {
		if _, reserved := s.mempool.Reserved(utxo.ID()); reserved {
			continue
		}
		available = append(available, utxo)
	}

	return available
}
