// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// load restores the ledger from the snapshot in storage. A store without a
// snapshot is an error, the admin tool never creates a ledger.
func load(strg storage.Storage) (*state.State, database.Snapshot, error) {
	snapshot, err := strg.Read()
	if err != nil {
		return nil, database.Snapshot{}, err
	}

	st, err := state.New(state.Config{
		Storage: strg,
	})
	if err != nil {
		return nil, database.Snapshot{}, err
	}

	return st, snapshot, nil
}

// Balances writes the balance for every address holding unspent outputs or
// for the one address specified.
func Balances(w io.Writer, address string, strg storage.Storage) error {
	st, snapshot, err := load(strg)
	if err != nil {
		return err
	}

	latest := st.LatestBlock()
	fmt.Fprintf(w, "Latest Block: %d %s\n\n", latest.Index, latest.Hash)

	if address != "" {
		fmt.Fprintf(w, "Address: %s  Balance: %s\n", address, st.Balance(address))
		return nil
	}

	bals := make(map[string]decimal.Decimal)
	for _, utxo := range snapshot.UTXOSet {
		bals[utxo.RecipientAddress] = bals[utxo.RecipientAddress].Add(utxo.Amount)
	}

	addresses := make([]string, 0, len(bals))
	for address := range bals {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		fmt.Fprintf(w, "Address: %s  Balance: %s\n", address, bals[address])
	}

	return nil
}

// Transactions writes every confirmed transaction or, when an address is
// specified, the history for that address.
func Transactions(w io.Writer, address string, strg storage.Storage) error {
	st, _, err := load(strg)
	if err != nil {
		return err
	}

	if address != "" {
		for _, e := range st.TransactionHistory(address) {
			fmt.Fprintf(w, "Block: %d  ID: %s  Type: %s  From: %s  To: %s  Net: %s  Fee: %s\n",
				e.BlockIndex, e.TxID, e.Type, e.FromAddress, e.ToAddress, e.NetAmount, e.Fee)
		}
		return nil
	}

	for _, block := range st.Blocks(0, state.QueryLatest) {
		for _, tx := range block.Trans {
			fmt.Fprintf(w, "Block: %d  %s\n", block.Index, tx)
		}
	}

	return nil
}

// Validate walks the stored chain and reports the first failure.
func Validate(w io.Writer, strg storage.Storage) error {
	st, _, err := load(strg)
	if err != nil {
		return err
	}

	if err := st.ValidateChain(); err != nil {
		fmt.Fprintf(w, "Chain Invalid: %s\n", err)
		return err
	}

	info := st.ChainInfo()
	fmt.Fprintf(w, "Chain Valid: height[%d] transactions[%d] utxos[%d]\n", info.BlockHeight, info.TotalTransactions, info.UTXOCount)

	return nil
}

// Proofs writes a merkle proof for every confirmed transaction as JSON.
func Proofs(w io.Writer, strg storage.Storage) error {
	st, _, err := load(strg)
	if err != nil {
		return err
	}

	export, err := st.ExportMerkleProofs()
	if err != nil {
		return err
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(export)
}
