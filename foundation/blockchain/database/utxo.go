package database

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// UTXOID uniquely identifies an unspent output as "txid:output_index".
type UTXOID string

// NewUTXOID constructs the id for the output of the transaction.
func NewUTXOID(txID string, outputIndex uint32) UTXOID {
	return UTXOID(txID + ":" + strconv.FormatUint(uint64(outputIndex), 10))
}

// Split breaks the id back into its transaction id and output index.
func (id UTXOID) Split() (string, uint32, error) {
	i := strings.LastIndex(string(id), ":")
	if i < 0 {
		return "", 0, fmt.Errorf("utxo id %q is not properly formatted", id)
	}

	idx, err := strconv.ParseUint(string(id)[i+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("utxo id %q has a bad output index: %w", id, err)
	}

	return string(id)[:i], uint32(idx), nil
}

// UTXO represents an unspent transaction output.
type UTXO struct {
	TxID             string          `json:"transaction_id"`    // Transaction that created the output.
	OutputIndex      uint32          `json:"output_index"`      // Position of the output in that transaction.
	Amount           decimal.Decimal `json:"amount"`            // Value locked in the output.
	RecipientAddress string          `json:"recipient_address"` // Address allowed to spend the output.
	IsSpent          bool            `json:"is_spent"`          // Kept for records, spent outputs leave the set.
}

// ID returns the id of the output.
func (u UTXO) ID() UTXOID {
	return NewUTXOID(u.TxID, u.OutputIndex)
}

// UTXOView represents the read access a transaction needs to resolve the
// outputs its inputs reference.
type UTXOView interface {
	UTXO(id UTXOID) (UTXO, bool)
}

// =============================================================================

// SelectUTXOs picks outputs largest first until amount plus fee is covered.
// The total of the selected outputs is returned so the caller can decide if
// the selection is sufficient.
func SelectUTXOs(utxos []UTXO, amount decimal.Decimal, fee decimal.Decimal) ([]UTXO, decimal.Decimal) {
	sorted := make([]UTXO, len(utxos))
	copy(sorted, utxos)

	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Amount.Cmp(sorted[j].Amount); c != 0 {
			return c > 0
		}
		return sorted[i].ID() < sorted[j].ID()
	})

	target := amount.Add(fee)
	total := decimal.Zero

	var selected []UTXO
	for _, utxo := range sorted {
		if total.GreaterThanOrEqual(target) {
			break
		}
		selected = append(selected, utxo)
		total = total.Add(utxo.Amount)
	}

	return selected, total
}

// NewSpendTx builds an unsigned transaction spending the selected outputs.
// The recipient receives amount and any change beyond the fee goes back to
// the sender.
func NewSpendTx(selected []UTXO, from string, to string, amount decimal.Decimal, fee decimal.Decimal, timestamp int64) (Tx, error) {
	if !amount.IsPositive() {
		return Tx{}, fmt.Errorf("%w: amount must be positive", ErrInvalidTransactionShape)
	}

	if fee.IsNegative() {
		return Tx{}, fmt.Errorf("%w: fee can't be negative", ErrInvalidTransactionShape)
	}

	total := decimal.Zero
	inputs := make([]TxInput, len(selected))
	for i, utxo := range selected {
		inputs[i] = TxInput{TxID: utxo.TxID, OutputIndex: utxo.OutputIndex}
		total = total.Add(utxo.Amount)
	}

	change := total.Sub(amount).Sub(fee)
	if change.IsNegative() || len(selected) == 0 {
		return Tx{}, fmt.Errorf("%w: have %s, need %s", ErrInsufficientInput, total, amount.Add(fee))
	}

	outputs := []TxOutput{{Amount: amount, RecipientAddress: to}}
	if change.IsPositive() {
		outputs = append(outputs, TxOutput{Amount: change, RecipientAddress: from})
	}

	return NewTx(inputs, outputs, timestamp), nil
}
