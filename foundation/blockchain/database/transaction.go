package database

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// Limits on the size of a single transaction.
const (
	MaxInputs  = 100
	MaxOutputs = 100
)

// TxInput references an output being spent. An input with an empty TxID is a
// coinbase input.
type TxInput struct {
	TxID        string `json:"transaction_id"` // Bitcoin: Transaction holding the output being spent.
	OutputIndex uint32 `json:"output_index"`   // Bitcoin: Position of that output.
	Signature   string `json:"signature"`      // Hex encoded [R|S] signature over the input's signing data.
	PublicKey   string `json:"public_key"`     // Hex encoded [X|Y] public key of the signer.
}

// UTXOID returns the id of the output the input spends.
func (in TxInput) UTXOID() UTXOID {
	return NewUTXOID(in.TxID, in.OutputIndex)
}

// TxOutput locks an amount to a recipient address.
type TxOutput struct {
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
}

// Tx is the transactional record moving value from spent outputs to new
// outputs. The same record is used in the mempool, in blocks, on disk and on
// the wire.
type Tx struct {
	ID          string     `json:"transaction_id"`
	Inputs      []TxInput  `json:"inputs"`
	Outputs     []TxOutput `json:"outputs"`
	TimeStamp   int64      `json:"timestamp"`
	BlockHeight *uint64    `json:"block_height,omitempty"` // Coinbase only, keeps coinbase ids unique.
}

// NewTx constructs a transaction and computes its id.
func NewTx(inputs []TxInput, outputs []TxOutput, timestamp int64) Tx {
	tx := Tx{
		Inputs:    inputs,
		Outputs:   outputs,
		TimeStamp: timestamp,
	}
	tx.ID = tx.CalculateID()

	return tx
}

// NewCoinbaseTx constructs the transaction minting the reward for the miner
// of the block at the specified height.
func NewCoinbaseTx(address string, reward decimal.Decimal, height uint64, timestamp int64) Tx {
	tx := Tx{
		Inputs:      []TxInput{},
		Outputs:     []TxOutput{{Amount: reward, RecipientAddress: address}},
		TimeStamp:   timestamp,
		BlockHeight: &height,
	}
	tx.ID = tx.CalculateID()

	return tx
}

// IsCoinbase reports whether the transaction mints new value. That is the case
// when it has no inputs or every input has an empty transaction reference.
func (tx Tx) IsCoinbase() bool {
	for _, in := range tx.Inputs {
		if in.TxID != "" {
			return false
		}
	}

	return true
}

// idInput is the part of an input covered by the transaction id.
type idInput struct {
	TxID        string `json:"transaction_id"`
	OutputIndex uint32 `json:"output_index"`
}

// idData is the canonical content the transaction id and every input
// signature is computed over. Signatures and public keys are excluded.
type idData struct {
	Inputs      []idInput  `json:"inputs"`
	Outputs     []TxOutput `json:"outputs"`
	TimeStamp   int64      `json:"timestamp"`
	BlockHeight *uint64    `json:"block_height,omitempty"`
}

// SigningBase returns the canonical encoding the id and signatures cover.
func (tx Tx) SigningBase() string {
	data := idData{
		Inputs:    make([]idInput, len(tx.Inputs)),
		Outputs:   tx.Outputs,
		TimeStamp: tx.TimeStamp,
	}

	if data.Outputs == nil {
		data.Outputs = []TxOutput{}
	}

	for i, in := range tx.Inputs {
		data.Inputs[i] = idInput{TxID: in.TxID, OutputIndex: in.OutputIndex}
	}

	if tx.IsCoinbase() && tx.BlockHeight != nil {
		data.BlockHeight = tx.BlockHeight
	}

	s, err := hash.Canonical(data)
	if err != nil {
		return ""
	}

	return s
}

// CalculateID computes the id from the transaction content.
func (tx Tx) CalculateID() string {
	return hash.HashString(tx.SigningBase())
}

// SigningData returns the message signed for the input at the index. Binding
// the index stops a signature from being reused on another input.
func (tx Tx) SigningData(index int) string {
	return tx.SigningBase() + ":input_" + strconv.Itoa(index)
}

// Sign signs every input with the signer and returns the signed transaction.
// Coinbase transactions are returned untouched.
func (tx Tx) Sign(signer signature.Signer) (Tx, error) {
	if tx.IsCoinbase() {
		return tx, nil
	}

	inputs := make([]TxInput, len(tx.Inputs))
	copy(inputs, tx.Inputs)

	for i := range inputs {
		sig, err := signer.Sign(tx.SigningData(i))
		if err != nil {
			return Tx{}, fmt.Errorf("signing input %d: %w", i, err)
		}

		inputs[i].Signature = sig
		inputs[i].PublicKey = signer.PublicKeyHex()
	}

	tx.Inputs = inputs

	return tx, nil
}

// =============================================================================

// TotalOutput returns the sum of the output amounts.
func (tx Tx) TotalOutput() decimal.Decimal {
	total := decimal.Zero
	for _, out := range tx.Outputs {
		total = total.Add(out.Amount)
	}

	return total
}

// TotalInput returns the sum of the outputs referenced by the inputs that can
// be resolved through the view.
func (tx Tx) TotalInput(view UTXOView) decimal.Decimal {
	total := decimal.Zero
	for _, in := range tx.Inputs {
		if in.TxID == "" {
			continue
		}
		if utxo, exists := view.UTXO(in.UTXOID()); exists {
			total = total.Add(utxo.Amount)
		}
	}

	return total
}

// Fee returns the difference between inputs and outputs, floored at zero.
// Coinbase transactions pay no fee.
func (tx Tx) Fee(view UTXOView) decimal.Decimal {
	if tx.IsCoinbase() {
		return decimal.Zero
	}

	fee := tx.TotalInput(view).Sub(tx.TotalOutput())
	if fee.IsNegative() {
		return decimal.Zero
	}

	return fee
}

// InputAddresses returns the owners of the outputs the inputs spend.
func (tx Tx) InputAddresses(view UTXOView) []string {
	var addrs []string
	for _, in := range tx.Inputs {
		if utxo, exists := view.UTXO(in.UTXOID()); exists {
			addrs = append(addrs, utxo.RecipientAddress)
		}
	}

	return addrs
}

// OutputAddresses returns the recipients of the outputs.
func (tx Tx) OutputAddresses() []string {
	addrs := make([]string, len(tx.Outputs))
	for i, out := range tx.Outputs {
		addrs[i] = out.RecipientAddress
	}

	return addrs
}

// =============================================================================

// ValidateShape performs the checks that need no outputs to resolve: the id
// matches the content, there are outputs, every amount is positive and a non
// coinbase transaction references real outputs.
func (tx Tx) ValidateShape() error {
	if tx.ID != tx.CalculateID() {
		return fmt.Errorf("%w: id %s does not match content", ErrInvalidTransactionShape, tx.ID)
	}

	if len(tx.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrInvalidTransactionShape)
	}

	if len(tx.Inputs) > MaxInputs || len(tx.Outputs) > MaxOutputs {
		return fmt.Errorf("%w: too many inputs[%d] or outputs[%d]", ErrInvalidTransactionShape, len(tx.Inputs), len(tx.Outputs))
	}

	for i, out := range tx.Outputs {
		if !out.Amount.IsPositive() {
			return fmt.Errorf("%w: output %d amount %s is not positive", ErrInvalidTransactionShape, i, out.Amount)
		}
		if out.RecipientAddress == "" {
			return fmt.Errorf("%w: output %d has no recipient", ErrInvalidTransactionShape, i)
		}
	}

	if tx.IsCoinbase() {
		return nil
	}

	seen := make(map[UTXOID]struct{}, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if in.TxID == "" {
			return fmt.Errorf("%w: input %d mixes a coinbase reference into a spend", ErrInvalidTransactionShape, i)
		}

		id := in.UTXOID()
		if _, exists := seen[id]; exists {
			return fmt.Errorf("%w: input %d spends %s twice", ErrInvalidTransactionShape, i, id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

// Verify checks every input carries a signature and public key, that the key
// derives to the owner of the referenced output when a view is provided, and
// that the signature is valid for the input's signing data.
func (tx Tx) Verify(view UTXOView, verifier signature.Verifier) error {
	if tx.IsCoinbase() {
		return nil
	}

	for i, in := range tx.Inputs {
		if in.Signature == "" || in.PublicKey == "" {
			return fmt.Errorf("%w: input %d is not signed", ErrSignatureInvalid, i)
		}

		if view != nil {
			utxo, exists := view.UTXO(in.UTXOID())
			if !exists {
				return fmt.Errorf("%w: input %d references %s", ErrUnknownUTXO, i, in.UTXOID())
			}

			address, err := verifier.DeriveAddress(in.PublicKey)
			if err != nil {
				return fmt.Errorf("%w: input %d: %s", ErrAddressMismatch, i, err)
			}

			if address != utxo.RecipientAddress {
				return fmt.Errorf("%w: input %d key belongs to %s, output owned by %s", ErrAddressMismatch, i, address, utxo.RecipientAddress)
			}
		}

		if !verifier.Verify(tx.SigningData(i), in.Signature, in.PublicKey) {
			return fmt.Errorf("%w: input %d", ErrSignatureInvalid, i)
		}
	}

	return nil
}

// Validate performs the full validation of the transaction. With a nil view
// only the shape and signatures are checked. With a view every referenced
// output must exist, be unspent and together cover the outputs.
func (tx Tx) Validate(view UTXOView, verifier signature.Verifier) error {
	if err := tx.ValidateShape(); err != nil {
		return err
	}

	if tx.IsCoinbase() {
		return nil
	}

	if err := tx.Verify(view, verifier); err != nil {
		return err
	}

	if view == nil {
		return nil
	}

	total := decimal.Zero
	for i, in := range tx.Inputs {
		utxo, exists := view.UTXO(in.UTXOID())
		if !exists {
			return fmt.Errorf("%w: input %d references %s", ErrUnknownUTXO, i, in.UTXOID())
		}

		if utxo.IsSpent {
			return fmt.Errorf("%w: input %d references %s", ErrUTXOAlreadySpent, i, in.UTXOID())
		}

		total = total.Add(utxo.Amount)
	}

	if total.LessThan(tx.TotalOutput()) {
		return fmt.Errorf("%w: inputs %s, outputs %s", ErrInsufficientInput, total, tx.TotalOutput())
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	if tx.IsCoinbase() {
		return fmt.Sprintf("coinbase[%.8s] reward[%s]", tx.ID, tx.TotalOutput())
	}

	return fmt.Sprintf("tx[%.8s] in[%d] out[%d] value[%s]", tx.ID, len(tx.Inputs), len(tx.Outputs), tx.TotalOutput())
}
