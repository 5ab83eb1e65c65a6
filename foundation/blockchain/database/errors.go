package database

import "errors"

// Set of errors returned when a transaction or block fails validation. Each
// failure wraps one of these so callers can use errors.Is.
var (
	ErrInvalidTransactionShape = errors.New("invalid transaction shape")
	ErrUnknownUTXO             = errors.New("unknown utxo")
	ErrUTXOAlreadySpent        = errors.New("utxo already spent")
	ErrUTXOLockedByMempool     = errors.New("utxo locked by mempool")
	ErrInsufficientInput       = errors.New("insufficient input")
	ErrSignatureInvalid        = errors.New("signature invalid")
	ErrAddressMismatch         = errors.New("address mismatch")
	ErrDuplicateTransaction    = errors.New("duplicate transaction")
	ErrInvalidBlockHash        = errors.New("invalid block hash")
	ErrInvalidPreviousHash     = errors.New("invalid previous hash")
	ErrInvalidBlockIndex       = errors.New("invalid block index")
	ErrInsufficientProofOfWork = errors.New("insufficient proof of work")
	ErrMerkleRootMismatch      = errors.New("merkle root does not match transactions")
	ErrMerkleProofMismatch     = errors.New("merkle proof mismatch")
	ErrInvalidCoinbase         = errors.New("invalid coinbase")
)
