package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// statuses maps ledger errors to the status returned to the client.
var statuses = []struct {
	err    error
	status int
}{
	{state.ErrNotFound, http.StatusNotFound},
	{merkle.ErrNotFound, http.StatusNotFound},
	{database.ErrUTXOLockedByMempool, http.StatusConflict},
	{database.ErrDuplicateTransaction, http.StatusConflict},
	{state.ErrChainChanged, http.StatusConflict},
	{database.ErrInvalidBlockIndex, http.StatusNotAcceptable},
	{database.ErrInvalidPreviousHash, http.StatusNotAcceptable},
	{database.ErrInvalidBlockHash, http.StatusNotAcceptable},
	{database.ErrInsufficientProofOfWork, http.StatusNotAcceptable},
	{database.ErrMerkleRootMismatch, http.StatusNotAcceptable},
	{database.ErrInvalidCoinbase, http.StatusNotAcceptable},
	{database.ErrInvalidTransactionShape, http.StatusBadRequest},
	{database.ErrUnknownUTXO, http.StatusBadRequest},
	{database.ErrUTXOAlreadySpent, http.StatusBadRequest},
	{database.ErrInsufficientInput, http.StatusBadRequest},
	{database.ErrSignatureInvalid, http.StatusBadRequest},
	{database.ErrAddressMismatch, http.StatusBadRequest},
	{state.ErrNoRewardAddr, http.StatusBadRequest},
}

// NewLedger wraps a ledger error as a trusted error carrying the matching
// status. Errors the ledger doesn't define are returned unchanged and end up
// as an internal error.
func NewLedger(err error) error {
	if err == nil {
		return nil
	}

	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return NewTrusted(err, s.status)
		}
	}

	return err
}
