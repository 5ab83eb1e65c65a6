package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/stretchr/testify/require"
)

func TestNewLedger(t *testing.T) {
	tt := []struct {
		name   string
		err    error
		status int
	}{
		{"notfound", fmt.Errorf("%w: block 9", state.ErrNotFound), http.StatusNotFound},
		{"locked", fmt.Errorf("input 0: %w", database.ErrUTXOLockedByMempool), http.StatusConflict},
		{"pow", fmt.Errorf("%w: abc", database.ErrInsufficientProofOfWork), http.StatusNotAcceptable},
		{"signature", fmt.Errorf("input 0: %w", database.ErrSignatureInvalid), http.StatusBadRequest},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			err := errs.NewLedger(tst.err)

			require.True(t, errs.IsTrusted(err))
			require.Equal(t, tst.status, errs.GetTrusted(err).Status)
			require.Equal(t, tst.err.Error(), err.Error())
		})
	}
}

func TestNewLedgerUnknown(t *testing.T) {
	err := errors.New("disk on fire")

	require.False(t, errs.IsTrusted(errs.NewLedger(err)))
	require.NoError(t, errs.NewLedger(nil))
}
