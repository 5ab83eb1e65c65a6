package cmd

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/app/services/node/handlers"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newNode(t *testing.T) (*state.State, *httptest.Server) {
	t.Helper()

	log, err := logger.New("TEST")
	require.NoError(t, err)

	st, err := state.New(state.Config{
		Difficulty:  1,
		GenesisTime: time.Unix(1_700_000_000, 0),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      log,
		Metrics:  metrics.New(),
		State:    st,
		Evts:     events.New(),
	}))
	t.Cleanup(srv.Close)

	return st, srv
}

func TestGenerateAndImport(t *testing.T) {
	dir := t.TempDir()

	address, err := generate(filepath.Join(dir, "alice.ecdsa"), "")
	require.NoError(t, err)
	require.True(t, signature.ValidateAddress(address))

	w, err := signature.Load(filepath.Join(dir, "alice.ecdsa"))
	require.NoError(t, err)
	require.Equal(t, address, w.Address())

	imported, err := generate(filepath.Join(dir, "copy.ecdsa"), w.ExportWIF())
	require.NoError(t, err)
	require.Equal(t, address, imported)
}

func TestSendThroughNode(t *testing.T) {
	st, srv := newNode(t)

	alice, err := signature.NewWallet()
	require.NoError(t, err)
	bob, err := signature.NewWallet()
	require.NoError(t, err)

	_, err = st.MinePendingTransactions(context.Background(), alice.Address())
	require.NoError(t, err)

	txID, err := send(srv.URL, alice, bob.Address(), decimal.NewFromInt(20), decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	require.NotEmpty(t, txID)

	// The only output is reserved so a second spend has nothing to select.
	_, err = send(srv.URL, alice, bob.Address(), decimal.NewFromInt(1), decimal.Zero)
	require.Error(t, err)

	_, err = send(srv.URL, alice, "not-an-address", decimal.NewFromInt(1), decimal.Zero)
	require.Error(t, err)

	_, err = st.MinePendingTransactions(context.Background(), alice.Address())
	require.NoError(t, err)

	bal, err := queryBalance(srv.URL, bob.Address())
	require.NoError(t, err)
	require.True(t, bal.Balance.Equal(decimal.NewFromInt(20)), bal.Balance.String())

	bal, err = queryBalance(srv.URL, alice.Address())
	require.NoError(t, err)
	require.True(t, bal.Balance.Equal(decimal.NewFromInt(80)), bal.Balance.String())

	entries, err := queryHistory(srv.URL, bob.Address())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, txID, entries[0].TxID)
}
