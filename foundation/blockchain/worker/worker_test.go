package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	alicePK = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPK   = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

func newState(t *testing.T, difficulty uint) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		Difficulty:  difficulty,
		GenesisTime: time.Unix(1_700_000_000, 0),
		EvHandler:   func(v string, args ...any) { t.Logf(v, args...) },
	})
	require.NoError(t, err)

	return st
}

func TestMinesPendingTransactions(t *testing.T) {
	alice, err := signature.FromHex(alicePK)
	require.NoError(t, err)
	bob, err := signature.FromHex(bobPK)
	require.NoError(t, err)

	st := newState(t, 1)

	_, err = st.MinePendingTransactions(context.Background(), alice.Address())
	require.NoError(t, err)

	w := worker.Run(st, worker.Config{
		RewardAddress: bob.Address(),
		EvHandler:     func(v string, args ...any) { t.Logf(v, args...) },
	})
	defer w.Shutdown()

	tx, err := st.CreateSpendTransaction(alice.Address(), bob.Address(), decimal.NewFromInt(10), decimal.NewFromInt(1), alice)
	require.NoError(t, err)
	require.NoError(t, st.AddTransaction(tx))

	require.Eventually(t, func() bool {
		return st.ChainLength() == 3 && st.MempoolLength() == 0
	}, 10*time.Second, 10*time.Millisecond, "worker should mine the pending transaction")

	require.True(t, st.Balance(bob.Address()).Equal(decimal.NewFromInt(61)), "bob gets the payment, the reward and the fee")
	require.True(t, st.IsChainValid())
}

func TestProposedBlockWithWorker(t *testing.T) {
	alice, err := signature.FromHex(alicePK)
	require.NoError(t, err)
	bob, err := signature.FromHex(bobPK)
	require.NoError(t, err)

	miner := newState(t, 1)
	follower := newState(t, 1)

	_, err = miner.MinePendingTransactions(context.Background(), alice.Address())
	require.NoError(t, err)
	require.NoError(t, follower.ProcessProposedBlock(miner.LatestBlock()))

	tx, err := miner.CreateSpendTransaction(alice.Address(), bob.Address(), decimal.NewFromInt(10), decimal.NewFromInt(1), alice)
	require.NoError(t, err)
	require.NoError(t, miner.AddTransaction(tx))

	require.NoError(t, follower.AddTransaction(tx))

	block, err := miner.MinePendingTransactions(context.Background(), alice.Address())
	require.NoError(t, err)

	// Without a reward address the worker never mines, the proposal still
	// goes through the cancel handshake.
	w := worker.Run(follower, worker.Config{})
	defer w.Shutdown()

	require.NoError(t, follower.ProcessProposedBlock(block))
	require.Equal(t, miner.LatestBlock().Hash, follower.LatestBlock().Hash)
	require.Equal(t, 0, follower.MempoolLength())
}

func TestStaleCancelIgnored(t *testing.T) {
	alice, err := signature.FromHex(alicePK)
	require.NoError(t, err)
	bob, err := signature.FromHex(bobPK)
	require.NoError(t, err)

	st := newState(t, 1)

	_, err = st.MinePendingTransactions(context.Background(), alice.Address())
	require.NoError(t, err)

	w := worker.Run(st, worker.Config{RewardAddress: bob.Address()})
	defer w.Shutdown()

	// A cancel with no search running must not stop the next one.
	done := w.SignalCancelMining()
	done()

	tx, err := st.CreateSpendTransaction(alice.Address(), bob.Address(), decimal.NewFromInt(5), decimal.NewFromInt(1), alice)
	require.NoError(t, err)
	require.NoError(t, st.AddTransaction(tx))

	require.Eventually(t, func() bool {
		return st.ChainLength() == 3 && st.MempoolLength() == 0
	}, 10*time.Second, 10*time.Millisecond, "worker should mine after a stale cancel")
}

func TestShutdownWithoutWork(t *testing.T) {
	st := newState(t, 1)

	worker.Run(st, worker.Config{SaveInterval: 10 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		st.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown should complete")
	}
}
