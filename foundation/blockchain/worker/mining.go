package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// miningOperations waits for the signal that transactions are pending and
// mines them into the next block.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines every pending transaction into one block paying
// the reward address. A block accepted from a peer or a shutdown stops the
// search. When the block is applied the worker blocks until the ledger
// releases it.
func (w *Worker) runMiningOperation() {
	pending := w.state.MempoolLength()
	if pending == 0 {
		w.evHandler("worker: runMiningOperation: MINING: mempool empty")
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: started: pending[%d]", pending)
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// A cancel sent while no search was running refers to a block already
	// applied to the ledger.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: discarded stale cancel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var release chan struct{}
	watched := make(chan struct{})

	go func() {
		defer close(watched)

		select {
		case release = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: block proposed")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
			return
		}
		cancel()
	}()

	retry := w.mine(ctx)

	cancel()
	<-watched

	if release != nil {
		w.evHandler("worker: runMiningOperation: MINING: waiting for proposed block")
		<-release
	}

	if !retry || w.isShutdown() {
		return
	}

	// Spends that arrived during the search or that lost their block to a
	// proposed one are mined next.
	if pending := w.state.MempoolLength(); pending > 0 {
		w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: pending[%d]", pending)
		w.SignalStartMining()
	}
}

// mine runs one search and reports whether the pending transactions are
// worth another one.
func (w *Worker) mine(ctx context.Context) bool {
	start := time.Now()
	block, err := w.state.MinePendingTransactions(ctx, w.rewardAddress)
	w.evHandler("worker: runMiningOperation: MINING: duration[%v]", time.Since(start))

	switch {
	case err == nil:
		w.evHandler("worker: runMiningOperation: MINING: SOLVED: %s", block)
		return true

	case errors.Is(err, state.ErrChainChanged):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
		return true

	case ctx.Err() != nil:
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		return true
	}

	// The ledger refused the candidate, and searching again would
	// produce the same block.
	w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	return false
}
