// Package worker implements background mining and periodic persistence for
// the ledger.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// defaultSaveInterval represents the interval of writing the ledger snapshot
// so pending transactions survive a crash between blocks.
const defaultSaveInterval = time.Minute

// Config represents the settings for the worker.
type Config struct {
	RewardAddress string
	SaveInterval  time.Duration
	EvHandler     state.EventHandler
}

// =============================================================================

// Worker manages the POW workflows for the ledger.
type Worker struct {
	state         *state.State
	rewardAddress string
	wg            sync.WaitGroup
	ticker        *time.Ticker
	shut          chan struct{}
	startMining   chan bool
	cancelMining  chan chan struct{}
	evHandler     state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) *Worker {
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = defaultSaveInterval
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		state:         st,
		rewardAddress: cfg.RewardAddress,
		ticker:        time.NewTicker(cfg.SaveInterval),
		shut:          make(chan struct{}),
		startMining:   make(chan bool, 1),
		cancelMining:  make(chan chan struct{}, 1),
		evHandler:     ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.saveOperations,
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	// Transactions restored from storage may be waiting.
	if st.MempoolLength() > 0 {
		w.SignalStartMining()
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	done := w.SignalCancelMining()
	done()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	if w.rewardAddress == "" {
		return
	}

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately. That G will not return until done is called, which
// allows the caller to complete its state changes first.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")

	return func() { close(wait) }
}

// =============================================================================

// saveOperations periodically writes the ledger snapshot.
func (w *Worker) saveOperations() {
	w.evHandler("worker: saveOperations: G started")
	defer w.evHandler("worker: saveOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				if err := w.state.Save(); err != nil {
					w.evHandler("worker: saveOperations: ERROR: %s", err)
				}
			}
		case <-w.shut:
			w.evHandler("worker: saveOperations: received shut signal")
			return
		}
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
