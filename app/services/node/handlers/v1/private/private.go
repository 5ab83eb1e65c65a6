// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// Status represents what a node reports about itself.
type Status struct {
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockNumber uint64 `json:"latest_block_number"`
	Difficulty        uint   `json:"difficulty"`
	Mempool           int    `json:"mempool"`
	UTXOs             int    `json:"utxos"`
	EventReceivers    int    `json:"event_receivers"`
	EventsDropped     uint64 `json:"events_dropped"`
}

// ProposeBlock takes a block solved elsewhere, validates it and if that
// passes, adds the block to the local chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a block record.
	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// Convert the block record into a block. The stored hash and merkle root
	// are kept so validation sees exactly what was sent.
	block := database.ToBlock(blockData)

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the chain.
	h.Log.Infow("propose block", "traceid", v.TraceID, "block", block)
	if err := h.State.ProcessProposedBlock(block); err != nil {
		return errs.NewLedger(err)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.LatestBlock()

	status := Status{
		LatestBlockHash:   latestBlock.Hash,
		LatestBlockNumber: latestBlock.Index,
		Difficulty:        h.State.Difficulty(),
		Mempool:           h.State.MempoolLength(),
		UTXOs:             h.State.UTXOCount(),
	}

	if h.Evts != nil {
		status.EventReceivers = h.Evts.Receivers()
		status.EventsDropped = h.Evts.Dropped()
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByNumber returns the block records in the specified from/to range so
// another node can catch up.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = strconv.Itoa(h.State.ChainLength() - 1)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = strconv.FormatUint(state.QueryLatest, 10)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.Blocks(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Mempool(), http.StatusOK)
}

// Snapshot returns the full ledger snapshot.
func (h Handlers) Snapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Snapshot(), http.StatusOK)
}

// Save writes the ledger snapshot to the configured storage.
func (h Handlers) Save(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Save(); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "saved",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
