// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ardanlabs/utxochain/foundation/validate"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// Balance returns the confirmed and spendable balance for an address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	var available decimal.Decimal
	for _, utxo := range h.State.AvailableUTXOs(address) {
		available = available.Add(utxo.Amount)
	}

	bal := balance{
		Address:     address,
		Name:        h.name(address),
		Balance:     h.State.Balance(address),
		Available:   available,
		UTXOs:       len(h.State.UTXOsByAddress(address)),
		LatestBlock: h.State.LatestBlock().Hash,
		Uncommitted: h.State.MempoolLength(),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// UTXOs returns the unspent outputs owned by an address.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := utxos{
		Address: address,
		Name:    h.name(address),
		UTXOs:   h.State.UTXOsByAddress(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AvailableUTXOs returns the unspent outputs owned by an address that no
// pending transaction has reserved. Wallets build spends from this set.
func (h Handlers) AvailableUTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := utxos{
		Address: address,
		Name:    h.name(address),
		UTXOs:   h.State.AvailableUTXOs(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// History returns how confirmed transactions moved value for an address.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := history{
		Address: address,
		Name:    h.name(address),
		Entries: h.State.TransactionHistory(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Mempool(), http.StatusOK)
}

// SubmitTransaction adds a signed transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "tx", tx)
	if err := h.State.AddTransaction(tx); err != nil {
		return errs.NewLedger(err)
	}

	resp := struct {
		Status string `json:"status"`
		TxID   string `json:"transaction_id"`
	}{
		Status: "transaction added to mempool",
		TxID:   tx.ID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Transaction returns a transaction by id, looking in the chain first and
// then in the mempool.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txID := web.Param(r, "txid")

	confirmed, blockIndex, err := h.State.TransactionByID(txID)
	if err == nil {
		return web.Respond(ctx, w, tx{Tx: confirmed, BlockIndex: &blockIndex}, http.StatusOK)
	}
	if !errors.Is(err, state.ErrNotFound) {
		return err
	}

	for _, pending := range h.State.Mempool() {
		if pending.ID == txID {
			return web.Respond(ctx, w, tx{Tx: pending, Pending: true}, http.StatusOK)
		}
	}

	return errs.NewLedger(err)
}

// Mine mines the pending transactions into a block, crediting the reward
// address, and waits for the block to be committed.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mine
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	blk, err := h.State.MinePendingTransactions(ctx, req.RewardAddress)
	if err != nil {
		return errs.NewLedger(err)
	}

	return web.Respond(ctx, w, h.toBlock(blk), http.StatusOK)
}

// =============================================================================

// Blocks returns the blocks in the specified from/to range.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseIndex(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := parseIndex(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from == state.QueryLatest {
		from = uint64(h.State.ChainLength() - 1)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.Blocks(from, to)

	resp := make([]block, len(blocks))
	for i, blk := range blocks {
		resp[i] = h.toBlock(blk)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Block returns a single block by index.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := parseIndex(web.Param(r, "index"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if index == state.QueryLatest {
		return web.Respond(ctx, w, h.toBlock(h.State.LatestBlock()), http.StatusOK)
	}

	blk, err := h.State.BlockByIndex(index)
	if err != nil {
		return errs.NewLedger(err)
	}

	return web.Respond(ctx, w, h.toBlock(blk), http.StatusOK)
}

// ChainInfo returns the summary of the ledger.
func (h Handlers) ChainInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.ChainInfo(), http.StatusOK)
}

// ValidateChain walks the chain and reports the first failure.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validity{
		Valid: true,
	}

	if err := h.State.ValidateChain(); err != nil {
		resp = validity{
			Valid: false,
			Error: err.Error(),
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Difficulty returns the difficulty statistics and the adjustment history.
func (h Handlers) Difficulty(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.DifficultyStatistics(), http.StatusOK)
}

// =============================================================================

// Proof returns the merkle inclusion proof for a confirmed transaction.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txID := web.Param(r, "txid")

	blockIndex, prf, err := h.State.MerkleProofForTransaction(txID)
	if err != nil {
		return errs.NewLedger(err)
	}

	blk, err := h.State.BlockByIndex(blockIndex)
	if err != nil {
		return errs.NewLedger(err)
	}

	resp := proof{
		BlockIndex: blockIndex,
		BlockHash:  blk.Hash,
		TxID:       txID,
		Proof:      prf,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// VerifyProof checks a merkle proof against the block it claims to be from.
func (h Handlers) VerifyProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req verifyProof
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	resp := verified{
		TxID:       req.TxID,
		BlockIndex: req.BlockIndex,
		Valid:      h.State.VerifyTransactionWithMerkleProof(req.TxID, req.BlockIndex, req.Proof),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ExportProofs returns a proof for every confirmed transaction.
func (h Handlers) ExportProofs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	export, err := h.State.ExportMerkleProofs()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, export, http.StatusOK)
}

// =============================================================================

func (h Handlers) name(address string) string {
	if h.NS == nil {
		return ""
	}

	name := h.NS.Lookup(address)
	if name == address {
		return ""
	}

	return name
}

func (h Handlers) toBlock(blk database.Block) block {
	return block{
		BlockData: database.NewBlockData(blk),
		Size:      blk.Size(),
		Stats:     blk.MerkleStats(),
	}
}

// parseIndex converts a block index parameter. An empty value or "latest"
// refers to the tip of the chain.
func parseIndex(s string) (uint64, error) {
	if s == "" || s == "latest" {
		return state.QueryLatest, nil
	}

	return strconv.ParseUint(s, 10, 64)
}
