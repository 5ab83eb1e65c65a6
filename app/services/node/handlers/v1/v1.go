// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/utxochain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/utxochain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/balance/:address", pbl.Balance)
	app.Handle(http.MethodGet, version, "/utxos/:address", pbl.UTXOs)
	app.Handle(http.MethodGet, version, "/utxos/:address/available", pbl.AvailableUTXOs)
	app.Handle(http.MethodGet, version, "/history/:address", pbl.History)
	app.Handle(http.MethodGet, version, "/tx/mempool", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/id/:txid", pbl.Transaction)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/index/:index", pbl.Block)
	app.Handle(http.MethodGet, version, "/chain/info", pbl.ChainInfo)
	app.Handle(http.MethodGet, version, "/chain/validate", pbl.ValidateChain)
	app.Handle(http.MethodGet, version, "/chain/difficulty", pbl.Difficulty)
	app.Handle(http.MethodGet, version, "/proof/tx/:txid", pbl.Proof)
	app.Handle(http.MethodPost, version, "/proof/verify", pbl.VerifyProof)
	app.Handle(http.MethodGet, version, "/proof/export", pbl.ExportProofs)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/block/list/:from/:to", prv.BlocksByNumber)
	app.Handle(http.MethodPost, version, "/node/block/propose", prv.ProposeBlock)
	app.Handle(http.MethodGet, version, "/node/tx/list", prv.Mempool)
	app.Handle(http.MethodGet, version, "/node/snapshot", prv.Snapshot)
	app.Handle(http.MethodPost, version, "/node/snapshot/save", prv.Save)
}
