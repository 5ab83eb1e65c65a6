package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ViewerPrefix marks the events meant for websocket viewers.
const ViewerPrefix = "viewer:"

// blockEvent announces a block appended to the chain.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(ViewerPrefix+` block: {"hash":%q,"block":%s}`, block.Hash, string(blockJSON))
}

// txEvent announces a transaction accepted into the mempool.
func (s *State) txEvent(tx database.Tx) {
	txJSON, err := json.Marshal(tx)
	if err != nil {
		txJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(ViewerPrefix+` tx: {"transaction_id":%q,"tx":%s}`, tx.ID, string(txJSON))
}
