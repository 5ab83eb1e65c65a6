package public

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/shopspring/decimal"
)

type balance struct {
	Address     string          `json:"address"`
	Name        string          `json:"name,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Available   decimal.Decimal `json:"available"`
	UTXOs       int             `json:"utxos"`
	LatestBlock string          `json:"latest_block"`
	Uncommitted int             `json:"uncommitted"`
}

type utxos struct {
	Address string          `json:"address"`
	Name    string          `json:"name,omitempty"`
	UTXOs   []database.UTXO `json:"utxos"`
}

type history struct {
	Address string               `json:"address"`
	Name    string               `json:"name,omitempty"`
	Entries []state.HistoryEntry `json:"entries"`
}

type tx struct {
	database.Tx
	BlockIndex *uint64 `json:"block_index,omitempty"`
	Pending    bool    `json:"pending"`
}

type block struct {
	database.BlockData
	Size  int          `json:"size"`
	Stats merkle.Stats `json:"merkle_stats"`
}

type mine struct {
	RewardAddress string `json:"reward_address" validate:"required"`
}

type proof struct {
	BlockIndex uint64       `json:"block_index"`
	BlockHash  string       `json:"block_hash"`
	TxID       string       `json:"transaction_id"`
	Proof      merkle.Proof `json:"proof"`
}

type verifyProof struct {
	TxID       string       `json:"transaction_id" validate:"required,len=64,hexadecimal"`
	BlockIndex uint64       `json:"block_index"`
	Proof      merkle.Proof `json:"proof"`
}

type verified struct {
	TxID       string `json:"transaction_id"`
	BlockIndex uint64 `json:"block_index"`
	Valid      bool   `json:"valid"`
}

type validity struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
