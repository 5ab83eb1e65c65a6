// Package genesis maintains access to the genesis file.
package genesis

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Genesis represents the genesis file.
type Genesis struct {
	Date         time.Time       `json:"date"`          // Timestamp of block 0, fixed so every node builds the same genesis.
	Difficulty   uint            `json:"difficulty"`    // Number of leading zero hex digits a block hash needs.
	MiningReward decimal.Decimal `json:"mining_reward"` // Reward for mining a block.
	DefaultFee   decimal.Decimal `json:"default_fee"`   // Fee used when a spend doesn't specify one.
}

// Default returns the parameters used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:   4,
		MiningReward: decimal.NewFromInt(50),
		DefaultFee:   decimal.RequireFromString("0.01"),
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Values missing from the file
// keep their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	if genesis.Difficulty == 0 || genesis.Difficulty > 64 {
		return Genesis{}, fmt.Errorf("genesis difficulty %d out of range 1-64", genesis.Difficulty)
	}

	if genesis.MiningReward.IsNegative() {
		return Genesis{}, fmt.Errorf("genesis mining reward %s can't be negative", genesis.MiningReward)
	}

	if genesis.DefaultFee.IsNegative() {
		return Genesis{}, fmt.Errorf("genesis default fee %s can't be negative", genesis.DefaultFee)
	}

	return genesis, nil
}
