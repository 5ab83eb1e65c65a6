package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoad(t *testing.T) {
	path := write(t, `{"date":"2025-03-01T00:00:00Z","difficulty":2,"mining_reward":"25","default_fee":"0.5"}`)

	gen, err := genesis.Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1740787200), gen.Date.Unix())
	assert.Equal(t, uint(2), gen.Difficulty)
	assert.Equal(t, "25", gen.MiningReward.String())
	assert.Equal(t, "0.5", gen.DefaultFee.String())
}

func TestLoadDefaults(t *testing.T) {
	gen, err := genesis.Load(write(t, `{"difficulty":3}`))
	require.NoError(t, err)

	def := genesis.Default()
	assert.Equal(t, uint(3), gen.Difficulty)
	assert.True(t, def.MiningReward.Equal(gen.MiningReward))
	assert.True(t, def.DefaultFee.Equal(gen.DefaultFee))
	assert.True(t, def.Date.Equal(gen.Date))
}

func TestLoadZeroes(t *testing.T) {
	path := write(t, `{"mining_reward":"0","default_fee":"0"}`)

	gen, err := genesis.Load(path)
	require.NoError(t, err)
	assert.True(t, gen.MiningReward.IsZero())
	assert.True(t, gen.DefaultFee.IsZero())
}

func TestLoadInvalid(t *testing.T) {
	tt := map[string]string{
		"json":       `{`,
		"difficulty": `{"difficulty":65}`,
		"reward":     `{"mining_reward":"-1"}`,
		"fee":        `{"default_fee":"-1"}`,
	}

	for name, content := range tt {
		t.Run(name, func(t *testing.T) {
			_, err := genesis.Load(write(t, content))
			require.Error(t, err)
		})
	}

	_, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
