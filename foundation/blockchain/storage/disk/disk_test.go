package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zblock", "ledger.json")

	strg, err := disk.New(path)
	require.NoError(t, err)
	defer strg.Close()

	storagetest.Run(t, strg)
}

func TestDiskNoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")

	strg, err := disk.New(path)
	require.NoError(t, err)
	require.NoError(t, strg.Write(storagetest.Snapshot(t)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "ledger.json", entries[0].Name())
}

func TestDiskCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	strg, err := disk.New(path)
	require.NoError(t, err)

	_, err = strg.Read()
	require.Error(t, err)
}
