package kv_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/kv"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestKV(t *testing.T) {
	strg, err := kv.New(t.TempDir())
	require.NoError(t, err)
	defer strg.Close()

	storagetest.Run(t, strg)
}

func TestKVReopen(t *testing.T) {
	dir := t.TempDir()

	strg, err := kv.New(dir)
	require.NoError(t, err)

	want := storagetest.Snapshot(t)
	require.NoError(t, strg.Write(want))
	require.NoError(t, strg.Close())

	strg, err = kv.New(dir)
	require.NoError(t, err)
	defer strg.Close()

	got, err := strg.Read()
	require.NoError(t, err)
	require.Len(t, got.Chain, len(want.Chain))
	require.Equal(t, want.Chain[1].Hash, got.Chain[1].Hash)
}
