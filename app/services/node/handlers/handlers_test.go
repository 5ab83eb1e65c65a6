package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/app/services/node/handlers"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	alicePK = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPK   = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

type node struct {
	t       *testing.T
	st      *state.State
	public  http.Handler
	private http.Handler
}

func newNode(t *testing.T) *node {
	t.Helper()

	log, err := logger.New("TEST")
	require.NoError(t, err)

	strg, err := memory.New()
	require.NoError(t, err)

	st, err := state.New(state.Config{
		Difficulty:  1,
		GenesisTime: time.Unix(1_700_000_000, 0),
		Storage:     strg,
		EvHandler: func(v string, args ...any) {
			t.Logf(v, args...)
		},
	})
	require.NoError(t, err)

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      log,
		Metrics:  metrics.New(),
		State:    st,
		Evts:     events.New(),
	}

	return &node{
		t:       t,
		st:      st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func (n *node) call(h http.Handler, method string, path string, body any, resp any) int {
	n.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(n.t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, &buf))

	if resp != nil && w.Code < 300 {
		require.NoError(n.t, json.Unmarshal(w.Body.Bytes(), resp), w.Body.String())
	}

	return w.Code
}

func wallet(t *testing.T, pk string) *signature.Wallet {
	t.Helper()

	w, err := signature.FromHex(pk)
	require.NoError(t, err)

	return w
}

// =============================================================================

func TestSpendAndProve(t *testing.T) {
	n := newNode(t)
	alice := wallet(t, alicePK)
	bob := wallet(t, bobPK)

	mine := map[string]string{"reward_address": alice.Address()}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodPost, "/v1/mine", mine, nil))

	var bal struct {
		Balance   decimal.Decimal `json:"balance"`
		Available decimal.Decimal `json:"available"`
	}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/balance/"+alice.Address(), nil, &bal))
	require.True(t, bal.Balance.Equal(decimal.NewFromInt(50)), bal.Balance.String())

	tx, err := n.st.CreateSpendTransaction(alice.Address(), bob.Address(), decimal.NewFromInt(20), decimal.NewFromInt(1), alice)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodPost, "/v1/tx/submit", tx, nil))
	require.Equal(t, http.StatusConflict, n.call(n.public, http.MethodPost, "/v1/tx/submit", tx, nil))

	// The reserved outputs no longer count as available.
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/balance/"+alice.Address(), nil, &bal))
	require.True(t, bal.Available.IsZero(), bal.Available.String())

	var pending struct {
		Pending bool `json:"pending"`
	}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/tx/id/"+tx.ID, nil, &pending))
	require.True(t, pending.Pending)

	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodPost, "/v1/mine", mine, nil))

	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/balance/"+bob.Address(), nil, &bal))
	require.True(t, bal.Balance.Equal(decimal.NewFromInt(20)), bal.Balance.String())

	var prf struct {
		BlockIndex uint64       `json:"block_index"`
		TxID       string       `json:"transaction_id"`
		Proof      merkle.Proof `json:"proof"`
	}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/proof/tx/"+tx.ID, nil, &prf))
	require.Equal(t, uint64(2), prf.BlockIndex)

	var res struct {
		Valid bool `json:"valid"`
	}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodPost, "/v1/proof/verify", prf, &res))
	require.True(t, res.Valid)

	var history struct {
		Entries []state.HistoryEntry `json:"entries"`
	}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/history/"+bob.Address(), nil, &history))
	require.Len(t, history.Entries, 1)
	require.Equal(t, state.HistoryReceived, history.Entries[0].Type)
}

func TestQueries(t *testing.T) {
	n := newNode(t)
	alice := wallet(t, alicePK)

	mine := map[string]string{"reward_address": alice.Address()}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodPost, "/v1/mine", mine, nil))

	var info state.ChainInfo
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/chain/info", nil, &info))
	require.Equal(t, uint64(1), info.BlockHeight)
	require.True(t, info.ChainValid)

	var blocks []database.BlockData
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodGet, "/v1/blocks/list/0/latest", nil, &blocks))
	require.Len(t, blocks, 2)

	tt := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknownblock", http.MethodGet, "/v1/blocks/index/99", nil, http.StatusNotFound},
		{"badindex", http.MethodGet, "/v1/blocks/index/abc", nil, http.StatusBadRequest},
		{"badrange", http.MethodGet, "/v1/blocks/list/1/0", nil, http.StatusBadRequest},
		{"unknowntx", http.MethodGet, "/v1/tx/id/abc", nil, http.StatusNotFound},
		{"unknownproof", http.MethodGet, "/v1/proof/tx/abc", nil, http.StatusNotFound},
		{"noreward", http.MethodPost, "/v1/mine", map[string]string{}, http.StatusBadRequest},
		{"unknownfield", http.MethodPost, "/v1/mine", map[string]string{"miner": "x"}, http.StatusBadRequest},
		{"unsigned", http.MethodPost, "/v1/tx/submit", database.Tx{ID: "x"}, http.StatusBadRequest},
		{"coinbase", http.MethodPost, "/v1/tx/submit", database.NewCoinbaseTx(alice.Address(), decimal.NewFromInt(1_000_000), 2, time.Now().Unix()), http.StatusNotAcceptable},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			require.Equal(t, tst.status, n.call(n.public, tst.method, tst.path, tst.body, nil))
		})
	}

	require.Equal(t, 0, n.st.MempoolLength(), "rejected submissions stay out of the mempool")
}

func TestPrivateRoutes(t *testing.T) {
	n := newNode(t)
	alice := wallet(t, alicePK)

	mine := map[string]string{"reward_address": alice.Address()}
	require.Equal(t, http.StatusOK, n.call(n.public, http.MethodPost, "/v1/mine", mine, nil))

	var status struct {
		LatestBlockNumber uint64 `json:"latest_block_number"`
	}
	require.Equal(t, http.StatusOK, n.call(n.private, http.MethodGet, "/v1/node/status", nil, &status))
	require.Equal(t, uint64(1), status.LatestBlockNumber)

	// Replaying the tip is rejected since the index is no longer next.
	latest := database.NewBlockData(n.st.LatestBlock())
	require.Equal(t, http.StatusNotAcceptable, n.call(n.private, http.MethodPost, "/v1/node/block/propose", latest, nil))

	require.Equal(t, http.StatusOK, n.call(n.private, http.MethodPost, "/v1/node/snapshot/save", nil, nil))

	var snapshot database.Snapshot
	require.Equal(t, http.StatusOK, n.call(n.private, http.MethodGet, "/v1/node/snapshot", nil, &snapshot))
	require.Len(t, snapshot.Chain, 2)
}
