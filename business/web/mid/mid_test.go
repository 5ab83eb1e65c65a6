package mid_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/business/web/mid"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *web.App {
	t.Helper()

	log, err := logger.New("TEST")
	require.NoError(t, err)

	m := metrics.New()

	return web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(m),
		mid.Panics(m),
	)
}

func TestErrorsMapping(t *testing.T) {
	app := newApp(t)

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("utxo is locked"), http.StatusConflict)
	})
	app.Handle(http.MethodGet, "v1", "/untrusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("database exploded")
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	tt := []struct {
		path   string
		status int
		body   string
	}{
		{"/v1/trusted", http.StatusConflict, `"error":"utxo is locked"`},
		{"/v1/untrusted", http.StatusInternalServerError, `"error":"Internal Server Error"`},
		{"/v1/panic", http.StatusInternalServerError, `"error":"Internal Server Error"`},
	}

	for _, tst := range tt {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tst.path, nil))

		require.Equal(t, tst.status, w.Code, tst.path)
		require.Contains(t, w.Body.String(), tst.body, tst.path)
	}
}

func TestCors(t *testing.T) {
	app := newApp(t)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/v1/anything", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
