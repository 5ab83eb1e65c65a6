package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/ardanlabs/utxochain/foundation/web"
)

// Metrics updates program counters.
func Metrics(m *metrics.Metrics) web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()

			// Call the next handler.
			err := handler(ctx, w, r)

			status := http.StatusOK
			if v, verr := web.GetValues(ctx); verr == nil && v.StatusCode != 0 {
				status = v.StatusCode
			}

			m.Request(status, time.Since(start))

			if err != nil {
				m.Error()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}
