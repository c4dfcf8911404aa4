package mid

import (
	"context"
	"expvar"
	"net/http"
	"runtime"

	"github.com/ardanlabs/blockbank/foundation/web"
)

// m contains the global program counters for the application.
var m = struct {
	gr  *expvar.Int
	req *expvar.Int
	err *expvar.Int
	pan *expvar.Int
}{
	gr:  expvar.NewInt("goroutines"),
	req: expvar.NewInt("requests"),
	err: expvar.NewInt("errors"),
	pan: expvar.NewInt("panics"),
}

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Handle updating the metrics that can be handled here.
			metricsRequest(err)

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}

// metricsRequest increments the request counters. Every 100 requests the
// goroutine count is sampled.
func metricsRequest(err error) {
	n := m.req.Value() + 1
	m.req.Add(1)

	if n%100 == 0 {
		m.gr.Set(int64(runtime.NumGoroutine()))
	}

	if err != nil {
		m.err.Add(1)
	}
}

// metricsPanic increments the panic counter.
func metricsPanic() {
	m.pan.Add(1)
}
