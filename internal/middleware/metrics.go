package middleware

import (
	"net/http"
	"time"

	"github.com/Lixing-Zhang/catering-orders/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request count and latency per chi route pattern
func Metrics(m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapResponseWriter(w)

			next.ServeHTTP(ww, r)

			// Patterns keep path parameters out of the label set
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(route, r.Method, ww.statusCode, time.Since(start).Milliseconds())
		})
	}
}
