package middleware

import (
	"net/http"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Metrics records request counts and latency. Unrouted paths are folded into one label.
func Metrics(m *metrics.Metrics, knownPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if !knownPaths[path] {
				path = "other"
			}
			m.ObserveRequest(r.Method, path, rec.status, time.Since(start))
		})
	}
}
