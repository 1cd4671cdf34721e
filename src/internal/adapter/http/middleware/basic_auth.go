package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/api-sage/stable-wallet/src/internal/logger"
)

// BasicAuth guards the operator routes with the configured channel credentials.
func BasicAuth(channelID, channelKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if channelID == "" || channelKey == "" {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				writeError(w, http.StatusInternalServerError, "server auth configuration is missing")
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !secureEqual(id, channelID) || !secureEqual(key, channelKey) {
				logger.Info("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				w.Header().Set("WWW-Authenticate", `Basic realm="wallet-admin"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			logger.Info("basic auth middleware authorized request", logger.Fields{
				"method":  r.Method,
				"path":    r.URL.Path,
				"channel": id,
			})
			next.ServeHTTP(w, r)
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
