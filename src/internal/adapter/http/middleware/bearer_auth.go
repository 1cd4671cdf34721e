package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/api-sage/stable-wallet/src/internal/commons"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/api-sage/stable-wallet/src/internal/security"
)

type callerKeyContextKey struct{}

// CallerResolver turns a bearer credential into the account key it was issued for.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, credential string) (string, error)
}

// BearerAuth resolves the caller from the Authorization header and stores the account key on the request context.
func BearerAuth(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := security.ExtractBearer(r.Header.Get("Authorization"))
			if credential == "" {
				logger.Info("bearer auth middleware missing credential", logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			key, err := resolver.ResolveCaller(r.Context(), credential)
			if err != nil {
				logger.Info("bearer auth middleware rejected credential", logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"error":  err.Error(),
				})
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCallerKey(r.Context(), key)))
		})
	}
}

func WithCallerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, callerKeyContextKey{}, key)
}

// CallerKey returns the account key set by BearerAuth.
func CallerKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(callerKeyContextKey{}).(string)
	return key, ok && key != ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(commons.ErrorResponse[struct{}](message))
}
