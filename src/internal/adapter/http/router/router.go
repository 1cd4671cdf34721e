package router

import (
	"net/http"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/middleware"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
)

type AccountRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type AuthRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type TransferRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type AdminRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type HealthRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

// knownPaths keeps the request metrics label set bounded.
var knownPaths = map[string]bool{
	"/":                           true,
	"/register":                   true,
	"/login":                      true,
	"/account":                    true,
	"/phone-numbers":              true,
	"/deposit":                    true,
	"/convert":                    true,
	"/withdraw":                   true,
	"/transfer":                   true,
	"/transactions":               true,
	"/admin/validate-transaction": true,
	"/admin/transactions":         true,
	"/admin/accounts":             true,
	"/healthz":                    true,
	"/metrics":                    true,
}

// New wires the controllers onto one mux. userAuth guards account-holder routes and adminAuth the operator routes.
// corsOrigins lists the browser origins allowed to call the API; empty disables CORS.
func New(
	accountController AccountRouteRegistrar,
	authController AuthRouteRegistrar,
	transferController TransferRouteRegistrar,
	adminController AdminRouteRegistrar,
	healthController HealthRouteRegistrar,
	userAuth func(http.Handler) http.Handler,
	adminAuth func(http.Handler) http.Handler,
	m *metrics.Metrics,
	corsOrigins []string,
) http.Handler {
	mux := http.NewServeMux()
	registerSwaggerRoutes(mux)
	mux.Handle("/metrics", m.Handler())

	if accountController != nil {
		accountController.RegisterRoutes(mux, userAuth)
	}
	if authController != nil {
		authController.RegisterRoutes(mux, nil)
	}
	if transferController != nil {
		transferController.RegisterRoutes(mux, userAuth)
	}
	if adminController != nil {
		adminController.RegisterRoutes(mux, adminAuth)
	}
	if healthController != nil {
		healthController.RegisterRoutes(mux, nil)
	}

	return middleware.RequestID(middleware.CORS(corsOrigins)(middleware.Metrics(m, knownPaths)(mux)))
}
