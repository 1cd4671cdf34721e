package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/commons"
	"github.com/api-sage/stable-wallet/src/internal/domain"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type HealthController struct {
	store   domain.LedgerStore
	timeout time.Duration
}

func NewHealthController(store domain.LedgerStore) *HealthController {
	return &HealthController{store: store, timeout: 2 * time.Second}
}

func (c *HealthController) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.Handle("/", http.HandlerFunc(c.root))
	mux.Handle("/healthz", http.HandlerFunc(c.health))
}

// root answers GET / only. Every other unmatched path falls through here as a 404.
func (c *HealthController) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, commons.ErrorResponse[HealthResponse]("route not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[HealthResponse]("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, commons.SuccessResponse("stable wallet API is running", HealthResponse{Status: "running"}))
}

// health opens a read-only view on the ledger so a broken store reports unavailable.
func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[HealthResponse]("method not allowed"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if err := c.store.View(ctx, func(domain.LedgerTx) error { return nil }); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusServiceUnavailable, commons.UnavailableResponse[HealthResponse]("ledger unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("ok", HealthResponse{Status: "ok"}))
}
