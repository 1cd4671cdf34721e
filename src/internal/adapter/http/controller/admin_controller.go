package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type AdminTransferService interface {
	ValidateTransaction(ctx context.Context, req models.ValidateTransactionRequest) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, filterKey string) (commons.Response[[]models.TransactionResponse], error)
}

type AdminAccountService interface {
	RemoveAccount(ctx context.Context, key string) (commons.Response[models.RemoveAccountResponse], error)
}

// AdminController serves the operator routes. They sit behind the channel basic auth.
type AdminController struct {
	transfers AdminTransferService
	accounts  AdminAccountService
}

func NewAdminController(transfers AdminTransferService, accounts AdminAccountService) *AdminController {
	return &AdminController{transfers: transfers, accounts: accounts}
}

func (c *AdminController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/admin/validate-transaction", protect(c.validateTransaction, authMiddleware))
	mux.Handle("/admin/transactions", protect(c.listTransactions, authMiddleware))
	mux.Handle("/admin/accounts", protect(c.removeAccount, authMiddleware))
}

func (c *AdminController) validateTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.TransactionResponse](w, r, start)
		return
	}

	var req models.ValidateTransactionRequest
	if !decodeBody[models.TransactionResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.transfers.ValidateTransaction(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AdminController) listTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		methodNotAllowed[[]models.TransactionResponse](w, r, start)
		return
	}

	response, err := c.transfers.ListTransactions(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AdminController) removeAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodDelete {
		methodNotAllowed[models.RemoveAccountResponse](w, r, start)
		return
	}

	response, err := c.accounts.RemoveAccount(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
