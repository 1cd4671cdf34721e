package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type TransferService interface {
	Submit(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, filterKey string) (commons.Response[[]models.TransactionResponse], error)
}

type TransferController struct {
	service TransferService
}

func NewTransferController(service TransferService) *TransferController {
	return &TransferController{service: service}
}

func (c *TransferController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/transfer", protect(c.transfer, authMiddleware))
	mux.Handle("/transactions", protect(c.listTransactions, authMiddleware))
}

func (c *TransferController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.TransactionResponse](w, r, start)
		return
	}

	sender, ok := callerKey[models.TransactionResponse](w, r, start)
	if !ok {
		return
	}

	var req models.TransferRequest
	if !decodeBody[models.TransactionResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.service.Submit(r.Context(), sender, req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	status := http.StatusOK
	if response.Data != nil && response.Data.Status == "pending" {
		status = http.StatusAccepted
	}
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func (c *TransferController) listTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		methodNotAllowed[[]models.TransactionResponse](w, r, start)
		return
	}

	key, ok := callerKey[[]models.TransactionResponse](w, r, start)
	if !ok {
		return
	}

	response, err := c.service.ListTransactions(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
