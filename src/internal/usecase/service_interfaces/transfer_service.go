package service_interfaces

import (
	"context"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type TransferService interface {
	Submit(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error)
	Transfer(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error)
	RequestTransfer(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error)
	ValidateTransaction(ctx context.Context, req models.ValidateTransactionRequest) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, filterKey string) (commons.Response[[]models.TransactionResponse], error)
}
