package service_interfaces

import (
	"context"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type AccountService interface {
	Register(ctx context.Context, req models.RegisterRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, key string) (commons.Response[models.AccountResponse], error)
	AddPhoneNumber(ctx context.Context, key string, req models.PhoneNumberRequest) (commons.Response[models.AccountResponse], error)
	RemovePhoneNumber(ctx context.Context, key string, req models.PhoneNumberRequest) (commons.Response[models.AccountResponse], error)
	Deposit(ctx context.Context, key string, req models.DepositRequest) (commons.Response[models.BalanceResponse], error)
	Convert(ctx context.Context, key string, req models.ConvertRequest) (commons.Response[models.BalanceResponse], error)
	Withdraw(ctx context.Context, key string, req models.WithdrawRequest) (commons.Response[models.BalanceResponse], error)
	RemoveAccount(ctx context.Context, key string) (commons.Response[models.RemoveAccountResponse], error)
}
