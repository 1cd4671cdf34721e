package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerSettings carries the conversion and rounding rules shared by the ledger services.
type LedgerSettings struct {
	FiatToStable     domain.Rate
	StableToFiat     domain.Rate
	FiatScale        int32
	StableScale      int32
	WithdrawalPolicy domain.WithdrawalPolicy
	TransferMode     domain.TransferMode
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

// failure builds the response envelope for err. Storage details stay in the logs.
func failure[T any](message string, err error) commons.Response[T] {
	if errors.Is(err, domain.ErrStorage) {
		return commons.UnavailableResponse[T](message)
	}
	return commons.ErrorResponse[T](message, err.Error())
}

// mutationFailure maps the domain errors a ledger mutation can return to a response envelope.
func mutationFailure[T any](err error, fallback string) commons.Response[T] {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return commons.ErrorResponse[T]("account not found", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		return commons.ErrorResponse[T]("insufficient balance", err.Error())
	case errors.Is(err, domain.ErrSelfTransfer):
		return commons.ErrorResponse[T]("validation failed", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return commons.ErrorResponse[T]("validation failed", err.Error())
	default:
		return failure[T](fallback, err)
	}
}

func checkScale(amount decimal.Decimal, scale int32) error {
	if !amount.Equal(amount.Truncate(scale)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", domain.ErrInvalidInput, amount.String(), scale)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func mapAccountToResponse(account domain.Account, settings LedgerSettings) models.AccountResponse {
	phones := account.PhoneNumbers
	if phones == nil {
		phones = []string{}
	}
	return models.AccountResponse{
		Key:           account.Key,
		BalanceFiat:   account.BalanceFiat.StringFixed(settings.FiatScale),
		BalanceStable: account.BalanceStable.StringFixed(settings.StableScale),
		PhoneNumbers:  phones,
		CreatedAt:     formatTime(account.CreatedAt),
		UpdatedAt:     formatTime(account.UpdatedAt),
	}
}

func mapTransactionToResponse(txn domain.Transaction, stableScale int32) models.TransactionResponse {
	resp := models.TransactionResponse{
		Index:         txn.Index,
		ID:            txn.ID,
		Sender:        txn.Sender,
		Receiver:      txn.Receiver,
		Amount:        txn.Amount.StringFixed(stableScale),
		Status:        string(txn.Status),
		FailureReason: txn.FailureReason,
		CreatedAt:     formatTime(txn.CreatedAt),
	}
	if txn.ResolvedAt != nil {
		resp.ResolvedAt = formatTime(*txn.ResolvedAt)
	}
	return resp
}
