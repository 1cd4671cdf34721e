package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/events"
	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
	"github.com/api-sage/stable-wallet/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

// Verify that AccountService implements the service_interfaces.AccountService interface
var _ service_interfaces.AccountService = (*AccountService)(nil)

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type AccountService struct {
	store    domain.LedgerStore
	hasher   PasswordHasher
	settings LedgerSettings
	emitter  *events.Emitter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAccountService(
	store domain.LedgerStore,
	hasher PasswordHasher,
	settings LedgerSettings,
	emitter *events.Emitter,
	m *metrics.Metrics,
) *AccountService {
	return &AccountService{
		store:    store,
		hasher:   hasher,
		settings: settings,
		emitter:  emitter,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service register request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service register validation failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), invalidInput(err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		logger.Error("account service register hash password failed", err, nil)
		return failure[models.AccountResponse]("failed to register account", err), err
	}

	account, err := domain.NewAccount(req.Key, req.PhoneNumbers, passwordHash, s.now())
	if err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	err = s.store.Update(ctx, func(tx domain.LedgerTx) error {
		return tx.InsertAccount(account)
	})
	s.metrics.LedgerOperation("register", err)
	if err != nil {
		logger.Error("account service register failed", err, logger.Fields{"key": account.Key})
		if errors.Is(err, domain.ErrConflict) {
			return commons.ErrorResponse[models.AccountResponse]("account already exists", fmt.Sprintf("key %q is already registered", account.Key)), err
		}
		return failure[models.AccountResponse]("failed to register account", err), err
	}

	s.emitter.Emit(ctx, events.AccountRegistered, account.Key, nil)
	logger.Info("account service register success", logger.Fields{
		"key":          account.Key,
		"phoneNumbers": len(account.PhoneNumbers),
	})

	return commons.SuccessResponse("account registered successfully", mapAccountToResponse(account, s.settings)), nil
}

func (s *AccountService) GetAccount(ctx context.Context, key string) (commons.Response[models.AccountResponse], error) {
	var account domain.Account
	err := s.store.View(ctx, func(tx domain.LedgerTx) error {
		var err error
		account, err = tx.GetAccount(key)
		return err
	})
	if err != nil {
		logger.Error("account service get account failed", err, logger.Fields{"key": key})
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("account not found"), err
		}
		return failure[models.AccountResponse]("failed to get account", err), err
	}

	return commons.SuccessResponse("account fetched successfully", mapAccountToResponse(account, s.settings)), nil
}

func (s *AccountService) AddPhoneNumber(ctx context.Context, key string, req models.PhoneNumberRequest) (commons.Response[models.AccountResponse], error) {
	return s.updatePhoneNumbers(ctx, "add_phone_number", key, req, func(account *domain.Account, phone string) error {
		return account.AddPhoneNumber(phone)
	})
}

func (s *AccountService) RemovePhoneNumber(ctx context.Context, key string, req models.PhoneNumberRequest) (commons.Response[models.AccountResponse], error) {
	return s.updatePhoneNumbers(ctx, "remove_phone_number", key, req, func(account *domain.Account, phone string) error {
		return account.RemovePhoneNumber(phone)
	})
}

func (s *AccountService) updatePhoneNumbers(
	ctx context.Context,
	operation string,
	key string,
	req models.PhoneNumberRequest,
	apply func(account *domain.Account, phone string) error,
) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service phone number request", logger.Fields{
		"operation": operation,
		"key":       key,
		"payload":   logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), invalidInput(err)
	}

	var updated domain.Account
	err := s.store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount(key)
		if err != nil {
			return err
		}
		if err := apply(&account, req.PhoneNumber); err != nil {
			return err
		}
		account.UpdatedAt = s.now().UTC()
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	s.metrics.LedgerOperation(operation, err)
	if err != nil {
		logger.Error("account service phone number update failed", err, logger.Fields{
			"operation": operation,
			"key":       key,
		})
		return mutationFailure[models.AccountResponse](err, "failed to update phone numbers"), err
	}

	return commons.SuccessResponse("phone numbers updated successfully", mapAccountToResponse(updated, s.settings)), nil
}

func (s *AccountService) Deposit(ctx context.Context, key string, req models.DepositRequest) (commons.Response[models.BalanceResponse], error) {
	logger.Info("account service deposit request", logger.Fields{
		"key":     key,
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service deposit validation failed", err, nil)
		return commons.ErrorResponse[models.BalanceResponse]("validation failed", err.Error()), invalidInput(err)
	}

	amount, _ := models.ParseAmount(req.Amount)
	if err := checkScale(amount, s.settings.FiatScale); err != nil {
		return commons.ErrorResponse[models.BalanceResponse]("validation failed", err.Error()), err
	}

	var updated domain.Account
	err := s.store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount(key)
		if err != nil {
			return err
		}
		if !account.HasPhoneNumber(req.PhoneNumber) {
			return fmt.Errorf("%w: phone number %q is not registered on this account", domain.ErrInvalidInput, strings.TrimSpace(req.PhoneNumber))
		}
		if err := account.CreditFiat(amount); err != nil {
			return err
		}
		account.UpdatedAt = s.now().UTC()
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	s.metrics.LedgerOperation("deposit", err)
	if err != nil {
		logger.Error("account service deposit failed", err, logger.Fields{"key": key})
		return mutationFailure[models.BalanceResponse](err, "failed to deposit funds"), err
	}

	resp := models.BalanceResponse{
		Key:           updated.Key,
		Amount:        amount.StringFixed(s.settings.FiatScale),
		BalanceFiat:   updated.BalanceFiat.StringFixed(s.settings.FiatScale),
		BalanceStable: updated.BalanceStable.StringFixed(s.settings.StableScale),
	}
	s.emitter.Emit(ctx, events.FundsDeposited, updated.Key, events.BalanceChanged{
		Amount:        resp.Amount,
		BalanceFiat:   resp.BalanceFiat,
		BalanceStable: resp.BalanceStable,
	})
	logger.Info("account service deposit success", logger.Fields{
		"key":         updated.Key,
		"amount":      resp.Amount,
		"balanceFiat": resp.BalanceFiat,
	})

	return commons.SuccessResponse("deposit successful", resp), nil
}

func (s *AccountService) Convert(ctx context.Context, key string, req models.ConvertRequest) (commons.Response[models.BalanceResponse], error) {
	logger.Info("account service convert request", logger.Fields{
		"key":     key,
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service convert validation failed", err, nil)
		return commons.ErrorResponse[models.BalanceResponse]("validation failed", err.Error()), invalidInput(err)
	}

	var requested decimal.Decimal
	if !req.All {
		requested, _ = models.ParseAmount(req.Amount)
		if err := checkScale(requested, s.settings.FiatScale); err != nil {
			return commons.ErrorResponse[models.BalanceResponse]("validation failed", err.Error()), err
		}
	}

	var (
		updated  domain.Account
		debited  decimal.Decimal
		credited decimal.Decimal
	)
	err := s.store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount(key)
		if err != nil {
			return err
		}

		amount := requested
		if req.All {
			if !account.BalanceFiat.IsPositive() {
				return fmt.Errorf("%w: no fiat balance to convert", domain.ErrInsufficientFunds)
			}
			amount = account.BalanceFiat
		}

		stable := s.settings.FiatToStable.Apply(amount, s.settings.StableScale)
		if err := account.DebitFiat(amount); err != nil {
			return err
		}
		if !stable.IsPositive() {
			return fmt.Errorf("%w: amount %s converts to less than the smallest stable unit", domain.ErrInvalidInput, amount.String())
		}
		if err := account.CreditStable(stable); err != nil {
			return err
		}
		account.UpdatedAt = s.now().UTC()
		if err := tx.PutAccount(account); err != nil {
			return err
		}

		updated = account
		debited = amount
		credited = stable
		return nil
	})
	s.metrics.LedgerOperation("convert", err)
	if err != nil {
		logger.Error("account service convert failed", err, logger.Fields{"key": key})
		return mutationFailure[models.BalanceResponse](err, "failed to convert funds"), err
	}

	resp := models.BalanceResponse{
		Key:           updated.Key,
		Amount:        debited.StringFixed(s.settings.FiatScale),
		BalanceFiat:   updated.BalanceFiat.StringFixed(s.settings.FiatScale),
		BalanceStable: updated.BalanceStable.StringFixed(s.settings.StableScale),
		StableCredit:  credited.StringFixed(s.settings.StableScale),
	}
	s.emitter.Emit(ctx, events.FundsConverted, updated.Key, events.Converted{
		FiatAmount:    resp.Amount,
		StableAmount:  resp.StableCredit,
		Rate:          s.settings.FiatToStable.String(),
		BalanceFiat:   resp.BalanceFiat,
		BalanceStable: resp.BalanceStable,
	})
	logger.Info("account service convert success", logger.Fields{
		"key":           updated.Key,
		"fiatAmount":    resp.Amount,
		"stableCredit":  resp.StableCredit,
		"balanceStable": resp.BalanceStable,
	})

	return commons.SuccessResponse("conversion successful", resp), nil
}

func (s *AccountService) Withdraw(ctx context.Context, key string, req models.WithdrawRequest) (commons.Response[models.BalanceResponse], error) {
	logger.Info("account service withdraw request", logger.Fields{
		"key":     key,
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service withdraw validation failed", err, nil)
		return commons.ErrorResponse[models.BalanceResponse]("validation failed", err.Error()), invalidInput(err)
	}

	amount, _ := models.ParseAmount(req.Amount)
	if err := checkScale(amount, s.settings.StableScale); err != nil {
		return commons.ErrorResponse[models.BalanceResponse]("validation failed", err.Error()), err
	}

	policy := s.settings.WithdrawalPolicy
	var (
		updated    domain.Account
		fiatCredit decimal.Decimal
	)
	err := s.store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount(key)
		if err != nil {
			return err
		}
		if !account.HasPhoneNumber(req.PhoneNumber) {
			return fmt.Errorf("%w: phone number %q is not registered on this account", domain.ErrInvalidInput, strings.TrimSpace(req.PhoneNumber))
		}
		if err := account.DebitStable(amount); err != nil {
			return err
		}

		if policy == domain.WithdrawalCreditFiat {
			fiatCredit = s.settings.StableToFiat.Apply(amount, s.settings.FiatScale)
			if !fiatCredit.IsPositive() {
				return fmt.Errorf("%w: amount %s converts to less than the smallest fiat unit", domain.ErrInvalidInput, amount.String())
			}
			if err := account.CreditFiat(fiatCredit); err != nil {
				return err
			}
		}

		account.UpdatedAt = s.now().UTC()
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	s.metrics.LedgerOperation("withdraw", err)
	if err != nil {
		logger.Error("account service withdraw failed", err, logger.Fields{"key": key})
		return mutationFailure[models.BalanceResponse](err, "failed to withdraw funds"), err
	}

	resp := models.BalanceResponse{
		Key:           updated.Key,
		Amount:        amount.StringFixed(s.settings.StableScale),
		BalanceFiat:   updated.BalanceFiat.StringFixed(s.settings.FiatScale),
		BalanceStable: updated.BalanceStable.StringFixed(s.settings.StableScale),
		Policy:        string(policy),
	}
	if policy == domain.WithdrawalCreditFiat {
		resp.FiatCredit = fiatCredit.StringFixed(s.settings.FiatScale)
	}
	s.emitter.Emit(ctx, events.FundsWithdrawn, updated.Key, events.BalanceChanged{
		Amount:        resp.Amount,
		BalanceFiat:   resp.BalanceFiat,
		BalanceStable: resp.BalanceStable,
		Policy:        resp.Policy,
	})
	logger.Info("account service withdraw success", logger.Fields{
		"key":           updated.Key,
		"amount":        resp.Amount,
		"policy":        resp.Policy,
		"balanceStable": resp.BalanceStable,
	})

	message := "withdrawal recorded; payout is processed manually"
	if policy == domain.WithdrawalCreditFiat {
		message = "withdrawal successful"
	}
	return commons.SuccessResponse(message, resp), nil
}

func (s *AccountService) RemoveAccount(ctx context.Context, key string) (commons.Response[models.RemoveAccountResponse], error) {
	logger.Info("account service remove account request", logger.Fields{"key": key})

	key = strings.TrimSpace(key)
	if key == "" {
		err := fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
		return commons.ErrorResponse[models.RemoveAccountResponse]("validation failed", "key is required"), err
	}

	err := s.store.Update(ctx, func(tx domain.LedgerTx) error {
		return tx.DeleteAccount(key)
	})
	s.metrics.LedgerOperation("remove_account", err)
	if err != nil {
		logger.Error("account service remove account failed", err, logger.Fields{"key": key})
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[models.RemoveAccountResponse]("account not found"), err
		}
		return failure[models.RemoveAccountResponse]("failed to remove account", err), err
	}

	s.emitter.Emit(ctx, events.AccountRemoved, key, nil)
	logger.Info("account service remove account success", logger.Fields{"key": key})

	return commons.SuccessResponse("account removed successfully", models.RemoveAccountResponse{Key: key}), nil
}
