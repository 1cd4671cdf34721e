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

// Verify that TransferService implements the service_interfaces.TransferService interface
var _ service_interfaces.TransferService = (*TransferService)(nil)

const (
	reasonInsufficientFunds = "insufficient funds at validation time"
	reasonSenderRemoved     = "sender account no longer exists"
	reasonReceiverRemoved   = "receiver account no longer exists"
)

type TransferService struct {
	store    domain.LedgerStore
	settings LedgerSettings
	emitter  *events.Emitter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewTransferService(
	store domain.LedgerStore,
	settings LedgerSettings,
	emitter *events.Emitter,
	m *metrics.Metrics,
) *TransferService {
	return &TransferService{
		store:    store,
		settings: settings,
		emitter:  emitter,
		metrics:  m,
		now:      time.Now,
	}
}

// Submit applies the configured transfer mode: an immediate settlement or a pending request.
func (s *TransferService) Submit(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error) {
	if s.settings.TransferMode == domain.TransferModePending {
		return s.RequestTransfer(ctx, sender, req)
	}
	return s.Transfer(ctx, sender, req)
}

func (s *TransferService) Transfer(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transfer service transfer request", logger.Fields{
		"sender":  sender,
		"payload": logger.SanitizePayload(req),
	})

	txn, err := s.newTransaction(sender, req)
	if err != nil {
		logger.Error("transfer service transfer validation failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	var recorded domain.Transaction
	err = s.store.Update(ctx, func(tx domain.LedgerTx) error {
		from, to, err := loadParties(tx, txn.Sender, txn.Receiver)
		if err != nil {
			return err
		}
		if err := move(&from, &to, txn.Amount, s.now()); err != nil {
			return err
		}
		if err := tx.PutAccount(from); err != nil {
			return err
		}
		if err := tx.PutAccount(to); err != nil {
			return err
		}

		settled := txn
		if err := settled.Resolve(domain.TransactionStatusCompleted, "", s.now()); err != nil {
			return err
		}
		recorded, err = tx.AppendTransaction(settled)
		return err
	})
	s.metrics.LedgerOperation("transfer", err)
	if err != nil {
		logger.Error("transfer service transfer failed", err, logger.Fields{
			"sender":   txn.Sender,
			"receiver": txn.Receiver,
		})
		return mutationFailure[models.TransactionResponse](err, "failed to transfer funds"), err
	}

	s.metrics.TransferSettled(string(recorded.Status))
	resp := mapTransactionToResponse(recorded, s.settings.StableScale)
	s.emitter.Emit(ctx, events.TransferCompleted, recorded.Sender, transferEvent(resp))
	logger.Info("transfer service transfer success", logger.Fields{
		"index":    recorded.Index,
		"sender":   recorded.Sender,
		"receiver": recorded.Receiver,
		"amount":   resp.Amount,
	})

	return commons.SuccessResponse("transfer successful", resp), nil
}

func (s *TransferService) RequestTransfer(ctx context.Context, sender string, req models.TransferRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transfer service request transfer", logger.Fields{
		"sender":  sender,
		"payload": logger.SanitizePayload(req),
	})

	txn, err := s.newTransaction(sender, req)
	if err != nil {
		logger.Error("transfer service request transfer validation failed", err, nil)
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	var recorded domain.Transaction
	err = s.store.Update(ctx, func(tx domain.LedgerTx) error {
		if _, _, err := loadParties(tx, txn.Sender, txn.Receiver); err != nil {
			return err
		}
		var err error
		recorded, err = tx.AppendTransaction(txn)
		return err
	})
	s.metrics.LedgerOperation("request_transfer", err)
	if err != nil {
		logger.Error("transfer service request transfer failed", err, logger.Fields{
			"sender":   txn.Sender,
			"receiver": txn.Receiver,
		})
		return mutationFailure[models.TransactionResponse](err, "failed to request transfer"), err
	}

	resp := mapTransactionToResponse(recorded, s.settings.StableScale)
	s.emitter.Emit(ctx, events.TransferRequested, recorded.Sender, transferEvent(resp))
	logger.Info("transfer service request transfer success", logger.Fields{
		"index":    recorded.Index,
		"sender":   recorded.Sender,
		"receiver": recorded.Receiver,
	})

	return commons.SuccessResponse("transfer pending validation", resp), nil
}

// ValidateTransaction settles a pending record against the balances at validation time.
// Records that are already completed or failed are returned unchanged.
func (s *TransferService) ValidateTransaction(ctx context.Context, req models.ValidateTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transfer service validate transaction request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), invalidInput(err)
	}
	index := *req.Index

	var (
		resolved domain.Transaction
		changed  bool
	)
	err := s.store.Update(ctx, func(tx domain.LedgerTx) error {
		txn, err := tx.GetTransaction(index)
		if err != nil {
			return err
		}
		if txn.Status.IsTerminal() {
			resolved = txn
			return nil
		}

		now := s.now()
		status, reason, err := s.settle(tx, txn, now)
		if err != nil {
			return err
		}
		if err := txn.Resolve(status, reason, now); err != nil {
			return err
		}
		if err := tx.PutTransaction(txn); err != nil {
			return err
		}

		resolved = txn
		changed = true
		return nil
	})
	s.metrics.LedgerOperation("validate_transaction", err)
	if err != nil {
		logger.Error("transfer service validate transaction failed", err, logger.Fields{"index": index})
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("transaction not found", err.Error()), err
		}
		return failure[models.TransactionResponse]("failed to validate transaction", err), err
	}

	resp := mapTransactionToResponse(resolved, s.settings.StableScale)
	if !changed {
		logger.Info("transfer service validate transaction already resolved", logger.Fields{
			"index":  resolved.Index,
			"status": resolved.Status,
		})
		return commons.SuccessResponse("transaction already resolved", resp), nil
	}

	s.metrics.TransferSettled(string(resolved.Status))
	eventType := events.TransferCompleted
	if resolved.Status == domain.TransactionStatusFailed {
		eventType = events.TransferFailed
	}
	s.emitter.Emit(ctx, eventType, resolved.Sender, transferEvent(resp))
	logger.Info("transfer service validate transaction success", logger.Fields{
		"index":  resolved.Index,
		"status": resolved.Status,
		"reason": resolved.FailureReason,
	})

	return commons.SuccessResponse("transaction "+string(resolved.Status), resp), nil
}

// settle moves the funds for a pending record when both parties still exist and the sender
// can cover the amount. Otherwise it reports a failed status and leaves balances untouched.
func (s *TransferService) settle(tx domain.LedgerTx, txn domain.Transaction, now time.Time) (domain.TransactionStatus, string, error) {
	from, err := tx.GetAccount(txn.Sender)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TransactionStatusFailed, reasonSenderRemoved, nil
	}
	if err != nil {
		return "", "", err
	}

	to, err := tx.GetAccount(txn.Receiver)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TransactionStatusFailed, reasonReceiverRemoved, nil
	}
	if err != nil {
		return "", "", err
	}

	if err := move(&from, &to, txn.Amount, now); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return domain.TransactionStatusFailed, reasonInsufficientFunds, nil
		}
		return "", "", err
	}
	if err := tx.PutAccount(from); err != nil {
		return "", "", err
	}
	if err := tx.PutAccount(to); err != nil {
		return "", "", err
	}
	return domain.TransactionStatusCompleted, "", nil
}

// ListTransactions returns the log ordered by index. An empty filterKey returns every record.
func (s *TransferService) ListTransactions(ctx context.Context, filterKey string) (commons.Response[[]models.TransactionResponse], error) {
	filterKey = strings.TrimSpace(filterKey)

	var txns []domain.Transaction
	err := s.store.View(ctx, func(tx domain.LedgerTx) error {
		var err error
		txns, err = tx.ListTransactions()
		return err
	})
	if err != nil {
		logger.Error("transfer service list transactions failed", err, logger.Fields{"filterKey": filterKey})
		return failure[[]models.TransactionResponse]("failed to list transactions", err), err
	}

	resp := make([]models.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		if filterKey != "" && !txn.Involves(filterKey) {
			continue
		}
		resp = append(resp, mapTransactionToResponse(txn, s.settings.StableScale))
	}

	logger.Info("transfer service list transactions success", logger.Fields{
		"filterKey": filterKey,
		"count":     len(resp),
	})

	return commons.SuccessResponse("transactions fetched successfully", resp), nil
}

func (s *TransferService) newTransaction(sender string, req models.TransferRequest) (domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return domain.Transaction{}, invalidInput(err)
	}

	amount, _ := models.ParseAmount(req.Amount)
	if err := checkScale(amount, s.settings.StableScale); err != nil {
		return domain.Transaction{}, err
	}
	return domain.NewTransaction(sender, req.Receiver, amount, s.now())
}

func loadParties(tx domain.LedgerTx, sender, receiver string) (domain.Account, domain.Account, error) {
	from, err := tx.GetAccount(sender)
	if err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("sender: %w", err)
	}
	to, err := tx.GetAccount(receiver)
	if err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("receiver: %w", err)
	}
	return from, to, nil
}

func move(from, to *domain.Account, amount decimal.Decimal, now time.Time) error {
	if err := from.DebitStable(amount); err != nil {
		return err
	}
	if err := to.CreditStable(amount); err != nil {
		return err
	}
	from.UpdatedAt = now.UTC()
	to.UpdatedAt = now.UTC()
	return nil
}

func transferEvent(resp models.TransactionResponse) events.TransferRecorded {
	return events.TransferRecorded{
		Index:         resp.Index,
		TransactionID: resp.ID,
		Sender:        resp.Sender,
		Receiver:      resp.Receiver,
		Amount:        resp.Amount,
		Status:        resp.Status,
		FailureReason: resp.FailureReason,
	}
}
