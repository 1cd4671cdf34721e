package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type Transaction struct {
	Index         int               `json:"index"`
	ID            string            `json:"id"`
	Sender        string            `json:"sender"`
	Receiver      string            `json:"receiver"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ResolvedAt    *time.Time        `json:"resolved_at,omitempty"`
}

// NewTransaction returns a pending transfer record. The index is assigned by the store on append.
func NewTransaction(sender, receiver string, amount decimal.Decimal, now time.Time) (Transaction, error) {
	sender = strings.TrimSpace(sender)
	receiver = strings.TrimSpace(receiver)
	if sender == "" || receiver == "" {
		return Transaction{}, fmt.Errorf("%w: sender and receiver are required", ErrInvalidInput)
	}
	if sender == receiver {
		return Transaction{}, ErrSelfTransfer
	}
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}

	return Transaction{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Status:    TransactionStatusPending,
		CreatedAt: now.UTC(),
	}, nil
}

// Resolve moves a pending record to a terminal status. Terminal records never change again.
func (t *Transaction) Resolve(status TransactionStatus, reason string, now time.Time) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: transaction %d is %s", ErrTransactionResolved, t.Index, t.Status)
	}
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidInput, status)
	}

	resolvedAt := now.UTC()
	t.Status = status
	t.FailureReason = reason
	t.ResolvedAt = &resolvedAt
	return nil
}

func (t Transaction) Involves(key string) bool {
	return t.Sender == key || t.Receiver == key
}
