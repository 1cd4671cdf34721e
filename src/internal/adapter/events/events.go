package events

import (
	"time"

	"github.com/google/uuid"
)

const EventVersion = 1

const (
	AccountRegistered = "account.registered"
	AccountRemoved    = "account.removed"
	FundsDeposited    = "funds.deposited"
	FundsConverted    = "funds.converted"
	FundsWithdrawn    = "funds.withdrawn"
	TransferCompleted = "transfer.completed"
	TransferRequested = "transfer.requested"
	TransferFailed    = "transfer.failed"
)

// Envelope is the record written to the ledger topic. Data carries the event specific body.
type Envelope struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	EventVersion int       `json:"event_version"`
	Timestamp    time.Time `json:"timestamp"`
	AccountKey   string    `json:"account_key"`
	Data         any       `json:"data,omitempty"`
}

func NewEnvelope(eventType, accountKey string, data any, now time.Time) Envelope {
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: EventVersion,
		Timestamp:    now.UTC(),
		AccountKey:   accountKey,
		Data:         data,
	}
}

type BalanceChanged struct {
	Amount        string `json:"amount"`
	BalanceFiat   string `json:"balance_fiat"`
	BalanceStable string `json:"balance_stable"`
	Policy        string `json:"policy,omitempty"`
}

type Converted struct {
	FiatAmount    string `json:"fiat_amount"`
	StableAmount  string `json:"stable_amount"`
	Rate          string `json:"rate"`
	BalanceFiat   string `json:"balance_fiat"`
	BalanceStable string `json:"balance_stable"`
}

type TransferRecorded struct {
	Index         int    `json:"index"`
	TransactionID string `json:"transaction_id"`
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}
