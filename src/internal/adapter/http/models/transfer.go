package models

import (
	"errors"
	"strings"
)

type TransferRequest struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Receiver) == "" {
		errs = append(errs, "receiver is required")
	}
	errs = appendAmountError(errs, r.Amount)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type ValidateTransactionRequest struct {
	Index *int `json:"index"`
}

func (r ValidateTransactionRequest) Validate() error {
	if r.Index == nil {
		return errors.New("index is required")
	}
	if *r.Index < 0 {
		return errors.New("index must not be negative")
	}
	return nil
}

type TransactionResponse struct {
	Index         int    `json:"index"`
	ID            string `json:"id"`
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
	CreatedAt     string `json:"createdAt"`
	ResolvedAt    string `json:"resolvedAt,omitempty"`
}
