package models

import (
	"errors"
	"strings"
)

const maxPhoneNumbers = 3

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

type RegisterRequest struct {
	Key          string   `json:"key"`
	Password     string   `json:"password"`
	PhoneNumbers []string `json:"phoneNumbers,omitempty"`
}

func (r RegisterRequest) Validate() error {
	var errs []string

	key := strings.TrimSpace(r.Key)
	if key == "" {
		errs = append(errs, "key is required")
	} else if len(key) > 64 {
		errs = append(errs, "key must be at most 64 characters")
	}

	if len(r.Password) < 8 {
		errs = append(errs, "password must be at least 8 characters")
	} else if len(r.Password) > MaxPasswordBytes {
		errs = append(errs, "password must be at most 72 bytes")
	}

	if len(r.PhoneNumbers) > maxPhoneNumbers {
		errs = append(errs, "at most 3 phone numbers are allowed")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type AccountResponse struct {
	Key           string   `json:"key"`
	BalanceFiat   string   `json:"balanceFiat"`
	BalanceStable string   `json:"balanceStable"`
	PhoneNumbers  []string `json:"phoneNumbers"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

type PhoneNumberRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func (r PhoneNumberRequest) Validate() error {
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return errors.New("phoneNumber is required")
	}
	return nil
}

type DepositRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Amount      string `json:"amount"`
}

func (r DepositRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.PhoneNumber) == "" {
		errs = append(errs, "phoneNumber is required")
	}
	errs = appendAmountError(errs, r.Amount)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ConvertRequest converts Amount of fiat balance, or the whole fiat balance when All is set.
type ConvertRequest struct {
	Amount string `json:"amount,omitempty"`
	All    bool   `json:"all,omitempty"`
}

func (r ConvertRequest) Validate() error {
	if r.All {
		if strings.TrimSpace(r.Amount) != "" {
			return errors.New("amount must be empty when all is set")
		}
		return nil
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		return err
	}
	return nil
}

type WithdrawRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Amount      string `json:"amount"`
}

func (r WithdrawRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.PhoneNumber) == "" {
		errs = append(errs, "phoneNumber is required")
	}
	errs = appendAmountError(errs, r.Amount)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type BalanceResponse struct {
	Key           string `json:"key"`
	Amount        string `json:"amount"`
	BalanceFiat   string `json:"balanceFiat"`
	BalanceStable string `json:"balanceStable"`
	StableCredit  string `json:"stableCredit,omitempty"`
	FiatCredit    string `json:"fiatCredit,omitempty"`
	Policy        string `json:"policy,omitempty"`
}

type RemoveAccountResponse struct {
	Key string `json:"key"`
}
