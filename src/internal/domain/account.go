package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const MaxPhoneNumbers = 3
const maxKeyLength = 64

type Account struct {
	Key           string          `json:"key"`
	BalanceFiat   decimal.Decimal `json:"balance_fiat"`
	BalanceStable decimal.Decimal `json:"balance_stable"`
	PhoneNumbers  []string        `json:"phone_numbers"`
	PasswordHash  string          `json:"password_hash"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewAccount builds a zero-balance account after normalizing the key and phone numbers.
func NewAccount(key string, phoneNumbers []string, passwordHash string, now time.Time) (Account, error) {
	normalizedKey, err := NormalizeKey(key)
	if err != nil {
		return Account{}, err
	}

	phones, err := NormalizePhoneNumbers(phoneNumbers)
	if err != nil {
		return Account{}, err
	}

	return Account{
		Key:           normalizedKey,
		BalanceFiat:   decimal.Zero,
		BalanceStable: decimal.Zero,
		PhoneNumbers:  phones,
		PasswordHash:  passwordHash,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

func NormalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", fmt.Errorf("%w: account key is required", ErrInvalidInput)
	}
	if len(trimmed) > maxKeyLength {
		return "", fmt.Errorf("%w: account key must be at most %d characters", ErrInvalidInput, maxKeyLength)
	}
	return trimmed, nil
}

func NormalizePhoneNumbers(phoneNumbers []string) ([]string, error) {
	out := make([]string, 0, len(phoneNumbers))
	for _, raw := range phoneNumbers {
		phone, err := NormalizePhoneNumber(raw)
		if err != nil {
			return nil, err
		}
		if containsString(out, phone) {
			continue
		}
		out = append(out, phone)
	}

	if len(out) > MaxPhoneNumbers {
		return nil, fmt.Errorf("%w: at most %d phone numbers are allowed", ErrInvalidInput, MaxPhoneNumbers)
	}
	return out, nil
}

// NormalizePhoneNumber accepts an optional leading '+' followed by 6 to 15 digits.
func NormalizePhoneNumber(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 6 || len(digits) > 15 {
		return "", fmt.Errorf("%w: phone number %q must have 6 to 15 digits", ErrInvalidInput, phone)
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("%w: phone number %q must be numeric", ErrInvalidInput, phone)
		}
	}
	return phone, nil
}

func (a Account) HasPhoneNumber(phone string) bool {
	return containsString(a.PhoneNumbers, strings.TrimSpace(phone))
}

func (a *Account) AddPhoneNumber(phone string) error {
	normalized, err := NormalizePhoneNumber(phone)
	if err != nil {
		return err
	}
	if a.HasPhoneNumber(normalized) {
		return nil
	}
	if len(a.PhoneNumbers) >= MaxPhoneNumbers {
		return fmt.Errorf("%w: at most %d phone numbers are allowed", ErrInvalidInput, MaxPhoneNumbers)
	}
	a.PhoneNumbers = append(a.PhoneNumbers, normalized)
	return nil
}

func (a *Account) RemovePhoneNumber(phone string) error {
	target := strings.TrimSpace(phone)
	for i, existing := range a.PhoneNumbers {
		if existing == target {
			a.PhoneNumbers = append(a.PhoneNumbers[:i:i], a.PhoneNumbers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: phone number %q is not registered", ErrInvalidInput, target)
}

func (a *Account) CreditFiat(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	a.BalanceFiat = a.BalanceFiat.Add(amount)
	return nil
}

func (a *Account) DebitFiat(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if amount.GreaterThan(a.BalanceFiat) {
		return fmt.Errorf("%w: fiat balance %s is below %s", ErrInsufficientFunds, a.BalanceFiat.String(), amount.String())
	}
	a.BalanceFiat = a.BalanceFiat.Sub(amount)
	return nil
}

func (a *Account) CreditStable(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	a.BalanceStable = a.BalanceStable.Add(amount)
	return nil
}

func (a *Account) DebitStable(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if amount.GreaterThan(a.BalanceStable) {
		return fmt.Errorf("%w: stable balance %s is below %s", ErrInsufficientFunds, a.BalanceStable.String(), amount.String())
	}
	a.BalanceStable = a.BalanceStable.Sub(amount)
	return nil
}

// Clone returns a copy that shares no slices with the receiver.
func (a Account) Clone() Account {
	out := a
	out.PhoneNumbers = append([]string(nil), a.PhoneNumbers...)
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
