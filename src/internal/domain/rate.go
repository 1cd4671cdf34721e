package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rate is a fixed conversion factor kept as a fraction so values like 1/655 stay exact
// until the result is rounded to the target scale.
type Rate struct {
	Numerator   decimal.Decimal
	Denominator decimal.Decimal
}

// ParseRate accepts either a decimal ("0.0016") or a fraction ("1/655").
func ParseRate(raw string) (Rate, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Rate{}, fmt.Errorf("%w: rate is required", ErrInvalidInput)
	}

	numeratorRaw, denominatorRaw, isFraction := strings.Cut(value, "/")
	if !isFraction {
		denominatorRaw = "1"
	}

	numerator, err := decimal.NewFromString(strings.TrimSpace(numeratorRaw))
	if err != nil {
		return Rate{}, fmt.Errorf("%w: rate %q: %v", ErrInvalidInput, value, err)
	}
	denominator, err := decimal.NewFromString(strings.TrimSpace(denominatorRaw))
	if err != nil {
		return Rate{}, fmt.Errorf("%w: rate %q: %v", ErrInvalidInput, value, err)
	}
	if !numerator.IsPositive() || !denominator.IsPositive() {
		return Rate{}, fmt.Errorf("%w: rate %q must be greater than zero", ErrInvalidInput, value)
	}

	return Rate{Numerator: numerator, Denominator: denominator}, nil
}

func (r Rate) Inverse() Rate {
	return Rate{Numerator: r.Denominator, Denominator: r.Numerator}
}

// Apply returns amount * rate rounded half-up to scale decimal places.
func (r Rate) Apply(amount decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Mul(r.Numerator).DivRound(r.Denominator, scale)
}

func (r Rate) String() string {
	if r.Denominator.Equal(decimal.NewFromInt(1)) {
		return r.Numerator.String()
	}
	return r.Numerator.String() + "/" + r.Denominator.String()
}

type WithdrawalPolicy string

const (
	// WithdrawalDebitOnly records the debit; the payout itself is handled off-system.
	WithdrawalDebitOnly WithdrawalPolicy = "debit_only"
	// WithdrawalCreditFiat converts the withdrawn stable amount back into the fiat balance.
	WithdrawalCreditFiat WithdrawalPolicy = "credit_fiat"
)

func ParseWithdrawalPolicy(raw string) (WithdrawalPolicy, error) {
	switch WithdrawalPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", WithdrawalDebitOnly:
		return WithdrawalDebitOnly, nil
	case WithdrawalCreditFiat:
		return WithdrawalCreditFiat, nil
	default:
		return "", fmt.Errorf("%w: unknown withdrawal policy %q", ErrInvalidInput, raw)
	}
}

type TransferMode string

const (
	TransferModeImmediate TransferMode = "immediate"
	TransferModePending   TransferMode = "pending"
)

func ParseTransferMode(raw string) (TransferMode, error) {
	switch TransferMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TransferModeImmediate:
		return TransferModeImmediate, nil
	case TransferModePending:
		return TransferModePending, nil
	default:
		return "", fmt.Errorf("%w: unknown transfer mode %q", ErrInvalidInput, raw)
	}
}
