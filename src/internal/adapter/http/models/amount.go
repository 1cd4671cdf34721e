package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountLength bounds the raw string before it is parsed.
	MaxAmountLength = 40
	// MaxAmountIntegerDigits keeps every amount, and any rate-converted credit, inside NUMERIC(38,18).
	MaxAmountIntegerDigits = 15
)

var maxAmount = decimal.New(1, MaxAmountIntegerDigits)

// ParseAmount reads a positive plain decimal amount from its string form.
// Exponent notation is rejected and the value must be below 10^MaxAmountIntegerDigits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount := strings.TrimSpace(raw)
	if amount == "" {
		return decimal.Decimal{}, fmt.Errorf("amount is required")
	}
	if len(amount) > MaxAmountLength {
		return decimal.Decimal{}, fmt.Errorf("amount must be at most %d characters", MaxAmountLength)
	}
	if strings.ContainsAny(amount, "eE") {
		return decimal.Decimal{}, fmt.Errorf("amount must be a plain decimal number")
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount must be numeric")
	}
	if parsed.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("amount must be greater than zero")
	}
	if parsed.GreaterThanOrEqual(maxAmount) {
		return decimal.Decimal{}, fmt.Errorf("amount must be less than %s", maxAmount.String())
	}
	return parsed, nil
}

func appendAmountError(errs []string, raw string) []string {
	if _, err := ParseAmount(raw); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}
