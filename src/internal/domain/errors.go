package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("record not found")
var ErrConflict = errors.New("record already exists")
var ErrInvalidInput = errors.New("invalid input")
var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrSelfTransfer = errors.New("sender and receiver must differ")
var ErrUnauthorized = errors.New("unauthorized")
var ErrRateLimited = errors.New("too many attempts")
var ErrStorage = errors.New("ledger storage failure")
var ErrTransactionResolved = errors.New("transaction already resolved")

// RateLimitError reports a throttled caller together with the wait before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
