package security

import (
	"errors"
	"fmt"

	"github.com/api-sage/stable-wallet/src/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// PasswordHasher wraps bcrypt so tests can lower the cost factor.
type PasswordHasher struct {
	Cost int
}

func NewPasswordHasher() PasswordHasher {
	return PasswordHasher{Cost: bcrypt.DefaultCost}
}

func (h PasswordHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, MaxPasswordBytes)
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns domain.ErrUnauthorized on mismatch and a wrapped error for malformed hashes.
func (h PasswordHasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrUnauthorized
	}
	return fmt.Errorf("verify password: %w", err)
}
