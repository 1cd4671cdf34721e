package models

import (
	"errors"
	"strings"
)

type LoginRequest struct {
	Key      string `json:"key"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Key) == "" {
		errs = append(errs, "key is required")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresAt   string `json:"expiresAt"`
}
