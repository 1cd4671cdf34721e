package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
	"github.com/api-sage/stable-wallet/src/internal/usecase/service_interfaces"
)

// Verify that AuthService implements the service_interfaces.AuthService interface
var _ service_interfaces.AuthService = (*AuthService)(nil)

const invalidCredentials = "invalid key or password"

type PasswordVerifier interface {
	Verify(hash, password string) error
}

type TokenIssuer interface {
	Issue(accountKey string, now time.Time) (string, time.Time, error)
	Parse(token string) (string, error)
}

type LoginLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

type AuthService struct {
	store    domain.LedgerStore
	verifier PasswordVerifier
	tokens   TokenIssuer
	limiter  LoginLimiter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAuthService(
	store domain.LedgerStore,
	verifier PasswordVerifier,
	tokens TokenIssuer,
	limiter LoginLimiter,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		store:    store,
		verifier: verifier,
		tokens:   tokens,
		limiter:  limiter,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error) {
	logger.Info("auth service login request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.LoginResponse]("validation failed", err.Error()), invalidInput(err)
	}

	key := strings.TrimSpace(req.Key)
	now := s.now()

	if s.limiter != nil {
		allowed, retryAfter, err := s.limiter.Allow(ctx, key, now)
		if err != nil {
			logger.Error("auth service login limiter failed", err, logger.Fields{"key": key})
			return commons.ErrorResponse[models.LoginResponse]("failed to login", "Unable to login right now"), fmt.Errorf("login limiter: %w", err)
		}
		if !allowed {
			s.metrics.LedgerOperation("login", domain.ErrRateLimited)
			logger.Warn("auth service login throttled", logger.Fields{
				"key":        key,
				"retryAfter": retryAfter.String(),
			})
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			return commons.ErrorResponse[models.LoginResponse]("too many login attempts", fmt.Sprintf("retry after %d seconds", seconds)),
				&domain.RateLimitError{RetryAfter: retryAfter}
		}
	}

	var account domain.Account
	err := s.store.View(ctx, func(tx domain.LedgerTx) error {
		var err error
		account, err = tx.GetAccount(key)
		return err
	})
	if err == nil {
		err = s.verifier.Verify(account.PasswordHash, req.Password)
	}
	if err != nil {
		s.metrics.LedgerOperation("login", err)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			logger.Info("auth service login rejected", logger.Fields{"key": key})
			return commons.ErrorResponse[models.LoginResponse](invalidCredentials), domain.ErrUnauthorized
		}
		logger.Error("auth service login failed", err, logger.Fields{"key": key})
		return failure[models.LoginResponse]("failed to login", err), err
	}

	token, expiresAt, err := s.tokens.Issue(account.Key, now)
	if err != nil {
		logger.Error("auth service issue token failed", err, logger.Fields{"key": key})
		return commons.ErrorResponse[models.LoginResponse]("failed to login", "Unable to login right now"), err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			logger.Warn("auth service login limiter reset failed", logger.Fields{"key": key, "error": err.Error()})
		}
	}
	s.metrics.LedgerOperation("login", nil)
	logger.Info("auth service login success", logger.Fields{"key": account.Key})

	return commons.SuccessResponse("login successful", models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   formatTime(expiresAt),
	}), nil
}

// ResolveCaller returns the account key carried by a bearer credential.
func (s *AuthService) ResolveCaller(_ context.Context, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", domain.ErrUnauthorized
	}
	key, err := s.tokens.Parse(credential)
	if err != nil {
		return "", err
	}
	return key, nil
}
