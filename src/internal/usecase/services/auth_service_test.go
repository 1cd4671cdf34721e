package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/domain"
)

func newAuthFixture(t *testing.T, limiter *limiterStub, tokens tokenStub) (*fixture, *AuthService) {
	t.Helper()
	f := newFixture(t, testSettings(t))
	f.seedAccount(t, "alice", "0", "0")

	svc := NewAuthService(f.store, verifierStub{}, tokens, limiter, nil)
	svc.now = func() time.Time { return testNow }
	return f, svc
}

func TestLoginIssuesToken(t *testing.T) {
	limiter := &limiterStub{}
	_, svc := newAuthFixture(t, limiter, tokenStub{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Key: " alice ", Password: "password1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Data.AccessToken != "token-for-alice" || resp.Data.TokenType != "Bearer" {
		t.Fatalf("unexpected login response %+v", resp.Data)
	}
	if resp.Data.ExpiresAt != "2024-03-01T11:00:00Z" {
		t.Fatalf("unexpected expiry %s", resp.Data.ExpiresAt)
	}
	if len(limiter.resets) != 1 || limiter.resets[0] != "alice" {
		t.Fatalf("expected limiter reset for alice, got %v", limiter.resets)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	limiter := &limiterStub{}
	_, svc := newAuthFixture(t, limiter, tokenStub{})
	ctx := context.Background()

	for _, req := range []models.LoginRequest{
		{Key: "alice", Password: "wrong-password"},
		{Key: "ghost", Password: "password1"},
	} {
		resp, err := svc.Login(ctx, req)
		requireErr(t, err, domain.ErrUnauthorized)
		if resp.Message != invalidCredentials {
			t.Fatalf("%s: unexpected message %q", req.Key, resp.Message)
		}
	}
	if len(limiter.resets) != 0 {
		t.Fatalf("failed logins must not reset the limiter, got %v", limiter.resets)
	}

	_, err := svc.Login(ctx, models.LoginRequest{Key: "alice"})
	requireErr(t, err, domain.ErrInvalidInput)
}

func TestLoginThrottled(t *testing.T) {
	limiter := &limiterStub{
		allowFn: func(context.Context, string, time.Time) (bool, time.Duration, error) {
			return false, 1500 * time.Millisecond, nil
		},
	}
	_, svc := newAuthFixture(t, limiter, tokenStub{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Key: "alice", Password: "password1"})
	requireErr(t, err, domain.ErrRateLimited)

	var rateErr *domain.RateLimitError
	if !errors.As(err, &rateErr) || rateErr.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("expected RateLimitError with retry after, got %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "retry after 2 seconds" {
		t.Fatalf("unexpected errors %v", resp.Errors)
	}
}

func TestLoginLimiterFailureFailsClosed(t *testing.T) {
	limiterErr := errors.New("redis down")
	limiter := &limiterStub{
		allowFn: func(context.Context, string, time.Time) (bool, time.Duration, error) {
			return false, 0, limiterErr
		},
	}
	_, svc := newAuthFixture(t, limiter, tokenStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Key: "alice", Password: "password1"})
	requireErr(t, err, limiterErr)
}

func TestLoginTokenFailure(t *testing.T) {
	issueErr := errors.New("signing failed")
	limiter := &limiterStub{}
	_, svc := newAuthFixture(t, limiter, tokenStub{
		issueFn: func(string, time.Time) (string, time.Time, error) {
			return "", time.Time{}, issueErr
		},
	})

	_, err := svc.Login(context.Background(), models.LoginRequest{Key: "alice", Password: "password1"})
	requireErr(t, err, issueErr)
	if len(limiter.resets) != 0 {
		t.Fatalf("limiter must not reset when no token was issued")
	}
}

func TestResolveCaller(t *testing.T) {
	_, svc := newAuthFixture(t, &limiterStub{}, tokenStub{
		parseFn: func(token string) (string, error) {
			if token == "good" {
				return "alice", nil
			}
			return "", domain.ErrUnauthorized
		},
	})
	ctx := context.Background()

	key, err := svc.ResolveCaller(ctx, "good")
	if err != nil || key != "alice" {
		t.Fatalf("expected alice, got %q (%v)", key, err)
	}

	_, err = svc.ResolveCaller(ctx, "forged")
	requireErr(t, err, domain.ErrUnauthorized)

	_, err = svc.ResolveCaller(ctx, "  ")
	requireErr(t, err, domain.ErrUnauthorized)
}
