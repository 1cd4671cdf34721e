package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/events"
	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/memory"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type hasherStub struct {
	hashFn func(password string) (string, error)
}

func (s hasherStub) Hash(password string) (string, error) {
	if s.hashFn != nil {
		return s.hashFn(password)
	}
	return "hashed:" + password, nil
}

type verifierStub struct {
	verifyFn func(hash, password string) error
}

func (s verifierStub) Verify(hash, password string) error {
	if s.verifyFn != nil {
		return s.verifyFn(hash, password)
	}
	if hash != "hashed:"+password {
		return domain.ErrUnauthorized
	}
	return nil
}

type tokenStub struct {
	issueFn func(accountKey string, now time.Time) (string, time.Time, error)
	parseFn func(token string) (string, error)
}

func (s tokenStub) Issue(accountKey string, now time.Time) (string, time.Time, error) {
	if s.issueFn != nil {
		return s.issueFn(accountKey, now)
	}
	return "token-for-" + accountKey, now.Add(time.Hour), nil
}

func (s tokenStub) Parse(token string) (string, error) {
	if s.parseFn != nil {
		return s.parseFn(token)
	}
	return "", domain.ErrUnauthorized
}

type limiterStub struct {
	allowFn func(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
	resets  []string
}

func (s *limiterStub) Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error) {
	if s.allowFn != nil {
		return s.allowFn(ctx, key, now)
	}
	return true, 0, nil
}

func (s *limiterStub) Reset(_ context.Context, key string) error {
	s.resets = append(s.resets, key)
	return nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.Envelope
	err    error
}

func (s *publisherStub) PublishJSON(_ context.Context, _ string, _ string, value any) (int32, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if envelope, ok := value.(events.Envelope); ok {
		s.events = append(s.events, envelope)
	}
	return 0, 0, s.err
}

func (s *publisherStub) Close() error { return nil }

func (s *publisherStub) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// storeStub fails every operation with err.
type storeStub struct {
	err error
}

func (s storeStub) Update(context.Context, func(tx domain.LedgerTx) error) error { return s.err }
func (s storeStub) View(context.Context, func(tx domain.LedgerTx) error) error   { return s.err }
func (s storeStub) Close() error                                                 { return nil }

func testSettings(t *testing.T) LedgerSettings {
	t.Helper()
	rate, err := domain.ParseRate("1/655")
	if err != nil {
		t.Fatalf("parse rate: %v", err)
	}
	return LedgerSettings{
		FiatToStable:     rate,
		StableToFiat:     rate.Inverse(),
		FiatScale:        2,
		StableScale:      6,
		WithdrawalPolicy: domain.WithdrawalDebitOnly,
		TransferMode:     domain.TransferModeImmediate,
	}
}

type fixture struct {
	store     *memory.LedgerStore
	publisher *publisherStub
	accounts  *AccountService
	transfers *TransferService
}

func newFixture(t *testing.T, settings LedgerSettings) *fixture {
	t.Helper()

	store := memory.NewLedgerStore()
	publisher := &publisherStub{}
	emitter := events.NewEmitter(publisher, "wallet.ledger.events")

	accounts := NewAccountService(store, hasherStub{}, settings, emitter, nil)
	accounts.now = func() time.Time { return testNow }
	transfers := NewTransferService(store, settings, emitter, nil)
	transfers.now = func() time.Time { return testNow }

	return &fixture{store: store, publisher: publisher, accounts: accounts, transfers: transfers}
}

// seedAccount inserts an account with the given balances, bypassing the services.
func (f *fixture) seedAccount(t *testing.T, key, fiat, stable string, phones ...string) {
	t.Helper()
	err := f.store.Update(context.Background(), func(tx domain.LedgerTx) error {
		account, err := domain.NewAccount(key, phones, "hashed:password1", testNow)
		if err != nil {
			return err
		}
		account.BalanceFiat = decimal.RequireFromString(fiat)
		account.BalanceStable = decimal.RequireFromString(stable)
		return tx.InsertAccount(account)
	})
	if err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func (f *fixture) account(t *testing.T, key string) domain.Account {
	t.Helper()
	var account domain.Account
	err := f.store.View(context.Background(), func(tx domain.LedgerTx) error {
		var err error
		account, err = tx.GetAccount(key)
		return err
	})
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return account
}

func requireBalances(t *testing.T, account domain.Account, fiat, stable string) {
	t.Helper()
	if !account.BalanceFiat.Equal(decimal.RequireFromString(fiat)) {
		t.Fatalf("%s: expected fiat %s, got %s", account.Key, fiat, account.BalanceFiat)
	}
	if !account.BalanceStable.Equal(decimal.RequireFromString(stable)) {
		t.Fatalf("%s: expected stable %s, got %s", account.Key, stable, account.BalanceStable)
	}
}

func requireErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func intPtr(v int) *int {
	return &v
}
