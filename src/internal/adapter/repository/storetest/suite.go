// Package storetest holds the behavioural checks every domain.LedgerStore implementation
// must pass. Store packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/shopspring/decimal"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) domain.LedgerStore

func Run(t *testing.T, newStore Factory) {
	t.Run("insert and get account", func(t *testing.T) { testInsertAndGet(t, newStore(t)) })
	t.Run("insert conflict", func(t *testing.T) { testInsertConflict(t, newStore(t)) })
	t.Run("missing records", func(t *testing.T) { testMissingRecords(t, newStore(t)) })
	t.Run("transaction log", func(t *testing.T) { testTransactionLog(t, newStore(t)) })
	t.Run("rollback on error", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("concurrent updates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func mustAccount(t *testing.T, key string, phones ...string) domain.Account {
	t.Helper()
	account, err := domain.NewAccount(key, phones, "hash-"+key, fixedNow)
	if err != nil {
		t.Fatalf("new account %s: %v", key, err)
	}
	return account
}

func seed(t *testing.T, store domain.LedgerStore, accounts ...domain.Account) {
	t.Helper()
	err := store.Update(context.Background(), func(tx domain.LedgerTx) error {
		for _, account := range accounts {
			if err := tx.InsertAccount(account); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
}

func testInsertAndGet(t *testing.T, store domain.LedgerStore) {
	defer store.Close()

	account := mustAccount(t, "alice", "+2348000000001", "08000000002")
	account.BalanceFiat = decimal.RequireFromString("40")
	seed(t, store, account)

	err := store.View(context.Background(), func(tx domain.LedgerTx) error {
		got, err := tx.GetAccount("alice")
		if err != nil {
			return err
		}
		if !got.BalanceFiat.Equal(decimal.RequireFromString("40")) || !got.BalanceStable.IsZero() {
			t.Fatalf("unexpected balances fiat=%s stable=%s", got.BalanceFiat, got.BalanceStable)
		}
		if len(got.PhoneNumbers) != 2 || got.PhoneNumbers[1] != "08000000002" {
			t.Fatalf("unexpected phone numbers %v", got.PhoneNumbers)
		}
		if got.PasswordHash != "hash-alice" {
			t.Fatalf("unexpected password hash %q", got.PasswordHash)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func testInsertConflict(t *testing.T, store domain.LedgerStore) {
	defer store.Close()

	seed(t, store, mustAccount(t, "alice"))

	err := store.Update(context.Background(), func(tx domain.LedgerTx) error {
		return tx.InsertAccount(mustAccount(t, "alice"))
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func testMissingRecords(t *testing.T, store domain.LedgerStore) {
	defer store.Close()

	err := store.Update(context.Background(), func(tx domain.LedgerTx) error {
		if _, err := tx.GetAccount("ghost"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get: expected not found, got %v", err)
		}
		if err := tx.PutAccount(mustAccount(t, "ghost")); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("put: expected not found, got %v", err)
		}
		if err := tx.DeleteAccount("ghost"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("delete: expected not found, got %v", err)
		}
		if _, err := tx.GetTransaction(0); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get transaction: expected not found, got %v", err)
		}
		if _, err := tx.GetTransaction(-1); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get negative transaction: expected not found, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func testTransactionLog(t *testing.T, store domain.LedgerStore) {
	defer store.Close()
	ctx := context.Background()

	err := store.Update(ctx, func(tx domain.LedgerTx) error {
		for i := 0; i < 3; i++ {
			txn, err := domain.NewTransaction("alice", "bob", decimal.NewFromInt(int64(i+1)), fixedNow)
			if err != nil {
				return err
			}
			appended, err := tx.AppendTransaction(txn)
			if err != nil {
				return err
			}
			if appended.Index != i {
				t.Fatalf("expected index %d, got %d", i, appended.Index)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	err = store.Update(ctx, func(tx domain.LedgerTx) error {
		txn, err := tx.GetTransaction(1)
		if err != nil {
			return err
		}
		if err := txn.Resolve(domain.TransactionStatusFailed, "insufficient funds", fixedNow); err != nil {
			return err
		}
		return tx.PutTransaction(txn)
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	err = store.View(ctx, func(tx domain.LedgerTx) error {
		txns, err := tx.ListTransactions()
		if err != nil {
			return err
		}
		if len(txns) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(txns))
		}
		for i, txn := range txns {
			if txn.Index != i {
				t.Fatalf("transaction %d has index %d", i, txn.Index)
			}
		}
		if txns[1].Status != domain.TransactionStatusFailed || txns[1].FailureReason != "insufficient funds" {
			t.Fatalf("unexpected resolved record %+v", txns[1])
		}
		if txns[1].ResolvedAt == nil {
			t.Fatal("expected resolved_at to be set")
		}
		if txns[0].Status != domain.TransactionStatusPending || !txns[2].Amount.Equal(decimal.NewFromInt(3)) {
			t.Fatalf("unexpected untouched records %+v %+v", txns[0], txns[2])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func testRollback(t *testing.T, store domain.LedgerStore) {
	defer store.Close()
	ctx := context.Background()
	boom := errors.New("boom")

	seed(t, store, mustAccount(t, "alice"))

	err := store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount("alice")
		if err != nil {
			return err
		}
		if err := account.CreditFiat(decimal.NewFromInt(10)); err != nil {
			return err
		}
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		if err := tx.InsertAccount(mustAccount(t, "bob")); err != nil {
			return err
		}
		txn, err := domain.NewTransaction("alice", "bob", decimal.NewFromInt(1), fixedNow)
		if err != nil {
			return err
		}
		if _, err := tx.AppendTransaction(txn); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.View(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount("alice")
		if err != nil {
			return err
		}
		if !account.BalanceFiat.IsZero() {
			t.Fatalf("expected rolled back balance, got %s", account.BalanceFiat)
		}
		if _, err := tx.GetAccount("bob"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected bob to be rolled back, got %v", err)
		}
		txns, err := tx.ListTransactions()
		if err != nil {
			return err
		}
		if len(txns) != 0 {
			t.Fatalf("expected empty log, got %d records", len(txns))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func testConcurrentUpdates(t *testing.T, store domain.LedgerStore) {
	defer store.Close()
	ctx := context.Background()
	const workers = 20

	seed(t, store, mustAccount(t, "alice"))

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Update(ctx, func(tx domain.LedgerTx) error {
				account, err := tx.GetAccount("alice")
				if err != nil {
					return err
				}
				if err := account.CreditFiat(decimal.NewFromInt(1)); err != nil {
					return err
				}
				return tx.PutAccount(account)
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update failed: %v", err)
		}
	}

	err := store.View(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount("alice")
		if err != nil {
			return err
		}
		if !account.BalanceFiat.Equal(decimal.NewFromInt(workers)) {
			t.Fatalf("expected balance %d, got %s", workers, account.BalanceFiat)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}
