package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/storetest"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/shopspring/decimal"
)

// openTestStore connects to WALLET_TEST_DATABASE_DSN and starts from empty tables.
func openTestStore(t *testing.T) *LedgerStore {
	t.Helper()

	dsn := os.Getenv("WALLET_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("WALLET_TEST_DATABASE_DSN is not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := RunMigrations(ctx, db, filepath.Join("..", "..", "..", "..", "migrations")); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE accounts, ledger_transactions`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	store := NewLedgerStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLedgerStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.LedgerStore {
		return openTestStore(t)
	})
}

func TestLedgerStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	err := store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := domain.NewAccount("alice", []string{"+2348000000001"}, "hash", now)
		if err != nil {
			return err
		}
		account.BalanceFiat = decimal.RequireFromString("40")
		if err := tx.InsertAccount(account); err != nil {
			return err
		}
		txn, err := domain.NewTransaction("alice", "bob", decimal.RequireFromString("0.05"), now)
		if err != nil {
			return err
		}
		_, err = tx.AppendTransaction(txn)
		return err
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	err = store.View(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount("alice")
		if err != nil {
			return err
		}
		if !account.BalanceFiat.Equal(decimal.RequireFromString("40")) {
			t.Fatalf("unexpected fiat balance %s", account.BalanceFiat)
		}
		if len(account.PhoneNumbers) != 1 {
			t.Fatalf("unexpected phone numbers %v", account.PhoneNumbers)
		}
		txns, err := tx.ListTransactions()
		if err != nil {
			return err
		}
		if len(txns) != 1 || txns[0].Index != 0 || txns[0].Status != domain.TransactionStatusPending {
			t.Fatalf("unexpected transactions %+v", txns)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestLedgerStoreRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := domain.NewAccount("carol", nil, "hash", time.Now())
		if err != nil {
			return err
		}
		if err := tx.InsertAccount(account); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.View(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.GetAccount("carol")
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after rollback, got %v", err)
	}
}

func TestLedgerStoreInsertConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	insert := func() error {
		return store.Update(ctx, func(tx domain.LedgerTx) error {
			account, err := domain.NewAccount("dave", nil, "hash", time.Now())
			if err != nil {
				return err
			}
			return tx.InsertAccount(account)
		})
	}

	if err := insert(); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := insert(); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
