package pebblestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/storetest"
	"github.com/api-sage/stable-wallet/src/internal/domain"
)

func TestLedgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.LedgerStore {
		store, err := Open(t.TempDir())
		if err != nil {
			t.Fatalf("open pebble store: %v", err)
		}
		return store
	})
}

func TestLedgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	err = store.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := domain.NewAccount("alice", nil, "hash", testNow)
		if err != nil {
			return err
		}
		return tx.InsertAccount(account)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	err = reopened.View(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.GetAccount("alice")
		return err
	})
	if err != nil {
		t.Fatalf("expected account after reopen, got %v", err)
	}
}

func TestLedgerStoreViewIsReadOnly(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	err = store.View(context.Background(), func(tx domain.LedgerTx) error {
		account, err := domain.NewAccount("alice", nil, "hash", testNow)
		if err != nil {
			return err
		}
		return tx.InsertAccount(account)
	})
	if !errors.Is(err, errReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
