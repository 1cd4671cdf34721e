package snapshot

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

func TestFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.LedgerStore {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "database.json"))
		if err != nil {
			t.Fatalf("new file store: %v", err)
		}
		return store
	})
}

func TestFileStoreMissingFileIsEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "database.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	err = store.View(context.Background(), func(tx domain.LedgerTx) error {
		txns, err := tx.ListTransactions()
		if err != nil {
			return err
		}
		if len(txns) != 0 {
			t.Fatalf("expected empty log, got %d", len(txns))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("view must not create the snapshot, stat err=%v", err)
	}
}

func TestFileStoreCorruptSnapshotIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	err = store.Update(context.Background(), func(tx domain.LedgerTx) error {
		t.Fatal("callback must not run against a corrupt snapshot")
		return nil
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(raw) != "{not json" {
		t.Fatal("corrupt snapshot must be left untouched")
	}
}

func TestFileStoreRejectsInconsistentSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	content := `{"accounts":{"alice":{"key":"bob","balance_fiat":"1","balance_stable":"0"}},"transactions":[]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	err = store.View(context.Background(), func(tx domain.LedgerTx) error { return nil })
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	ctx := context.Background()

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	err = first.Update(ctx, func(tx domain.LedgerTx) error {
		account, err := domain.NewAccount("alice", []string{"+2348000000001"}, "hash", time.Now())
		if err != nil {
			return err
		}
		account.BalanceStable = decimal.RequireFromString("0.061069")
		return tx.InsertAccount(account)
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	err = second.View(ctx, func(tx domain.LedgerTx) error {
		account, err := tx.GetAccount("alice")
		if err != nil {
			return err
		}
		if !account.BalanceStable.Equal(decimal.RequireFromString("0.061069")) {
			t.Fatalf("unexpected stable balance %s", account.BalanceStable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestStateCloneIsIndependent(t *testing.T) {
	state := NewState()
	account, err := domain.NewAccount("alice", []string{"+2348000000001"}, "hash", time.Now())
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := state.InsertAccount(account); err != nil {
		t.Fatalf("insert: %v", err)
	}

	clone := state.Clone()
	cloned := clone.Accounts["alice"]
	cloned.PhoneNumbers[0] = "+000000000"
	clone.Accounts["alice"] = cloned

	if state.Accounts["alice"].PhoneNumbers[0] != "+2348000000001" {
		t.Fatal("clone shares phone number storage with the original")
	}
}
