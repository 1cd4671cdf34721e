package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/cockroachdb/pebble"
)

const (
	accountPrefix = "account/"
	txnPrefix     = "txn/"
	txnCountKey   = "meta/txn_count"
)

var errReadOnly = errors.New("ledger view is read-only")

// LedgerStore keeps one pebble record per account and per transaction. An Update stages its
// writes in an indexed batch, so reads inside the callback see them, and commits the batch
// with a synced write. Updates are serialized by a mutex.
type LedgerStore struct {
	mu sync.Mutex
	db *pebble.DB
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

func Open(dir string) (*LedgerStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble at %q: %v", domain.ErrStorage, dir, err)
	}
	return &LedgerStore{db: db}, nil
}

func (s *LedgerStore) Update(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&ledgerTx{reader: batch, batch: batch}); err != nil {
		return err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("pebble ledger store commit failed", err, nil)
		return fmt.Errorf("%w: commit batch: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *LedgerStore) View(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.db.NewSnapshot()
	defer snap.Close()

	return fn(&ledgerTx{reader: snap})
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

type ledgerTx struct {
	reader reader
	batch  *pebble.Batch
}

func (t *ledgerTx) GetAccount(key string) (domain.Account, error) {
	var account domain.Account
	found, err := t.getJSON(accountKey(key), &account)
	if err != nil {
		return domain.Account{}, err
	}
	if !found {
		return domain.Account{}, fmt.Errorf("account %q: %w", key, domain.ErrNotFound)
	}
	return account, nil
}

func (t *ledgerTx) InsertAccount(account domain.Account) error {
	exists, err := t.exists(accountKey(account.Key))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("account %q: %w", account.Key, domain.ErrConflict)
	}
	return t.setJSON(accountKey(account.Key), account)
}

func (t *ledgerTx) PutAccount(account domain.Account) error {
	exists, err := t.exists(accountKey(account.Key))
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("account %q: %w", account.Key, domain.ErrNotFound)
	}
	return t.setJSON(accountKey(account.Key), account)
}

func (t *ledgerTx) DeleteAccount(key string) error {
	if t.batch == nil {
		return errReadOnly
	}
	exists, err := t.exists(accountKey(key))
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("account %q: %w", key, domain.ErrNotFound)
	}
	if err := t.batch.Delete(accountKey(key), nil); err != nil {
		return fmt.Errorf("%w: delete account: %v", domain.ErrStorage, err)
	}
	return nil
}

func (t *ledgerTx) AppendTransaction(txn domain.Transaction) (domain.Transaction, error) {
	count, err := t.transactionCount()
	if err != nil {
		return domain.Transaction{}, err
	}

	txn.Index = count
	if err := t.setJSON(txnKey(count), txn); err != nil {
		return domain.Transaction{}, err
	}
	if err := t.set([]byte(txnCountKey), []byte(strconv.Itoa(count+1))); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

func (t *ledgerTx) GetTransaction(index int) (domain.Transaction, error) {
	var txn domain.Transaction
	found := false
	if index >= 0 {
		var err error
		found, err = t.getJSON(txnKey(index), &txn)
		if err != nil {
			return domain.Transaction{}, err
		}
	}
	if !found {
		return domain.Transaction{}, fmt.Errorf("transaction %d: %w", index, domain.ErrNotFound)
	}
	return txn, nil
}

func (t *ledgerTx) PutTransaction(txn domain.Transaction) error {
	if _, err := t.GetTransaction(txn.Index); err != nil {
		return err
	}
	return t.setJSON(txnKey(txn.Index), txn)
}

func (t *ledgerTx) ListTransactions() ([]domain.Transaction, error) {
	count, err := t.transactionCount()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Transaction, 0, count)
	for i := 0; i < count; i++ {
		txn, err := t.GetTransaction(i)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction log gap at %d: %v", domain.ErrStorage, i, err)
		}
		out = append(out, txn)
	}
	return out, nil
}

func (t *ledgerTx) transactionCount() (int, error) {
	raw, closer, err := t.reader.Get([]byte(txnCountKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read transaction count: %v", domain.ErrStorage, err)
	}
	defer closer.Close()

	count, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse transaction count: %v", domain.ErrStorage, err)
	}
	return count, nil
}

func (t *ledgerTx) exists(key []byte) (bool, error) {
	_, closer, err := t.reader.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %q: %v", domain.ErrStorage, key, err)
	}
	_ = closer.Close()
	return true, nil
}

func (t *ledgerTx) getJSON(key []byte, out any) (bool, error) {
	raw, closer, err := t.reader.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %q: %v", domain.ErrStorage, key, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: decode %q: %v", domain.ErrStorage, key, err)
	}
	return true, nil
}

func (t *ledgerTx) setJSON(key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %v", domain.ErrStorage, key, err)
	}
	return t.set(key, raw)
}

func (t *ledgerTx) set(key, value []byte) error {
	if t.batch == nil {
		return errReadOnly
	}
	if err := t.batch.Set(key, value, nil); err != nil {
		return fmt.Errorf("%w: write %q: %v", domain.ErrStorage, key, err)
	}
	return nil
}

func accountKey(key string) []byte {
	return []byte(accountPrefix + key)
}

func txnKey(index int) []byte {
	return []byte(fmt.Sprintf("%s%020d", txnPrefix, index))
}
