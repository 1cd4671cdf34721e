package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/lib/pq"
)

// ledgerLockKey is the pg_advisory_xact_lock key held by every ledger mutation.
const ledgerLockKey int64 = 0x57414c4c4554

type LedgerStore struct {
	db *sql.DB
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Update(ctx context.Context, fn func(tx domain.LedgerTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("ledger store begin tx failed", err, nil)
		return fmt.Errorf("%w: begin ledger transaction: %v", domain.ErrStorage, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
		logger.Error("ledger store lock failed", err, nil)
		return fmt.Errorf("%w: acquire ledger lock: %v", domain.ErrStorage, err)
	}

	if err = fn(&ledgerTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("ledger store commit tx failed", err, nil)
		return fmt.Errorf("%w: commit ledger transaction: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *LedgerStore) View(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		logger.Error("ledger store begin read tx failed", err, nil)
		return fmt.Errorf("%w: begin ledger read: %v", domain.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	return fn(&ledgerTx{ctx: ctx, tx: tx})
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

type ledgerTx struct {
	ctx context.Context
	tx  *sql.Tx
}

const accountColumns = `key, balance_fiat, balance_stable, phone_numbers, password_hash, created_at, updated_at`

const transactionColumns = `idx, id, sender, receiver, amount, status, failure_reason, created_at, resolved_at`

func (t *ledgerTx) GetAccount(key string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE key = $1`

	account, err := scanAccount(t.tx.QueryRowContext(t.ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("account %q: %w", key, domain.ErrNotFound)
		}
		logger.Error("ledger store get account failed", err, logger.Fields{"key": key})
		return domain.Account{}, fmt.Errorf("%w: get account: %v", domain.ErrStorage, err)
	}
	return account, nil
}

func (t *ledgerTx) InsertAccount(account domain.Account) error {
	const query = `
INSERT INTO accounts (key, balance_fiat, balance_stable, phone_numbers, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (key) DO NOTHING`

	rows, err := t.exec(query,
		account.Key,
		account.BalanceFiat,
		account.BalanceStable,
		pq.Array(phoneNumbersOrEmpty(account.PhoneNumbers)),
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("account %q: %w", account.Key, domain.ErrConflict)
	}
	return nil
}

func (t *ledgerTx) PutAccount(account domain.Account) error {
	const query = `
UPDATE accounts
SET balance_fiat = $2,
    balance_stable = $3,
    phone_numbers = $4,
    password_hash = $5,
    updated_at = $6
WHERE key = $1`

	updatedAt := account.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	rows, err := t.exec(query,
		account.Key,
		account.BalanceFiat,
		account.BalanceStable,
		pq.Array(phoneNumbersOrEmpty(account.PhoneNumbers)),
		account.PasswordHash,
		updatedAt,
	)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("account %q: %w", account.Key, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) DeleteAccount(key string) error {
	rows, err := t.exec(`DELETE FROM accounts WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("account %q: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) AppendTransaction(txn domain.Transaction) (domain.Transaction, error) {
	var next int
	if err := t.tx.QueryRowContext(t.ctx, `SELECT COALESCE(MAX(idx) + 1, 0) FROM ledger_transactions`).Scan(&next); err != nil {
		logger.Error("ledger store next index failed", err, nil)
		return domain.Transaction{}, fmt.Errorf("%w: next transaction index: %v", domain.ErrStorage, err)
	}

	const query = `
INSERT INTO ledger_transactions (idx, id, sender, receiver, amount, status, failure_reason, created_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	txn.Index = next
	if _, err := t.exec(query,
		txn.Index,
		txn.ID,
		txn.Sender,
		txn.Receiver,
		txn.Amount,
		string(txn.Status),
		txn.FailureReason,
		txn.CreatedAt,
		nullTime(txn.ResolvedAt),
	); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

func (t *ledgerTx) GetTransaction(index int) (domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE idx = $1`

	txn, err := scanTransaction(t.tx.QueryRowContext(t.ctx, query, index))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, fmt.Errorf("transaction %d: %w", index, domain.ErrNotFound)
		}
		logger.Error("ledger store get transaction failed", err, logger.Fields{"index": index})
		return domain.Transaction{}, fmt.Errorf("%w: get transaction: %v", domain.ErrStorage, err)
	}
	return txn, nil
}

func (t *ledgerTx) PutTransaction(txn domain.Transaction) error {
	const query = `
UPDATE ledger_transactions
SET status = $2,
    failure_reason = $3,
    resolved_at = $4
WHERE idx = $1`

	rows, err := t.exec(query, txn.Index, string(txn.Status), txn.FailureReason, nullTime(txn.ResolvedAt))
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("transaction %d: %w", txn.Index, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) ListTransactions() ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions ORDER BY idx`

	rows, err := t.tx.QueryContext(t.ctx, query)
	if err != nil {
		logger.Error("ledger store list transactions failed", err, nil)
		return nil, fmt.Errorf("%w: list transactions: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", domain.ErrStorage, err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", domain.ErrStorage, err)
	}
	return out, nil
}

func (t *ledgerTx) exec(query string, args ...any) (int64, error) {
	result, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		logger.Error("ledger store statement failed", err, nil)
		return 0, fmt.Errorf("%w: execute ledger statement: %v", domain.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: read rows affected: %v", domain.ErrStorage, err)
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account domain.Account
		phones  pq.StringArray
	)
	if err := row.Scan(
		&account.Key,
		&account.BalanceFiat,
		&account.BalanceStable,
		&phones,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.Account{}, err
	}

	account.PhoneNumbers = phoneNumbersOrEmpty(phones)
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return account, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		txn        domain.Transaction
		status     string
		resolvedAt sql.NullTime
	)
	if err := row.Scan(
		&txn.Index,
		&txn.ID,
		&txn.Sender,
		&txn.Receiver,
		&txn.Amount,
		&status,
		&txn.FailureReason,
		&txn.CreatedAt,
		&resolvedAt,
	); err != nil {
		return domain.Transaction{}, err
	}

	txn.Status = domain.TransactionStatus(status)
	txn.CreatedAt = txn.CreatedAt.UTC()
	if resolvedAt.Valid {
		value := resolvedAt.Time.UTC()
		txn.ResolvedAt = &value
	}
	return txn, nil
}

func phoneNumbersOrEmpty(phones []string) []string {
	if phones == nil {
		return []string{}
	}
	return append([]string(nil), phones...)
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
