package domain

import "context"

// LedgerStore owns every Account and Transaction record. Update runs fn inside one critical
// section and persists its writes only when fn returns nil; View never persists anything.
type LedgerStore interface {
	Update(ctx context.Context, fn func(tx LedgerTx) error) error
	View(ctx context.Context, fn func(tx LedgerTx) error) error
	Close() error
}

type LedgerTx interface {
	GetAccount(key string) (Account, error)
	InsertAccount(account Account) error
	PutAccount(account Account) error
	DeleteAccount(key string) error
	AppendTransaction(txn Transaction) (Transaction, error)
	GetTransaction(index int) (Transaction, error)
	PutTransaction(txn Transaction) error
	ListTransactions() ([]Transaction, error)
}
