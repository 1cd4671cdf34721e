package snapshot

import (
	"fmt"
	"sort"

	"github.com/api-sage/stable-wallet/src/internal/domain"
)

// State is the whole ledger as one value: every account plus the ordered transaction log.
// It implements domain.LedgerTx directly so a store can hand a clone of it to a mutation.
type State struct {
	Accounts     map[string]domain.Account `json:"accounts"`
	Transactions []domain.Transaction      `json:"transactions"`
}

var _ domain.LedgerTx = (*State)(nil)

func NewState() *State {
	return &State{
		Accounts:     map[string]domain.Account{},
		Transactions: []domain.Transaction{},
	}
}

func (s *State) Clone() *State {
	out := &State{
		Accounts:     make(map[string]domain.Account, len(s.Accounts)),
		Transactions: make([]domain.Transaction, len(s.Transactions)),
	}
	for k, v := range s.Accounts {
		out.Accounts[k] = v.Clone()
	}
	copy(out.Transactions, s.Transactions)
	return out
}

// Check verifies the invariants a loaded snapshot must satisfy before it is trusted.
func (s *State) Check() error {
	if s.Accounts == nil {
		s.Accounts = map[string]domain.Account{}
	}
	for key, account := range s.Accounts {
		if key != account.Key {
			return fmt.Errorf("account stored under %q has key %q", key, account.Key)
		}
		if account.BalanceFiat.IsNegative() || account.BalanceStable.IsNegative() {
			return fmt.Errorf("account %q has a negative balance", key)
		}
	}
	for i, txn := range s.Transactions {
		if txn.Index != i {
			return fmt.Errorf("transaction at position %d has index %d", i, txn.Index)
		}
	}
	return nil
}

func (s *State) GetAccount(key string) (domain.Account, error) {
	account, ok := s.Accounts[key]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %q: %w", key, domain.ErrNotFound)
	}
	return account.Clone(), nil
}

func (s *State) InsertAccount(account domain.Account) error {
	if _, ok := s.Accounts[account.Key]; ok {
		return fmt.Errorf("account %q: %w", account.Key, domain.ErrConflict)
	}
	s.Accounts[account.Key] = account.Clone()
	return nil
}

func (s *State) PutAccount(account domain.Account) error {
	if _, ok := s.Accounts[account.Key]; !ok {
		return fmt.Errorf("account %q: %w", account.Key, domain.ErrNotFound)
	}
	s.Accounts[account.Key] = account.Clone()
	return nil
}

func (s *State) DeleteAccount(key string) error {
	if _, ok := s.Accounts[key]; !ok {
		return fmt.Errorf("account %q: %w", key, domain.ErrNotFound)
	}
	delete(s.Accounts, key)
	return nil
}

func (s *State) AppendTransaction(txn domain.Transaction) (domain.Transaction, error) {
	txn.Index = len(s.Transactions)
	s.Transactions = append(s.Transactions, txn)
	return txn, nil
}

func (s *State) GetTransaction(index int) (domain.Transaction, error) {
	if index < 0 || index >= len(s.Transactions) {
		return domain.Transaction{}, fmt.Errorf("transaction %d: %w", index, domain.ErrNotFound)
	}
	return s.Transactions[index], nil
}

func (s *State) PutTransaction(txn domain.Transaction) error {
	if txn.Index < 0 || txn.Index >= len(s.Transactions) {
		return fmt.Errorf("transaction %d: %w", txn.Index, domain.ErrNotFound)
	}
	s.Transactions[txn.Index] = txn
	return nil
}

func (s *State) ListTransactions() ([]domain.Transaction, error) {
	out := make([]domain.Transaction, len(s.Transactions))
	copy(out, s.Transactions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
