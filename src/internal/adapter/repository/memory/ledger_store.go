package memory

import (
	"context"
	"sync"

	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/snapshot"
	"github.com/api-sage/stable-wallet/src/internal/domain"
)

// LedgerStore keeps the ledger in process memory. Mutations run against a clone that
// replaces the live state only when the callback succeeds.
type LedgerStore struct {
	mu    sync.RWMutex
	state *snapshot.State
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{state: snapshot.NewState()}
}

func (s *LedgerStore) Update(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.Clone()
	if err := fn(working); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *LedgerStore) View(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.state.Clone()
	s.mu.RUnlock()

	return fn(working)
}

func (s *LedgerStore) Close() error {
	return nil
}
