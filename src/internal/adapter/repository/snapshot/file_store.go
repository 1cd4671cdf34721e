package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
)

// FileStore keeps the ledger as one JSON document. The whole snapshot is read before each
// operation and rewritten after each successful mutation; the mutex around load-mutate-save
// is the critical section.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ domain.LedgerStore = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create snapshot directory: %v", domain.ErrStorage, err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Update(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}

	if err := fn(state); err != nil {
		return err
	}

	return s.save(state)
}

func (s *FileStore) View(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	state, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	return fn(state)
}

func (s *FileStore) Close() error {
	return nil
}

// load treats a missing file as a fresh ledger. Anything unreadable is a storage failure
// and is never replaced by an empty state.
func (s *FileStore) load() (*State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewState(), nil
		}
		logger.Error("snapshot store read failed", err, logger.Fields{"path": s.path})
		return nil, fmt.Errorf("%w: read snapshot %q: %v", domain.ErrStorage, s.path, err)
	}

	state := NewState()
	if err := json.Unmarshal(raw, state); err != nil {
		logger.Error("snapshot store decode failed", err, logger.Fields{"path": s.path})
		return nil, fmt.Errorf("%w: decode snapshot %q: %v", domain.ErrStorage, s.path, err)
	}
	if err := state.Check(); err != nil {
		logger.Error("snapshot store integrity check failed", err, logger.Fields{"path": s.path})
		return nil, fmt.Errorf("%w: snapshot %q: %v", domain.ErrStorage, s.path, err)
	}
	if state.Transactions == nil {
		state.Transactions = []domain.Transaction{}
	}

	return state, nil
}

func (s *FileStore) save(state *State) error {
	raw, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", domain.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp snapshot: %v", domain.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write snapshot: %v", domain.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync snapshot: %v", domain.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close snapshot: %v", domain.ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		logger.Error("snapshot store rename failed", err, logger.Fields{"path": s.path})
		return fmt.Errorf("%w: replace snapshot: %v", domain.ErrStorage, err)
	}

	return nil
}
