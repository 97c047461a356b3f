package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/tartampluch/go-birthday-bot/internal/atomicfile"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

type stateFile struct {
	SentKeys   []string `json:"sent_keys"`
	LastPruned *string  `json:"last_pruned"`
}

// ErrLocked is returned by Lock when another holder keeps the ledger past
// the wait limit.
var ErrLocked = errors.New(config.ErrStateLocked)

// Store persists a State as JSON.
type Store struct {
	path string

	// LockTimeout bounds how long Lock waits for another holder.
	LockTimeout time.Duration
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path, LockTimeout: config.LedgerLockTimeout}
}

// Lock takes an exclusive advisory lock on the ledger that is shared by
// every process using the same state file, so a one-shot dispatch and a
// running daemon never load the ledger at the same time. The returned
// function releases it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStateLock, err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.LockTimeout)
	defer cancel()

	fl := flock.New(s.path + config.ExtLock)
	ok, err := fl.TryLockContext(lockCtx, config.LedgerLockRetry)
	switch {
	case ok:
		return func() { _ = fl.Unlock() }, nil
	case err == nil, lockCtx.Err() != nil:
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	default:
		return nil, fmt.Errorf("%s: %w", config.ErrStateLock, err)
	}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger. A missing file yields an empty state.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStateRead, err)
	}

	var raw stateFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStateRead, err)
	}

	state := NewState(raw.SentKeys...)
	if raw.LastPruned != nil && *raw.LastPruned != "" {
		if t, err := time.Parse(config.DateFormatISO, *raw.LastPruned); err == nil {
			state.LastPruned = &t
		}
	}
	return state, nil
}

// Save atomically rewrites the ledger with keys in sorted order.
func (s *Store) Save(state *State) error {
	keys := state.Keys()
	slices.Sort(keys)

	raw := stateFile{SentKeys: keys}
	if state.LastPruned != nil {
		v := state.LastPruned.Format(config.DateFormatISO)
		raw.LastPruned = &v
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStateWrite, err)
	}
	if err := atomicfile.WriteFile(s.path, append(data, '\n'), config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStateWrite, err)
	}
	return nil
}
