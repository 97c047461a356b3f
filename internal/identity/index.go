package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/tartampluch/go-birthday-bot/internal/atomicfile"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// indexFile is the on-disk layout of the identity index.
type indexFile struct {
	Version int                        `json:"version"`
	Buckets map[string]json.RawMessage `json:"buckets"`
}

// IndexStore persists Buckets as a versioned JSON document.
// AssignAndPersist calls are serialized so concurrent callers never mint
// two ids for the same new record.
type IndexStore struct {
	mu       sync.Mutex
	path     string
	resolver Resolver
}

// NewIndexStore returns a store backed by the file at path.
func NewIndexStore(path string, resolver Resolver) *IndexStore {
	return &IndexStore{path: path, resolver: resolver}
}

// Path returns the backing file location.
func (s *IndexStore) Path() string {
	return s.path
}

// Load reads the index. A missing file yields empty buckets; buckets that
// are not lists of non-empty strings are dropped with a warning.
func (s *IndexStore) Load() (Buckets, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Buckets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrIndexRead, err)
	}

	var raw indexFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrIndexRead, err)
	}

	buckets := make(Buckets, len(raw.Buckets))
	for key, value := range raw.Buckets {
		var ids []string
		if err := json.Unmarshal(value, &ids); err != nil || !allNonEmpty(ids) {
			slog.Warn(config.MsgIndexCorrupt,
				config.LogKeyComponent, config.CompIdentity,
				config.LogKeyPath, s.path,
				config.LogKeyKey, key,
			)
			continue
		}
		buckets[key] = ids
	}
	return buckets, nil
}

// Save rewrites the index atomically. encoding/json sorts map keys, so the
// output is stable for equal buckets.
func (s *IndexStore) Save(buckets Buckets) error {
	if buckets == nil {
		buckets = Buckets{}
	}
	doc := struct {
		Version int     `json:"version"`
		Buckets Buckets `json:"buckets"`
	}{Version: config.IndexFileVersion, Buckets: buckets}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrIndexWrite, err)
	}
	if err := atomicfile.WriteFile(s.path, append(data, '\n'), config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrIndexWrite, err)
	}
	return nil
}

// AssignAndPersist resolves ids for records against the stored index and
// saves the result. The returned ids are in record order.
func (s *IndexStore) AssignAndPersist(records []engine.Record) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Load()
	if err != nil {
		return nil, err
	}
	res := s.resolver.Resolve(records, existing)
	if err := s.Save(res.Buckets); err != nil {
		return nil, err
	}
	return res.IDs, nil
}

func allNonEmpty(ids []string) bool {
	for _, id := range ids {
		if id == "" {
			return false
		}
	}
	return true
}
