package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scoregate/scoregate/internal/core/domain"
)

// FileStore is the durable tier: one JSON file per artifact under a root
// directory. Entries never expire; the TTL argument to Set is ignored.
type FileStore struct {
	dir string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// safeKey maps a cache key to a filesystem-safe file name.
func safeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".json"
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, safeKey(key))
}

func (f *FileStore) Get(_ context.Context, key string) (Entry, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return Entry{}, domain.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read artifact %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode artifact %s: %w", key, err)
	}
	return e, nil
}

// Set writes the artifact atomically via a temp file rename.
func (f *FileStore) Set(_ context.Context, key string, payload []byte, _ time.Duration) error {
	data, err := json.Marshal(Entry{Payload: payload, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename artifact %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(f.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat artifact %s: %w", key, err)
	}
	return true, nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
