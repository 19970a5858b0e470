// Package state persists small pieces of pipeline runtime state (the
// alert gate's last-fired instant, the latest snapshot) as JSON files so
// they survive process restarts. Every write is atomic: the value is
// written to a temp file and renamed into place, so a reader never
// observes a half-written entry.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Store is a flat directory of JSON state files, one per key.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a state store at the given directory, creating it
// with 0700 permissions if it does not exist.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("state: create directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// keyPath returns the filesystem path for a state key.
func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the value stored under key into v. It returns false if no
// value exists. A corrupted entry is removed and treated as absent;
// state is best-effort and must never wedge startup.
func (s *Store) Load(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("state: read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		if s.logger != nil {
			s.logger.Warn("state: removing corrupted entry", "key", key, "error", err)
		}
		_ = os.Remove(s.keyPath(key))
		return false, nil
	}

	return true, nil
}

// Save writes v under key with an atomic write (temp file, then rename)
// so concurrent readers never see a partial entry.
func (s *Store) Save(key string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("state: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("state: chmod temp for %s: %w", key, err)
	}

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("state: write temp for %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp for %s: %w", key, err)
	}

	if err := os.Rename(tmpName, s.keyPath(key)); err != nil {
		return fmt.Errorf("state: rename temp for %s: %w", key, err)
	}

	success = true
	return nil
}

// Age returns how old a state entry is based on file modification time,
// or 0 if the entry does not exist.
func (s *Store) Age(key string) time.Duration {
	info, err := os.Stat(s.keyPath(key))
	if err != nil {
		return 0
	}
	return time.Since(info.ModTime())
}
