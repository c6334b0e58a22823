package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*Store)(nil)

// ErrInvalidKey is returned for keys with empty segments or keys that
// collide with an existing table or value.
var ErrInvalidKey = errors.New("invalid config key")

// Store is a TOML settings file.
type Store struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
	tree map[string]any
}

// DefaultPath returns ~/.sercha-sync/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sercha-sync", "config.toml"), nil
}

// Open opens the settings file at path on the OS filesystem.
func Open(path string) (*Store, error) {
	return New(afero.NewOsFs(), path)
}

// New opens the settings file at path on fsys. A missing file is empty.
func New(fsys afero.Fs, path string) (*Store, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	s := &Store{fs: fsys, path: path, tree: map[string]any{}}

	data, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &s.tree); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.tree == nil {
		s.tree = map[string]any{}
	}
	return s, nil
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value under key. Tables are not values.
func (s *Store) Get(key string) (any, bool) {
	parts, err := split(key)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.table(parts[:len(parts)-1], false)
	if !ok {
		return nil, false
	}
	v, ok := table[parts[len(parts)-1]]
	if _, isTable := v.(map[string]any); isTable {
		return nil, false
	}
	return v, ok
}

// Keys lists every stored value key.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			if nested, ok := v.(map[string]any); ok {
				walk(full, nested)
				continue
			}
			keys = append(keys, full)
		}
	}
	walk("", s.tree)
	sort.Strings(keys)
	return keys
}

// Set stores value under key, creating tables as needed, and persists.
func (s *Store) Set(key string, value any) error {
	parts, err := split(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.table(parts[:len(parts)-1], true)
	if !ok {
		return fmt.Errorf("%w: %q is not inside a table", ErrInvalidKey, key)
	}
	last := parts[len(parts)-1]
	if _, isTable := table[last].(map[string]any); isTable {
		return fmt.Errorf("%w: %q is a table", ErrInvalidKey, key)
	}
	table[last] = value
	return s.persist()
}

// Unset removes key, drops tables it leaves empty, and persists.
func (s *Store) Unset(key string) error {
	parts, err := split(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !remove(s.tree, parts) {
		return nil
	}
	return s.persist()
}

// table walks to the table at path, creating missing tables when create is set.
// Caller holds the lock.
func (s *Store) table(path []string, create bool) (map[string]any, bool) {
	m := s.tree
	for _, p := range path {
		next, exists := m[p]
		if !exists {
			if !create {
				return nil, false
			}
			child := map[string]any{}
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, false
		}
		m = child
	}
	return m, true
}

// remove deletes path from m and reports whether anything changed.
func remove(m map[string]any, path []string) bool {
	if len(path) == 1 {
		if _, ok := m[path[0]]; !ok {
			return false
		}
		delete(m, path[0])
		return true
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok || !remove(child, path[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(m, path[0])
	}
	return true
}

// persist writes the tree through a temporary file. Caller holds the lock.
func (s *Store) persist() error {
	data, err := toml.Marshal(s.tree)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func split(key string) ([]string, error) {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return parts, nil
}
