// Package kvstore persists named blobs under a namespace directory.
// Writes are staged by SetBlob and become durable on Commit.
package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by GetBlob for a key that was never written
var ErrNotFound = errors.New("kvstore: key not found")

var validKey = regexp.MustCompile(`^[a-z0-9_]{1,15}$`)

// FS is a blob store backed by an afero filesystem
type FS struct {
	fs        afero.Fs
	namespace string

	mu      sync.Mutex
	pending map[string][]byte
}

// New opens (and creates) the namespace directory on fs
func New(fs afero.Fs, namespace string) (*FS, error) {
	if !validKey.MatchString(namespace) {
		return nil, fmt.Errorf("kvstore: invalid namespace %q", namespace)
	}
	if ok, _ := afero.DirExists(fs, namespace); !ok {
		if err := fs.MkdirAll(namespace, 0755); err != nil {
			return nil, fmt.Errorf("kvstore: create namespace: %w", err)
		}
	}
	return &FS{fs: fs, namespace: namespace, pending: map[string][]byte{}}, nil
}

// NewOS opens a namespace below dir on the host filesystem
func NewOS(dir, namespace string) (*FS, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("kvstore: create data dir: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), namespace)
}

func (s *FS) path(key string) string {
	return filepath.Join(s.namespace, key+".bin")
}

// GetBlob returns the staged or committed value of key
func (s *FS) GetBlob(key string) ([]byte, error) {
	if !validKey.MatchString(key) {
		return nil, fmt.Errorf("kvstore: invalid key %q", key)
	}

	s.mu.Lock()
	if data, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return append([]byte(nil), data...), nil
	}
	s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %s: %w", key, err)
	}
	return data, nil
}

// SetBlob stages a value for the next Commit
func (s *FS) SetBlob(key string, data []byte) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("kvstore: invalid key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = append([]byte(nil), data...)
	return nil
}

// Commit writes every staged value. Each key is replaced atomically via a temp file and rename.
// Keys that fail stay staged so a later Commit retries them.
func (s *FS) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if err := s.writeFile(key, s.pending[key]); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(s.pending, key)
	}
	return errors.Join(errs...)
}

func (s *FS) writeFile(key string, data []byte) error {
	final := s.path(key)
	tmp := final + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("kvstore: write %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("kvstore: rename %s: %w", key, err)
	}
	return nil
}
