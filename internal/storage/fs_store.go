// ABOUTME: Filesystem backend: one directory per namespace, one file per key
// ABOUTME: Values are written atomically so a crash never leaves a partial entry
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harper/datachat/internal/util"
)

// FSBackend stores namespaces as subdirectories of Root
type FSBackend struct {
	Root string
}

// NewFSBackend creates the root directory if needed
func NewFSBackend(root string) (*FSBackend, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FSBackend{Root: root}, nil
}

// Open returns the store for namespace, creating its directory
func (b *FSBackend) Open(namespace string) (Store, error) {
	dir := filepath.Join(b.Root, NamespaceFor(namespace))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create namespace directory: %w", err)
	}
	return &fsStore{dir: dir}, nil
}

// Namespaces lists namespace directories in name order
func (b *FSBackend) Namespaces() ([]string, error) {
	entries, err := os.ReadDir(b.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op for the filesystem backend
func (b *FSBackend) Close() error { return nil }

type fsStore struct {
	dir string
}

func (s *fsStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *fsStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *fsStore) Set(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(p, value, 0644)
}

func (s *fsStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		// temp files from in-flight writes start with a dot
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (s *fsStore) Clear() error {
	return os.RemoveAll(s.dir)
}
