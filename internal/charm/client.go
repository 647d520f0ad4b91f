// ABOUTME: Charm KV client wrapper for the cloud-synced embedding cache backend
// ABOUTME: Namespaces are key prefixes inside one charm KV database
package charm

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"

	"github.com/harper/datachat/internal/storage"
)

// EmbeddingPrefix prefixes every cache key: embedding:<namespace>:<key>
const EmbeddingPrefix = "embedding:"

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// DefaultConfig returns default configuration for charm client
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = "cloud.charm.sh"
	}
	return &Config{
		Host:     host,
		DBName:   "datachat",
		AutoSync: false,
	}
}

// Client wraps charm KV and implements storage.Backend
type Client struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex
}

// NewClient creates a new charm client with the given config
func NewClient(cfg *Config) (*Client, error) {
	// charm reads its host from the environment
	os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
	}

	// Pull remote data on startup
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return c, nil
}

// Close closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv != nil {
		err := c.kv.Close()
		c.kv = nil
		return err
	}
	return nil
}

// syncIfEnabled syncs to cloud after writes
func (c *Client) syncIfEnabled() {
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
}

// ID returns the charm user ID
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// Sync manually triggers a sync with the cloud
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// Open returns the store for namespace
func (c *Client) Open(namespace string) (storage.Store, error) {
	return &nsStore{c: c, prefix: NamespacePrefix(storage.NamespaceFor(namespace))}, nil
}

// Namespaces lists namespaces present in the database
func (c *Client) Namespaces() ([]string, error) {
	keys, err := c.listKeys(EmbeddingPrefix)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, EmbeddingPrefix)
		ns, _, ok := strings.Cut(rest, ":")
		if !ok || seen[ns] {
			continue
		}
		seen[ns] = true
		out = append(out, ns)
	}
	sort.Strings(out)
	return out, nil
}

func (c *Client) listKeys(prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var result []string
	for _, key := range keys {
		keyStr := string(key)
		if strings.HasPrefix(keyStr, prefix) {
			result = append(result, keyStr)
		}
	}
	return result, nil
}

// NamespacePrefix returns the key prefix for one namespace
func NamespacePrefix(namespace string) string {
	return EmbeddingPrefix + namespace + ":"
}

type nsStore struct {
	c      *Client
	prefix string
}

func (s *nsStore) Get(key string) ([]byte, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	data, err := s.c.kv.Get([]byte(s.prefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && data == nil) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

func (s *nsStore) Set(key string, value []byte) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if err := s.c.kv.Set([]byte(s.prefix+key), value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	s.c.syncIfEnabled()
	return nil
}

func (s *nsStore) Keys() ([]string, error) {
	full, err := s.c.listKeys(s.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(full))
	for i, k := range full {
		keys[i] = strings.TrimPrefix(k, s.prefix)
	}
	return keys, nil
}

func (s *nsStore) Clear() error {
	full, err := s.c.listKeys(s.prefix)
	if err != nil {
		return err
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	for _, k := range full {
		if err := s.c.kv.Delete([]byte(k)); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", k, err)
		}
	}
	s.c.syncIfEnabled()
	return nil
}
