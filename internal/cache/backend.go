// ABOUTME: Selects the cache storage backend from configuration
// ABOUTME: fs under the cache dir, sqlite file under the cache dir, or charm KV
package cache

import (
	"fmt"
	"path/filepath"

	"github.com/harper/datachat/internal/charm"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/storage"
	"github.com/harper/datachat/internal/storage/sqlite"
)

// OpenBackend opens the backend named by cfg.CacheBackend
func OpenBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.CacheBackend {
	case config.BackendFS, "":
		return storage.NewFSBackend(filepath.Join(cfg.CacheDir, "embeddings"))
	case config.BackendSQLite:
		return sqlite.Open(filepath.Join(cfg.CacheDir, "embeddings.db"))
	case config.BackendCharm:
		return charm.NewClient(&charm.Config{
			Host:     cfg.CharmHost,
			DBName:   "datachat",
			AutoSync: cfg.AutoSync,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
