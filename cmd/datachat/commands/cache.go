// ABOUTME: cache command group for the embedding cache
// ABOUTME: Shows per-namespace entry counts, clears a namespace and syncs the charm backend
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/cache"
	"github.com/harper/datachat/internal/charm"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/storage"
)

// NewCacheCmd creates the cache command group
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the embedding cache",
		Long: `Inspect and manage the embedding cache.

Every chunk embedding is stored under the namespace of the document,
site or meeting it came from, keyed by a hash of the chunk text. The
backend is chosen with CACHE_BACKEND: fs (files under the cache dir),
sqlite (a local SQLite database) or charm (Charm cloud KV, synced across
devices).`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCacheSyncCmd())
	return cmd
}

type namespaceStats struct {
	Namespace string `json:"namespace"`
	Entries   int    `json:"entries"`
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached embeddings per namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			cfg, backend, err := openBackend()
			if err != nil {
				return err
			}
			defer backend.Close()

			stats, err := collectStats(backend)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\n", cfg.CacheBackend)
			if len(stats) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}
			total := 0
			for _, s := range stats {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %6d\n", truncate(s.Namespace, 40), s.Entries)
				total += s.Entries
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Total: %d embeddings in %d namespaces\n", total, len(stats))
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <namespace>",
		Short: "Delete every cached embedding in a namespace",
		Long: `Delete every cached embedding in a namespace.

The namespace is the document file name, the site host and path, or
meeting:<name> for a meeting. Names with other characters are stored under a
sanitized form with a short hash; either form is accepted. Use
'datachat cache stats' to list them.`,
		Example: `  datachat cache clear report.pdf
  datachat cache clear meeting:standup`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, backend, err := openBackend()
			if err != nil {
				return err
			}
			defer backend.Close()

			ns := storage.NamespaceFor(args[0])
			store, err := backend.Open(ns)
			if err != nil {
				return err
			}
			keys, err := store.Keys()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear %s: %w", ns, err)
			}
			if !quiet {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d embeddings from %s\n", len(keys), ns)
			}
			return nil
		},
	}
}

func newCacheSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the charm cache backend with Charm cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.CacheBackend != config.BackendCharm {
				return fmt.Errorf("sync needs CACHE_BACKEND=charm, current backend is %s", cfg.CacheBackend)
			}

			ccfg := charm.DefaultConfig()
			ccfg.Host = cfg.CharmHost
			client, err := charm.NewClient(ccfg)
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer client.Close()

			if id, err := client.ID(); err == nil && !quiet {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User ID: %s\n", id)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}

func openBackend() (*config.Config, storage.Backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	backend, err := cache.OpenBackend(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s cache: %w", cfg.CacheBackend, err)
	}
	return cfg, backend, nil
}

// collectStats counts entries in every namespace
func collectStats(backend storage.Backend) ([]namespaceStats, error) {
	namespaces, err := backend.Namespaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	stats := make([]namespaceStats, 0, len(namespaces))
	for _, ns := range namespaces {
		store, err := backend.Open(ns)
		if err != nil {
			return nil, err
		}
		keys, err := store.Keys()
		if err != nil {
			return nil, err
		}
		stats = append(stats, namespaceStats{Namespace: ns, Entries: len(keys)})
	}
	return stats, nil
}
