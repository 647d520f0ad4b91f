// ABOUTME: Content-addressed, namespaced, persistent embedding cache
// ABOUTME: Each unique chunk text is embedded at most once per namespace
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/storage"
)

// EmbeddingCache wraps an Embedder with a persistent store keyed by content hash
type EmbeddingCache struct {
	store     storage.Store
	embedder  llm.Embedder
	namespace string
	logger    *log.Logger

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// New opens namespace on backend and returns a cache over it
func New(backend storage.Backend, namespace string, embedder llm.Embedder, logger *log.Logger) (*EmbeddingCache, error) {
	ns := storage.NamespaceFor(namespace)
	store, err := backend.Open(ns)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache namespace %s: %w", ns, err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &EmbeddingCache{
		store:     store,
		embedder:  embedder,
		namespace: ns,
		logger:    logger,
	}, nil
}

// Namespace returns the sanitized namespace this cache writes to
func (c *EmbeddingCache) Namespace() string {
	return c.namespace
}

// Stats returns hit and miss counts since creation
func (c *EmbeddingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// GetOrCompute returns the stored vector for chunk, computing and storing it
// on a miss. A failed computation stores nothing.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, chunk models.Chunk) ([]float64, error) {
	key := chunk.Key()

	if vec, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return vec, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if vec, ok := c.lookup(key); ok {
			c.hits.Add(1)
			return vec, nil
		}
		c.misses.Add(1)

		vec, err := c.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", models.ErrEmbeddingUnavailable, chunk.SequenceIndex, err)
		}

		c.persist(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

func (c *EmbeddingCache) lookup(key string) ([]float64, bool) {
	data, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("cache read failed", "namespace", c.namespace, "key", key, "err", err)
		}
		return nil, false
	}

	var rec models.EmbeddingRecord
	if err := json.Unmarshal(data, &rec); err != nil || len(rec.Vector) == 0 {
		c.logger.Warn("discarding unreadable cache entry", "namespace", c.namespace, "key", key)
		return nil, false
	}
	// vectors from another model are not comparable with ours
	if rec.Model != "" && rec.Model != c.embedder.EmbeddingModel() {
		c.logger.Debug("cache entry from different model", "key", key, "model", rec.Model)
		return nil, false
	}
	return rec.Vector, true
}

func (c *EmbeddingCache) persist(key string, vec []float64) {
	rec := models.EmbeddingRecord{
		ChunkKey:  key,
		Vector:    vec,
		Model:     c.embedder.EmbeddingModel(),
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn("failed to encode embedding", "key", key, "err", err)
		return
	}
	if err := c.store.Set(key, data); err != nil {
		// the vector is still valid for this run
		c.logger.Warn("failed to store embedding", "namespace", c.namespace, "key", key, "err", err)
	}
}

// EmbedChunks embeds chunks in order through the cache
func (c *EmbeddingCache) EmbedChunks(ctx context.Context, chunks []models.Chunk) ([][]float64, error) {
	vecs := make([][]float64, len(chunks))
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := c.GetOrCompute(ctx, ch)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	hits, misses := c.Stats()
	c.logger.Debug("embedded chunks", "namespace", c.namespace, "chunks", len(chunks), "hits", hits, "misses", misses)
	return vecs, nil
}

// EmbedQuery embeds a question. Queries are not cached.
func (c *EmbeddingCache) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", models.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}
