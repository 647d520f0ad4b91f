// ABOUTME: Chunk retriever: embeds chunks through the cache and answers top-k queries
// ABOUTME: Results are returned best first as chunks with their scores
package index

import (
	"context"
	"fmt"

	"github.com/harper/datachat/internal/models"
)

// DefaultK is the number of chunks returned when the caller asks for k <= 0
const DefaultK = 4

// ChunkEmbedder is the subset of the embedding cache the retriever needs
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []models.Chunk) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Retriever ranks the chunks of one document against a query
type Retriever struct {
	embedder ChunkEmbedder
	chunks   []models.Chunk
	idx      Index
}

// NewRetriever creates an empty retriever
func NewRetriever(embedder ChunkEmbedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Build embeds every chunk and rebuilds the index from scratch
func (r *Retriever) Build(ctx context.Context, chunks []models.Chunk) error {
	vecs, err := r.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return err
	}

	ids := make([]int, len(chunks))
	for i := range chunks {
		ids[i] = i
	}
	if err := r.idx.Build(ids, vecs); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	r.chunks = make([]models.Chunk, len(chunks))
	copy(r.chunks, chunks)
	return nil
}

// Len returns the number of indexed chunks
func (r *Retriever) Len() int {
	return len(r.chunks)
}

// Query returns the k chunks most similar to text, best first
func (r *Retriever) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultK
	}
	if len(r.chunks) == 0 {
		return nil, nil
	}

	q, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := r.idx.Search(q, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	out := make([]models.ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = models.ScoredChunk{Chunk: r.chunks[h.ID], Score: h.Score}
	}
	return out, nil
}
