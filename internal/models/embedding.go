// ABOUTME: Embedding models for the content-addressed embedding cache
// ABOUTME: Defines EmbeddingRecord and the scored search result returned by the index
package models

import "time"

// EmbeddingRecord is the persisted form of one chunk embedding. It is written
// once per unique chunk content within a namespace and never mutated.
type EmbeddingRecord struct {
	ChunkKey  string    `json:"chunk_key"`
	Vector    []float64 `json:"vector"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk pairs a retrieved chunk with its cosine similarity to the query
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
