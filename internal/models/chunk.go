// ABOUTME: Chunk represents a bounded slice of source text produced by the loader
// ABOUTME: Chunks are content-addressed by a sha256 key used for embedding caching
package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Chunk is an immutable fragment of a loaded document. SequenceIndex preserves
// the loader's order, which matters for summarization but not for retrieval.
type Chunk struct {
	Content       string `json:"content"`
	SequenceIndex int    `json:"sequence_index"`
}

// Key returns the content address of the chunk. Two chunks with identical
// content share a key regardless of their position.
func (c Chunk) Key() string {
	return ContentKey(c.Content)
}

// ContentKey hashes arbitrary text into a stable hex key
func ContentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewChunks wraps ordered texts into chunks, numbering them from zero
func NewChunks(texts []string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{Content: text, SequenceIndex: i}
	}
	return chunks
}

// Contents returns the text of each chunk in order
func Contents(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
