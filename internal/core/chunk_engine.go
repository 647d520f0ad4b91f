// ABOUTME: ChunkEngine splits loaded text into ordered, size-bounded, overlapping chunks
// ABOUTME: Splits paragraph → line → sentence → word, then merges back up to the size limit
package core

import (
	"fmt"
	"strings"

	"github.com/harper/datachat/internal/models"
)

// charsPerToken approximates token counts without a tokenizer
const charsPerToken = 4

// ChunkEngine handles hierarchical text chunking
type ChunkEngine struct {
	// ChunkSize and Overlap are measured in approximate tokens
	ChunkSize int
	Overlap   int
	// StripNewlines joins lines inside a chunk with spaces
	StripNewlines bool
}

// NewChunkEngine creates a new ChunkEngine instance
func NewChunkEngine(chunkSize, overlap int) *ChunkEngine {
	return &ChunkEngine{ChunkSize: chunkSize, Overlap: overlap}
}

// Split chunks text in source order, numbering chunks from zero
func (ce *ChunkEngine) Split(text string) ([]models.Chunk, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text to chunk", models.ErrUnsupportedInput)
	}
	if ce.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", ce.ChunkSize)
	}

	maxChars := ce.ChunkSize * charsPerToken
	overlapChars := ce.Overlap * charsPerToken
	if overlapChars >= maxChars {
		overlapChars = maxChars / 4
	}

	texts := mergeWithOverlap(splitRecursive(text, maxChars), maxChars, overlapChars)
	if ce.StripNewlines {
		for i, t := range texts {
			texts[i] = strings.Join(strings.Fields(t), " ")
		}
	}
	return models.NewChunks(texts), nil
}

func splitRecursive(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	for _, split := range []func(string) []string{splitParagraphs, splitLines, splitSentences} {
		parts := split(text)
		if len(parts) > 1 {
			var out []string
			for _, p := range parts {
				out = append(out, splitRecursive(p, maxChars)...)
			}
			return out
		}
	}
	return splitWords(text, maxChars)
}

// splitParagraphs splits text by double newlines
func splitParagraphs(text string) []string {
	return strings.Split(text, "\n\n")
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// splitSentences splits text by ". " (period + space)
func splitSentences(text string) []string {
	sentences := strings.Split(text, ". ")

	var result []string
	for i, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}

		// Add back the period (except for the last sentence which might already have it)
		if i < len(sentences)-1 && !strings.HasSuffix(sent, ".") {
			sent = sent + "."
		}

		result = append(result, sent)
	}

	return result
}

// splitWords packs words greedily; a single word longer than maxChars is cut
func splitWords(text string, maxChars int) []string {
	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, word := range strings.Fields(text) {
		if len(word) > maxChars {
			flush()
			runes := []rune(word)
			for len(runes) > 0 {
				n := 0
				size := 0
				for n < len(runes) && size+len(string(runes[n])) <= maxChars {
					size += len(string(runes[n]))
					n++
				}
				if n == 0 {
					n = 1
				}
				segments = append(segments, string(runes[:n]))
				runes = runes[n:]
			}
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	flush()

	return segments
}

// mergeWithOverlap packs segments into chunks of at most maxChars, seeding
// each new chunk with the tail of the previous one
func mergeWithOverlap(segments []string, maxChars, overlapChars int) []string {
	var chunks []string
	var current strings.Builder

	for _, seg := range segments {
		needed := len(seg)
		if current.Len() > 0 {
			needed = current.Len() + 1 + len(seg)
		}

		if needed <= maxChars {
			if current.Len() > 0 {
				current.WriteByte('\n')
			}
			current.WriteString(seg)
			continue
		}

		if current.Len() > 0 {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()

			overlap := overlapSuffix(chunk, overlapChars)
			if overlap != "" && len(overlap)+1+len(seg) <= maxChars {
				current.WriteString(overlap)
				current.WriteByte('\n')
			}
		}
		current.WriteString(seg)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// overlapSuffix returns at most n trailing bytes of text, starting on a word
func overlapSuffix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	suffix := text[len(text)-n:]
	if idx := strings.IndexAny(suffix, " \n"); idx >= 0 {
		return strings.TrimSpace(suffix[idx+1:])
	}
	return ""
}
