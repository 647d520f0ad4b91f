// ABOUTME: SummaryState tracks the running summary of a refine fold
// ABOUTME: Created by the seed step and advanced by each refine step
package models

// SummaryState is the accumulator of the refine summarization fold
type SummaryState struct {
	Text            string `json:"text"`
	ChunksProcessed int    `json:"chunks_processed"`
}

// Advance returns the state after one more chunk has been folded in
func (s SummaryState) Advance(text string) SummaryState {
	return SummaryState{Text: text, ChunksProcessed: s.ChunksProcessed + 1}
}
