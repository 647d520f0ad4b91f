// ABOUTME: Error taxonomy shared by loaders, caches, summarizer and responder
// ABOUTME: Sentinels are wrapped with %w so callers can test with errors.Is
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable marks any failed call to an external service
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrEmbeddingUnavailable marks a failed embedding call. It also matches
	// ErrServiceUnavailable.
	ErrEmbeddingUnavailable = fmt.Errorf("embedding unavailable: %w", ErrServiceUnavailable)

	// ErrUnsupportedInput marks a file type or content the loader cannot parse
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrSummarizationFailed marks an aborted summarization fold
	ErrSummarizationFailed = errors.New("summarization failed")
)

// SummarizationFailedError reports the chunk index at which a fold aborted.
// Index 0 is the seed step.
type SummarizationFailedError struct {
	AtIndex int
	Err     error
}

func (e *SummarizationFailedError) Error() string {
	return fmt.Sprintf("summarization failed at chunk %d: %v", e.AtIndex, e.Err)
}

func (e *SummarizationFailedError) Unwrap() []error {
	return []error{ErrSummarizationFailed, e.Err}
}
