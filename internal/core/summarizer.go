// ABOUTME: Incremental refine summarizer: seed on the first chunk, refine with each later chunk
// ABOUTME: The final summary is persisted atomically and reused on later runs
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
)

// ProgressFunc is called before refine step i of n (1-based)
type ProgressFunc func(i, n int)

// StepFunc observes the running summary after each step; index 0 is the seed
type StepFunc func(index int, state models.SummaryState)

// Summarizer folds chunks into a single summary
type Summarizer struct {
	completer llm.Completer
	logger    *log.Logger

	// OnStep, if set, sees every intermediate summary
	OnStep StepFunc
}

// NewSummarizer creates a Summarizer
func NewSummarizer(completer llm.Completer, logger *log.Logger) *Summarizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Summarizer{completer: completer, logger: logger}
}

// Summarize returns the summary for chunks and writes it to destPath.
//
// If destPath already exists its content is returned without any completion
// calls. Any failure aborts the fold with a *models.SummarizationFailedError
// and leaves destPath untouched. An empty destPath disables persistence.
func (s *Summarizer) Summarize(ctx context.Context, chunks []models.Chunk, destPath string, progress ProgressFunc) (string, error) {
	if destPath != "" && util.FileExists(destPath) {
		data, err := os.ReadFile(destPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing summary: %w", err)
		}
		s.logger.Info("summary exists, skipping", "path", destPath)
		return string(data), nil
	}

	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: nothing to summarize", models.ErrUnsupportedInput)
	}

	state, err := s.fold(ctx, chunks, progress)
	if err != nil {
		return "", err
	}

	if destPath != "" {
		if err := util.WriteFileAtomic(destPath, []byte(state.Text), 0644); err != nil {
			return "", fmt.Errorf("failed to write summary: %w", err)
		}
		s.logger.Info("summary written", "path", destPath, "chunks", state.ChunksProcessed)
	}
	return state.Text, nil
}

func (s *Summarizer) fold(ctx context.Context, chunks []models.Chunk, progress ProgressFunc) (models.SummaryState, error) {
	if err := ctx.Err(); err != nil {
		return models.SummaryState{}, &models.SummarizationFailedError{AtIndex: 0, Err: err}
	}

	text, err := s.completer.Complete(ctx, SeedPrompt(chunks[0].Content))
	if err != nil {
		return models.SummaryState{}, &models.SummarizationFailedError{AtIndex: 0, Err: err}
	}
	state := models.SummaryState{Text: text, ChunksProcessed: 1}
	s.step(0, state)

	n := len(chunks) - 1
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return models.SummaryState{}, &models.SummarizationFailedError{AtIndex: i, Err: err}
		}
		if progress != nil {
			progress(i, n)
		}

		text, err := s.completer.Complete(ctx, RefinePrompt(state.Text, chunks[i].Content))
		if err != nil {
			return models.SummaryState{}, &models.SummarizationFailedError{AtIndex: i, Err: err}
		}
		state = state.Advance(text)
		s.step(i, state)
	}

	return state, nil
}

func (s *Summarizer) step(index int, state models.SummaryState) {
	s.logger.Debug("summary step", "index", index, "chars", len(state.Text))
	if s.OnStep != nil {
		s.OnStep(index, state)
	}
}
