// ABOUTME: Tests for the incremental refine summarizer
// ABOUTME: Covers fold order, progress reporting, idempotent reruns and all-or-nothing persistence
package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/datachat/internal/models"
)

func TestSummarize_RefineOrder(t *testing.T) {
	fc := newFakeCompleter()
	s := NewSummarizer(fc, nil)

	var progress [][2]int
	got, err := s.Summarize(context.Background(), models.NewChunks([]string{"c0", "c1", "c2"}), "", func(i, n int) {
		progress = append(progress, [2]int{i, n})
	})
	if err != nil {
		t.Fatalf("Summarize() failed: %v", err)
	}

	if want := "R(R(S(c0)+c1)+c2)"; got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
	if fc.Calls() != 3 {
		t.Errorf("calls = %d, want 3", fc.Calls())
	}
	if len(progress) != 2 || progress[0] != [2]int{1, 2} || progress[1] != [2]int{2, 2} {
		t.Errorf("progress = %v, want [[1 2] [2 2]]", progress)
	}

	// the second refine sees the first refine's output
	second := fc.prompts[2][0].Content
	if !strings.Contains(second, "R(S(c0)+c1)") || !strings.Contains(second, "c2") {
		t.Errorf("third prompt = %q", second)
	}
}

func TestSummarize_ProgressBeforeCall(t *testing.T) {
	fc := newFakeCompleter()
	s := NewSummarizer(fc, nil)

	var callsAtProgress []int
	_, err := s.Summarize(context.Background(), models.NewChunks([]string{"a", "b", "c"}), "", func(i, n int) {
		callsAtProgress = append(callsAtProgress, fc.Calls())
	})
	if err != nil {
		t.Fatal(err)
	}
	// before refine 1 only the seed ran, before refine 2 seed + refine 1
	if len(callsAtProgress) != 2 || callsAtProgress[0] != 1 || callsAtProgress[1] != 2 {
		t.Errorf("calls seen by progress hook = %v, want [1 2]", callsAtProgress)
	}
}

func TestSummarize_SingleChunkIsSeedOnly(t *testing.T) {
	fc := newFakeCompleter()
	s := NewSummarizer(fc, nil)

	called := false
	got, err := s.Summarize(context.Background(), models.NewChunks([]string{"only"}), "", func(i, n int) { called = true })
	if err != nil {
		t.Fatal(err)
	}
	if got != "S(only)" {
		t.Errorf("Summarize() = %q", got)
	}
	if called {
		t.Error("progress hook should not run without refine steps")
	}
}

func TestSummarize_Deterministic(t *testing.T) {
	chunks := models.NewChunks([]string{"x", "y", "z", "w"})

	a, _ := NewSummarizer(newFakeCompleter(), nil).Summarize(context.Background(), chunks, "", nil)
	b, _ := NewSummarizer(newFakeCompleter(), nil).Summarize(context.Background(), chunks, "", nil)
	if a != b {
		t.Errorf("runs differ: %q vs %q", a, b)
	}
}

func TestSummarize_PersistsAndSkipsRerun(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "meeting_summary.txt")
	chunks := models.NewChunks([]string{"c0", "c1"})

	fc := newFakeCompleter()
	first, err := NewSummarizer(fc, nil).Summarize(context.Background(), chunks, dest, nil)
	if err != nil {
		t.Fatalf("Summarize() failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	if string(data) != first {
		t.Errorf("file = %q, want %q", data, first)
	}

	fc2 := newFakeCompleter()
	second, err := NewSummarizer(fc2, nil).Summarize(context.Background(), chunks, dest, nil)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if fc2.Calls() != 0 {
		t.Errorf("rerun made %d calls, want 0", fc2.Calls())
	}
	if second != first {
		t.Errorf("rerun = %q, want %q", second, first)
	}
}

func TestSummarize_FailureAtIndex(t *testing.T) {
	tests := []struct {
		name    string
		failAt  int
		atIndex int
	}{
		{"seed fails", 0, 0},
		{"first refine fails", 1, 1},
		{"last refine fails", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "summary.txt")
			fc := newFakeCompleter()
			fc.failAt = tt.failAt

			_, err := NewSummarizer(fc, nil).Summarize(context.Background(), models.NewChunks([]string{"a", "b", "c"}), dest, nil)
			if !errors.Is(err, models.ErrSummarizationFailed) {
				t.Fatalf("error = %v, want ErrSummarizationFailed", err)
			}
			if !errors.Is(err, errFake) {
				t.Errorf("error = %v should unwrap to the cause", err)
			}
			var sfe *models.SummarizationFailedError
			if !errors.As(err, &sfe) || sfe.AtIndex != tt.atIndex {
				t.Errorf("AtIndex = %v, want %d", sfe, tt.atIndex)
			}
			if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
				t.Error("summary file written despite failure")
			}
		})
	}
}

func TestSummarize_CancelledContext(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "summary.txt")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSummarizer(newFakeCompleter(), nil)
	_, err := s.Summarize(ctx, models.NewChunks([]string{"a", "b", "c"}), dest, func(i, n int) {
		if i == 1 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	var sfe *models.SummarizationFailedError
	if errors.As(err, &sfe) && sfe.AtIndex != 2 {
		t.Errorf("AtIndex = %d, want 2", sfe.AtIndex)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("summary file written after cancellation")
	}
}

func TestSummarize_EmptyInput(t *testing.T) {
	_, err := NewSummarizer(newFakeCompleter(), nil).Summarize(context.Background(), nil, "", nil)
	if !errors.Is(err, models.ErrUnsupportedInput) {
		t.Errorf("error = %v, want ErrUnsupportedInput", err)
	}
}

func TestSummarize_OnStepSeesEveryState(t *testing.T) {
	s := NewSummarizer(newFakeCompleter(), nil)
	var seen []models.SummaryState
	s.OnStep = func(index int, state models.SummaryState) {
		seen = append(seen, state)
	}

	_, err := s.Summarize(context.Background(), models.NewChunks([]string{"a", "b"}), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("OnStep called %d times, want 2", len(seen))
	}
	if seen[0].ChunksProcessed != 1 || seen[1].ChunksProcessed != 2 {
		t.Errorf("ChunksProcessed = %d, %d", seen[0].ChunksProcessed, seen[1].ChunksProcessed)
	}
	if seen[1].Text != "R(S(a)+b)" {
		t.Errorf("final state = %q", seen[1].Text)
	}
}
