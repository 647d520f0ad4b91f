// ABOUTME: Test runner for RAGAS benchmarks - indexes each scenario document and asks its questions
// ABOUTME: Records the retrieved chunks per question so context recall can be scored
package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/core"
	"github.com/harper/datachat/internal/loader"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
)

// BenchmarkRunner executes RAGAS benchmark scenarios against the Q&A pipeline
type BenchmarkRunner struct {
	app     *app.App
	metrics *MetricsCalculator
	verbose bool
	out     io.Writer
}

// NewBenchmarkRunner creates a runner over a. Progress goes to out when verbose.
func NewBenchmarkRunner(a *app.App, verbose bool, out io.Writer) *BenchmarkRunner {
	if out == nil {
		out = io.Discard
	}
	return &BenchmarkRunner{
		app:     a,
		metrics: NewMetricsCalculator(),
		verbose: verbose,
		out:     out,
	}
}

// recordingRetriever remembers the chunks of the last query
type recordingRetriever struct {
	inner core.Retriever
	last  []string
}

func (r *recordingRetriever) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	hits, err := r.inner.Query(ctx, text, k)
	r.last = r.last[:0]
	for _, h := range hits {
		r.last = append(r.last, h.Chunk.Content)
	}
	return hits, err
}

// RunTest executes a single scenario. Questions share one session.
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	r.logf("\n========================================\n")
	r.logf("RUNNING: %s\n", scenario.Name)
	r.logf("========================================\n")
	r.logf("Description: %s\n\n", scenario.Description)

	// each scenario gets its own cache namespace
	doc := &loader.Document{Name: "ragas-" + scenario.ID, Text: loader.Normalize(scenario.Document)}
	retriever, err := r.app.Retriever(ctx, doc)
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to index scenario document: %w", err)
	}

	rec := &recordingRetriever{inner: retriever}
	responder := r.app.Responder(rec, 0)
	session := models.NewSession(doc.Name)

	outcomes := make([]QuestionOutcome, 0, len(scenario.Questions))
	for i, q := range scenario.Questions {
		r.logf("[Q%d] %s\n", i+1, q.Text)

		answer, err := responder.Answer(ctx, session, q.Text, core.StreamHandler{})
		if err != nil {
			return TestResult{}, fmt.Errorf("question %d failed: %w", i+1, err)
		}
		r.logf("[A%d] %s\n\n", i+1, truncate(answer, 150))

		outcomes = append(outcomes, QuestionOutcome{
			Question:  q,
			Response:  answer,
			Retrieved: append([]string(nil), rec.last...),
		})
	}

	result := r.metrics.EvaluateTest(scenario, outcomes)

	r.logf("RESULTS: %s\n", scenario.Name)
	r.logf("Faithfulness: %.2f\n", result.FaithfulnessScore)
	r.logf("Context Recall: %.2f\n", result.ContextRecallScore)
	r.logf("Overall Score: %.2f\n", result.OverallScore)
	r.logf("Status: %s\n", result.Status)

	return result, nil
}

// RunAllTests runs every scenario. A scenario that errors is recorded as FAIL
// and the rest still run.
func (r *BenchmarkRunner) RunAllTests(ctx context.Context, scenarios []TestScenario) []TestResult {
	results := make([]TestResult, 0, len(scenarios))
	for _, s := range scenarios {
		result, err := r.RunTest(ctx, s)
		if err != nil {
			result = TestResult{
				TestID:       s.ID,
				TestName:     s.Name,
				Status:       "FAIL",
				ErrorMessage: err.Error(),
			}
		}
		results = append(results, result)
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// ExportResults writes results as JSON to path
func (r *BenchmarkRunner) ExportResults(results []TestResult, path string) error {
	data, err := json.MarshalIndent(map[string]interface{}{
		"results": results,
		"summary": Summarize(results),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// Summary counts results by status
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summarize counts passes and failures
func Summarize(results []TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Status == "PASS" {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

func (r *BenchmarkRunner) logf(format string, args ...interface{}) {
	if r.verbose {
		_, _ = fmt.Fprintf(r.out, format, args...)
	}
}
