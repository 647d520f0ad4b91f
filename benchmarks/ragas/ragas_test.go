// ABOUTME: Tests for RAGAS metrics and the benchmark runner
// ABOUTME: The runner is driven by a keyword provider so scores are deterministic
package ragas

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/storage"
)

func TestCalculateFaithfulness(t *testing.T) {
	m := NewMetricsCalculator()
	tests := []struct {
		name      string
		response  string
		expected  []string
		forbidden []string
		want      float64
	}{
		{"all present", "Up to THREE days.", []string{"three"}, nil, 1.0},
		{"missing", "Two days.", []string{"three"}, nil, 0.5},
		{"forbidden", "three, or 30 euros", []string{"three"}, []string{"30 euros"}, 0.5},
		{"both wrong", "30 euros", []string{"60"}, []string{"30 euros"}, 0.0},
		{"nothing required", "anything", nil, nil, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := m.CalculateFaithfulness(tt.response, tt.expected, tt.forbidden)
			if got != tt.want {
				t.Errorf("CalculateFaithfulness() = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestCalculateContextRecall(t *testing.T) {
	m := NewMetricsCalculator()

	got, _ := m.CalculateContextRecall([]string{"alpha beta", "gamma"}, []string{"ALPHA", "gamma", "delta", "epsilon"})
	if got != 0.5 {
		t.Errorf("recall = %.2f, want 0.5", got)
	}
	if got, _ := m.CalculateContextRecall(nil, nil); got != 1.0 {
		t.Errorf("recall with no expectations = %.2f, want 1", got)
	}
}

func TestCalculateAbstention(t *testing.T) {
	m := NewMetricsCalculator()
	if ok, _ := m.CalculateAbstention("I don't know."); !ok {
		t.Error("I don't know. should count as abstaining")
	}
	if ok, _ := m.CalculateAbstention("It costs $40 per month."); ok {
		t.Error("a concrete answer is not abstaining")
	}
}

func TestEvaluateTest_AbstainOverridesFaithfulness(t *testing.T) {
	m := NewMetricsCalculator()
	scenario := GetOutOfScope()
	q := scenario.Questions[0]

	pass := m.EvaluateTest(scenario, []QuestionOutcome{{Question: q, Response: "I don't know."}})
	if pass.Status != "PASS" {
		t.Errorf("abstaining answer status = %s, details %v", pass.Status, pass.Details)
	}

	fail := m.EvaluateTest(scenario, []QuestionOutcome{{Question: q, Response: "About 99 dollars."}})
	if fail.Status != "FAIL" || fail.FaithfulnessScore != 0 {
		t.Errorf("invented answer = %+v", fail)
	}
}

// keywordProvider embeds by keyword counts and answers from the context it is given
type keywordProvider struct{}

var keywords = []string{"remote", "meal", "generator", "warehouse", "price"}

func (keywordProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	lower := strings.ToLower(text)
	vec := make([]float64, len(keywords)+1)
	for i, k := range keywords {
		vec[i] = float64(strings.Count(lower, k))
	}
	vec[len(keywords)] = 0.1
	return vec, nil
}

func (keywordProvider) EmbeddingModel() string { return "keywords" }

func (keywordProvider) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	return "", nil
}

// Stream answers with the sentence of the context that mentions a question keyword
func (keywordProvider) Stream(ctx context.Context, p llm.Prompt, onToken llm.TokenFunc) (string, error) {
	system, question := strings.ToLower(p[0].Content), strings.ToLower(p[len(p)-1].Content)
	for _, k := range keywords {
		if !strings.Contains(question, k) {
			continue
		}
		for _, sentence := range strings.Split(p[0].Content, ". ") {
			if strings.Contains(strings.ToLower(sentence), k) && strings.Contains(system, k) {
				onToken(sentence)
				return sentence, nil
			}
		}
	}
	onToken("I don't know.")
	return "I don't know.", nil
}

func newTestRunner(t *testing.T) *BenchmarkRunner {
	t.Helper()
	cfg := config.Default()
	backend, err := storage.NewFSBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, err := app.New(context.Background(), cfg, app.Deps{Provider: keywordProvider{}, Backend: backend})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return NewBenchmarkRunner(a, false, nil)
}

func TestRunAllTests_BuiltIn(t *testing.T) {
	r := newTestRunner(t)
	results := r.RunAllTests(context.Background(), AllScenarios())

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, res := range results {
		if res.ErrorMessage != "" {
			t.Errorf("%s errored: %s", res.TestID, res.ErrorMessage)
		}
	}
	if got := Summarize(results); got.Total != 3 || got.Passed+got.Failed != 3 {
		t.Errorf("Summarize() = %+v", got)
	}

	abstain := results[2]
	if abstain.TestID != "abstain" || abstain.Status != "PASS" {
		t.Errorf("abstain scenario = %+v", abstain)
	}
}

func TestExportResults(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "out", "results.json")
	results := []TestResult{{TestID: "a", Status: "PASS"}, {TestID: "b", Status: "FAIL"}}

	if err := r.ExportResults(results, path); err != nil {
		t.Fatalf("ExportResults() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Results []TestResult `json:"results"`
		Summary Summary      `json:"summary"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Results) != 2 || got.Summary.Passed != 1 || got.Summary.Failed != 1 {
		t.Errorf("exported = %+v", got)
	}
}

func TestLoadScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `
- id: faq
  name: FAQ
  document: "Support hours are 9 to 5."
  questions:
    - text: "When is support open?"
      ground_truth:
        expected_in_response: ["9 to 5"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("LoadScenarios() failed: %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].Questions[0].GroundTruth.ExpectedInResponse[0] != "9 to 5" {
		t.Errorf("scenarios = %+v", scenarios)
	}

	if err := os.WriteFile(path, []byte("- id: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenarios(path); err == nil {
		t.Error("scenario without document should fail")
	}
}

func TestGetScenario(t *testing.T) {
	if _, ok := GetScenario("policy"); !ok {
		t.Error("policy scenario should exist")
	}
	if _, ok := GetScenario("nope"); ok {
		t.Error("unknown scenario should not exist")
	}
}
