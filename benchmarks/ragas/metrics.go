// ABOUTME: RAGAS-style metrics for document Q&A: faithfulness and context recall
// ABOUTME: Deterministic string checks against ground truth, no judge model
package ragas

import (
	"fmt"
	"strings"

	"github.com/harper/datachat/internal/core"
)

// PassThreshold is the minimum faithfulness and recall for a PASS
const PassThreshold = 0.9

// MetricsCalculator computes scores for benchmark answers
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness scores (0.0-1.0) whether the answer contains what it
// should and nothing it must not
func (m *MetricsCalculator) CalculateFaithfulness(response string, expected, forbidden []string) (float64, string) {
	responseUpper := strings.ToUpper(response)

	var missing, found []string
	for _, e := range expected {
		if !strings.Contains(responseUpper, strings.ToUpper(e)) {
			missing = append(missing, e)
		}
	}
	for _, f := range forbidden {
		if strings.Contains(responseUpper, strings.ToUpper(f)) {
			found = append(found, f)
		}
	}

	switch {
	case len(missing) == 0 && len(found) == 0:
		return 1.0, "answer matches ground truth"
	case len(missing) > 0 && len(found) > 0:
		return 0.0, fmt.Sprintf("missing expected %v, forbidden found %v", missing, found)
	case len(missing) > 0:
		return 0.5, fmt.Sprintf("missing expected %v", missing)
	default:
		return 0.5, fmt.Sprintf("forbidden found %v", found)
	}
}

// CalculateContextRecall scores (0.0-1.0) the share of expected items present
// in the retrieved chunks
func (m *MetricsCalculator) CalculateContextRecall(retrieved, expected []string) (float64, string) {
	if len(expected) == 0 {
		return 1.0, "no context required"
	}

	all := strings.ToUpper(strings.Join(retrieved, " "))
	var missing []string
	for _, e := range expected {
		if !strings.Contains(all, strings.ToUpper(e)) {
			missing = append(missing, e)
		}
	}

	recall := float64(len(expected)-len(missing)) / float64(len(expected))
	if recall == 1.0 {
		return 1.0, "all expected context retrieved"
	}
	return recall, fmt.Sprintf("recall %.2f, missing %v", recall, missing)
}

// CalculateAbstention reports whether the answer admits not knowing
func (m *MetricsCalculator) CalculateAbstention(response string) (bool, string) {
	lower := strings.ToLower(response)
	for _, phrase := range []string{
		strings.ToLower(strings.TrimSuffix(core.IDontKnow, ".")),
		"i do not know",
		"not mentioned",
		"does not say",
	} {
		if strings.Contains(lower, phrase) {
			return true, fmt.Sprintf("abstained (%q)", phrase)
		}
	}
	return false, "answered instead of abstaining"
}

// QuestionOutcome is what one question produced
type QuestionOutcome struct {
	Question  Question
	Response  string
	Retrieved []string
}

// EvaluateTest averages per-question scores into one result
func (m *MetricsCalculator) EvaluateTest(scenario TestScenario, outcomes []QuestionOutcome) TestResult {
	var faithSum, recallSum float64
	details := make([]map[string]interface{}, 0, len(outcomes))

	for _, o := range outcomes {
		gt := o.Question.GroundTruth
		faith, faithDetail := m.CalculateFaithfulness(o.Response, gt.ExpectedInResponse, gt.ForbiddenInResponse)
		if gt.ExpectAbstain {
			abstained, detail := m.CalculateAbstention(o.Response)
			if !abstained {
				faith = 0
			}
			faithDetail += "; " + detail
		}
		recall, recallDetail := m.CalculateContextRecall(o.Retrieved, gt.ExpectedContextItems)

		faithSum += faith
		recallSum += recall
		details = append(details, map[string]interface{}{
			"question":            o.Question.Text,
			"response":            truncate(o.Response, 200),
			"faithfulness":        faith,
			"faithfulness_detail": faithDetail,
			"context_recall":      recall,
			"recall_detail":       recallDetail,
			"context_items":       len(o.Retrieved),
		})
	}

	n := float64(len(outcomes))
	if n == 0 {
		n = 1
	}
	faith, recall := faithSum/n, recallSum/n

	status := "FAIL"
	if len(outcomes) > 0 && faith >= PassThreshold && recall >= PassThreshold {
		status = "PASS"
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faith,
		ContextRecallScore: recall,
		OverallScore:       (faith + recall) / 2,
		Status:             status,
		Details:            map[string]interface{}{"questions": details},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
