// ABOUTME: Benchmark scenarios for document Q&A: a document, questions and ground truth
// ABOUTME: Built-in scenarios plus loading custom ones from YAML
package ragas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TestScenario is one document with the questions asked about it
type TestScenario struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Document    string     `yaml:"document"`
	Questions   []Question `yaml:"questions"`
}

// Question is asked in order within one session
type Question struct {
	Text        string      `yaml:"text"`
	GroundTruth GroundTruth `yaml:"ground_truth"`
}

// GroundTruth defines expected outcomes for one answer
type GroundTruth struct {
	ExpectedInResponse  []string `yaml:"expected_in_response"`  // MUST appear in the answer
	ForbiddenInResponse []string `yaml:"forbidden_in_response"` // MUST NOT appear in the answer

	// Text that should be present in the retrieved chunks
	ExpectedContextItems []string `yaml:"expected_context_items"`

	// The answer is not in the document and the model should say it does not know
	ExpectAbstain bool `yaml:"expect_abstain"`
}

// TestResult represents the outcome of one scenario
type TestResult struct {
	TestID             string                 `json:"test_id"`
	TestName           string                 `json:"test_name"`
	FaithfulnessScore  float64                `json:"faithfulness"`
	ContextRecallScore float64                `json:"context_recall"`
	OverallScore       float64                `json:"overall"`
	Status             string                 `json:"status"` // "PASS" or "FAIL"
	Details            map[string]interface{} `json:"details,omitempty"`
	ErrorMessage       string                 `json:"error,omitempty"`
}

// LoadScenarios reads a YAML list of scenarios
func LoadScenarios(path string) ([]TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	var scenarios []TestScenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios %s: %w", path, err)
	}
	for i, s := range scenarios {
		if s.ID == "" || s.Document == "" || len(s.Questions) == 0 {
			return nil, fmt.Errorf("scenario %d needs an id, a document and at least one question", i)
		}
	}
	return scenarios, nil
}

// GetScenario returns the built-in scenario with id
func GetScenario(id string) (TestScenario, bool) {
	for _, s := range AllScenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return TestScenario{}, false
}

// AllScenarios returns the built-in scenarios
func AllScenarios() []TestScenario {
	return []TestScenario{
		GetPolicyLookup(),
		GetLateChunk(),
		GetOutOfScope(),
	}
}

// GetPolicyLookup asks for a fact stated once in a short handbook
func GetPolicyLookup() TestScenario {
	return TestScenario{
		ID:          "policy",
		Name:        "Policy Lookup",
		Description: "A single fact stated once must be retrieved and repeated",
		Document: `Employee Handbook

Remote work. Employees may work remotely up to three days per week. Fully remote arrangements need approval from a director.

Expenses. Meals during travel are reimbursed up to 60 euros per day. Receipts must be submitted within 30 days.

Equipment. Every employee receives a laptop and may order one external monitor. Replacement hardware is requested through the IT portal.`,
		Questions: []Question{
			{
				Text: "How many days per week can employees work remotely?",
				GroundTruth: GroundTruth{
					ExpectedInResponse:   []string{"three"},
					ExpectedContextItems: []string{"up to three days per week"},
				},
			},
			{
				Text: "What is the daily meal limit when traveling?",
				GroundTruth: GroundTruth{
					ExpectedInResponse:   []string{"60"},
					ForbiddenInResponse:  []string{"30 euros"},
					ExpectedContextItems: []string{"60 euros per day"},
				},
			},
		},
	}
}

// GetLateChunk puts the answer deep in a long document so it lands in a later chunk
func GetLateChunk() TestScenario {
	filler := ""
	for i := 1; i <= 40; i++ {
		filler += fmt.Sprintf("Section %d covers routine maintenance of the north warehouse, including lighting checks, door inspections and floor cleaning schedules.\n\n", i)
	}
	return TestScenario{
		ID:          "late",
		Name:        "Late Chunk Retrieval",
		Description: "The only relevant paragraph is near the end of a long document",
		Document:    filler + "Section 41. The backup generator is tested on the first Monday of every month by the facilities team.",
		Questions: []Question{
			{
				Text: "When is the backup generator tested?",
				GroundTruth: GroundTruth{
					ExpectedInResponse:   []string{"first Monday"},
					ExpectedContextItems: []string{"backup generator"},
				},
			},
		},
	}
}

// GetOutOfScope asks something the document does not answer
func GetOutOfScope() TestScenario {
	return TestScenario{
		ID:          "abstain",
		Name:        "Out of Scope Question",
		Description: "The model must say it does not know instead of inventing an answer",
		Document: `Release Notes 2.4

The export dialog now remembers the last folder used. Dark mode contrast was improved in the settings page. A crash when opening empty projects was fixed.`,
		Questions: []Question{
			{
				Text: "What is the price of the enterprise plan?",
				GroundTruth: GroundTruth{
					ExpectAbstain:       true,
					ForbiddenInResponse: []string{"$", "€", "per month"},
				},
			},
		},
	}
}
