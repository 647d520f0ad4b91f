// ABOUTME: Command-line benchmark runner for RAGAS-style document Q&A scenarios
// ABOUTME: Runs built-in or YAML scenarios against the live provider and writes JSON results
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/harper/datachat/benchmarks/ragas"
	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/logging"
)

func main() {
	testID := flag.String("test", "", "Run one built-in scenario (policy, late, abstain). If empty, runs all.")
	scenarioPath := flag.String("scenarios", "", "YAML file with custom scenarios")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	keepCache := flag.Bool("keep-cache", false, "Use the configured cache instead of a throwaway one")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	_ = godotenv.Load()
	logger := logging.New("info", os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if !*keepCache {
		dir, err := os.MkdirTemp("", "datachat-bench-*")
		if err != nil {
			logger.Fatal("failed to create temp cache", "err", err)
		}
		defer os.RemoveAll(dir)
		cfg.CacheBackend = config.BackendFS
		cfg.CacheDir = dir
	}

	var scenarios []ragas.TestScenario
	switch {
	case *scenarioPath != "":
		scenarios, err = ragas.LoadScenarios(*scenarioPath)
		if err != nil {
			logger.Fatal("failed to load scenarios", "err", err)
		}
	case *testID != "":
		s, ok := ragas.GetScenario(*testID)
		if !ok {
			logger.Fatal("unknown scenario", "id", *testID, "valid", "policy, late, abstain")
		}
		scenarios = []ragas.TestScenario{s}
	default:
		scenarios = ragas.AllScenarios()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, app.Deps{Logger: logging.Discard()})
	if err != nil {
		logger.Fatal("failed to initialize", "err", err)
	}
	defer a.Close()

	fmt.Println("========================================")
	fmt.Println("datachat RAGAS Benchmarks")
	fmt.Printf("provider %s, chat %s, embeddings %s\n", cfg.Provider, cfg.ChatModel, cfg.EmbeddingModel)
	fmt.Println("========================================")

	runner := ragas.NewBenchmarkRunner(a, *verbose, os.Stdout)
	results := runner.RunAllTests(ctx, scenarios)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")
	for _, r := range results {
		fmt.Printf("\n%s: %s\n", r.TestID, r.TestName)
		if r.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", r.ErrorMessage)
		}
		fmt.Printf("  Faithfulness: %.2f\n", r.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", r.ContextRecallScore)
		fmt.Printf("  Overall: %.2f\n", r.OverallScore)
		fmt.Printf("  Status: %s\n", r.Status)
	}

	summary := ragas.Summarize(results)
	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", summary.Total)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, *outputPath); err != nil {
		logger.Error("failed to export results", "err", err)
		os.Exit(1)
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
