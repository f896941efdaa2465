//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/compass-engine/integration/runner"
)

const casesDir = "cases"

var (
	caseFlag  = flag.String("case", "", "Comma-separated case names from integration/cases/ (default: all)")
	errFlag   = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
	worldFlag = flag.String("world", "", "Override world for all cases (e.g. 'tide_pool.yaml', 'Gemini Quest')")
)

// TestPlaythroughs runs case files against a live API at API_BASE_URL.
func TestPlaythroughs(t *testing.T) {
	mode := runner.ErrorHandlingMode(*errFlag)
	if mode != runner.ErrorHandlingContinue && mode != runner.ErrorHandlingExit {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}

	files, err := selectCaseFiles(*caseFlag)
	if err != nil {
		t.Fatal(err)
	}

	r := runner.NewRunner(envOr("API_BASE_URL", "http://localhost:8080"))
	r.Timeout = time.Duration(intEnv("QUEUE_TIMEOUT_SECONDS", 30)) * time.Second
	r.ErrorHandlingMode = mode
	r.WorldOverride = *worldFlag
	r.Logger = t.Logf
	if r.WorldOverride != "" {
		t.Logf("World override enabled: %s", r.WorldOverride)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for _, file := range files {
		jobs, err := runner.LoadTestSuiteWithExpansion(file, casesDir)
		if err != nil {
			t.Errorf("Failed to load %s: %v", file, err)
			continue
		}
		for _, job := range jobs {
			t.Run(job.Name, func(t *testing.T) {
				result, err := r.RunSuite(ctx, job.Suite)
				result.Job = job
				report(t, result)
				if err != nil {
					t.Fatalf("%s: %v", job.Name, err)
				}
			})
		}
	}
}

func report(t *testing.T, result runner.TestRunResult) {
	t.Helper()
	t.Logf("GameState ID: %s", result.GameState)
	for _, step := range result.Results {
		switch {
		case step.IsReset:
			t.Logf("   ↻ %s (%v)", step.StepName, step.Duration)
		case !step.Success:
			t.Errorf("   ✗ %s: %v", step.StepName, step.Error)
		case step.IsQueued:
			t.Logf("   ✓ %s [queued %s] (%v)", step.StepName, step.RequestID, step.Duration)
		default:
			t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
		}
	}
	passed, failed := result.Counts()
	t.Logf("%s: %d passed, %d failed in %v", result.Job.Name, passed, failed, result.Duration)
}

// selectCaseFiles resolves -case names, or every case file when none are given.
func selectCaseFiles(names string) ([]string, error) {
	if strings.TrimSpace(names) == "" {
		entries, err := os.ReadDir(casesDir)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && runner.IsCaseFile(e.Name()) {
				files = append(files, filepath.Join(casesDir, e.Name()))
			}
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no case files in %s", casesDir)
		}
		return files, nil
	}

	var files []string
	for _, name := range strings.Split(names, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		path, err := runner.ResolveCaseFile(casesDir, name)
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func intEnv(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return v
}
