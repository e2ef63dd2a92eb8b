package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/ir"
)

// GoldenTrace renders a result's trace for golden comparison: a canonical
// JSON header line followed by one canonical JSON line per firing.
//
// Actuation errors are omitted since their text comes from the kernel.
func GoldenTrace(scenarioName string, result *Result) ([]byte, error) {
	var buf bytes.Buffer

	header, err := ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"run_id":        result.RunID,
	})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, f := range result.Trace {
		line, err := ir.MarshalCanonical(firingMap(f))
		if err != nil {
			return nil, fmt.Errorf("firing %d: %w", f.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// firingMap converts a firing to a map for canonical JSON serialization,
// since ir.MarshalCanonical only handles primitives, slices and maps.
func firingMap(f engine.Firing) map[string]any {
	acts := make([]any, len(f.Actuations))
	for i, a := range f.Actuations {
		acts[i] = map[string]any{
			"vehicle": a.Vehicle,
			"effect":  string(a.Effect),
			"value":   a.Value,
			"outcome": string(a.Outcome),
		}
	}
	return map[string]any{
		"seq":        f.Seq,
		"tick":       int64(f.Tick),
		"story_id":   f.StoryID,
		"policy":     string(f.Policy),
		"actuations": acts,
	}
}

// GoldenPath returns the golden file of a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes data as the golden file at path.
func UpdateGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether data equals the golden file at path.
func CompareGolden(path string, data []byte) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(golden, data), nil
}

// RunWithGolden loads and executes a scenario file and compares its trace
// against the scenario's golden file.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be loaded or executed.
// Test failure (via goldie) occurs if the trace doesn't match.
func RunWithGolden(t *testing.T, scenarioFile string) (*Result, error) {
	t.Helper()

	scenario, err := LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	trace, err := GoldenTrace(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	golden := GoldenPath(scenarioFile)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(golden)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.TrimSuffix(filepath.Base(golden), ".golden"), trace)

	return result, nil
}
