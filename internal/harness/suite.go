package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions controls a suite run.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without
	// extension. Empty matches every file.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// Golden comparison outcomes.
const (
	GoldenMatched = "matched"
	GoldenUpdated = "updated"
	GoldenMissing = "missing"
	GoldenDiffers = "differs"
)

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Pass    bool     `json:"pass"`
	Golden  string   `json:"golden,omitempty"`
	Firings int      `json:"firings"`
	Errors  []string `json:"errors,omitempty"`
}

// SuiteResult contains results from running a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

// FindScenarios returns every .yaml and .yml file under dir whose name
// matches filter, in lexical order.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// RunSuite runs every scenario under dir. An error means the directory could
// not be searched; scenario failures are reported in the result.
func RunSuite(dir string, opts SuiteOptions) (*SuiteResult, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scenarios directory not found: %s", dir)
	}

	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}

	suite := &SuiteResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		r := RunFile(file, opts)
		suite.Scenarios = append(suite.Scenarios, r)
		if r.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	return suite, nil
}

// RunFile loads, executes and golden-checks one scenario file.
//
// A scenario without a golden file is judged by its assertions alone.
func RunFile(file string, opts SuiteOptions) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
		return res
	}

	scenario, err := LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	res.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	res.Firings = len(result.Trace)
	res.Pass = result.Pass
	res.Errors = append(res.Errors, result.Errors...)

	trace, err := GoldenTrace(scenario.Name, result)
	if err != nil {
		return fail("failed to render trace: %v", err)
	}

	golden := GoldenPath(file)
	if opts.Update {
		if err := UpdateGolden(golden, trace); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		res.Golden = GoldenUpdated
		return res
	}

	if _, err := os.Stat(golden); os.IsNotExist(err) {
		res.Golden = GoldenMissing
		return res
	}
	match, err := CompareGolden(golden, trace)
	if err != nil {
		return fail("golden comparison failed: %v", err)
	}
	if !match {
		res.Golden = GoldenDiffers
		return fail("trace does not match golden file (run with --update to regenerate)")
	}
	res.Golden = GoldenMatched
	return res
}
