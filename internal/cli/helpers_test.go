package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testScenario  = "testdata/evw.cue"
	testPlan      = "testdata/traffic.yaml"
	testScenarios = "testdata/scenarios"
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{}, args...)) // nil would fall back to os.Args
	err := cmd.Execute()
	return out.String(), err
}

// recordRun runs the test scenario into a fresh database and returns its path.
func recordRun(t *testing.T, runID string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "storyboard.db")
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--run-id", runID, testScenario, testPlan)
	require.NoError(t, err)
	return dbPath
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	writeFile(t, dst, string(data))
}
