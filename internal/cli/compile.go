package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/storyboard/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the canonical form of a compiled scenario.
type CompilationResult struct {
	Name      string          `json:"name"`
	Hash      string          `json:"hash"`
	IRVersion string          `json:"ir_version"`
	Stories   []CompiledStory `json:"stories"`
}

// CompiledStory is one story in canonical form with its content hash.
type CompiledStory struct {
	ID   string         `json:"id"`
	Hash string         `json:"hash"`
	Spec map[string]any `json:"spec"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scenario>",
		Short: "Compile a CUE scenario to canonical IR",
		Long: `Compile a CUE scenario to its canonical IR form.

Each story is listed with the id the board will register it under and a
content hash. The scenario hash is what a recorded run is checked against
on replay.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical IR JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadScenario(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, path)

	result, err := buildCompilationResult(loaded)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	for _, s := range result.Stories {
		formatter.VerboseLog("Compiled story: %s", s.ID)
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// buildCompilationResult describes every story under the id the board will
// give it.
func buildCompilationResult(loaded *LoadResult) (*CompilationResult, error) {
	result := &CompilationResult{
		Name:      loaded.Scenario.Name,
		Hash:      loaded.Hash,
		IRVersion: ir.IRVersion,
		Stories:   make([]CompiledStory, len(loaded.Scenario.Stories)),
	}
	for i, s := range loaded.Scenario.Stories {
		hash, err := ir.StoryHash(s)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing story %d: %v", i+1, err)}
		}
		result.Stories[i] = CompiledStory{
			ID:   storyID(s, i),
			Hash: hash,
			Spec: ir.DescribeStory(s),
		}
	}
	return result, nil
}

// storyID mirrors the id a board assigns on registration.
func storyID(s ir.Story, i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("story-%d", i+1)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d story(ies)\n", len(result.Stories))
	fmt.Fprintf(w, "Scenario hash: %s\n\n", result.Hash)

	fmt.Fprintln(w, "Stories:")
	for _, s := range result.Stories {
		fmt.Fprintf(w, "  %s: %s, targets %s, %d effect(s) [%s]\n",
			s.ID, s.Spec["policy"], targetMode(s.Spec), effectCount(s.Spec), s.Hash[:12])
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical IR to %s\n", outputFile)
	}
	return nil
}

func targetMode(spec map[string]any) any {
	if t, ok := spec["targets"].(map[string]any); ok {
		return t["mode"]
	}
	return "matched"
}

func effectCount(spec map[string]any) int {
	then, _ := spec["then"].([]any)
	return len(then)
}

// outputCompileError outputs a compilation error. Compilation errors are
// command-level errors (exit code 2).
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	}

	if !formatter.JSON() {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
		if loadErr != nil && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, message)
	} else {
		_ = formatter.Error(code, message, nil)
	}
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeIRToFile writes the compilation result as canonical JSON, the form
// the scenario hash is computed over.
func writeIRToFile(result *CompilationResult, filename string) error {
	stories := make([]any, len(result.Stories))
	for i, s := range result.Stories {
		stories[i] = map[string]any{"id": s.ID, "hash": s.Hash, "spec": s.Spec}
	}
	data, err := ir.MarshalCanonical(map[string]any{
		"name":       result.Name,
		"hash":       result.Hash,
		"ir_version": result.IRVersion,
		"stories":    stories,
	})
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
