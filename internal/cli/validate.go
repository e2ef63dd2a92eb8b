package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storyboard/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Name    string                     `json:"name,omitempty"`
	Stories int                        `json:"stories"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>",
		Short: "Check a scenario without running it",
		Long: `Compile a CUE scenario and check it for problems the compiler cannot
see story by story: duplicate names, unsatisfiable time windows, degenerate
polygons and continuous lane changes.

Exits 1 when the scenario is invalid and 2 when it cannot be read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadScenario(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		if isReadError(loadErr.Code) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		// The scenario was read but a story does not compile.
		return outputValidationErrors(formatter, []compiler.ValidationError{{
			Field:   "compile",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    loadErr.Line(),
		}})
	}

	formatter.VerboseLog("Compiled %d stories from %d file(s) in %s", len(loaded.Scenario.Stories), loaded.FileCount, path)

	if errs := compiler.Validate(loaded.Scenario); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:   true,
		Name:    loaded.Scenario.Name,
		Stories: len(loaded.Scenario.Stories),
	})
}

// isReadError reports whether code means the scenario could not be read,
// as opposed to read but rejected.
func isReadError(code string) bool {
	switch code {
	case ErrCodeScanError, ErrCodeNoFiles, ErrCodeLoadFailed, ErrCodeNotFound, ErrCodeBuildFailed:
		return true
	}
	return false
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	name := result.Name
	if name == "" {
		name = "scenario"
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid (%d stories)\n", name, result.Stories)
	return nil
}

// outputValidateError outputs an error that stopped validation.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return exitErr
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		var loc []string
		if err.Line > 0 {
			loc = append(loc, fmt.Sprintf("line %d", err.Line))
		}
		if err.Field != "" {
			loc = append(loc, err.Field)
		}
		if len(loc) > 0 {
			fmt.Fprintln(formatter.Writer, strings.Join(loc, " "))
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return exitErr
}
