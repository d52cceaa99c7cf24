package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/module"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ThirdParty bool
}

// ValidationIssue is one problem found in a modules directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Interfaces int               `json:"interfaces"`
	Files      int               `json:"files"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <modules-dir>",
		Short: "Validate interface definitions",
		Long: `Compile and validate every CUE interface definition in a directory
without starting a server. All problems are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ThirdParty, "third-party", false, "treat the directory as third-party modules")

	return cmd
}

func moduleSource(thirdParty bool) ir.ModuleSource {
	if thirdParty {
		return ir.ModuleThirdParty
	}
	return ir.ModuleShipped
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	res, errs := module.LoadDir(dir, moduleSource(opts.ThirdParty), module.LoadModeCollectAll)
	if res == nil {
		var loadErr *module.LoadError
		if len(errs) > 0 && errors.As(errs[0], &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, module.ErrCodeGeneric, fmt.Sprint(errs), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)

	result := ValidationResult{
		Valid:      len(errs) == 0,
		Interfaces: len(res.Interfaces),
		Files:      res.FileCount,
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, toIssue(err))
	}

	if result.Valid {
		return formatter.Success(result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ %d interface(s) valid\n", result.Interfaces)
		})
	}

	if formatter.isJSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message},
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, issue := range result.Errors {
			if issue.Line > 0 {
				fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
			}
			fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

func toIssue(err error) ValidationIssue {
	var loadErr *module.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationIssue{Code: module.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}
