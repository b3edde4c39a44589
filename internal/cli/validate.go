package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// ValidationResult holds batch file validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Facts  int      `json:"facts"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <batch-file>",
		Short: "Validate a YAML batch file without appending it",
		Long: `Validate a YAML batch file against the batch schema.

Checks structure, required fields, operation tokens, and timestamp
syntax without touching the stream. All problems are reported at once.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	batch, errs := LoadBatch(path)
	if len(errs) == 0 {
		// Schema passed; timestamps and values still have to convert.
		if _, err := batch.ToFacts(time.Now().UTC()); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		result := ValidationResult{Valid: false}
		for _, err := range errs {
			result.Errors = append(result.Errors, err.Error())
		}
		if formatter.Format == "json" {
			_ = formatter.Success(result)
		} else {
			fmt.Fprintf(formatter.Writer, "invalid: %s\n", path)
			for _, msg := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", msg)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	result := ValidationResult{Valid: true, Facts: len(batch.Facts)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "valid: %d fact(s)\n", result.Facts)
	return nil
}
