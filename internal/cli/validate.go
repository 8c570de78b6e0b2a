package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydrosim/penstock/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult reports one scenario file's outcome.
type ValidationResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files: parse the YAML, check structural rules, and
build the declared network and controls so reference errors surface
before any run.

Examples:
  penstock validate scenario.yaml
  penstock validate scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateScenarios(cmd, opts, args)
		},
	}

	return cmd
}

func validateScenarios(cmd *cobra.Command, opts *ValidateOptions, paths []string) error {
	results := make([]ValidationResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		res := ValidationResult{Path: path, Valid: true}
		if err := validateOne(path); err != nil {
			res.Valid = false
			res.Error = err.Error()
			failed++
		}
		results = append(results, res)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := f.Success(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Valid {
				fmt.Fprintf(f.Writer, "ok    %s\n", res.Path)
			} else {
				fmt.Fprintf(f.Writer, "error %s: %s\n", res.Path, res.Error)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios invalid", failed, len(paths)))
	}
	return nil
}

// validateOne builds the scenario's model and controls so dangling
// element references fail here instead of at run time.
func validateOne(path string) error {
	sc, err := harness.LoadScenario(path)
	if err != nil {
		return err
	}
	m, err := harness.BuildModel(sc)
	if err != nil {
		return err
	}
	if _, err := harness.BuildControls(m, sc); err != nil {
		return err
	}
	return nil
}
