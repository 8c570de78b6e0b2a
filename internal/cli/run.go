package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hydrosim/penstock/internal/harness"
	"github.com/hydrosim/penstock/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunSummary is the run command's output payload.
type RunSummary struct {
	Scenario string        `json:"scenario"`
	RunToken string        `json:"run_token,omitempty"`
	Steps    []StepSummary `json:"steps"`
	Firings  int           `json:"firings"`
}

// StepSummary is one step of the run output.
type StepSummary struct {
	Index     int      `json:"index"`
	StartTime float64  `json:"start_time"`
	EndTime   float64  `json:"end_time"`
	Rewinds   int      `json:"rewinds"`
	Firings   []string `json:"firings,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario through the control engine",
		Long: `Run a scenario file through the priority-ordered control engine.

The scenario declares a network, its controls, and a run window. Steps
land on event boundaries, so a control that fires mid-step shortens the
step to the firing instant. Scenario assertions are checked after the
run; any failure exits nonzero.

With --db, every step is recorded to a SQLite trace database that the
trace command can query afterwards.

Examples:
  penstock run scenario.yaml
  penstock run --db ./trace.db scenario.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (optional)")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	sc, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runOpts := []harness.RunOption{harness.WithLogger(logger)}
	var token string
	if opts.Database != "" {
		st, err := trace.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing trace database", "error", closeErr)
			}
		}()

		var gen trace.TokenGenerator = trace.UUIDv7Generator{}
		if sc.RunToken != "" {
			gen = trace.StaticTokenGenerator(sc.RunToken)
		}
		run, err := st.BeginRun(ctx, sc.Name, gen)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin trace run", err)
		}
		token = run.Token()
		runOpts = append(runOpts, harness.WithTraceRecorder(run))
		logger.Info("tracing run", "db", opts.Database, "token", token)
	}

	res, err := harness.RunScenario(ctx, sc, runOpts...)
	if err != nil {
		var aerr *harness.AssertionError
		if errors.As(err, &aerr) {
			return WrapExitError(ExitFailure, "scenario assertion failed", err)
		}
		return WrapExitError(ExitFailure, "scenario run failed", err)
	}

	summary := summarize(sc.Name, token, res)
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return f.Success(summary)
	}
	return printRunSummary(f, summary)
}

func summarize(name, token string, res *harness.Result) RunSummary {
	summary := RunSummary{Scenario: name, RunToken: token}
	for _, step := range res.Steps {
		ss := StepSummary{
			Index:     step.Index,
			StartTime: step.StartTime,
			EndTime:   step.EndTime,
			Rewinds:   step.Rewinds,
		}
		for _, firing := range step.Firings {
			summary.Firings++
			ss.Firings = append(ss.Firings, fmt.Sprintf("[p%d] %s: %s.%s = %g",
				firing.Priority, firing.Control, firing.Element, firing.Attribute, firing.Value))
		}
		summary.Steps = append(summary.Steps, ss)
	}
	return summary
}

func printRunSummary(f *OutputFormatter, s RunSummary) error {
	fmt.Fprintf(f.Writer, "Scenario %s: %d steps, %d firings\n", s.Scenario, len(s.Steps), s.Firings)
	if s.RunToken != "" {
		fmt.Fprintf(f.Writer, "Trace token: %s\n", s.RunToken)
	}
	for _, step := range s.Steps {
		fmt.Fprintf(f.Writer, "  step %d: %g -> %g (rewinds %d)\n",
			step.Index, step.StartTime, step.EndTime, step.Rewinds)
		for _, firing := range step.Firings {
			fmt.Fprintf(f.Writer, "    %s\n", firing)
		}
	}
	return nil
}
