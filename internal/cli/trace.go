package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydrosim/penstock/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunToken string
	Control  string
	Element  string
	Priority int
}

// TraceReport holds the trace command output for one run.
type TraceReport struct {
	Run     trace.RunRecord    `json:"run"`
	Steps   []trace.StepRecord `json:"steps"`
	Firings []FiringReport     `json:"firings"`
}

// FiringReport is one recorded firing with the nullable previous value
// flattened for output.
type FiringReport struct {
	StepIndex int      `json:"step_index"`
	Seq       int      `json:"seq"`
	Control   string   `json:"control"`
	Priority  int      `json:"priority"`
	Element   string   `json:"element"`
	Attribute string   `json:"attribute"`
	Value     float64  `json:"value"`
	Previous  *float64 `json:"previous,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query a recorded run trace",
		Long: `Query the step and firing history of a recorded run.

Without --run, lists all recorded runs. With --run, prints the run's
steps and firings; --control, --element, and --priority narrow the
firing list.

Examples:
  penstock trace --db ./trace.db
  penstock trace --db ./trace.db --run trace-pipe-close
  penstock trace --db ./trace.db --run trace-pipe-close --control close_p1
  penstock trace --db ./trace.db --run trace-pipe-close --priority 3 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryTrace(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to inspect")
	cmd.Flags().StringVar(&opts.Control, "control", "", "filter firings by control name")
	cmd.Flags().StringVar(&opts.Element, "element", "", "filter firings by element name")
	cmd.Flags().IntVar(&opts.Priority, "priority", -1, "filter firings by priority level (0-3)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func queryTrace(cmd *cobra.Command, opts *TraceOptions) error {
	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.RunToken == "" {
		return listRuns(ctx, st, f)
	}
	return reportRun(ctx, st, opts, f)
}

func listRuns(ctx context.Context, st *trace.Store, f *OutputFormatter) error {
	runs, err := st.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No recorded runs.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(f.Writer, "%s  %s  %s\n", run.Token, run.Scenario, run.StartedAt)
	}
	return nil
}

func reportRun(ctx context.Context, st *trace.Store, opts *TraceOptions, f *OutputFormatter) error {
	runs, err := st.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	var found *trace.RunRecord
	for i := range runs {
		if runs[i].Token == opts.RunToken {
			found = &runs[i]
			break
		}
	}
	if found == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %q not found", opts.RunToken))
	}

	steps, err := st.Steps(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}

	filter := trace.FiringFilter{Control: opts.Control, Element: opts.Element}
	if opts.Priority >= 0 {
		filter.Priority = opts.Priority
		filter.ByPriority = true
	}
	firings, err := st.Firings(ctx, opts.RunToken, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read firings", err)
	}

	report := TraceReport{Run: *found, Steps: steps}
	for _, fr := range firings {
		out := FiringReport{
			StepIndex: fr.StepIndex,
			Seq:       fr.Seq,
			Control:   fr.Control,
			Priority:  fr.Priority,
			Element:   fr.Element,
			Attribute: fr.Attribute,
			Value:     fr.Value,
		}
		if fr.Previous.Valid {
			prev := fr.Previous.Float64
			out.Previous = &prev
		}
		report.Firings = append(report.Firings, out)
	}

	if f.Format == "json" {
		return f.Success(report)
	}

	fmt.Fprintf(f.Writer, "Run %s (%s), started %s\n", report.Run.Token, report.Run.Scenario, report.Run.StartedAt)
	for _, step := range report.Steps {
		fmt.Fprintf(f.Writer, "  step %d: %g -> %g (rewinds %d)\n",
			step.Index, step.StartTime, step.EndTime, step.Rewinds)
	}
	for _, firing := range report.Firings {
		fmt.Fprintf(f.Writer, "  firing step=%d seq=%d [p%d] %s: %s.%s = %g\n",
			firing.StepIndex, firing.Seq, firing.Priority, firing.Control,
			firing.Element, firing.Attribute, firing.Value)
	}
	return nil
}
