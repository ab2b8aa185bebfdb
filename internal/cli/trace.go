package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tensorlane/tensorlane/internal/trace"
	"github.com/tensorlane/tensorlane/internal/vm"
)

// NewTraceCommand creates the trace command group.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded execution traces",
	}
	cmd.AddCommand(newTraceRunsCommand(rootOpts))
	cmd.AddCommand(newTraceShowCommand(rootOpts))
	return cmd
}

func newTraceRunsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "runs <db>",
		Short:         "List recorded runs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceRuns(rootOpts, cmd, args[0])
		},
	}
}

func newTraceShowCommand(rootOpts *RootOptions) *cobra.Command {
	var filter trace.Filter

	cmd := &cobra.Command{
		Use:           "show <db>",
		Short:         "Show recorded executions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceShow(rootOpts, cmd, args[0], filter)
		},
	}

	cmd.Flags().StringVar(&filter.RunID, "run", "", "filter by run ID")
	cmd.Flags().StringVar(&filter.Op, "op", "", "filter by operator name")
	cmd.Flags().StringVar(&filter.Routing, "routing", "", "filter by routing class (local|remote)")
	cmd.Flags().BoolVar(&filter.FailedOnly, "failed", false, "show failed steps only")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "cap the number of rows (0 = all)")

	return cmd
}

func openTraceStore(formatter *OutputFormatter, path string) (*trace.Store, error) {
	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(CodeTraceDB, fmt.Sprintf("trace database: %v", err), nil)
		return nil, WrapExitError(ExitCommandError, "trace database", err)
	}
	store, err := trace.Open(path)
	if err != nil {
		_ = formatter.Error(CodeTraceDB, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "open trace database", err)
	}
	return store, nil
}

func runTraceRuns(opts *RootOptions, cmd *cobra.Command, dbPath string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := openTraceStore(formatter, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		_ = formatter.Error(CodeTraceDB, err.Error(), nil)
		return WrapExitError(ExitCommandError, "list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS\tFAILURES\tLAST SEQ")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.RunID, r.Steps, r.Failures, r.LastSeq)
	}
	return w.Flush()
}

func runTraceShow(opts *RootOptions, cmd *cobra.Command, dbPath string, filter trace.Filter) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := openTraceStore(formatter, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	execs, err := store.Executions(cmd.Context(), filter)
	if err != nil {
		_ = formatter.Error(CodeTraceDB, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read executions", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(execs)
	}
	return printExecutions(formatter, execs)
}

func printExecutions(formatter *OutputFormatter, execs []vm.Execution) error {
	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSEQ\tOP\tLABEL\tROUTING\tWORKER\tERR")
	for _, x := range execs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
			x.RunID, x.Seq, x.Op, x.Label, x.Routing, x.Worker, x.Err)
	}
	return w.Flush()
}
