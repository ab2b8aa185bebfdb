package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tensorlane/tensorlane/internal/topology"
	"github.com/tensorlane/tensorlane/internal/trace"
	"github.com/tensorlane/tensorlane/internal/vm"
)

// RunResult is the payload reported after a run.
type RunResult struct {
	RunID    string `json:"run_id"`
	Passes   int    `json:"passes"`
	Executed int64  `json:"executed"`
	Objects  int    `json:"objects"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		topologyPath string
		dbPath       string
		runID        string
		maxPasses    int
	)

	cmd := &cobra.Command{
		Use:   "run <instruction-list>",
		Short: "Drive an instruction list to quiescence",
		Long: `Parse an instruction-list descriptor and execute it.

Instructions are split by routing class onto two scheduling engines and
driven in alternating passes until both engines report empty. With --db,
every finished compute step is recorded to a SQLite trace.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, cmd, args[0], topologyPath, dbPath, runID, maxPasses)
		},
	}

	cmd.Flags().StringVar(&topologyPath, "topology", "", "topology config file (YAML)")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the trace to this SQLite database")
	cmd.Flags().StringVar(&runID, "run-id", "", "fix the run identity instead of generating one")
	cmd.Flags().IntVar(&maxPasses, "max-passes", 0, "bound the scheduling loop (0 = unbounded)")

	return cmd
}

func runRun(opts *RootOptions, cmd *cobra.Command, listPath, topologyPath, dbPath, runID string, maxPasses int) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	src, err := os.ReadFile(listPath)
	if err != nil {
		_ = formatter.Error(CodeReadInput, fmt.Sprintf("read instruction list: %v", err), nil)
		return WrapExitError(ExitCommandError, "read instruction list", err)
	}

	runOpts := []vm.Option{vm.WithMaxPasses(maxPasses)}

	if topologyPath != "" {
		cfg, err := topology.LoadFile(topologyPath)
		if err != nil {
			_ = formatter.Error(CodeTopology, err.Error(), nil)
			return WrapExitError(ExitCommandError, "load topology", err)
		}
		formatter.VerboseLog("Topology: %d machine(s), %d local / %d remote workers",
			cfg.Machines, cfg.LocalWorkers, cfg.RemoteWorkers)
		runOpts = append(runOpts, vm.WithTopology(*cfg))
	}
	if runID != "" {
		runOpts = append(runOpts, vm.WithRunID(runID))
	}
	if dbPath != "" {
		store, err := trace.Open(dbPath)
		if err != nil {
			_ = formatter.Error(CodeTraceDB, err.Error(), nil)
			return WrapExitError(ExitCommandError, "open trace database", err)
		}
		defer store.Close()
		runOpts = append(runOpts, vm.WithRecorder(store))
	}

	rep, err := vm.Run(cmd.Context(), string(src), runOpts...)
	if err != nil {
		_ = formatter.Error(CodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "run failed", err)
	}

	result := RunResult{
		RunID:    rep.RunID,
		Passes:   rep.Passes,
		Executed: rep.Executed,
		Objects:  rep.Env.Len(),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "run %s quiesced: %d step(s) in %d pass(es), %d object(s)\n",
		result.RunID, result.Executed, result.Passes, result.Objects)
	return nil
}
