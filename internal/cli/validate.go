package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/stream"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	Objects      int    `json:"objects"`
	Instructions int    `json:"instructions"`
	Local        int    `json:"local"`
	Remote       int    `json:"remote"`
	Detail       string `json:"detail,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <instruction-list>",
		Short: "Validate an instruction list without executing it",
		Long: `Parse and schema-check an instruction-list descriptor.

Nothing is scheduled or executed; the command reports what the driver
would see. Faster than a dry run for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, listPath string) error {
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

	doc, err := stream.Parse(string(src))
	if err != nil {
		var perr *stream.ParseError
		if errors.As(err, &perr) {
			return outputValidationFailure(formatter, perr)
		}
		_ = formatter.Error(CodeReadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "validate", err)
	}

	result := ValidationResult{
		Valid:        true,
		Objects:      len(doc.Objects),
		Instructions: len(doc.Instructions),
	}
	for _, w := range doc.Instructions {
		switch w.Routing {
		case instr.RoutingLocal:
			result.Local++
		case instr.RoutingRemote:
			result.Remote++
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ valid: %d object(s), %d instruction(s) (%d local, %d remote)\n",
		result.Objects, result.Instructions, result.Local, result.Remote)
	return nil
}

func outputValidationFailure(formatter *OutputFormatter, perr *stream.ParseError) error {
	if formatter.Format == "json" {
		_ = formatter.Error(CodeInvalidList, "instruction list invalid", perr.Detail)
		return NewExitError(ExitFailure, "validation failed")
	}
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, perr.Detail)
	return NewExitError(ExitFailure, "validation failed")
}
