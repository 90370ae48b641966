package cli

import (
	"github.com/spf13/cobra"

	"nvst/internal/state"
)

func newRefactorCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refactor",
		Short: "Refactor phase: review, apply fixes, and finalize",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "review",
			Short: "Review the codebase and record issues",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhaseRefactor, "review")
			},
		},
		&cobra.Command{
			Use:   "apply",
			Short: "Address the recorded issues",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhaseRefactor, "apply")
			},
		},
		&cobra.Command{
			Use:   "finalize",
			Short: "Write the progress report and publish a pull request",
			Long: `Finalize the workflow: the agent writes a progress report, then the
changes are committed on a branch, pushed, and opened as a pull request
per the git configuration.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhaseRefactor, "finalize")
			},
		},
	)
	return cmd
}
