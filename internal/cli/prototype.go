package cli

import (
	"github.com/spf13/cobra"

	"nvst/internal/state"
)

func newPrototypeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prototype",
		Short: "Prototype phase: scaffold and implement the project",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "scaffold",
			Short: "Create the project structure from the approved PRD",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhasePrototype, "scaffold")
			},
		},
		&cobra.Command{
			Use:   "implement",
			Short: "Implement the requirements from the approved PRD",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhasePrototype, "implement")
			},
		},
	)
	return cmd
}
