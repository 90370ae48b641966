package cli

import (
	"github.com/spf13/cobra"

	"nvst/internal/state"
)

func newDefineCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "define",
		Short: "Define phase: write and approve the product requirements",
	}
	cmd.AddCommand(newDefinePRDCommand(app), newDefineApproveCommand(app))
	return cmd
}

func newDefinePRDCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prd",
		Short: "Generate the product requirements document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runPhaseStep(cmd.Context(), state.PhaseDefine, "prd")
		},
	}
}

func newDefineApproveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "approve",
		Short: "Approve the generated requirements document",
		Long: `Approve the PRD artifact, unblocking the prototype phase. The prd
step must be awaiting approval; use --force to approve from any state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStepStatus(state.PhaseDefine, "prd", state.StatusCreated, state.StatusPendingApproval); err != nil {
				return err
			}

			store := app.store()
			if err := store.SetStepStatus(state.PhaseDefine, "prd", state.StatusApproved); err != nil {
				return err
			}
			if err := store.SetStepStatus(state.PhaseDefine, "approve", state.StatusCompleted); err != nil {
				return err
			}

			cmd.Println("PRD approved; define phase complete")
			return nil
		},
	}
}
