package cli

import (
	"github.com/spf13/cobra"

	"nvst/internal/state"
)

func newTestCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test phase: plan, run, and fix tests",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "plan",
			Short: "Generate a test plan covering the requirements",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhaseTest, "plan")
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Execute the test plan; failures enter the fix loop",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runPhaseStep(cmd.Context(), state.PhaseTest, "run")
			},
		},
		newTestFixCommand(app),
	)
	return cmd
}

func newTestFixCommand(app *App) *cobra.Command {
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Run the bounded fix/re-run loop for failing tests",
		Long: `Run the fix loop directly: the agent attempts a fix, the suite is
re-run, until it passes or the attempt budget is exhausted. The test run
step must be failed; use --force to fix from any state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStepStatus(state.PhaseTest, "run", state.StatusFailed); err != nil {
				return err
			}

			lc, err := app.lifecycle()
			if err != nil {
				return err
			}
			if maxAttempts > 0 {
				lc.SetMaxFixAttempts(maxAttempts)
			}

			outcome, err := lc.FixTests(cmd.Context())
			if err != nil {
				return err
			}
			if !outcome.Success {
				return NewExitError(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "maximum fix attempts (default from config)")
	return cmd
}
