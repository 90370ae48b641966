package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"nvst/internal/flow"
	"nvst/internal/lifecycle"
	"nvst/internal/output"
)

func newFlowCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Dispatch workflow steps from the state document",
	}
	cmd.AddCommand(newFlowNextCommand(app), newFlowRunCommand(app))
	return cmd
}

func newFlowNextCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next workflow decision without executing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := app.lifecycle()
			if err != nil {
				return err
			}
			dec, err := lc.Next()
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(dec, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			printDecision(app.Printer, dec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decision as JSON")
	return cmd
}

func newFlowRunCommand(app *App) *cobra.Command {
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run steps until an approval gate, a failure, or completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := app.lifecycle()
			if err != nil {
				return err
			}
			lc.SetMaxSteps(maxSteps)

			report, err := lc.Run(cmd.Context())
			if err != nil {
				return err
			}

			app.Printer.Summary(stepResults(report.Steps), report.Elapsed)
			printDecision(app.Printer, report.Decision)
			for _, s := range report.Steps {
				if s.PRURL != "" {
					app.Printer.Text("Pull request: " + s.PRURL)
				}
			}

			if report.Decision.Kind == flow.KindBlocked {
				return NewExitError(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "stop after N steps (0 = unbounded)")
	return cmd
}

func printDecision(p *output.Printer, dec flow.Decision) {
	switch dec.Kind {
	case flow.KindRunStep:
		p.RunStep(string(dec.Phase), dec.Step)
	case flow.KindApprovalGate:
		p.ApprovalGate(string(dec.Phase), dec.Step)
	case flow.KindBlocked:
		p.Blocked(string(dec.Phase), dec.Step, dec.Reason)
	case flow.KindComplete:
		p.Complete()
	}
}

func stepResults(steps []lifecycle.StepOutcome) []output.StepResult {
	out := make([]output.StepResult, len(steps))
	for i, s := range steps {
		out[i] = output.StepResult{
			Phase:    string(s.Phase),
			Step:     s.Step,
			Success:  s.Success,
			Duration: s.Duration,
		}
	}
	return out
}
