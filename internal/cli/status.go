package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"nvst/internal/state"
)

func newStatusCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workflow progress from the state document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.store().Read()
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Printf("Project: %s (agent: %s)\n\n", doc.Project, doc.Agent)
			for _, phase := range state.PhaseOrder {
				ps, ok := doc.Phases[phase]
				if !ok {
					continue
				}
				cmd.Printf("%-10s %s\n", phase, ps.Status)
				for _, step := range state.PhaseSteps[phase] {
					st, ok := ps.Steps[step]
					if !ok {
						continue
					}
					line := "  " + step + ": " + string(st.Status)
					if st.Attempts > 0 {
						cmd.Printf("%s (attempts: %d)\n", line, st.Attempts)
					} else {
						cmd.Println(line)
					}
					if st.Error != "" {
						cmd.Printf("    error: %s\n", st.Error)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw state document")
	return cmd
}
