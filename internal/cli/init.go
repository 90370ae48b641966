package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"nvst/internal/state"
)

func newInitCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init <project>",
		Short: "Initialize the workflow state document",
		Long: `Initialize a new state document with every phase and step pending.
Fails if a state document already exists; use --force to overwrite.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := app.store()
			if store.Exists() && !app.Force {
				return fmt.Errorf("state document already exists at %s (--force to overwrite)", store.Path())
			}

			doc := state.NewDocument(args[0])
			doc.Agent = app.Config.Agent.Provider
			if err := store.Write(doc); err != nil {
				return err
			}

			cmd.Printf("Initialized %s for project %s\n", store.Path(), args[0])
			return nil
		},
	}
}
