package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newRawCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <prompt>...",
		Short: "Run an arbitrary prompt through the configured agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if exitCode := app.runner().RunRaw(cmd.Context(), prompt); exitCode != 0 {
				return NewExitError(exitCode)
			}
			return nil
		},
	}
}
