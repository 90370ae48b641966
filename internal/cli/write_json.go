package cli

import (
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"nvst/internal/schema"
)

func newWriteJSONCommand(app *App) *cobra.Command {
	var schemaName, outPath, inPath string

	cmd := &cobra.Command{
		Use:   "write-json",
		Short: "Validate a JSON artifact against a named schema and write it",
		Long: `Validate JSON from stdin (or --in) against a named schema and write it
atomically to --out. Agents use this to produce workflow artifacts that
are guaranteed to match their schema. Invalid payloads exit non-zero
with a message naming the offending field.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := schema.NewRegistry()
			if err != nil {
				return err
			}
			if _, err := registry.Get(schemaName); err != nil {
				return err
			}

			var data []byte
			if inPath != "" {
				data, err = afero.ReadFile(app.Fs, inPath)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			writer := schema.NewWriter(registry, app.Fs)
			if err := writer.Write(schemaName, outPath, data); err != nil {
				return err
			}

			cmd.Printf("Wrote %s (schema %s)\n", outPath, schemaName)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaName, "schema", "", "schema name (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (required)")
	cmd.Flags().StringVar(&inPath, "in", "", "input path (default stdin)")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("out")
	return cmd
}
