// Package fields implements the fields command, listing the output
// columns of a configuration in a formatted table.
package fields

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteindex/internal/config"
)

// Command returns the fields command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "fields CONFIG",
		Short: "List the configured output fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Required", "Multivalued", "Extractor"})

			for _, field := range cfg.Fields {
				t.AppendRow(table.Row{
					field.Name,
					field.Type,
					field.Required,
					field.Multivalued,
					fmt.Sprintf("%T", field.Extractor),
				})
			}

			t.Render()
			return nil
		},
	}
}
