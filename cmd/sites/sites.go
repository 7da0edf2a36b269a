// Package sites implements the sites command, listing the crawl
// targets of a configuration in a formatted table.
package sites

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteindex/internal/config"
)

// Command returns the sites command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "sites CONFIG",
		Short: "List the configured crawl targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"URL", "Delay", "Attributes"})

			for _, site := range cfg.Sites {
				t.AppendRow(table.Row{site.URL, site.Sleeptime(), formatAttributes(site.Attributes)})
			}

			t.Render()
			return nil
		},
	}
}

// formatAttributes renders an attribute bag as stable key=value pairs.
func formatAttributes(attributes map[string]string) string {
	if len(attributes) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, attributes[key]))
	}
	return strings.Join(pairs, ", ")
}
