// Package crawl implements the crawl command: one full run over the
// configured sites.
package crawl

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteindex/cmd/common"
	"github.com/jonesrussell/siteindex/internal/crawler"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var (
		tikaURL string
		solrURL string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "crawl CONFIG [URL]",
		Short: "Crawl the configured sites and update the search index",
		Long: `Crawl discovers documents through the sitemaps of every configured
site, fetches changed documents, extracts the configured fields and
pushes the records into the search index. Index entries whose URLs have
disappeared from a site's sitemaps are purged.

With a URL argument the run is restricted to that single URL.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := common.NewLogger()
			if err != nil {
				return err
			}

			cfg, err := common.LoadConfig(args[0], tikaURL, solrURL)
			if err != nil {
				return err
			}

			opts := crawler.Options{Force: force}
			if len(args) > 1 {
				opts.URL = args[1]
			}

			return common.BuildCrawler(cfg, log).Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&tikaURL, "tika", "", "override the converter base URL")
	cmd.Flags().StringVar(&solrURL, "solr", "", "override the index base URL")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore freshness checks and always re-fetch")

	return cmd
}
