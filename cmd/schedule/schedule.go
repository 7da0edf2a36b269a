// Package schedule implements the schedule command, running crawls
// periodically on a cron expression until interrupted.
package schedule

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteindex/cmd/common"
	"github.com/jonesrussell/siteindex/internal/crawler"
)

// defaultSpec runs one crawl every night at 03:00.
const defaultSpec = "0 3 * * *"

// Command returns the schedule command.
func Command() *cobra.Command {
	var (
		spec    string
		tikaURL string
		solrURL string
	)

	cmd := &cobra.Command{
		Use:   "schedule CONFIG",
		Short: "Run crawls periodically on a cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := common.NewLogger()
			if err != nil {
				return err
			}

			cfg, err := common.LoadConfig(args[0], tikaURL, solrURL)
			if err != nil {
				return err
			}

			c := common.BuildCrawler(cfg, log)
			ctx := cmd.Context()

			runner := cron.New()
			if _, err := runner.AddFunc(spec, func() {
				if runErr := c.Run(ctx, crawler.Options{}); runErr != nil {
					log.Error("scheduled crawl failed", "error", runErr)
				}
			}); err != nil {
				return err
			}

			log.Info("scheduler started", "spec", spec)
			runner.Start()
			defer runner.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case <-ctx.Done():
			}

			log.Info("scheduler stopping")
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", defaultSpec, "cron expression for crawl runs")
	cmd.Flags().StringVar(&tikaURL, "tika", "", "override the converter base URL")
	cmd.Flags().StringVar(&solrURL, "solr", "", "override the index base URL")

	return cmd
}
