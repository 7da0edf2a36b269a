// Package common provides the shared wiring used by the CLI commands:
// logger construction and assembly of the crawl pipeline from a
// configuration file.
package common

import (
	"github.com/spf13/viper"

	"github.com/jonesrussell/siteindex/internal/config"
	"github.com/jonesrussell/siteindex/internal/crawler"
	"github.com/jonesrussell/siteindex/internal/extract"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/notify"
	"github.com/jonesrussell/siteindex/internal/solr"
	"github.com/jonesrussell/siteindex/internal/tika"
)

// NewLogger builds the application logger from the ambient settings.
func NewLogger() (logger.Interface, error) {
	return logger.New(&logger.Config{
		Level:    viper.GetString("log_level"),
		Encoding: viper.GetString("log_encoding"),
	})
}

// LoadConfig loads a crawl configuration and applies the endpoint
// overrides. A missing converter or index URL is a configuration
// error.
func LoadConfig(path, tikaURL, solrURL string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyOverrides(tikaURL, solrURL)
	if err := cfg.ValidateEndpoints(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildCrawler assembles the crawl pipeline for a configuration: one
// pooled redirect-refusing HTTP client shared by all components, the
// converter-backed extraction engine, the index client and the
// optional chat notifier.
func BuildCrawler(cfg *config.Config, log logger.Interface) *crawler.Crawler {
	client := crawler.NewHTTPClient(viper.GetDuration("http_timeout"))

	var notifier notify.Notifier = notify.NoOp{}
	if cfg.SlackWebhook != "" {
		notifier = notify.NewSlack(cfg.SlackWebhook, client, log)
	}

	return crawler.New(crawler.Params{
		Config:   cfg,
		Client:   client,
		Index:    solr.NewClient(cfg.SolrURL, client, log),
		Engine:   extract.NewEngine(tika.NewClient(cfg.TikaURL, client, log), log),
		Notifier: notifier,
		Logger:   log,
	})
}
