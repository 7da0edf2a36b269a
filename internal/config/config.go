// Package config loads and validates the declarative crawl
// configuration: the sites to crawl, the output fields with their
// extractors, the distinguished field names and the external service
// endpoints.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/extract"
)

// fileConfig is the raw YAML shape of a crawl configuration. Sites and
// fields are decoded in a second pass with mapstructure so extractor
// parameters can stay free-form.
type fileConfig struct {
	Sites             []map[string]any `yaml:"sites"`
	Fields            []map[string]any `yaml:"fields"`
	UniqueField       string           `yaml:"unique_field"`
	URLField          string           `yaml:"url_field"`
	LastModifiedField string           `yaml:"last_modified_field"`
	Tika              string           `yaml:"tika"`
	Solr              string           `yaml:"solr"`
	SlackWebhook      string           `yaml:"slack_webhook"`
}

// siteSpec is the decoded shape of one sites entry.
type siteSpec struct {
	URL        string            `mapstructure:"url"`
	Attributes map[string]string `mapstructure:"attributes"`
	// Delay is the initial politeness delay in seconds.
	Delay float64 `mapstructure:"delay"`
}

// fieldSpec is the decoded shape of one fields entry.
type fieldSpec struct {
	Name        string         `mapstructure:"name"`
	Type        string         `mapstructure:"type"`
	Required    bool           `mapstructure:"required"`
	Multivalued bool           `mapstructure:"multivalued"`
	Extractor   map[string]any `mapstructure:"extractor"`
}

// Config is the validated crawl configuration. It is immutable after
// construction apart from the endpoint overrides and may be shared
// freely.
type Config struct {
	// Sites are the crawl targets in configuration order.
	Sites []*domain.Site
	// Fields are the output columns in configuration order.
	Fields []*extract.Field

	// UniqueField names the primary key field in the index.
	UniqueField string
	// URLField names the persisted canonical URL field.
	URLField string
	// LastModifiedField names the persisted timestamp used for freshness.
	LastModifiedField string

	// TikaURL is the converter base URL.
	TikaURL string
	// SolrURL is the index base URL.
	SolrURL string
	// SlackWebhook optionally receives crawl error notifications.
	SlackWebhook string

	fieldsByName map[string]*extract.Field
}

// Ensure Config satisfies the extractor framework's peer lookup.
var _ extract.FieldLookup = (*Config)(nil)

// Load reads and validates a crawl configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sierrors.New(sierrors.KindConfig, "read config %s: %v", path, err)
	}
	return Parse(data)
}

// Parse validates a crawl configuration from raw YAML.
func Parse(data []byte) (*Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, sierrors.New(sierrors.KindConfig, "parse config: %v", err)
	}

	cfg := &Config{
		UniqueField:       raw.UniqueField,
		URLField:          raw.URLField,
		LastModifiedField: raw.LastModifiedField,
		TikaURL:           raw.Tika,
		SolrURL:           raw.Solr,
		SlackWebhook:      raw.SlackWebhook,
		fieldsByName:      map[string]*extract.Field{},
	}

	if err := cfg.buildSites(raw.Sites); err != nil {
		return nil, err
	}
	if err := cfg.buildFields(raw.Fields); err != nil {
		return nil, err
	}
	if err := cfg.resolveDistinguished(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// buildSites decodes and validates the sites section.
func (c *Config) buildSites(specs []map[string]any) error {
	if len(specs) == 0 {
		return sierrors.New(sierrors.KindConfig, "no sites configured")
	}

	for i, rawSite := range specs {
		var spec siteSpec
		if err := mapstructure.Decode(rawSite, &spec); err != nil {
			return sierrors.New(sierrors.KindConfig, "site %d: %v", i, err)
		}

		parsed, err := url.Parse(spec.URL)
		if err != nil || !parsed.IsAbs() {
			return sierrors.New(sierrors.KindConfig, "site %d: %q is not an absolute URL", i, spec.URL)
		}

		delay := time.Duration(spec.Delay * float64(time.Second))
		c.Sites = append(c.Sites, domain.NewSite(spec.URL, spec.Attributes, delay))
	}
	return nil
}

// buildFields decodes the fields section, constructing each field's
// extractor variant.
func (c *Config) buildFields(specs []map[string]any) error {
	if len(specs) == 0 {
		return sierrors.New(sierrors.KindConfig, "no fields configured")
	}

	for i, rawField := range specs {
		var spec fieldSpec
		if err := mapstructure.Decode(rawField, &spec); err != nil {
			return sierrors.New(sierrors.KindConfig, "field %d: %v", i, err)
		}

		if spec.Name == "" {
			return sierrors.New(sierrors.KindConfig, "field %d: missing name", i)
		}
		if _, exists := c.fieldsByName[spec.Name]; exists {
			return sierrors.New(sierrors.KindConfig, "duplicate field %q", spec.Name)
		}

		fieldType := extract.Type(spec.Type)
		if !fieldType.Valid() {
			return sierrors.New(sierrors.KindConfig, "field %q: unknown type %q", spec.Name, spec.Type)
		}

		extractorName, params, err := splitExtractorSpec(spec.Extractor)
		if err != nil {
			return sierrors.New(sierrors.KindConfig, "field %q: %v", spec.Name, err)
		}

		extractor, err := extract.New(extractorName, params)
		if err != nil {
			return fmt.Errorf("field %q: %w", spec.Name, err)
		}

		field := &extract.Field{
			Name:        spec.Name,
			Type:        fieldType,
			Required:    spec.Required,
			Multivalued: spec.Multivalued,
			Extractor:   extractor,
		}
		c.Fields = append(c.Fields, field)
		c.fieldsByName[spec.Name] = field
	}
	return nil
}

// splitExtractorSpec separates the extractor name from its parameters.
func splitExtractorSpec(spec map[string]any) (string, map[string]any, error) {
	if len(spec) == 0 {
		return "", nil, fmt.Errorf("missing extractor")
	}

	name, ok := spec["name"].(string)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("extractor needs a name")
	}

	params := make(map[string]any, len(spec)-1)
	for key, value := range spec {
		if key != "name" {
			params[key] = value
		}
	}
	return name, params, nil
}

// resolveDistinguished checks that the three distinguished field names
// resolve to defined fields.
func (c *Config) resolveDistinguished() error {
	for _, named := range []struct {
		option string
		name   string
	}{
		{"unique_field", c.UniqueField},
		{"url_field", c.URLField},
		{"last_modified_field", c.LastModifiedField},
	} {
		if named.name == "" {
			return sierrors.New(sierrors.KindConfig, "%s is not configured", named.option)
		}
		if _, err := c.Field(named.name); err != nil {
			return sierrors.New(sierrors.KindConfig, "%s: %v", named.option, err)
		}
	}
	return nil
}

// Field looks up a configured field by name.
func (c *Config) Field(name string) (*extract.Field, error) {
	field, ok := c.fieldsByName[name]
	if !ok {
		return nil, sierrors.New(sierrors.KindNoSuchField, "no field named %q", name)
	}
	return field, nil
}

// SiteFor finds the configured site owning a URL: the site whose base
// URL is the longest prefix of it.
func (c *Config) SiteFor(rawURL string) (*domain.Site, error) {
	var best *domain.Site
	for _, site := range c.Sites {
		if strings.HasPrefix(rawURL, site.URL) {
			if best == nil || len(site.URL) > len(best.URL) {
				best = site
			}
		}
	}
	if best == nil {
		return nil, sierrors.New(sierrors.KindSiteNotFound, "no configured site owns %q", rawURL)
	}
	return best, nil
}

// ApplyOverrides replaces the converter and index endpoints with
// runtime values when given.
func (c *Config) ApplyOverrides(tikaURL, solrURL string) {
	if tikaURL != "" {
		c.TikaURL = tikaURL
	}
	if solrURL != "" {
		c.SolrURL = solrURL
	}
}

// ValidateEndpoints checks that the converter and index base URLs are
// known, either from the configuration or from runtime overrides.
func (c *Config) ValidateEndpoints() error {
	if c.TikaURL == "" {
		return sierrors.New(sierrors.KindConfig, "converter (tika) URL is neither configured nor supplied")
	}
	if c.SolrURL == "" {
		return sierrors.New(sierrors.KindConfig, "index (solr) URL is neither configured nor supplied")
	}
	return nil
}
