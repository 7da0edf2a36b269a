// Package crawler implements the orchestrator: the per-site pipeline
// from sitemap discovery through fetching, extraction and indexing,
// the reconciliation purge, and the lifecycle of the scratch
// directory.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jonesrussell/siteindex/internal/config"
	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/extract"
	"github.com/jonesrussell/siteindex/internal/fetch"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/notify"
	"github.com/jonesrussell/siteindex/internal/sitemap"
	"github.com/jonesrussell/siteindex/internal/solr"
	"github.com/jonesrussell/siteindex/internal/timeutil"
)

// DefaultRequestTimeout bounds every HTTP request of a crawl.
const DefaultRequestTimeout = 30 * time.Second

// Options are the runtime options of one crawl invocation.
type Options struct {
	// Force ignores freshness checks and always re-fetches.
	Force bool
	// URL restricts the run to a single URL within a configured site.
	URL string
}

// Crawler wires the pipeline components for one configuration.
type Crawler struct {
	cfg      *config.Config
	fetcher  *fetch.Fetcher
	sitemaps *sitemap.Fetcher
	engine   *extract.Engine
	index    solr.Indexer
	notifier notify.Notifier
	log      logger.Interface
}

// Params carries the collaborators for creating a crawler. A nil Logger
// or Notifier selects a no-op implementation; Config, Client, Index and
// Engine must be set.
type Params struct {
	Config   *config.Config
	Client   *http.Client
	Index    solr.Indexer
	Engine   *extract.Engine
	Notifier notify.Notifier
	Logger   logger.Interface
}

// NewHTTPClient returns the crawl's HTTP client: a pooled client that
// never follows redirects, with the given request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New creates a crawler from its collaborators.
func New(p Params) *Crawler {
	log := p.Logger
	if log == nil {
		log = logger.NewNoOp()
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = notify.NoOp{}
	}
	return &Crawler{
		cfg:      p.Config,
		fetcher:  fetch.New(p.Client, log),
		sitemaps: sitemap.NewFetcher(p.Client, log),
		engine:   p.Engine,
		index:    p.Index,
		notifier: notifier,
		log:      log.WithComponent("crawler"),
	}
}

// Run crawls every configured site in order. A scratch directory is
// created for downloaded bodies and removed on all exit paths.
// Per-site errors abort the site but not the run; per-URL errors are
// logged and skipped.
func (c *Crawler) Run(ctx context.Context, opts Options) error {
	scratchDir, err := os.MkdirTemp("", "siteindex-")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(scratchDir); removeErr != nil {
			c.log.Error("remove scratch directory failed", "dir", scratchDir, "error", removeErr)
		}
	}()

	for _, site := range c.cfg.Sites {
		if opts.URL != "" && !ownsURL(site, opts.URL) {
			continue
		}

		if siteErr := c.crawlSite(ctx, site, scratchDir, opts); siteErr != nil {
			c.log.Error("site aborted", "site", site.URL, "error", siteErr)
			c.notifier.Error(ctx, site, siteErr)
		}
	}
	return nil
}

// ownsURL reports whether a URL falls under a site's base URL.
func ownsURL(site *domain.Site, url string) bool {
	return len(url) >= len(site.URL) && url[:len(site.URL)] == site.URL
}

// indexedDoc is one stored record read back from the index for
// freshness lookups and reconciliation.
type indexedDoc struct {
	uid         string
	url         string
	lastIndexed *time.Time
}

// crawlSite runs the full pipeline for one site: discover the sitemap
// universe, reconcile the index against it, then process every URL.
func (c *Crawler) crawlSite(ctx context.Context, site *domain.Site, scratchDir string, opts Options) error {
	c.log.Info("crawling site", "site", site.URL)

	smIndex, err := c.sitemaps.DiscoverIndex(ctx, site)
	if err != nil {
		return err
	}

	indexed, err := c.indexedDocs(ctx, site)
	if err != nil {
		return err
	}

	c.purge(ctx, site, smIndex, indexed)

	total := 0
	for _, sm := range smIndex.Sitemaps() {
		total += len(sm.URLInfos)
	}

	n := 0
	for _, sm := range smIndex.Sitemaps() {
		for _, urlInfo := range sm.URLInfos {
			n++
			if opts.URL != "" && opts.URL != urlInfo.Loc {
				continue
			}
			c.processURL(ctx, site, urlInfo, indexed, scratchDir, opts.Force, n, total)
		}
	}
	return nil
}

// indexedDocs queries the index for all records stored under the
// site's URL, restricted to the distinguished fields.
func (c *Crawler) indexedDocs(ctx context.Context, site *domain.Site) (map[string]indexedDoc, error) {
	query := fmt.Sprintf("%s:%s*", c.cfg.URLField, solr.Escape(site.URL))
	fl := []string{c.cfg.UniqueField, c.cfg.URLField, c.cfg.LastModifiedField}

	docs, err := c.index.Search(ctx, query, fl)
	if err != nil {
		return nil, err
	}

	indexed := make(map[string]indexedDoc, len(docs))
	for _, doc := range docs {
		url, _ := doc[c.cfg.URLField].(string)
		uid, _ := doc[c.cfg.UniqueField].(string)
		if url == "" || uid == "" {
			continue
		}

		entry := indexedDoc{uid: uid, url: url}
		if raw, ok := doc[c.cfg.LastModifiedField].(string); ok {
			if t, parseErr := timeutil.FromISO(raw); parseErr == nil {
				entry.lastIndexed = &t
			}
		}
		indexed[url] = entry
	}
	return indexed, nil
}

// purge deletes index records whose URLs start with the site URL but
// appear in no sitemap of the fetched index. Deletes are issued before
// any fresh writes for the site.
func (c *Crawler) purge(ctx context.Context, site *domain.Site, smIndex sitemap.Index, indexed map[string]indexedDoc) {
	c.log.Info("purging removed documents", "site", site.URL)

	for _, doc := range purgeSet(site, smIndex, indexed) {
		c.log.Info("purging document", "uid", doc.uid, "url", doc.url)
		if err := c.index.Delete(ctx, doc.uid); err != nil {
			c.log.Error("purge failed", "uid", doc.uid, "error", err)
		}
	}
}

// purgeSet computes the documents to purge: indexed records owned by
// the site that no sitemap lists anymore.
func purgeSet(site *domain.Site, smIndex sitemap.Index, indexed map[string]indexedDoc) []indexedDoc {
	var purge []indexedDoc
	for _, doc := range indexed {
		if ownsURL(site, doc.url) && !smIndex.Contains(doc.url) {
			purge = append(purge, doc)
		}
	}
	return purge
}

// processURL runs the fetch → extract → index → unlink pipeline for a
// single URL. All errors are logged and swallowed so the crawl
// continues.
func (c *Crawler) processURL(
	ctx context.Context,
	site *domain.Site,
	urlInfo domain.URLInfo,
	indexed map[string]indexedDoc,
	scratchDir string,
	force bool,
	n, total int,
) {
	progress := fmt.Sprintf("[%d/%d]", n, total)

	res := &domain.ResourceInfo{Site: site, URLInfo: urlInfo}
	if doc, ok := indexed[urlInfo.Loc]; ok {
		res.LastIndexed = doc.lastIndexed
	}

	defer func() {
		if res.Filename != "" {
			if err := os.Remove(res.Filename); err != nil {
				c.log.Error("unlink temp file failed", "file", res.Filename, "error", err)
			}
		}
	}()

	if err := c.fetcher.Fetch(ctx, res, scratchDir, force); err != nil {
		switch sierrors.KindOf(err) {
		case sierrors.KindNotModified:
			c.log.Info("skipped, not modified", "progress", progress, "url", urlInfo.Loc)
		case sierrors.KindAttemptedRedirect:
			c.log.Info("skipped, attempted redirect", "progress", progress, "url", urlInfo.Loc)
		default:
			c.log.Error("fetch failed", "progress", progress, "url", urlInfo.Loc, "error", err)
		}
		return
	}

	record, err := c.engine.Run(ctx, c.cfg.Fields, c.cfg, res)
	if err != nil {
		c.log.Error("extraction failed", "progress", progress, "url", urlInfo.Loc, "error", err)
		return
	}

	if err := c.index.Index(ctx, record); err != nil {
		c.log.Error("index write failed", "progress", progress, "url", urlInfo.Loc, "error", err)
		return
	}

	c.log.Info("indexed", "progress", progress, "url", urlInfo.Loc)
}
