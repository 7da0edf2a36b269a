package sitemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/httputil"
	"github.com/jonesrussell/siteindex/internal/logger"
)

// Discovery candidate names, probed relative to the site base URL.
var (
	indexCandidates   = []string{"sitemap_index.xml", "sitemap_index.xml.gz"}
	sitemapCandidates = []string{"sitemap.xml", "sitemap.xml.gz"}
)

// Fetcher discovers and downloads sitemap indexes and sitemaps for a
// site. Redirects are never followed during discovery; the HTTP client
// must be configured not to follow them.
type Fetcher struct {
	client *http.Client
	log    logger.Interface
}

// NewFetcher creates a sitemap fetcher using the given HTTP client.
func NewFetcher(client *http.Client, log logger.Interface) *Fetcher {
	return &Fetcher{client: client, log: log.WithComponent("sitemap")}
}

// DiscoverIndex locates the sitemap universe for a site. It probes the
// base URL itself and the sitemap_index candidates; the first document
// whose root is <sitemapindex> yields a real SitemapIndex with all
// child sitemaps fetched eagerly. When no index is found, single
// sitemap discovery runs instead and the result is wrapped in a
// VirtualSitemapIndex, so callers always see the same shape.
func (f *Fetcher) DiscoverIndex(ctx context.Context, site *domain.Site) (Index, error) {
	candidates := append([]string{site.URL}, resolveAll(site.URL, indexCandidates)...)

	for _, candidate := range candidates {
		data, ok := f.download(ctx, candidate)
		if !ok {
			continue
		}

		parsed, err := parseDoc(data)
		if err != nil || parsed.kind != kindSitemapIndex {
			continue
		}

		f.log.Info("found sitemap index", "url", candidate, "sitemaps", len(parsed.entries))
		index := &SitemapIndex{URL: candidate, Site: site}
		for _, loc := range parsed.sitemapLocs() {
			sm, fetchErr := f.Fetch(ctx, site, loc)
			if fetchErr != nil {
				return nil, fmt.Errorf("fetch child sitemap %s: %w", loc, fetchErr)
			}
			index.sitemaps = append(index.sitemaps, sm)
		}
		return index, nil
	}

	sm, err := f.Discover(ctx, site)
	if err != nil {
		return nil, err
	}
	return NewVirtualSitemapIndex(sm), nil
}

// Fetch downloads and parses the sitemap at an explicit URL. No
// discovery is performed.
func (f *Fetcher) Fetch(ctx context.Context, site *domain.Site, sitemapURL string) (*Sitemap, error) {
	data, ok := f.download(ctx, sitemapURL)
	if !ok {
		return nil, sierrors.NewURL(sierrors.KindNoSitemapFound, sitemapURL, "sitemap could not be fetched")
	}

	parsed, err := parseDoc(data)
	if err != nil {
		return nil, fmt.Errorf("sitemap %s: %w", sitemapURL, err)
	}
	if parsed.kind != kindURLSet {
		return nil, sierrors.NewURL(sierrors.KindNoSitemapFound, sitemapURL, "document is not a urlset")
	}

	return &Sitemap{URL: sitemapURL, Site: site, URLInfos: parsed.urlInfos()}, nil
}

// Discover probes the base URL and the sitemap.xml candidates and
// returns the first document that parses as a <urlset>.
func (f *Fetcher) Discover(ctx context.Context, site *domain.Site) (*Sitemap, error) {
	candidates := append([]string{site.URL}, resolveAll(site.URL, sitemapCandidates)...)

	for _, candidate := range candidates {
		data, ok := f.download(ctx, candidate)
		if !ok {
			continue
		}

		parsed, err := parseDoc(data)
		if err != nil || parsed.kind != kindURLSet {
			continue
		}

		f.log.Info("found sitemap", "url", candidate, "urls", len(parsed.entries))
		return &Sitemap{URL: candidate, Site: site, URLInfos: parsed.urlInfos()}, nil
	}

	return nil, sierrors.NewURL(sierrors.KindNoSitemapFound, site.URL, "no sitemap could be found")
}

// download GETs a candidate URL and returns the decompressed body. A
// transport error, non-200 status or failed decompression disqualifies
// the candidate.
func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		f.log.Debug("invalid sitemap candidate URL", "url", rawURL, "error", err)
		return nil, false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug("sitemap candidate unreachable", "url", rawURL, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Debug("sitemap candidate rejected", "url", rawURL, "status", resp.StatusCode)
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Debug("sitemap candidate read failed", "url", rawURL, "error", err)
		return nil, false
	}

	if httputil.IsGzipped(resp.Header.Get("Content-Type"), rawURL) {
		data, err = httputil.Gunzip(data)
		if err != nil {
			f.log.Debug("sitemap candidate gunzip failed", "url", rawURL, "error", err)
			return nil, false
		}
	}

	return data, true
}

// resolveAll resolves candidate names against a base URL. Candidates
// that fail to resolve are dropped.
func resolveAll(base string, names []string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	resolved := make([]string, 0, len(names))
	for _, name := range names {
		ref, refErr := url.Parse(name)
		if refErr != nil {
			continue
		}
		resolved = append(resolved, baseURL.ResolveReference(ref).String())
	}
	return resolved
}
