// Package sitemap implements sitemap and sitemap-index discovery,
// download, decompression and parsing. Both document forms of
// sitemaps.org 0.9 are supported, namespaces are tolerated and
// stripped, and either form may be served gzipped.
package sitemap

import (
	"strings"

	"github.com/jonesrussell/siteindex/internal/domain"
)

// Sitemap is an ordered sequence of URL entries parsed from one
// sitemap document.
type Sitemap struct {
	// URL is the location this sitemap was fetched from.
	URL string
	// Site is the owning crawl target.
	Site *domain.Site
	// URLInfos are the parsed <url> entries in document order.
	URLInfos []domain.URLInfo
}

// Contains tests whether a URL is listed in this sitemap. The
// comparison on loc is case-insensitive.
func (s *Sitemap) Contains(url string) bool {
	lowered := strings.ToLower(url)
	for _, ui := range s.URLInfos {
		if strings.ToLower(ui.Loc) == lowered {
			return true
		}
	}
	return false
}

// Index is the uniform shape consumers see for a site's sitemap
// universe, whether a real sitemap index was discovered or a single
// sitemap had to be wrapped.
type Index interface {
	// Sitemaps returns the contained sitemaps in document order.
	Sitemaps() []*Sitemap
	// Contains reports whether any contained sitemap lists the URL.
	Contains(url string) bool
}

// SitemapIndex is a real sitemap index: an ordered sequence of
// sitemaps parsed from a <sitemapindex> document.
type SitemapIndex struct {
	// URL is the location the index was fetched from.
	URL string
	// Site is the owning crawl target.
	Site *domain.Site

	sitemaps []*Sitemap
}

// Ensure both index forms satisfy Index.
var (
	_ Index = (*SitemapIndex)(nil)
	_ Index = (*VirtualSitemapIndex)(nil)
)

// Sitemaps returns the contained sitemaps in document order.
func (si *SitemapIndex) Sitemaps() []*Sitemap {
	return si.sitemaps
}

// Contains reports whether any contained sitemap lists the URL.
func (si *SitemapIndex) Contains(url string) bool {
	for _, sm := range si.sitemaps {
		if sm.Contains(url) {
			return true
		}
	}
	return false
}

// VirtualSitemapIndex wraps a single discovered sitemap so that callers
// always see the Index shape even when a site advertises no real index.
type VirtualSitemapIndex struct {
	sitemap *Sitemap
}

// NewVirtualSitemapIndex wraps a single sitemap.
func NewVirtualSitemapIndex(sm *Sitemap) *VirtualSitemapIndex {
	return &VirtualSitemapIndex{sitemap: sm}
}

// Sitemaps returns the single wrapped sitemap.
func (vi *VirtualSitemapIndex) Sitemaps() []*Sitemap {
	return []*Sitemap{vi.sitemap}
}

// Contains reports whether the wrapped sitemap lists the URL.
func (vi *VirtualSitemapIndex) Contains(url string) bool {
	return vi.sitemap.Contains(url)
}
