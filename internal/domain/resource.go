package domain

import (
	"net/http"
	"time"

	"github.com/jonesrussell/siteindex/internal/metadata"
)

// URLInfo is one parsed <url> entry from a sitemap. Loc is mandatory;
// everything else is optional. Target is an alternate canonical URL
// distinct from the fetch URL.
type URLInfo struct {
	Loc        string
	LastMod    string
	ChangeFreq string
	Priority   string
	Target     string
}

// ResourceInfo is the per-URL crawl record flowing through the
// pipeline. It is created by the orchestrator, filled progressively by
// the fetcher and the converter, and discarded when the downloaded
// temp file is unlinked.
type ResourceInfo struct {
	// Site is the owning crawl target.
	Site *Site
	// URLInfo is the sitemap entry this resource was discovered from.
	URLInfo URLInfo
	// LastIndexed is the prior last-indexed timestamp in UTC, if any.
	LastIndexed *time.Time
	// Filename is the local path of the downloaded body.
	Filename string
	// ContentType is the response MIME type, stripped of charset.
	ContentType string
	// Headers holds the response headers (case-insensitive access).
	Headers http.Header
	// Metadata is the normalized metadata mapping from the converter.
	Metadata metadata.Metadata
	// Text is the plain text from the converter.
	Text string
}

// Record is a single index record: field names mapped to values
// satisfying the fields' declared types. Timestamps are encoded as UTC
// ISO 8601 via timeutil.Timestamp.
type Record map[string]any
