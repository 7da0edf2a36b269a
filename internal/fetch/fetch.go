// Package fetch implements the per-URL fetch state machine: the
// freshness decision, the conditional download with redirect refusal
// and rate-limit backoff, and the temp-file lifecycle.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/httputil"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/timeutil"
)

// Fetcher downloads resources into temp files owned by the
// orchestrator's scratch directory. The HTTP client must be configured
// not to follow redirects.
type Fetcher struct {
	client *http.Client
	log    logger.Interface

	// sleep is swappable for tests; defaults to time.Sleep.
	sleep func(time.Duration)
}

// New creates a fetcher using the given HTTP client.
func New(client *http.Client, log logger.Interface) *Fetcher {
	return &Fetcher{
		client: client,
		log:    log.WithComponent("fetch"),
		sleep:  time.Sleep,
	}
}

// SetSleep replaces the backoff sleep function. Tests use this to avoid
// real delays.
func (f *Fetcher) SetSleep(sleep func(time.Duration)) {
	f.sleep = sleep
}

// IsModified decides whether a resource needs re-fetching:
//
//  1. Never indexed before: modified.
//  2. The sitemap advertises a lastmod: compare against last indexed.
//  3. Otherwise issue a HEAD request and compare its Last-Modified.
//  4. With nothing to compare, assume modified.
func (f *Fetcher) IsModified(ctx context.Context, res *domain.ResourceInfo) bool {
	if res.LastIndexed == nil {
		return true
	}

	if res.URLInfo.LastMod != "" {
		if lastmod, err := timeutil.FromISO(res.URLInfo.LastMod); err == nil {
			return lastmod.After(*res.LastIndexed)
		}
		f.log.Warn("unparseable sitemap lastmod", "url", res.URLInfo.Loc, "lastmod", res.URLInfo.LastMod)
	}

	if lastmod, ok := f.headLastModified(ctx, res.URLInfo.Loc); ok {
		return lastmod.After(*res.LastIndexed)
	}

	return true
}

// headLastModified issues a HEAD request and parses its Last-Modified
// header. The second return value is false when the request failed or
// the header is absent or unparseable.
func (f *Fetcher) headLastModified(ctx context.Context, url string) (time.Time, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return time.Time{}, false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("HEAD request failed", "url", url, "error", err)
		return time.Time{}, false
	}
	defer resp.Body.Close()

	header := resp.Header.Get("Last-Modified")
	if header == "" {
		return time.Time{}, false
	}

	lastmod, err := timeutil.FromHTTP(header)
	if err != nil {
		f.log.Warn("unparseable Last-Modified header", "url", url, "value", header)
		return time.Time{}, false
	}
	return lastmod, true
}

// Fetch runs the fetch state machine for one resource. Unless force is
// set, an unmodified resource short-circuits with a not-modified error
// and no GET is issued. On success the body is written to a new temp
// file inside scratchDir and the resource's Filename, ContentType and
// Headers are populated.
func (f *Fetcher) Fetch(ctx context.Context, res *domain.ResourceInfo, scratchDir string, force bool) error {
	url := res.URLInfo.Loc

	if !force && !f.IsModified(ctx, res) {
		return sierrors.NewURL(sierrors.KindNotModified, url, "not modified since last indexed")
	}

	resp, err := f.get(ctx, res)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := f.writeTempFile(res, resp, scratchDir); err != nil {
		return err
	}

	res.ContentType = httputil.ContentType(resp.Header.Get("Content-Type"))
	res.Headers = resp.Header
	return nil
}

// get issues the GET request, retrying through 429 responses with the
// site's adaptive politeness delay. Redirect responses are refused.
func (f *Fetcher) get(ctx context.Context, res *domain.ResourceInfo) (*http.Response, error) {
	url := res.URLInfo.Loc

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, sierrors.Wrap(sierrors.KindFetch, url, err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, sierrors.Wrap(sierrors.KindFetch, url, err)
		}

		switch {
		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			resp.Body.Close()
			return nil, sierrors.NewURL(sierrors.KindAttemptedRedirect, url,
				"redirect to %s refused", resp.Header.Get("Location"))

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			delay := res.Site.DoubleSleeptime()
			f.log.Info("rate limited, backing off", "url", url, "delay", delay)
			f.sleep(delay)

		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			return nil, sierrors.NewURL(sierrors.KindFetch, url, "got status %d", resp.StatusCode)

		default:
			return resp, nil
		}
	}
}

// writeTempFile streams the response body into a new temp file inside
// scratchDir and records its name on the resource.
func (f *Fetcher) writeTempFile(res *domain.ResourceInfo, resp *http.Response, scratchDir string) error {
	tmp, err := os.CreateTemp(scratchDir, "resource-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr == nil {
			copyErr = closeErr
		}
		return sierrors.Wrap(sierrors.KindFetch, res.URLInfo.Loc, copyErr)
	}

	res.Filename = tmp.Name()
	return nil
}
