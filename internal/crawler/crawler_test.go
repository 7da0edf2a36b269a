package crawler_test

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteindex/internal/config"
	"github.com/jonesrussell/siteindex/internal/crawler"
	"github.com/jonesrussell/siteindex/internal/domain"
	"github.com/jonesrussell/siteindex/internal/extract"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/metadata"
	"github.com/jonesrussell/siteindex/internal/timeutil"
)

// fakeIndex records index operations in order and serves canned search
// results.
type fakeIndex struct {
	mu      sync.Mutex
	docs    []map[string]any
	ops     []string
	records []domain.Record
	deleted []string
}

func (f *fakeIndex) Index(ctx context.Context, record domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "index")
	f.records = append(f.records, record)
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, uniqueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "delete")
	f.deleted = append(f.deleted, uniqueID)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, fl []string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "search")
	return f.docs, nil
}

// fakeConverter satisfies tika.Converter with canned values.
type fakeConverter struct {
	metadata metadata.Metadata
	text     string
}

func (f *fakeConverter) ExtractMetadata(ctx context.Context, res *domain.ResourceInfo) (metadata.Metadata, error) {
	return metadata.Normalize(f.metadata), nil
}

func (f *fakeConverter) ExtractText(ctx context.Context, res *domain.ResourceInfo) (string, error) {
	return f.text, nil
}

// pageHTML is the S1 document: the main heading wins the title chain.
const pageHTML = `<html><body><div id="content"><h1>Hello</h1></div></body></html>`

// newSiteServer serves a single-sitemap site with one page.
func newSiteServer(t *testing.T, lastmod string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/a</loc><lastmod>%s</lastmod></url>
</urlset>`, srv.URL, lastmod)
		case "/a":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Last-Modified", "Wed, 31 Dec 2014 15:45:30 GMT")
			_, _ = w.Write([]byte(pageHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func configFor(t *testing.T, siteURL string) *config.Config {
	t.Helper()

	yaml := fmt.Sprintf(`
sites:
  - url: %s/
unique_field: UID
url_field: path_string
last_modified_field: modified
tika: http://localhost:9998
solr: http://localhost:8983/solr
fields:
  - {name: UID, type: text, required: true, extractor: {name: uid}}
  - {name: path_string, type: text, required: true, extractor: {name: url}}
  - {name: modified, type: timestamp, required: true, extractor: {name: last_modified}}
  - {name: Title, type: text, required: true, extractor: {name: title}}
  - {name: SearchableText, type: text, extractor: {name: plain_text}}
`, siteURL)

	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func newCrawler(cfg *config.Config, index *fakeIndex, conv *fakeConverter) *crawler.Crawler {
	client := crawler.NewHTTPClient(0)
	engine := extract.NewEngine(conv, logger.NewNoOp())
	return crawler.New(crawler.Params{
		Config: cfg,
		Client: client,
		Index:  index,
		Engine: engine,
	})
}

func uidFor(loc string) string {
	sum := md5.Sum([]byte(loc))
	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		panic(err)
	}
	return id.String()
}

func scratchDirs(t *testing.T) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "siteindex-*"))
	require.NoError(t, err)
	return matches
}

func TestRunFirstIndexEndToEnd(t *testing.T) {
	srv := newSiteServer(t, "2014-12-31T16:45:30+01:00")
	cfg := configFor(t, srv.URL)
	index := &fakeIndex{}
	conv := &fakeConverter{metadata: metadata.Metadata{"title": "ignored"}, text: "Hello\nworld"}

	before := scratchDirs(t)
	require.NoError(t, newCrawler(cfg, index, conv).Run(context.Background(), crawler.Options{}))
	assert.Equal(t, before, scratchDirs(t))

	require.Len(t, index.records, 1)
	record := index.records[0]

	loc := srv.URL + "/a"
	assert.Equal(t, uidFor(loc), record["UID"])
	assert.Equal(t, loc, record["path_string"])
	assert.Equal(t, "Hello", record["Title"])
	assert.Equal(t, "Hello world", record["SearchableText"])

	modified, ok := record["modified"].(timeutil.Timestamp)
	require.True(t, ok)
	assert.Equal(t, "2014-12-31T15:45:30.000000Z", timeutil.ToISO(modified.Time()))
}

func TestRunSkipsUnmodified(t *testing.T) {
	srv := newSiteServer(t, "2014-12-31T16:45:30+01:00")
	cfg := configFor(t, srv.URL)
	index := &fakeIndex{docs: []map[string]any{{
		"UID":         "1",
		"path_string": srv.URL + "/a",
		"modified":    "2015-01-01T00:00:00.000000Z",
	}}}

	require.NoError(t, newCrawler(cfg, index, &fakeConverter{}).Run(context.Background(), crawler.Options{}))

	assert.Empty(t, index.records)
}

func TestRunForceReindexesUnmodified(t *testing.T) {
	srv := newSiteServer(t, "2014-12-31T16:45:30+01:00")
	cfg := configFor(t, srv.URL)
	index := &fakeIndex{docs: []map[string]any{{
		"UID":         "1",
		"path_string": srv.URL + "/a",
		"modified":    "2015-01-01T00:00:00.000000Z",
	}}}

	require.NoError(t, newCrawler(cfg, index, &fakeConverter{text: "Hello"}).
		Run(context.Background(), crawler.Options{Force: true}))

	assert.Len(t, index.records, 1)
}

func TestRunSkipsRedirectedURL(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<urlset><url><loc>%s/a</loc></url></urlset>`, srv.URL)
		case "/a":
			http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := configFor(t, srv.URL)
	index := &fakeIndex{}

	require.NoError(t, newCrawler(cfg, index, &fakeConverter{}).Run(context.Background(), crawler.Options{}))

	assert.Empty(t, index.records)
}

func TestRunReconciliationPurge(t *testing.T) {
	srv := newSiteServer(t, "2014-12-31T16:45:30+01:00")
	cfg := configFor(t, srv.URL)

	index := &fakeIndex{docs: []map[string]any{
		{"UID": "1", "path_string": srv.URL + "/a", "modified": "2014-01-01T00:00:00.000000Z"},
		{"UID": "2", "path_string": srv.URL + "/b", "modified": "2014-01-01T00:00:00.000000Z"},
		{"UID": "3", "path_string": "http://other.example/x", "modified": "2014-01-01T00:00:00.000000Z"},
	}}

	require.NoError(t, newCrawler(cfg, index, &fakeConverter{text: "Hello"}).
		Run(context.Background(), crawler.Options{}))

	// /b vanished from the sitemap and is purged; the foreign URL is
	// untouched; /a is re-indexed.
	assert.Equal(t, []string{"2"}, index.deleted)
	require.Len(t, index.records, 1)
	assert.Equal(t, srv.URL+"/a", index.records[0]["path_string"])
}

func TestRunDeletesBeforeWrites(t *testing.T) {
	srv := newSiteServer(t, "2014-12-31T16:45:30+01:00")
	cfg := configFor(t, srv.URL)

	index := &fakeIndex{docs: []map[string]any{
		{"UID": "2", "path_string": srv.URL + "/b", "modified": "2014-01-01T00:00:00.000000Z"},
	}}

	require.NoError(t, newCrawler(cfg, index, &fakeConverter{text: "Hello"}).
		Run(context.Background(), crawler.Options{}))

	require.Equal(t, []string{"search", "delete", "index"}, index.ops)
}

func TestRunSingleURLFilter(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<urlset>
  <url><loc>%[1]s/a</loc></url>
  <url><loc>%[1]s/b</loc></url>
</urlset>`, srv.URL)
		case "/a", "/b":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(pageHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := configFor(t, srv.URL)
	index := &fakeIndex{}

	require.NoError(t, newCrawler(cfg, index, &fakeConverter{text: "Hello"}).
		Run(context.Background(), crawler.Options{URL: srv.URL + "/b"}))

	require.Len(t, index.records, 1)
	assert.Equal(t, srv.URL+"/b", index.records[0]["path_string"])
}

func TestRunContinuesAfterSiteWithoutSitemap(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	defer dead.Close()
	live := newSiteServer(t, "2014-12-31T16:45:30+01:00")

	yaml := fmt.Sprintf(`
sites:
  - url: %s/
  - url: %s/
unique_field: UID
url_field: path_string
last_modified_field: modified
tika: http://localhost:9998
solr: http://localhost:8983/solr
fields:
  - {name: UID, type: text, required: true, extractor: {name: uid}}
  - {name: path_string, type: text, required: true, extractor: {name: url}}
  - {name: modified, type: timestamp, required: true, extractor: {name: last_modified}}
`, dead.URL, live.URL)

	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	index := &fakeIndex{}
	require.NoError(t, newCrawler(cfg, index, &fakeConverter{}).Run(context.Background(), crawler.Options{}))

	require.Len(t, index.records, 1)
	assert.Equal(t, live.URL+"/a", index.records[0]["path_string"])
}
