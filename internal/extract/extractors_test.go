package extract_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteindex/internal/domain"
	"github.com/jonesrussell/siteindex/internal/extract"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/metadata"
)

// fakeLookup resolves peer fields from a plain map.
type fakeLookup map[string]*extract.Field

func (f fakeLookup) Field(name string) (*extract.Field, error) {
	field, ok := f[name]
	if !ok {
		return nil, extract.ErrNoValue
	}
	return field, nil
}

// pinnedNow is the frozen clock used in extractor tests.
var pinnedNow = time.Date(2015, 2, 18, 9, 30, 0, 0, time.UTC)

func newState(res *domain.ResourceInfo) *extract.State {
	if res.Site == nil {
		res.Site = domain.NewSite("http://example.org/", nil, 0)
	}
	if res.Headers == nil {
		res.Headers = http.Header{}
	}
	return &extract.State{
		Resource: res,
		Fields:   fakeLookup{},
		Log:      logger.NewNoOp(),
		Now:      func() time.Time { return pinnedNow },
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "resource")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))
	return filename
}

func TestPlainTextNormalizesWhitespace(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{Text: "Hello\n\t world "})
	value, err := extract.PlainText{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", value)
}

func TestUIDIsDeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	stateA := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{Loc: "http://example.org/a"}})
	stateB := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{Loc: "http://example.org/b"}})

	first, err := extract.UID{}.Extract(stateA)
	require.NoError(t, err)
	second, err := extract.UID{}.Extract(stateA)
	require.NoError(t, err)
	other, err := extract.UID{}.Extract(stateB)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	// md5("http://example.org/a") in UUID text form.
	assert.Len(t, first, 36)
}

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		loc  string
		want string
	}{
		{"basename", "http://example.org/docs/Annual%20Report.pdf", "annual-report-pdf"},
		{"root path", "http://example.org/", "index-html"},
		{"no path", "http://example.org", "index-html"},
		{"plain", "http://example.org/about", "about"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{Loc: tt.loc}})
			value, err := extract.Slug{}.Extract(state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestURLAndTargetURL(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{
		Loc:    "http://example.org/a",
		Target: "http://example.org/a/view",
	}})

	value, err := extract.URL{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/a", value)

	value, err = extract.TargetURL{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/a/view", value)

	state.Resource.URLInfo.Target = ""
	value, err = extract.TargetURL{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/a", value)
}

func TestTitleFromHeader(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{Loc: "http://example.org/a"}})
	// base64("Header  Title")
	state.Resource.Headers.Set("X-Document-Title", "SGVhZGVyICBUaXRsZQ==")

	value, err := extract.Title{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Header Title", value)
}

func TestTitleFromMarkup(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		URLInfo:     domain.URLInfo{Loc: "http://example.org/a"},
		ContentType: "text/html",
		Filename: writeTempFile(t,
			`<html><body><div id="content"><h1>Hello</h1></div></body></html>`),
		Metadata: metadata.Metadata{"title": "ignored"},
	})

	value, err := extract.Title{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Hello", value)
}

func TestTitleFromMetadata(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		URLInfo:  domain.URLInfo{Loc: "http://example.org/a"},
		Metadata: metadata.Metadata{"title": "Metadata Title"},
	})

	value, err := extract.Title{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Metadata Title", value)
}

func TestTitleFromFilename(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{Loc: "http://example.org/a"}})
	state.Resource.Headers.Set("Content-Disposition", `attachment; filename="report.pdf"`)

	value, err := extract.Title{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", value)
}

func TestTitleFallsBackToSlug(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{Loc: "http://example.org/About%20Us"}})

	value, err := extract.Title{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "about-us", value)
}

func TestMetadataValue(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		Metadata: metadata.Metadata{"description": "About things"},
	})

	value, err := extract.MetadataValue{Key: "description"}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "About things", value)

	_, err = extract.MetadataValue{Key: "creator"}.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestKeywordsSplitting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"commas", "alpha, beta ,gamma", []string{"alpha", "beta", "gamma"}},
		{"whitespace", "alpha beta\tgamma", []string{"alpha", "beta", "gamma"}},
		{"single", "alpha", []string{"alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := newState(&domain.ResourceInfo{Metadata: metadata.Metadata{"keywords": tt.raw}})
			value, err := extract.Keywords{}.Extract(state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestKeywordsAbsent(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{Metadata: metadata.Metadata{}})
	_, err := extract.Keywords{}.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestFilename(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{})
	state.Resource.Headers.Set("Content-Disposition", `attachment; filename="Jahresbericht 2014.pdf"`)

	value, err := extract.Filename{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Jahresbericht 2014.pdf", value)
}

func TestFilenameAbsent(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{})
	_, err := extract.Filename{}.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestLastModifiedChain(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{URLInfo: domain.URLInfo{
		Loc:     "http://example.org/a",
		LastMod: "2014-12-31T16:45:30+01:00",
	}})

	value, err := extract.LastModified{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2014, 12, 31, 15, 45, 30, 0, time.UTC), value)

	state.Resource.URLInfo.LastMod = ""
	state.Resource.Headers.Set("Last-Modified", "Wed, 31 Dec 2014 15:45:30 GMT")
	value, err = extract.LastModified{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2014, 12, 31, 15, 45, 30, 0, time.UTC), value)

	state.Resource.Headers.Del("Last-Modified")
	value, err = extract.LastModified{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, pinnedNow, value)
}

func TestIndexingTime(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{})
	value, err := extract.IndexingTime{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, pinnedNow, value)
}

func TestConstant(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{})

	value, err := extract.Constant{Value: "fixed"}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "fixed", value)

	value, err = extract.Constant{Value: []any{"a", "b"}}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, value)
}

func TestSiteAttribute(t *testing.T) {
	t.Parallel()

	site := domain.NewSite("http://example.org/", map[string]string{"section": "news"}, 0)
	state := newState(&domain.ResourceInfo{Site: site})

	value, err := extract.SiteAttribute{Key: "section"}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "news", value)

	_, err = extract.SiteAttribute{Key: "missing"}.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestHeaderMappingStripsCharsetForContentType(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{})
	state.Resource.Headers.Set("Content-Type", "text/html; charset=utf-8")

	mapping := extract.HeaderMapping{
		Header: "Content-Type",
		Map:    map[string]any{"text/html": "Web page"},
	}

	value, err := mapping.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Web page", value)
}

func TestHeaderMappingDefaultAndMiss(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{})
	state.Resource.Headers.Set("Content-Type", "application/pdf")

	withDefault := extract.HeaderMapping{
		Header:  "Content-Type",
		Map:     map[string]any{"text/html": "Web page"},
		Default: "Document",
	}
	value, err := withDefault.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Document", value)

	withoutDefault := extract.HeaderMapping{
		Header: "Content-Type",
		Map:    map[string]any{"text/html": "Web page"},
	}
	_, err = withoutDefault.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestFieldMapping(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{Site: domain.NewSite("http://example.org/",
		map[string]string{"lang": "de"}, 0)})
	state.Fields = fakeLookup{
		"language": {
			Name:      "language",
			Type:      extract.TypeText,
			Extractor: extract.SiteAttribute{Key: "lang"},
		},
	}

	mapping := extract.FieldMapping{
		Field: "language",
		Map:   map[string]any{"de": "German"},
	}

	value, err := mapping.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "German", value)
}

func TestXPath(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		URLInfo:     domain.URLInfo{Loc: "http://example.org/a"},
		ContentType: "text/html",
		Filename: writeTempFile(t,
			`<html><body><span class="byline">Jane Doe</span></body></html>`),
	})

	value, err := extract.XPath{Expression: "//span[@class='byline']"}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", value)
}

func TestXPathNoMatchSignalsNoValue(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		ContentType: "text/html",
		Filename:    writeTempFile(t, `<html><body></body></html>`),
	})

	_, err := extract.XPath{Expression: "//h1"}.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestXPathNonMarkupSignalsNoValue(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{ContentType: "application/pdf"})
	_, err := extract.XPath{Expression: "//h1"}.Extract(state)
	assert.True(t, extract.IsNoValue(err))
}

func TestSnippetTextStripsTitlePrefix(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		URLInfo:  domain.URLInfo{Loc: "http://example.org/a"},
		Text:     "Hello\nworld",
		Metadata: metadata.Metadata{"title": "Hello"},
	})

	value, err := extract.SnippetText{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "world", value)
}

func TestSnippetTextWithoutTitleMatch(t *testing.T) {
	t.Parallel()

	state := newState(&domain.ResourceInfo{
		URLInfo:  domain.URLInfo{Loc: "http://example.org/a"},
		Text:     "Completely different",
		Metadata: metadata.Metadata{"title": "Hello"},
	})

	value, err := extract.SnippetText{}.Extract(state)
	require.NoError(t, err)
	assert.Equal(t, "Completely different", value)
}
