package extract

import (
	"crypto/md5"
	"encoding/base64"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/jonesrussell/siteindex/internal/httputil"
	"github.com/jonesrussell/siteindex/internal/markup"
	"github.com/jonesrussell/siteindex/internal/textutil"
	"github.com/jonesrussell/siteindex/internal/timeutil"
)

// defaultSlug is substituted when a URL path has no basename to slugify.
const defaultSlug = "index-html"

// titleHeader carries a base64-encoded document title set by some
// upstream proxies.
const titleHeader = "X-Document-Title"

// titleExpression locates the main heading in markup documents.
const titleExpression = "//div[@id='content']/h1"

// PlainText returns the converter's plain text with normalized
// whitespace.
type PlainText struct{}

// Sources implements Extractor.
func (PlainText) Sources() Sources { return SourceText }

// Extract implements Extractor.
func (PlainText) Extract(state *State) (any, error) {
	return textutil.NormalizeWhitespace(state.Resource.Text), nil
}

// UID derives a stable unique id from the URL: the md5 digest of loc
// reinterpreted as a UUID in text form.
type UID struct{}

// Sources implements Extractor.
func (UID) Sources() Sources { return SourceURLInfo }

// Extract implements Extractor.
func (UID) Extract(state *State) (any, error) {
	sum := md5.Sum([]byte(state.Resource.URLInfo.Loc))
	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// Slug produces a URL-safe slug from the basename of the URL path.
type Slug struct{}

// Sources implements Extractor.
func (Slug) Sources() Sources { return SourceURLInfo }

// Extract implements Extractor.
func (Slug) Extract(state *State) (any, error) {
	return slugFor(state.Resource.URLInfo.Loc), nil
}

// slugFor computes the slug for a URL: the URL-decoded basename of its
// path, slugified; an empty basename falls back to the default slug.
func slugFor(loc string) string {
	parsed, err := url.Parse(loc)
	base := ""
	if err == nil {
		base = path.Base(parsed.Path)
		if decoded, decErr := url.PathUnescape(base); decErr == nil {
			base = decoded
		}
	}
	if base == "." || base == "/" {
		base = ""
	}
	if base == "" {
		return defaultSlug
	}
	return textutil.Slugify(base)
}

// URL returns the sitemap entry's loc.
type URL struct{}

// Sources implements Extractor.
func (URL) Sources() Sources { return SourceURLInfo }

// Extract implements Extractor.
func (URL) Extract(state *State) (any, error) {
	return state.Resource.URLInfo.Loc, nil
}

// TargetURL returns the sitemap entry's alternate canonical URL when
// present, the loc otherwise.
type TargetURL struct{}

// Sources implements Extractor.
func (TargetURL) Sources() Sources { return SourceURLInfo }

// Extract implements Extractor.
func (TargetURL) Extract(state *State) (any, error) {
	if target := state.Resource.URLInfo.Target; target != "" {
		return target, nil
	}
	return state.Resource.URLInfo.Loc, nil
}

// Title resolves the document title through an ordered fallback chain:
// the X-Document-Title header, the main heading in the markup, the
// metadata title, the Content-Disposition filename, and finally the
// URL slug.
type Title struct{}

// Sources implements Extractor.
func (Title) Sources() Sources {
	return SourceHeader | SourceMarkup | SourceMetadata | SourceURLInfo
}

// Extract implements Extractor.
func (Title) Extract(state *State) (any, error) {
	if title, ok := titleFromHeader(state); ok {
		return textutil.NormalizeWhitespace(title), nil
	}
	if title, ok := titleFromMarkup(state); ok {
		return textutil.NormalizeWhitespace(title), nil
	}
	if title, ok := state.Resource.Metadata["title"]; ok && title != "" {
		return textutil.NormalizeWhitespace(title), nil
	}
	if value, err := (Filename{}).Extract(state); err == nil {
		if filename, ok := value.(string); ok && filename != "" {
			return textutil.NormalizeWhitespace(filename), nil
		}
	}
	return textutil.NormalizeWhitespace(slugFor(state.Resource.URLInfo.Loc)), nil
}

// titleFromHeader reads and decodes the base64 title header.
func titleFromHeader(state *State) (string, bool) {
	encoded := state.Resource.Headers.Get(titleHeader)
	if encoded == "" {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		state.Log.Warn("undecodable title header", "url", state.Resource.URLInfo.Loc, "error", err)
		return "", false
	}
	title := strings.TrimSpace(strings.ToValidUTF8(string(decoded), "�"))
	return title, title != ""
}

// titleFromMarkup queries the markup document for its main heading.
func titleFromMarkup(state *State) (string, bool) {
	res := state.Resource
	if res.Filename == "" || !markup.IsMarkup(res.ContentType) {
		return "", false
	}
	doc, err := markup.ParseFile(res.Filename, res.ContentType)
	if err != nil {
		state.Log.Warn("markup parse failed", "url", res.URLInfo.Loc, "error", err)
		return "", false
	}
	title, ok, err := markup.QueryFirst(doc, titleExpression, state.Log)
	if err != nil || !ok || title == "" {
		return "", false
	}
	return title, true
}

// MetadataValue reads a single key from the normalized metadata
// mapping. Description and Creator are configured through it.
type MetadataValue struct {
	// Key is the canonical metadata key to read.
	Key string
}

// Sources implements Extractor.
func (MetadataValue) Sources() Sources { return SourceMetadata }

// Extract implements Extractor.
func (m MetadataValue) Extract(state *State) (any, error) {
	value, ok := state.Resource.Metadata[m.Key]
	if !ok || value == "" {
		return nil, ErrNoValue
	}
	return value, nil
}

// Keywords splits the metadata keywords into a list: on commas when
// any are present, on whitespace otherwise.
type Keywords struct{}

// Sources implements Extractor.
func (Keywords) Sources() Sources { return SourceMetadata }

// Extract implements Extractor.
func (Keywords) Extract(state *State) (any, error) {
	raw, ok := state.Resource.Metadata["keywords"]
	if !ok || raw == "" {
		return nil, ErrNoValue
	}

	var parts []string
	if strings.Contains(raw, ",") {
		parts = strings.Split(raw, ",")
	} else {
		parts = strings.Fields(raw)
	}

	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	if len(keywords) == 0 {
		return nil, ErrNoValue
	}
	return keywords, nil
}

// Filename reads the filename parameter of the Content-Disposition
// response header.
type Filename struct{}

// Sources implements Extractor.
func (Filename) Sources() Sources { return SourceHeader }

// Extract implements Extractor.
func (Filename) Extract(state *State) (any, error) {
	disposition := state.Resource.Headers.Get("Content-Disposition")
	if disposition == "" {
		return nil, ErrNoValue
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return nil, ErrNoValue
	}
	filename, ok := params["filename"]
	if !ok || filename == "" {
		return nil, ErrNoValue
	}
	return strings.ToValidUTF8(filename, "�"), nil
}

// LastModified resolves the document's modification time: the sitemap
// lastmod when advertised, the Last-Modified response header otherwise,
// and the indexing time as a final fallback. Always UTC.
type LastModified struct{}

// Sources implements Extractor.
func (LastModified) Sources() Sources {
	return SourceURLInfo | SourceHeader | SourceIndependent
}

// Extract implements Extractor.
func (l LastModified) Extract(state *State) (any, error) {
	if lastmod := state.Resource.URLInfo.LastMod; lastmod != "" {
		if t, err := timeutil.FromISO(lastmod); err == nil {
			return t, nil
		}
		state.Log.Warn("unparseable sitemap lastmod", "url", state.Resource.URLInfo.Loc, "lastmod", lastmod)
	}
	if header := state.Resource.Headers.Get("Last-Modified"); header != "" {
		if t, err := timeutil.FromHTTP(header); err == nil {
			return t, nil
		}
		state.Log.Warn("unparseable Last-Modified header", "url", state.Resource.URLInfo.Loc, "value", header)
	}
	return IndexingTime{}.Extract(state)
}

// IndexingTime returns the current time in UTC.
type IndexingTime struct{}

// Sources implements Extractor.
func (IndexingTime) Sources() Sources { return SourceIndependent }

// Extract implements Extractor.
func (IndexingTime) Extract(state *State) (any, error) {
	return timeutil.ToUTC(state.Now()), nil
}

// Constant returns a configured literal. String values are normalized
// to valid UTF-8; for multivalued fields a configured list is returned
// with each element normalized.
type Constant struct {
	// Value is the literal to return.
	Value any
}

// Sources implements Extractor.
func (Constant) Sources() Sources { return SourceIndependent }

// Extract implements Extractor.
func (c Constant) Extract(state *State) (any, error) {
	switch v := c.Value.(type) {
	case string:
		return strings.ToValidUTF8(v, "�"), nil
	case []any:
		values := make([]any, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				item = strings.ToValidUTF8(s, "�")
			}
			values = append(values, item)
		}
		return values, nil
	case []string:
		values := make([]string, 0, len(v))
		for _, s := range v {
			values = append(values, strings.ToValidUTF8(s, "�"))
		}
		return values, nil
	default:
		return c.Value, nil
	}
}

// SiteAttribute reads a key from the owning site's attribute bag.
type SiteAttribute struct {
	// Key is the attribute to read.
	Key string
}

// Sources implements Extractor.
func (SiteAttribute) Sources() Sources { return SourceSite }

// Extract implements Extractor.
func (s SiteAttribute) Extract(state *State) (any, error) {
	value, ok := state.Resource.Site.Attributes[s.Key]
	if !ok {
		return nil, ErrNoValue
	}
	return value, nil
}

// HeaderMapping reads a response header and maps its value through a
// configured table. The content-type header is charset-stripped before
// lookup. A miss returns the configured default, or no value when none
// is configured.
type HeaderMapping struct {
	// Header is the response header to read.
	Header string
	// Map translates header values to output values.
	Map map[string]any
	// Default is returned on a lookup miss; nil means no default.
	Default any
}

// Sources implements Extractor.
func (HeaderMapping) Sources() Sources { return SourceHeader }

// Extract implements Extractor.
func (h HeaderMapping) Extract(state *State) (any, error) {
	value := state.Resource.Headers.Get(h.Header)
	if strings.EqualFold(h.Header, "content-type") {
		value = httputil.ContentType(value)
	}
	return mapValue(value, h.Map, h.Default)
}

// FieldMapping runs a peer field's extractor and maps its result
// through a configured table. The peer is resolved by name through the
// owning configuration.
type FieldMapping struct {
	// Field names the peer field whose extractor supplies the input.
	Field string
	// Map translates the peer's value to the output value.
	Map map[string]any
	// Default is returned on a lookup miss; nil means no default.
	Default any
}

// Sources implements Extractor.
func (FieldMapping) Sources() Sources { return SourceIndependent }

// Extract implements Extractor.
func (f FieldMapping) Extract(state *State) (any, error) {
	peer, err := state.Fields.Field(f.Field)
	if err != nil {
		return nil, err
	}

	value, err := peer.Extractor.Extract(state)
	if err != nil {
		return nil, err
	}

	key, ok := value.(string)
	if !ok {
		return nil, ErrNoValue
	}
	return mapValue(key, f.Map, f.Default)
}

// mapValue resolves a key through a mapping table with an optional
// default for misses.
func mapValue(key string, table map[string]any, fallback any) (any, error) {
	if mapped, ok := table[key]; ok {
		return mapped, nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoValue
}

// XPath evaluates a location expression against the downloaded markup
// document and returns the text of the first match.
type XPath struct {
	// Expression is the XPath location expression to evaluate.
	Expression string
}

// Sources implements Extractor.
func (XPath) Sources() Sources { return SourceMarkup }

// Extract implements Extractor.
func (x XPath) Extract(state *State) (any, error) {
	res := state.Resource
	if !markup.IsMarkup(res.ContentType) {
		state.Log.Debug("xpath extractor on non-markup resource",
			"url", res.URLInfo.Loc,
			"content_type", res.ContentType,
		)
		return nil, ErrNoValue
	}

	doc, err := markup.ParseFile(res.Filename, res.ContentType)
	if err != nil {
		return nil, err
	}

	text, ok, err := markup.QueryFirst(doc, x.Expression, state.Log)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoValue
	}
	return text, nil
}

// SnippetText returns the plain text with the extracted title stripped
// when the text starts with it, so snippets do not repeat the title.
type SnippetText struct{}

// Sources implements Extractor.
func (SnippetText) Sources() Sources {
	return SourceText | SourceMetadata | SourceHeader | SourceMarkup | SourceURLInfo
}

// Extract implements Extractor.
func (SnippetText) Extract(state *State) (any, error) {
	text := textutil.NormalizeWhitespace(state.Resource.Text)

	value, err := (Title{}).Extract(state)
	if err != nil {
		return text, nil
	}
	title, ok := value.(string)
	if !ok || title == "" {
		return text, nil
	}

	if strings.HasPrefix(text, title) {
		text = strings.TrimSpace(strings.TrimPrefix(text, title))
	}
	return text, nil
}
