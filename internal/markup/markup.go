// Package markup parses HTML and XML documents into a namespace-free
// tree and evaluates XPath location expressions against it. A lenient
// HTML parser is used for all markup types so that real-world documents
// with broken nesting or undeclared entities still yield a usable tree.
package markup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	"github.com/jonesrussell/siteindex/internal/httputil"
	"github.com/jonesrussell/siteindex/internal/logger"
)

// markupTypes are the MIME types the stripper accepts.
var markupTypes = map[string]struct{}{
	"application/xml":       {},
	"application/xhtml+xml": {},
	"text/xml":              {},
	"text/html":             {},
}

// IsMarkup reports whether the given content type denotes a parseable
// markup document.
func IsMarkup(contentType string) bool {
	_, ok := markupTypes[httputil.ContentType(contentType)]
	return ok
}

// Parse reads a markup document, decodes it to UTF-8 and parses it into
// a namespace-free tree. The decoder consults the declared encoding
// (transport charset parameter, BOM, meta declaration); when none
// applies it falls back to UTF-8 and finally to Latin-1, which accepts
// any byte sequence.
func Parse(r io.Reader, contentType string) (*html.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}

	decoded, err := decode(data, contentType)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	StripNamespaces(doc)
	return doc, nil
}

// ParseFile parses the markup document stored at filename.
func ParseFile(filename, contentType string) (*html.Node, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open markup file: %w", err)
	}
	defer f.Close()

	return Parse(f, contentType)
}

// decode converts raw document bytes to UTF-8.
func decode(data []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err == nil {
		if decoded, readErr := io.ReadAll(r); readErr == nil && utf8.Valid(decoded) {
			return decoded, nil
		}
	}

	if utf8.Valid(data) {
		return data, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode markup: %w", err)
	}
	return decoded, nil
}

// StripNamespaces removes namespace prefixes from element and attribute
// names and drops xmlns declarations, in place. Nodes that carry no
// namespace information are left unchanged.
func StripNamespaces(n *html.Node) {
	if n.Type == html.ElementNode {
		n.Data = localName(n.Data)
		n.Namespace = ""

		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key == "xmlns" || strings.HasPrefix(a.Key, "xmlns:") {
				continue
			}
			a.Key = localName(a.Key)
			a.Namespace = ""
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		StripNamespaces(c)
	}
}

// localName returns the part of a qualified name after the prefix.
func localName(name string) string {
	if _, local, ok := strings.Cut(name, ":"); ok {
		return local
	}
	return name
}

// Query evaluates an XPath location expression against the tree and
// returns the text content of the matching nodes in document order.
func Query(node *html.Node, expr string) ([]string, error) {
	matches, err := htmlquery.QueryAll(node, expr)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, htmlquery.InnerText(m))
	}
	return texts, nil
}

// QueryFirst evaluates an XPath expression and returns the text of the
// first match. When more than one node matches, the extra matches are
// logged and discarded. The second return value is false when nothing
// matched.
func QueryFirst(node *html.Node, expr string, log logger.Interface) (string, bool, error) {
	texts, err := Query(node, expr)
	if err != nil {
		return "", false, err
	}
	if len(texts) == 0 {
		return "", false, nil
	}
	if len(texts) > 1 {
		log.Warn("expression matched multiple nodes, using first",
			"expression", expr,
			"matches", len(texts),
		)
	}
	return texts[0], true, nil
}
