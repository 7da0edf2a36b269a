package sitemap

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/jonesrussell/siteindex/internal/domain"
)

// entryProperties are the child elements read from each <url> and
// <sitemap> entry. target is a non-standard extension carrying an
// alternate canonical URL.
var entryProperties = []string{"loc", "lastmod", "changefreq", "priority", "target"}

// docKind identifies which sitemaps.org document form was parsed.
type docKind int

const (
	kindUnknown docKind = iota
	kindURLSet
	kindSitemapIndex
)

// parsedDoc is the namespace-free view of one sitemap document.
type parsedDoc struct {
	kind    docKind
	entries []map[string]string
}

// parseDoc parses sitemap XML into its entries. Namespaces are
// tolerated: elements are matched on their local names only.
func parseDoc(data []byte) (*parsedDoc, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap XML: %w", err)
	}

	root := firstElement(doc)
	if root == nil {
		return nil, fmt.Errorf("sitemap XML has no root element")
	}

	parsed := &parsedDoc{}
	var entryName string
	switch root.Data {
	case "urlset":
		parsed.kind = kindURLSet
		entryName = "url"
	case "sitemapindex":
		parsed.kind = kindSitemapIndex
		entryName = "sitemap"
	default:
		parsed.kind = kindUnknown
		return parsed, nil
	}

	for node := root.FirstChild; node != nil; node = node.NextSibling {
		if node.Type != xmlquery.ElementNode || node.Data != entryName {
			continue
		}
		entry := map[string]string{}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			for _, name := range entryProperties {
				if child.Data == name {
					entry[name] = strings.TrimSpace(child.InnerText())
					break
				}
			}
		}
		if entry["loc"] != "" {
			parsed.entries = append(parsed.entries, entry)
		}
	}

	return parsed, nil
}

// firstElement returns the first element child of a document node.
func firstElement(doc *xmlquery.Node) *xmlquery.Node {
	for node := doc.FirstChild; node != nil; node = node.NextSibling {
		if node.Type == xmlquery.ElementNode {
			return node
		}
	}
	return nil
}

// urlInfos converts parsed urlset entries into domain URL infos.
func (d *parsedDoc) urlInfos() []domain.URLInfo {
	infos := make([]domain.URLInfo, 0, len(d.entries))
	for _, entry := range d.entries {
		infos = append(infos, domain.URLInfo{
			Loc:        entry["loc"],
			LastMod:    entry["lastmod"],
			ChangeFreq: entry["changefreq"],
			Priority:   entry["priority"],
			Target:     entry["target"],
		})
	}
	return infos
}

// sitemapLocs returns the child sitemap locations of a parsed index.
func (d *parsedDoc) sitemapLocs() []string {
	locs := make([]string, 0, len(d.entries))
	for _, entry := range d.entries {
		locs = append(locs, entry["loc"])
	}
	return locs
}
