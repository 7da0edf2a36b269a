// Package metadata maps the prefixed metadata keys returned by the
// converter (Dublin Core variants and friends) to canonical names.
package metadata

// Metadata is the raw key/value set returned by the converter, possibly
// enriched with canonical aliases by Normalize.
type Metadata map[string]string

// canonicalKeys maps each canonical name to its candidate keys in
// priority order. The first candidate present in the mapping wins.
var canonicalKeys = map[string][]string{
	"title":       {"dcterms:title", "dc:title", "DC.title", "title"},
	"creator":     {"dcterms:creator", "dc:creator", "DC.creator", "creator", "Author"},
	"description": {"dcterms:description", "dc:description", "DC.description", "description"},
	"keywords":    {"dcterms:subject", "dc:subject", "DC.subject", "keywords", "Keywords"},
	"created":     {"dcterms:created", "meta:creation-date", "Creation-Date"},
}

// Normalize adds canonical aliases to a metadata mapping. For each
// canonical name the candidate keys are scanned in priority order and
// the first hit wins; canonicals with no candidate present are simply
// absent. Original keys are preserved alongside the additions. The
// mapping is modified in place and returned for convenience.
func Normalize(m Metadata) Metadata {
	if m == nil {
		return m
	}
	for canonical, candidates := range canonicalKeys {
		for _, key := range candidates {
			if value, ok := m[key]; ok {
				m[canonical] = value
				break
			}
		}
	}
	return m
}
