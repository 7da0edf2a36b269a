package extract

import (
	"time"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/logger"
)

// Sources is a capability set naming the data sources an extractor
// reads. The engine provides exactly these sources at extraction time.
type Sources uint8

const (
	// SourceMetadata reads the converter's metadata mapping.
	SourceMetadata Sources = 1 << iota
	// SourceText reads the converter's plain text.
	SourceText
	// SourceMarkup reads the raw downloaded file as markup.
	SourceMarkup
	// SourceURLInfo reads the sitemap entry.
	SourceURLInfo
	// SourceHeader reads the response headers.
	SourceHeader
	// SourceSite reads the owning site's attribute bag.
	SourceSite
	// SourceIndependent needs no data source at all.
	SourceIndependent
)

// allSources is the set of capability tags the engine recognizes.
const allSources = SourceMetadata | SourceText | SourceMarkup |
	SourceURLInfo | SourceHeader | SourceSite | SourceIndependent

// Has reports whether the set contains all of the given tags.
func (s Sources) Has(tags Sources) bool {
	return s&tags == tags
}

// State is the extraction context handed to every extractor: the
// resource being processed, a handle for peer-field lookups, a logger
// and a clock.
type State struct {
	Resource *domain.ResourceInfo
	Fields   FieldLookup
	Log      logger.Interface
	// Now supplies the current time; tests pin it.
	Now func() time.Time
}

// Extractor produces one value from the extraction state. Extract
// returns ErrNoValue (possibly wrapped) when the sources hold nothing
// for it; any other error aborts the record.
type Extractor interface {
	Extract(state *State) (any, error)
	Sources() Sources
}

// ErrNoValue is signaled by an extractor that could not produce a
// value. The engine handles it locally: required fields fall back to
// the type's zero value, optional fields are omitted from the record.
var ErrNoValue = sierrors.New(sierrors.KindNoValueExtracted, "no value extracted")

// IsNoValue reports whether err signals an absent value.
func IsNoValue(err error) bool {
	return sierrors.IsKind(err, sierrors.KindNoValueExtracted)
}
