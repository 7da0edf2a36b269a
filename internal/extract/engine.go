package extract

import (
	"context"
	"time"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/tika"
	"github.com/jonesrussell/siteindex/internal/timeutil"
)

// Engine drives the configured fields over one fetched resource and
// assembles the index record.
type Engine struct {
	conv tika.Converter
	log  logger.Interface

	// now supplies the extraction clock; tests pin it.
	now func() time.Time
}

// NewEngine creates an extraction engine using the given converter.
func NewEngine(conv tika.Converter, log logger.Interface) *Engine {
	return &Engine{
		conv: conv,
		log:  log.WithComponent("extract"),
		now:  time.Now,
	}
}

// SetNow replaces the engine's clock.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Run produces one index record from a fetched resource. The converter
// is consulted once for metadata and once for plain text when any
// configured field reads those sources. Fields are processed in
// configuration order; values failing the declared type raise an
// extraction error and drop the record.
func (e *Engine) Run(
	ctx context.Context,
	fields []*Field,
	lookup FieldLookup,
	res *domain.ResourceInfo,
) (domain.Record, error) {
	needed := neededSources(fields)

	if needed.Has(SourceMetadata) {
		meta, err := e.conv.ExtractMetadata(ctx, res)
		if err != nil {
			return nil, err
		}
		res.Metadata = meta
	}

	if needed.Has(SourceText) {
		text, err := e.conv.ExtractText(ctx, res)
		if err != nil {
			return nil, err
		}
		res.Text = text
	}

	state := &State{
		Resource: res,
		Fields:   lookup,
		Log:      e.log,
		Now:      e.now,
	}

	record := domain.Record{}
	for _, field := range fields {
		value, err := e.extractField(field, state)
		if err != nil {
			if IsNoValue(err) {
				if !field.Required {
					continue
				}
				value = field.Type.Zero()
			} else {
				return nil, err
			}
		}

		typed, err := coerce(field, value)
		if err != nil {
			return nil, sierrors.Wrap(sierrors.KindExtraction, res.URLInfo.Loc, err)
		}
		record[field.Name] = typed
	}

	return record, nil
}

// extractField validates the extractor's capability tags and invokes it.
func (e *Engine) extractField(field *Field, state *State) (any, error) {
	src := field.Extractor.Sources()
	if src == 0 || src&^allSources != 0 {
		return nil, sierrors.New(sierrors.KindExtraction,
			"field %s: extractor advertises no recognized capability tag", field.Name)
	}
	return field.Extractor.Extract(state)
}

// neededSources unions the capability tags of all configured fields.
func neededSources(fields []*Field) Sources {
	var needed Sources
	for _, field := range fields {
		needed |= field.Extractor.Sources()
	}
	return needed
}

// coerce validates a value against the field's declared type and
// normalizes timestamps to their JSON wire representation. Multivalued
// fields validate every element.
func coerce(field *Field, value any) (any, error) {
	if field.Multivalued {
		list := toList(value)
		out := make([]any, 0, len(list))
		for _, item := range list {
			if err := field.Type.Check(item); err != nil {
				return nil, err
			}
			out = append(out, wireValue(field.Type, item))
		}
		return out, nil
	}

	if err := field.Type.Check(value); err != nil {
		return nil, err
	}
	return wireValue(field.Type, value), nil
}

// toList normalizes a value to a slice for multivalued validation.
func toList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []time.Time:
		out := make([]any, len(v))
		for i, t := range v {
			out[i] = t
		}
		return out
	default:
		return []any{value}
	}
}

// wireValue converts timestamps to the JSON-encodable wrapper type.
func wireValue(t Type, value any) any {
	if t != TypeTimestamp {
		return value
	}
	if tv, ok := value.(time.Time); ok {
		return timeutil.Timestamp(timeutil.ToUTC(tv))
	}
	return value
}
