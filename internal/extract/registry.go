package extract

import (
	"github.com/antchfx/xpath"
	"github.com/mitchellh/mapstructure"

	sierrors "github.com/jonesrussell/siteindex/internal/errors"
)

// mappingSpec is the decoded parameter shape shared by the header and
// field mapping variants.
type mappingSpec struct {
	Header  string         `mapstructure:"header"`
	Field   string         `mapstructure:"field"`
	Map     map[string]any `mapstructure:"map"`
	Default any            `mapstructure:"default"`
}

// New constructs an extractor variant by its configured name, decoding
// variant-specific parameters. Unknown names are a configuration
// error; the engine independently re-validates capability tags at run
// time.
func New(name string, params map[string]any) (Extractor, error) {
	switch name {
	case "plain_text":
		return PlainText{}, nil
	case "uid":
		return UID{}, nil
	case "slug":
		return Slug{}, nil
	case "url":
		return URL{}, nil
	case "target_url":
		return TargetURL{}, nil
	case "title":
		return Title{}, nil
	case "description":
		return MetadataValue{Key: "description"}, nil
	case "creator":
		return MetadataValue{Key: "creator"}, nil
	case "metadata":
		var spec struct {
			Key string `mapstructure:"key"`
		}
		if err := decode(name, params, &spec); err != nil {
			return nil, err
		}
		if spec.Key == "" {
			return nil, sierrors.New(sierrors.KindConfig, "metadata extractor requires a key")
		}
		return MetadataValue{Key: spec.Key}, nil
	case "keywords":
		return Keywords{}, nil
	case "filename":
		return Filename{}, nil
	case "last_modified":
		return LastModified{}, nil
	case "indexing_time":
		return IndexingTime{}, nil
	case "constant":
		var spec struct {
			Value any `mapstructure:"value"`
		}
		if err := decode(name, params, &spec); err != nil {
			return nil, err
		}
		return Constant{Value: spec.Value}, nil
	case "site_attribute":
		var spec struct {
			Key string `mapstructure:"key"`
		}
		if err := decode(name, params, &spec); err != nil {
			return nil, err
		}
		if spec.Key == "" {
			return nil, sierrors.New(sierrors.KindConfig, "site_attribute extractor requires a key")
		}
		return SiteAttribute{Key: spec.Key}, nil
	case "header_mapping":
		var spec mappingSpec
		if err := decode(name, params, &spec); err != nil {
			return nil, err
		}
		if spec.Header == "" {
			return nil, sierrors.New(sierrors.KindConfig, "header_mapping extractor requires a header")
		}
		return HeaderMapping{Header: spec.Header, Map: spec.Map, Default: spec.Default}, nil
	case "field_mapping":
		var spec mappingSpec
		if err := decode(name, params, &spec); err != nil {
			return nil, err
		}
		if spec.Field == "" {
			return nil, sierrors.New(sierrors.KindConfig, "field_mapping extractor requires a field")
		}
		return FieldMapping{Field: spec.Field, Map: spec.Map, Default: spec.Default}, nil
	case "xpath":
		var spec struct {
			Expression string `mapstructure:"expression"`
		}
		if err := decode(name, params, &spec); err != nil {
			return nil, err
		}
		if spec.Expression == "" {
			return nil, sierrors.New(sierrors.KindConfig, "xpath extractor requires an expression")
		}
		if _, err := xpath.Compile(spec.Expression); err != nil {
			return nil, sierrors.New(sierrors.KindConfig, "invalid xpath expression %q: %v", spec.Expression, err)
		}
		return XPath{Expression: spec.Expression}, nil
	case "snippet_text":
		return SnippetText{}, nil
	default:
		return nil, sierrors.New(sierrors.KindConfig, "unknown extractor %q", name)
	}
}

// decode unpacks extractor parameters into a variant-specific spec.
func decode(name string, params map[string]any, target any) error {
	if err := mapstructure.Decode(params, target); err != nil {
		return sierrors.New(sierrors.KindConfig, "invalid parameters for extractor %q: %v", name, err)
	}
	return nil
}
