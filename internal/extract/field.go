// Package extract implements the declarative extraction framework: a
// configured set of typed fields, each bound to an extractor variant
// drawing from one or more data sources, and the engine that turns a
// fetched resource into one index record.
package extract

import (
	"fmt"
	"time"

	"github.com/jonesrussell/siteindex/internal/timeutil"
)

// Type is the declared value type of a field.
type Type string

const (
	// TypeText is a UTF-8 string value.
	TypeText Type = "text"
	// TypeBoolean is a true/false value.
	TypeBoolean Type = "boolean"
	// TypeInteger is a whole-number value.
	TypeInteger Type = "integer"
	// TypeTimestamp is a UTC point in time.
	TypeTimestamp Type = "timestamp"
)

// Valid reports whether the type is one of the recognized value types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeBoolean, TypeInteger, TypeTimestamp:
		return true
	}
	return false
}

// Zero returns the type's zero value, substituted for required fields
// whose extractor produced no value. For timestamps this is the Unix
// epoch in UTC.
func (t Type) Zero() any {
	switch t {
	case TypeBoolean:
		return false
	case TypeInteger:
		return 0
	case TypeTimestamp:
		return timeutil.Epoch
	default:
		return ""
	}
}

// Check validates a single (non-slice) value against the type.
func (t Type) Check(value any) error {
	switch t {
	case TypeText:
		if _, ok := value.(string); ok {
			return nil
		}
	case TypeBoolean:
		if _, ok := value.(bool); ok {
			return nil
		}
	case TypeInteger:
		switch value.(type) {
		case int, int32, int64:
			return nil
		}
	case TypeTimestamp:
		switch value.(type) {
		case time.Time, timeutil.Timestamp:
			return nil
		}
	}
	return fmt.Errorf("value %v (%T) does not satisfy type %s", value, value, t)
}

// Field is one output column: a name, a value type, required and
// multivalued flags, and exactly one bound extractor.
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Multivalued bool
	Extractor   Extractor
}

// FieldLookup resolves peer fields of the same configuration by name.
// It is satisfied by the configuration and consumed by extractors that
// need cross-field mappings.
type FieldLookup interface {
	Field(name string) (*Field, error)
}
