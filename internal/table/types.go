// Package table defines the two-dimensional contract that exporters and the
// HTTP layer consume: row and column counts, column names and types, cell
// values and optional metadata attributes.
package table

import (
	"fmt"
	"math/big"
	"time"
)

// DataType represents the type of data in a column.
type DataType int

const (
	// TypeAny is used when a column's type cannot be determined.
	TypeAny DataType = iota
	// TypeString represents string data.
	TypeString
	// TypeInt represents integer data (any size).
	TypeInt
	// TypeFloat represents floating-point data (any precision).
	TypeFloat
	// TypeBool represents boolean data.
	TypeBool
	// TypeDate represents date data (without time).
	TypeDate
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
	// TypeDecimal represents arbitrary precision numeric data.
	TypeDecimal
)

// String returns the string representation of a DataType.
func (dt DataType) String() string {
	switch dt {
	case TypeAny:
		return "Any"
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeDate:
		return "Date"
	case TypeTimestamp:
		return "Timestamp"
	case TypeDecimal:
		return "Decimal"
	default:
		return fmt.Sprintf("Unknown(%d)", dt)
	}
}

// TypeOf infers the DataType of a raw Go value.
func TypeOf(v any) DataType {
	switch v.(type) {
	case nil:
		return TypeAny
	case string:
		return TypeString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTimestamp
	case *big.Float, *big.Rat, *big.Int:
		return TypeDecimal
	default:
		return TypeAny
	}
}

// Value is a typed container for cell values.
type Value struct {
	// Raw holds the underlying value.
	Raw any

	// Type indicates the data type of this value.
	Type DataType

	// IsNull indicates whether this value is null/nil.
	IsNull bool

	// Formatted is a pre-formatted string representation for display.
	Formatted string
}

// NewValue creates a Value from a raw value, inferring its type.
func NewValue(raw any) Value {
	if raw == nil {
		return NewNullValue(TypeAny)
	}
	return Value{
		Raw:       raw,
		Type:      TypeOf(raw),
		Formatted: formatValue(raw),
	}
}

// NewNullValue creates a null value of the specified type.
func NewNullValue(dataType DataType) Value {
	return Value{Type: dataType, IsNull: true}
}

func formatValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// Attributes is a set of metadata attributes attached to a table, a column
// or a single cell. An empty set is valid.
type Attributes map[string]any

// Attribute keys.
const (
	AttrCrosstabMode = "crosstab-mode"
	AttrRole         = "role"
	AttrAxis         = "axis"
	AttrDimension    = "dimension"
	AttrName         = "name"
	AttrUniqueName   = "unique-name"
	AttrCaption      = "caption"
	AttrLevel        = "level"
	AttrLevelDepth   = "level-depth"
	AttrValue        = "value"
	AttrFormatted    = "formatted-value"
	AttrNull         = "null"
)

// Attribute values.
const (
	CrosstabNormalized = "normalized"
	RoleHeader         = "header"
	RoleValue          = "value"
)

// Clone returns a shallow copy of a.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
