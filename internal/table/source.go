package table

import "errors"

// Common errors returned by table implementations.
var (
	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrNoSource is returned when a required table is nil.
	ErrNoSource = errors.New("table source is nil")
)

// Reader provides read-only tabular access.
// Implementations must be safe for concurrent reads.
type Reader interface {
	// RowCount returns the total number of rows.
	RowCount() int

	// ColumnCount returns the total number of columns.
	ColumnCount() int

	// ColumnName returns the name of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnName(col int) (string, error)

	// ColumnType returns the best-effort data type of the column.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnType(col int) (DataType, error)

	// Cell returns the value at the specified row and column.
	// Returns ErrInvalidRow or ErrInvalidColumn for out-of-range indexes.
	Cell(row, col int) (Value, error)
}

// MetadataReader exposes formatting and header hints. Every method may
// return an empty Attributes set.
type MetadataReader interface {
	CellAttributes(row, col int) (Attributes, error)
	ColumnAttributes(col int) (Attributes, error)
	TableAttributes() Attributes
}

// ColumnNames returns all column names of r.
func ColumnNames(r Reader) ([]string, error) {
	names := make([]string, r.ColumnCount())
	for i := range names {
		name, err := r.ColumnName(i)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// Row returns all values of row in r.
func Row(r Reader, row int) ([]Value, error) {
	values := make([]Value, r.ColumnCount())
	for col := range values {
		v, err := r.Cell(row, col)
		if err != nil {
			return nil, err
		}
		values[col] = v
	}
	return values, nil
}
