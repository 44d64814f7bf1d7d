package table

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strings"
)

// checkInterval is how many rows Materialize copies between context checks.
const checkInterval = 1000

// Memory is a fully materialised table. It outlives the source it was copied
// from and is safe for concurrent reads.
type Memory struct {
	names     []string
	types     []DataType
	rows      [][]Value
	cellAttrs [][]Attributes // parallel to rows; nil when the source had none
	colAttrs  []Attributes
	tableAttr Attributes
}

// NewMemory builds a table from column names and rows. Column types are
// inferred from the first non-null value of each column.
func NewMemory(names []string, rows [][]Value) (*Memory, error) {
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(names))
		}
	}
	m := &Memory{
		names:     append([]string(nil), names...),
		types:     make([]DataType, len(names)),
		rows:      rows,
		colAttrs:  make([]Attributes, len(names)),
		tableAttr: Attributes{},
	}
	for col := range names {
		m.types[col] = TypeAny
		for _, row := range rows {
			if !row[col].IsNull {
				m.types[col] = row[col].Type
				break
			}
		}
		m.colAttrs[col] = Attributes{}
	}
	return m, nil
}

// Materialize copies every cell of r into memory. Table, column and cell
// attributes are copied when r implements MetadataReader.
func Materialize(ctx context.Context, r Reader) (*Memory, error) {
	if r == nil {
		return nil, ErrNoSource
	}

	cols := r.ColumnCount()
	m := &Memory{
		names:     make([]string, cols),
		types:     make([]DataType, cols),
		rows:      make([][]Value, 0, r.RowCount()),
		colAttrs:  make([]Attributes, cols),
		tableAttr: Attributes{},
	}

	meta, hasMeta := r.(MetadataReader)
	for col := 0; col < cols; col++ {
		name, err := r.ColumnName(col)
		if err != nil {
			return nil, fmt.Errorf("column %d name: %w", col, err)
		}
		typ, err := r.ColumnType(col)
		if err != nil {
			return nil, fmt.Errorf("column %d type: %w", col, err)
		}
		m.names[col] = name
		m.types[col] = typ
		m.colAttrs[col] = Attributes{}
		if hasMeta {
			attrs, err := meta.ColumnAttributes(col)
			if err != nil {
				return nil, fmt.Errorf("column %d attributes: %w", col, err)
			}
			m.colAttrs[col] = attrs.Clone()
		}
	}
	if hasMeta {
		m.tableAttr = meta.TableAttributes().Clone()
	}

	for row := 0; row < r.RowCount(); row++ {
		if row%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		values, err := Row(r, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		m.rows = append(m.rows, values)
		if hasMeta {
			attrs := make([]Attributes, cols)
			for col := range attrs {
				a, err := meta.CellAttributes(row, col)
				if err != nil {
					return nil, fmt.Errorf("row %d column %d attributes: %w", row, col, err)
				}
				attrs[col] = a.Clone()
			}
			m.cellAttrs = append(m.cellAttrs, attrs)
		}
	}

	return m, nil
}

// RowCount implements Reader.
func (m *Memory) RowCount() int { return len(m.rows) }

// ColumnCount implements Reader.
func (m *Memory) ColumnCount() int { return len(m.names) }

// ColumnName implements Reader.
func (m *Memory) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(m.names) {
		return "", ErrInvalidColumn
	}
	return m.names[col], nil
}

// ColumnType implements Reader.
func (m *Memory) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= len(m.types) {
		return TypeAny, ErrInvalidColumn
	}
	return m.types[col], nil
}

// Cell implements Reader.
func (m *Memory) Cell(row, col int) (Value, error) {
	if row < 0 || row >= len(m.rows) {
		return Value{}, ErrInvalidRow
	}
	if col < 0 || col >= len(m.names) {
		return Value{}, ErrInvalidColumn
	}
	return m.rows[row][col], nil
}

// CellAttributes implements MetadataReader. Tables built by NewMemory
// carry no cell attributes and return an empty set.
func (m *Memory) CellAttributes(row, col int) (Attributes, error) {
	if _, err := m.Cell(row, col); err != nil {
		return nil, err
	}
	if m.cellAttrs == nil {
		return Attributes{}, nil
	}
	return m.cellAttrs[row][col].Clone(), nil
}

// ColumnAttributes implements MetadataReader.
func (m *Memory) ColumnAttributes(col int) (Attributes, error) {
	if col < 0 || col >= len(m.colAttrs) {
		return nil, ErrInvalidColumn
	}
	return m.colAttrs[col].Clone(), nil
}

// TableAttributes implements MetadataReader.
func (m *Memory) TableAttributes() Attributes {
	return m.tableAttr.Clone()
}

// SortBy returns a copy of m with rows ordered by column col. Nulls sort
// last in both directions. The sort is stable.
func (m *Memory) SortBy(col int, desc bool) (*Memory, error) {
	if col < 0 || col >= len(m.names) {
		return nil, ErrInvalidColumn
	}
	order := make([]int, len(m.rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := m.rows[order[i]][col], m.rows[order[j]][col]
		if a.IsNull || b.IsNull {
			return !a.IsNull && b.IsNull
		}
		c := compareValues(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})

	out := *m
	out.rows = make([][]Value, len(order))
	if m.cellAttrs != nil {
		out.cellAttrs = make([][]Attributes, len(order))
	}
	for i, src := range order {
		out.rows[i] = m.rows[src]
		if m.cellAttrs != nil {
			out.cellAttrs[i] = m.cellAttrs[src]
		}
	}
	return &out, nil
}

// compareValues orders numbers before text. Numbers compare by value and
// text by its formatted form.
func compareValues(a, b Value) int {
	af, aok := toFloat(a.Raw)
	bf, bok := toFloat(b.Raw)
	switch {
	case aok && bok:
		return cmp.Compare(af, bf)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a.Formatted, b.Formatted)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
