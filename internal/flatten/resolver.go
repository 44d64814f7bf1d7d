package flatten

import (
	"fmt"

	"github.com/JonMunkholm/cubetab/internal/olap"
	"github.com/JonMunkholm/cubetab/internal/table"
)

// maxParentWalk bounds the ancestor search for malformed hierarchies.
const maxParentWalk = 256

// resolveValue returns the value at coords for column col.
func (t *Table) resolveValue(coords []int, col int) (table.Value, error) {
	if !t.schema.IsHeaderColumn(col) {
		cell, err := t.result.Cell(coords)
		if err != nil {
			return table.Value{}, fmt.Errorf("cell %v: %w", coords, err)
		}
		return cellValue(cell), nil
	}

	m := t.contextMember(coords, col)
	if m == nil {
		return table.NewNullValue(table.TypeString), nil
	}
	return table.NewValue(olap.DisplayName(m)), nil
}

func cellValue(cell olap.Cell) table.Value {
	if cell.Null || cell.Value == nil {
		return table.NewNullValue(table.TypeAny)
	}
	v := table.NewValue(cell.Value)
	if cell.Formatted != "" {
		v.Formatted = cell.Formatted
	}
	return v
}

// contextMember returns the member of the header column's dimension in the
// position selected by coords, or nil when none matches.
func (t *Table) contextMember(coords []int, col int) olap.Member {
	dim := t.schema.ColumnDimensions[col]
	if dim == nil {
		return nil
	}
	axisIdx := t.schema.ColumnAxes[col]
	if axisIdx <= 0 || axisIdx >= len(t.axes) || axisIdx >= len(coords) {
		return nil
	}

	positions := t.axes[axisIdx].Positions()
	pos := coords[axisIdx]
	if pos < 0 || pos >= len(positions) {
		return nil
	}
	for _, m := range positions[pos] {
		if m != nil && olap.SameDimension(dim, m.Dimension()) {
			return m
		}
	}
	return nil
}

// resolveAttributes returns cell metadata. Value columns describe the cell;
// header columns describe the ancestor of the context member whose level
// unique name equals the column name.
func (t *Table) resolveAttributes(coords []int, col int) (table.Attributes, error) {
	if !t.schema.IsHeaderColumn(col) {
		cell, err := t.result.Cell(coords)
		if err != nil {
			return nil, fmt.Errorf("cell %v: %w", coords, err)
		}
		return cellAttributes(cell), nil
	}

	name := t.schema.ColumnNames[col]
	m := t.contextMember(coords, col)
	for steps := walkLimit(m); m != nil && steps > 0; steps-- {
		if lvl := m.Level(); lvl != nil && lvl.UniqueName() == name {
			return memberAttributes(m), nil
		}
		m = m.Parent()
	}
	return table.Attributes{}, nil
}

// walkLimit is the number of members on the path from m to its root.
func walkLimit(m olap.Member) int {
	if m == nil || m.Level() == nil {
		return maxParentWalk
	}
	return min(m.Level().Depth()+1, maxParentWalk)
}

func cellAttributes(cell olap.Cell) table.Attributes {
	attrs := make(table.Attributes, len(cell.Properties)+4)
	for k, v := range cell.Properties {
		attrs[k] = v
	}
	attrs[table.AttrRole] = table.RoleValue
	attrs[table.AttrNull] = cell.Null
	if !cell.Null {
		attrs[table.AttrValue] = cell.Value
	}
	if cell.Formatted != "" {
		attrs[table.AttrFormatted] = cell.Formatted
	}
	return attrs
}

func memberAttributes(m olap.Member) table.Attributes {
	props := m.Properties()
	attrs := make(table.Attributes, len(props)+6)
	for k, v := range props {
		attrs[k] = v
	}
	attrs[table.AttrRole] = table.RoleHeader
	attrs[table.AttrName] = m.Name()
	attrs[table.AttrUniqueName] = m.UniqueName()
	attrs[table.AttrCaption] = olap.DisplayName(m)
	if lvl := m.Level(); lvl != nil {
		attrs[table.AttrLevel] = lvl.UniqueName()
		attrs[table.AttrLevelDepth] = lvl.Depth()
	}
	if dim := m.Dimension(); dim != nil {
		attrs[table.AttrDimension] = dim.Name()
	}
	return attrs
}
