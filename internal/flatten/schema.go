package flatten

import (
	"strings"

	"github.com/JonMunkholm/cubetab/internal/olap"
)

// measureColumnName names the single column of a result with no axes.
const measureColumnName = "Measure"

// Schema is the fixed shape of a flattened table.
type Schema struct {
	RowCount    int
	ColumnCount int
	ColumnNames []string

	// ColumnDimensions holds the dimension of each header column and nil
	// for value columns.
	ColumnDimensions []olap.Dimension

	// ColumnAxes holds the owning crossed axis of each header column and 0
	// for value columns.
	ColumnAxes []int

	// AxisSizes holds the position count of every axis, axis 0 first.
	AxisSizes []int

	// NoMeasures is set when any axis has no positions.
	NoMeasures bool
}

// HeaderColumns returns the number of dimension-header columns.
func (s Schema) HeaderColumns() int {
	if len(s.AxisSizes) == 0 {
		return 0
	}
	return s.ColumnCount - s.AxisSizes[0]
}

// IsHeaderColumn reports whether col is a dimension-header column.
func (s Schema) IsHeaderColumn(col int) bool {
	return col >= 0 && col < s.HeaderColumns()
}

func (s Schema) clone() Schema {
	out := s
	out.ColumnNames = append([]string(nil), s.ColumnNames...)
	out.ColumnDimensions = append([]olap.Dimension(nil), s.ColumnDimensions...)
	out.ColumnAxes = append([]int(nil), s.ColumnAxes...)
	out.AxisSizes = append([]int(nil), s.AxisSizes...)
	return out
}

// buildSchema derives the table shape from an analysis of axes.
func buildSchema(axes []olap.Axis, a analysis, rowLimit int, diag Diagnostics) Schema {
	s := Schema{
		AxisSizes:  a.sizes,
		NoMeasures: a.noMeasures,
		RowCount:   a.rowCount(),
	}

	if len(axes) == 0 {
		s.ColumnCount = 1
	} else {
		s.ColumnCount = a.sizes[0]
		for i := 1; i < len(axes); i++ {
			s.ColumnCount += a.layouts[i].memberSlots
		}
	}

	s.ColumnNames = make([]string, s.ColumnCount)
	s.ColumnDimensions = make([]olap.Dimension, s.ColumnCount)
	s.ColumnAxes = make([]int, s.ColumnCount)

	if len(axes) == 0 {
		s.ColumnNames[0] = measureColumnName
		return s.limit(rowLimit)
	}

	col := 0
	for i := len(axes) - 1; i >= 1; i-- {
		layout := a.layouts[i]

		at := col
		for slot, w := range layout.slotWeights {
			for x := 0; x < w; x++ {
				s.ColumnDimensions[at] = layout.slotDimensions[slot]
				s.ColumnAxes[at] = i
				at++
			}
		}

		names := hierarchyNames(axes[i])
		if len(names) != layout.memberSlots {
			diag(Warning{
				Kind:        WarnSchemaMismatch,
				Axis:        i,
				Expected:    layout.memberSlots,
				Observed:    len(names),
				Hierarchies: names,
			})
		}
		// Exactly memberSlots names per axis: extras are dropped and
		// missing ones fall back to the slot's dimension name.
		for k := 0; k < layout.memberSlots; k++ {
			if k < len(names) {
				s.ColumnNames[col+k] = names[k]
			} else if dim := s.ColumnDimensions[col+k]; dim != nil {
				s.ColumnNames[col+k] = dim.Name()
			}
		}
		col += layout.memberSlots
	}

	for _, pos := range axes[0].Positions() {
		s.ColumnNames[col] = positionName(pos)
		col++
	}

	return s.limit(rowLimit)
}

func (s Schema) limit(rowLimit int) Schema {
	if rowLimit > 0 && rowLimit < s.RowCount {
		s.RowCount = rowLimit
	}
	return s
}

// hierarchyNames returns the distinct hierarchy names on axis in encounter
// order.
func hierarchyNames(axis olap.Axis) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, pos := range axis.Positions() {
		for _, m := range pos {
			if m == nil || m.Hierarchy() == nil {
				continue
			}
			name := m.Hierarchy().Name()
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// positionName joins the display names of the members of pos with "/".
func positionName(pos olap.Position) string {
	parts := make([]string, 0, len(pos))
	for _, m := range pos {
		if m == nil {
			continue
		}
		parts = append(parts, olap.DisplayName(m))
	}
	return strings.Join(parts, "/")
}
