package flatten

import "github.com/JonMunkholm/cubetab/internal/olap"

// slotWeight is the number of header columns a member slot contributes.
// Parent levels are not expanded into columns of their own.
const slotWeight = 1

// axisLayout describes the member slots of one crossed axis.
type axisLayout struct {
	slotWeights    []int
	slotDimensions []olap.Dimension
	memberSlots    int
}

// analysis is the result of one pass over all axes of a result.
type analysis struct {
	sizes      []int
	noMeasures bool
	layouts    []axisLayout // indexed by axis; entry 0 is unused
}

// analyzeAxes walks every position of every axis once. Crossed axes are
// visited from the last down to axis 1, which is the order their header
// columns appear in.
func analyzeAxes(axes []olap.Axis) analysis {
	a := analysis{
		sizes:   make([]int, len(axes)),
		layouts: make([]axisLayout, len(axes)),
	}

	if len(axes) > 0 {
		a.sizes[0] = len(axes[0].Positions())
		if a.sizes[0] == 0 {
			a.noMeasures = true
		}
	}

	for i := len(axes) - 1; i >= 1; i-- {
		positions := axes[i].Positions()
		a.sizes[i] = len(positions)
		if len(positions) == 0 {
			a.noMeasures = true
		}

		var layout axisLayout
		for _, pos := range positions {
			for slot, m := range pos {
				var dim olap.Dimension
				if m != nil {
					dim = m.Dimension()
				}
				if slot >= len(layout.slotWeights) {
					layout.slotWeights = append(layout.slotWeights, slotWeight)
					layout.slotDimensions = append(layout.slotDimensions, dim)
					continue
				}
				// Later positions win when a slot changes dimension.
				if dim != nil {
					layout.slotDimensions[slot] = dim
				}
			}
		}
		for _, w := range layout.slotWeights {
			layout.memberSlots += w
		}
		a.layouts[i] = layout
	}

	return a
}

// rowCount is the product of the crossed axis sizes, floored to 1 unless a
// crossed axis is empty.
func (a analysis) rowCount() int {
	rows := 0
	if len(a.sizes) > 1 {
		rows = a.sizes[1]
		for _, size := range a.sizes[2:] {
			rows *= size
		}
	}
	if !a.noMeasures && rows < 1 {
		rows = 1
	}
	return rows
}
