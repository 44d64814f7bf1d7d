package flatten

// headerCoordinate is the axis-0 coordinate of a dimension-header column.
const headerCoordinate = -1

// CellKey maps a table address to a coordinate vector in the source result.
// The row is decoded over the crossed axis sizes. For header columns the
// axis-0 coordinate is -1.
func (s Schema) CellKey(row, col int) []int {
	key := make([]int, len(s.AxisSizes))
	if len(key) == 0 {
		return key
	}

	if start := s.HeaderColumns(); col < start {
		key[0] = headerCoordinate
	} else {
		key[0] = col - start
	}
	copy(key[1:], DecodeRow(row, s.AxisSizes[1:]))
	return key
}

// DecodeRow splits row into one coordinate per entry of sizes, the first
// varying fastest. Axes of size zero yield coordinate 0.
func DecodeRow(row int, sizes []int) []int {
	coords := make([]int, len(sizes))
	for i, size := range sizes {
		if size <= 0 {
			continue
		}
		coords[i] = row % size
		row /= size
	}
	return coords
}
