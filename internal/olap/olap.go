// Package olap defines the read-only view of a multidimensional query result.
//
// A Result is a set of orthogonal axes. Each Axis holds ordered Positions and
// each Position is a fixed-length tuple of Members. Axis 0 is the free
// (column) axis; axes 1..N-1 are the crossed (row) axes. Cells are addressed
// by a coordinate vector with one entry per axis.
//
// The interfaces here are what the flattening engine consumes. Producers (the
// SQL cube source, tests) build results with the in-memory implementation in
// memory.go.
package olap

import "errors"

var (
	// ErrClosed is returned by Cell once the result has been closed.
	ErrClosed = errors.New("olap: result is closed")

	// ErrCoordinate is returned when a coordinate vector does not address a cell.
	ErrCoordinate = errors.New("olap: coordinate out of range")
)

// Dimension is a named categorical axis of meaning, e.g. "Product" or "Time".
type Dimension interface {
	Name() string
}

// Hierarchy is a named ordering of levels within a Dimension.
type Hierarchy interface {
	Name() string
	UniqueName() string
	Dimension() Dimension
}

// Level is one depth of a Hierarchy. Depth 0 is the top level.
type Level interface {
	Name() string
	UniqueName() string
	Depth() int
}

// Member is a node of a Hierarchy. Parent returns nil at the root.
type Member interface {
	Name() string
	UniqueName() string
	// Caption is the display name; empty when the source has none.
	Caption() string
	Dimension() Dimension
	Hierarchy() Hierarchy
	Level() Level
	Parent() Member
	Properties() map[string]any
}

// Position is an ordered tuple of members, one per member slot of its axis.
type Position []Member

// Axis is an ordered sequence of positions.
type Axis interface {
	Positions() []Position
}

// Cell is the value at one coordinate of a result.
type Cell struct {
	Value      any
	Null       bool
	Formatted  string
	Properties map[string]any
}

// Result is a multidimensional query result. Implementations used from more
// than one goroutine must make Axes and Cell safe for concurrent reads.
type Result interface {
	Axes() []Axis
	Cell(coords []int) (Cell, error)
	Close() error
}

// SameDimension reports whether a and b denote the same dimension. Identity is
// by reference first, then by name.
func SameDimension(a, b Dimension) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	return a.Name() == b.Name()
}

// DisplayName returns the member's caption when it has one and its raw name
// otherwise.
func DisplayName(m Member) string {
	if m == nil {
		return ""
	}
	if c := m.Caption(); c != "" {
		return c
	}
	return m.Name()
}
