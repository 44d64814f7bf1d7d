package olap

import (
	"fmt"
	"sync"
)

type dimension struct {
	name string
}

func (d *dimension) Name() string { return d.name }

// NewDimension returns a dimension with the given name.
func NewDimension(name string) Dimension {
	return &dimension{name: name}
}

type hierarchy struct {
	name string
	dim  Dimension
}

func (h *hierarchy) Name() string         { return h.name }
func (h *hierarchy) UniqueName() string   { return bracket(h.name) }
func (h *hierarchy) Dimension() Dimension { return h.dim }

// NewHierarchy returns a hierarchy of dim. Its unique name is "[name]".
func NewHierarchy(name string, dim Dimension) Hierarchy {
	return &hierarchy{name: name, dim: dim}
}

type level struct {
	name  string
	hier  Hierarchy
	depth int
}

func (l *level) Name() string       { return l.name }
func (l *level) UniqueName() string { return l.hier.UniqueName() + "." + bracket(l.name) }
func (l *level) Depth() int         { return l.depth }

// NewLevel returns a level of h at the given depth. Its unique name is
// "[hierarchy].[level]".
func NewLevel(h Hierarchy, name string, depth int) Level {
	return &level{name: name, hier: h, depth: depth}
}

type member struct {
	name    string
	caption string
	hier    Hierarchy
	lvl     Level
	parent  Member
	props   map[string]any
}

func (m *member) Name() string    { return m.name }
func (m *member) Caption() string { return m.caption }
func (m *member) Parent() Member  { return m.parent }
func (m *member) Level() Level    { return m.lvl }

func (m *member) Hierarchy() Hierarchy { return m.hier }

func (m *member) Dimension() Dimension {
	if m.hier == nil {
		return nil
	}
	return m.hier.Dimension()
}

func (m *member) UniqueName() string {
	if m.parent != nil {
		return m.parent.UniqueName() + "." + bracket(m.name)
	}
	if m.hier != nil {
		return m.hier.UniqueName() + "." + bracket(m.name)
	}
	return bracket(m.name)
}

func (m *member) Properties() map[string]any {
	out := make(map[string]any, len(m.props))
	for k, v := range m.props {
		out[k] = v
	}
	return out
}

// MemberOption configures a member built by NewMember.
type MemberOption func(*member)

// WithCaption sets the member's display caption.
func WithCaption(caption string) MemberOption {
	return func(m *member) { m.caption = caption }
}

// WithParent sets the member's parent.
func WithParent(parent Member) MemberOption {
	return func(m *member) { m.parent = parent }
}

// WithProperty attaches a named property to the member.
func WithProperty(name string, value any) MemberOption {
	return func(m *member) {
		if m.props == nil {
			m.props = make(map[string]any)
		}
		m.props[name] = value
	}
}

// NewMember returns a member of h on level lvl. lvl may be nil for flat
// hierarchies.
func NewMember(h Hierarchy, lvl Level, name string, opts ...MemberOption) Member {
	m := &member{name: name, hier: h, lvl: lvl}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type axis struct {
	positions []Position
}

func (a *axis) Positions() []Position { return a.positions }

// NewAxis returns an axis over the given positions.
func NewAxis(positions ...Position) Axis {
	return &axis{positions: positions}
}

// MemoryResult is an in-memory Result. Cells are stored densely, addressed in
// mixed-radix order with axis 0 varying fastest. It is safe for concurrent
// reads once populated.
type MemoryResult struct {
	axes    []Axis
	sizes   []int
	strides []int

	mu     sync.RWMutex
	cells  []Cell
	closed bool
}

// NewMemoryResult returns a result over axes with every cell null.
func NewMemoryResult(axes ...Axis) *MemoryResult {
	r := &MemoryResult{
		axes:    axes,
		sizes:   make([]int, len(axes)),
		strides: make([]int, len(axes)),
	}
	total := 1
	for i, a := range axes {
		r.sizes[i] = len(a.Positions())
		r.strides[i] = total
		total *= r.sizes[i]
	}
	r.cells = make([]Cell, total)
	for i := range r.cells {
		r.cells[i].Null = true
	}
	return r
}

// Axes implements Result.
func (r *MemoryResult) Axes() []Axis { return r.axes }

// Cell implements Result.
func (r *MemoryResult) Cell(coords []int) (Cell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return Cell{}, ErrClosed
	}
	idx, err := r.offset(coords)
	if err != nil {
		return Cell{}, err
	}
	return r.cells[idx], nil
}

// SetCell stores value at coords. A nil value stores a null cell.
func (r *MemoryResult) SetCell(coords []int, value any, formatted string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.offset(coords)
	if err != nil {
		return err
	}
	if value == nil {
		r.cells[idx] = Cell{Null: true}
		return nil
	}
	if formatted == "" {
		formatted = fmt.Sprintf("%v", value)
	}
	r.cells[idx] = Cell{Value: value, Formatted: formatted}
	return nil
}

// Close implements Result.
func (r *MemoryResult) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (r *MemoryResult) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *MemoryResult) offset(coords []int) (int, error) {
	if len(coords) != len(r.sizes) {
		return 0, fmt.Errorf("%w: got %d coordinates for %d axes", ErrCoordinate, len(coords), len(r.sizes))
	}
	idx := 0
	for i, c := range coords {
		if c < 0 || c >= r.sizes[i] {
			return 0, fmt.Errorf("%w: axis %d index %d (size %d)", ErrCoordinate, i, c, r.sizes[i])
		}
		idx += c * r.strides[i]
	}
	return idx, nil
}

func bracket(s string) string {
	return "[" + s + "]"
}
