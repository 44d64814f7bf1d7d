package cube

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/cubetab/internal/olap"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	// nullMemberName names the member of a NULL level value.
	nullMemberName = "#null"

	measuresName = "Measures"
)

// BuildResult assembles grouped rows, as produced by the BuildQuery
// statement for the same data access, into a result. Axis 0 holds the
// distinct column tuples crossed with the measures, or the measures alone
// when there are no column dimensions. Axis 1 holds the distinct row tuples
// and axis 2 the page tuples. Combinations without a row are null cells.
func BuildResult(c Cube, da DataAccess, rows [][]any) (*olap.MemoryResult, error) {
	l, err := newLayout(c, da)
	if err != nil {
		return nil, err
	}

	f := newMemberFactory()
	cols := newTupleIndex(f, l.columns)
	crossed := []*tupleIndex{newTupleIndex(f, l.rows), newTupleIndex(f, l.pages)}

	width := l.levelCount() + len(l.measures)
	coords := make([][]int, len(rows))
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), width)
		}
		off := 0
		names := func(dims []Dimension) []string {
			n := 0
			for _, d := range dims {
				n += len(d.Levels)
			}
			out := make([]string, n)
			for i := range out {
				out[i] = memberName(row[off+i])
			}
			off += n
			return out
		}
		key := make([]int, 3)
		key[0] = cols.add(names(l.columns))
		key[1] = crossed[0].add(names(l.rows))
		key[2] = crossed[1].add(names(l.pages))
		coords[r] = key
	}

	measures := make([]olap.Member, len(l.measures))
	for i, m := range l.measures {
		measures[i] = f.measure(m.Name)
	}

	var axes []olap.Axis
	var colPositions []olap.Position
	if len(l.columns) == 0 {
		for _, m := range measures {
			colPositions = append(colPositions, olap.Position{m})
		}
	} else {
		for _, tuple := range cols.positions {
			for _, m := range measures {
				pos := append(olap.Position(nil), tuple...)
				if len(measures) > 1 {
					pos = append(pos, m)
				}
				colPositions = append(colPositions, pos)
			}
		}
	}
	axes = append(axes, olap.NewAxis(colPositions...))
	for _, ti := range crossed {
		if len(ti.dims) > 0 {
			axes = append(axes, olap.NewAxis(ti.positions...))
		}
	}

	result := olap.NewMemoryResult(axes...)
	off := l.levelCount()
	for r, row := range rows {
		at := make([]int, len(axes))
		copy(at[1:], coords[r][1:len(axes)])
		for mi, m := range l.measures {
			if len(l.columns) == 0 {
				at[0] = mi
			} else {
				at[0] = coords[r][0]*len(l.measures) + mi
			}
			v := normalizeValue(row[off+mi])
			if err := result.SetCell(at, v, formatValue(m, v)); err != nil {
				return nil, fmt.Errorf("row %d measure %s: %w", r, m.Name, err)
			}
		}
	}
	return result, nil
}

// memberFactory hands out one member per distinct level path so that equal
// paths share parents.
type memberFactory struct {
	hierarchies map[string]olap.Hierarchy
	levels      map[string][]olap.Level
	members     map[string]olap.Member
}

func newMemberFactory() *memberFactory {
	return &memberFactory{
		hierarchies: make(map[string]olap.Hierarchy),
		levels:      make(map[string][]olap.Level),
		members:     make(map[string]olap.Member),
	}
}

func (f *memberFactory) hierarchy(d Dimension) (olap.Hierarchy, []olap.Level) {
	if h, ok := f.hierarchies[d.Name]; ok {
		return h, f.levels[d.Name]
	}
	h := olap.NewHierarchy(d.Name, olap.NewDimension(d.Name))
	levels := make([]olap.Level, len(d.Levels))
	for i, lvl := range d.Levels {
		levels[i] = olap.NewLevel(h, lvl.Name, i)
	}
	f.hierarchies[d.Name] = h
	f.levels[d.Name] = levels
	return h, levels
}

// member returns the leaf member of path, one name per level of d.
func (f *memberFactory) member(d Dimension, path []string) olap.Member {
	h, levels := f.hierarchy(d)
	var parent olap.Member
	key := d.Name
	for depth, name := range path {
		key += "\x00" + name
		m, ok := f.members[key]
		if !ok {
			var opts []olap.MemberOption
			if parent != nil {
				opts = append(opts, olap.WithParent(parent))
			}
			m = olap.NewMember(h, levels[depth], name, opts...)
			f.members[key] = m
		}
		parent = m
	}
	return parent
}

func (f *memberFactory) measure(name string) olap.Member {
	d := Dimension{Name: measuresName, Levels: []Level{{Name: "MeasuresLevel"}}}
	return f.member(d, []string{name})
}

// tupleIndex numbers distinct tuples of a dimension group in first-seen order.
type tupleIndex struct {
	f         *memberFactory
	dims      []Dimension
	keys      map[string]int
	positions []olap.Position
}

func newTupleIndex(f *memberFactory, dims []Dimension) *tupleIndex {
	return &tupleIndex{f: f, dims: dims, keys: make(map[string]int)}
}

// add returns the position index of the tuple named by values, the level
// values of every dimension in order.
func (ti *tupleIndex) add(values []string) int {
	if len(ti.dims) == 0 {
		return 0
	}
	key := strings.Join(values, "\x00")
	if i, ok := ti.keys[key]; ok {
		return i
	}
	pos := make(olap.Position, 0, len(ti.dims))
	off := 0
	for _, d := range ti.dims {
		n := len(d.Levels)
		pos = append(pos, ti.f.member(d, values[off:off+n]))
		off += n
	}
	ti.keys[key] = len(ti.positions)
	ti.positions = append(ti.positions, pos)
	return len(ti.positions) - 1
}

// normalizeValue converts driver values to plain Go types.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return v
	}
}

func memberName(v any) string {
	switch x := normalizeValue(v).(type) {
	case nil:
		return nullMemberName
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func formatValue(m Measure, v any) string {
	if m.Format == "" || v == nil {
		return ""
	}
	return fmt.Sprintf(m.Format, v)
}
