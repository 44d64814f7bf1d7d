package cube

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Query is a ready-to-run SQL statement.
type Query struct {
	SQL  string
	Args []any
}

// layout is the dimension and measure selection of a data access, resolved
// against its cube. Selected columns are ordered columns, rows, pages, then
// measures.
type layout struct {
	columns  []Dimension
	rows     []Dimension
	pages    []Dimension
	measures []Measure
}

func newLayout(c Cube, da DataAccess) (layout, error) {
	var l layout
	resolve := func(names []string) ([]Dimension, error) {
		dims := make([]Dimension, 0, len(names))
		for _, name := range names {
			d, ok := c.Dimension(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidCatalog, name)
			}
			dims = append(dims, d)
		}
		return dims, nil
	}

	var err error
	if l.columns, err = resolve(da.Columns); err != nil {
		return l, err
	}
	if l.rows, err = resolve(da.Rows); err != nil {
		return l, err
	}
	if l.pages, err = resolve(da.Pages); err != nil {
		return l, err
	}
	for _, name := range da.Measures {
		m, ok := c.Measure(name)
		if !ok {
			return l, fmt.Errorf("%w: unknown measure %q", ErrInvalidCatalog, name)
		}
		l.measures = append(l.measures, m)
	}
	return l, nil
}

// levelCount is the number of dimension level columns in a result row.
func (l layout) levelCount() int {
	n := 0
	for _, group := range [][]Dimension{l.columns, l.rows, l.pages} {
		for _, d := range group {
			n += len(d.Levels)
		}
	}
	return n
}

// BuildQuery renders the GROUP BY statement for da. params must already be
// resolved; empty values add no filter.
func BuildQuery(c Cube, da DataAccess, params map[string]string) (Query, error) {
	l, err := newLayout(c, da)
	if err != nil {
		return Query{}, err
	}

	var selects []string
	for _, group := range [][]Dimension{l.columns, l.rows, l.pages} {
		for _, d := range group {
			for _, lvl := range d.Levels {
				selects = append(selects, pgx.Identifier{lvl.Column}.Sanitize())
			}
		}
	}
	groupBy := len(selects)
	for _, m := range l.measures {
		selects = append(selects, aggregate(m)+" AS "+pgx.Identifier{m.Name}.Sanitize())
	}

	from := pgx.Identifier{c.Table}
	if c.Schema != "" {
		from = pgx.Identifier{c.Schema, c.Table}
	}

	wb := NewWhereBuilder()
	for _, p := range da.Parameters {
		wb.Add(p.Column, params[p.Name])
	}
	whereClause, args := wb.Build()

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from.Sanitize())
	sb.WriteString(whereClause)
	if groupBy > 0 {
		ordinals := make([]string, groupBy)
		for i := range ordinals {
			ordinals[i] = strconv.Itoa(i + 1)
		}
		list := strings.Join(ordinals, ", ")
		sb.WriteString(" GROUP BY " + list + " ORDER BY " + list)
	}

	return Query{SQL: sb.String(), Args: args}, nil
}

func aggregate(m Measure) string {
	if m.Aggregator == AggCount && m.Column == "" {
		return "COUNT(*)"
	}
	return strings.ToUpper(string(m.Aggregator)) + "(" + pgx.Identifier{m.Column}.Sanitize() + ")"
}

// WhereBuilder accumulates AND-ed equality conditions with positional args.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends column = value. Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", pgx.Identifier{column}.Sanitize(), wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// NextArgIndex returns the number of the next placeholder.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the WHERE clause with a leading space, or "" and nil args
// when there are no conditions.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
