package flatten

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/cubetab/internal/olap"
	"github.com/JonMunkholm/cubetab/internal/table"
)

var (
	timeH    = olap.NewHierarchy("Time", olap.NewDimension("Time"))
	productH = olap.NewHierarchy("Product", olap.NewDimension("Product"))
	storeH   = olap.NewHierarchy("Store", olap.NewDimension("Store"))
	measureH = olap.NewHierarchy("Measures", olap.NewDimension("Measures"))
)

func members(h olap.Hierarchy, names ...string) []olap.Position {
	out := make([]olap.Position, len(names))
	for i, n := range names {
		out[i] = olap.Position{olap.NewMember(h, nil, n)}
	}
	return out
}

// yearsByProduct has years on columns and products on rows. Cell [c, r]
// holds 100*r + c.
func yearsByProduct(t *testing.T) *olap.MemoryResult {
	t.Helper()
	r := olap.NewMemoryResult(
		olap.NewAxis(members(timeH, "2003", "2004")...),
		olap.NewAxis(members(productH, "A", "B", "C")...),
	)
	for row := 0; row < 3; row++ {
		for col := 0; col < 2; col++ {
			if err := r.SetCell([]int{col, row}, float64(100*row+col), ""); err != nil {
				t.Fatalf("SetCell() error = %v", err)
			}
		}
	}
	return r
}

func mustNew(t *testing.T, r olap.Result, opts ...Option) *Table {
	t.Helper()
	tbl, err := New(r, append([]Option{WithDiagnostics(Discard)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tbl
}

func columnNames(t *testing.T, tbl *Table) []string {
	t.Helper()
	names, err := table.ColumnNames(tbl)
	if err != nil {
		t.Fatalf("ColumnNames() error = %v", err)
	}
	return names
}

func TestNew_TwoAxes(t *testing.T) {
	tbl := mustNew(t, yearsByProduct(t))

	if got, want := columnNames(t, tbl), []string{"Product", "2003", "2004"}; !reflect.DeepEqual(got, want) {
		t.Errorf("column names = %v, want %v", got, want)
	}
	if tbl.RowCount() != 3 {
		t.Errorf("RowCount() = %d, want 3", tbl.RowCount())
	}

	tests := []struct {
		row, col int
		want     any
	}{
		{0, 0, "A"},
		{1, 0, "B"},
		{2, 0, "C"},
		{1, 1, 100.0},
		{1, 2, 101.0},
		{2, 1, 200.0},
	}
	for _, tt := range tests {
		v, err := tbl.Cell(tt.row, tt.col)
		if err != nil {
			t.Fatalf("Cell(%d,%d) error = %v", tt.row, tt.col, err)
		}
		if v.Raw != tt.want {
			t.Errorf("Cell(%d,%d) = %v, want %v", tt.row, tt.col, v.Raw, tt.want)
		}
	}
}

func TestNew_ZeroAxes(t *testing.T) {
	r := olap.NewMemoryResult()
	if err := r.SetCell([]int{}, 42, ""); err != nil {
		t.Fatalf("SetCell() error = %v", err)
	}
	tbl := mustNew(t, r)

	if tbl.RowCount() != 1 || tbl.ColumnCount() != 1 {
		t.Fatalf("size = %dx%d, want 1x1", tbl.RowCount(), tbl.ColumnCount())
	}
	if name, _ := tbl.ColumnName(0); name != "Measure" {
		t.Errorf("ColumnName(0) = %q, want Measure", name)
	}
	v, err := tbl.Cell(0, 0)
	if err != nil {
		t.Fatalf("Cell(0,0) error = %v", err)
	}
	if v.Raw != 42 {
		t.Errorf("Cell(0,0) = %v, want 42", v.Raw)
	}
}

func TestNew_SingleAxis(t *testing.T) {
	r := olap.NewMemoryResult(olap.NewAxis(members(measureH, "Sales", "Cost")...))
	_ = r.SetCell([]int{1}, 7.5, "")
	tbl := mustNew(t, r)

	if tbl.RowCount() != 1 {
		t.Errorf("RowCount() = %d, want 1", tbl.RowCount())
	}
	if got, want := columnNames(t, tbl), []string{"Sales", "Cost"}; !reflect.DeepEqual(got, want) {
		t.Errorf("column names = %v, want %v", got, want)
	}
	v, _ := tbl.Cell(0, 1)
	if v.Raw != 7.5 {
		t.Errorf("Cell(0,1) = %v, want 7.5", v.Raw)
	}
}

func TestNew_EmptyCrossedAxis(t *testing.T) {
	r := olap.NewMemoryResult(
		olap.NewAxis(members(timeH, "2003", "2004")...),
		olap.NewAxis(),
	)
	tbl := mustNew(t, r)

	if tbl.RowCount() != 0 {
		t.Errorf("RowCount() = %d, want 0", tbl.RowCount())
	}
	if !tbl.NoMeasures() {
		t.Error("NoMeasures() = false, want true")
	}
	if tbl.ColumnCount() != 2 {
		t.Errorf("ColumnCount() = %d, want 2", tbl.ColumnCount())
	}
	if _, err := tbl.Cell(0, 0); !errors.Is(err, table.ErrInvalidRow) {
		t.Errorf("Cell(0,0) error = %v, want ErrInvalidRow", err)
	}
}

func TestNew_EmptyColumnAxis(t *testing.T) {
	r := olap.NewMemoryResult(
		olap.NewAxis(),
		olap.NewAxis(members(productH, "A", "B")...),
	)
	tbl := mustNew(t, r)

	if !tbl.NoMeasures() {
		t.Error("NoMeasures() = false, want true")
	}
	if tbl.RowCount() != 2 || tbl.ColumnCount() != 1 {
		t.Fatalf("size = %dx%d, want 2x1", tbl.RowCount(), tbl.ColumnCount())
	}
	v, err := tbl.Cell(1, 0)
	if err != nil {
		t.Fatalf("Cell(1,0) error = %v", err)
	}
	if v.Raw != "B" {
		t.Errorf("Cell(1,0) = %v, want B", v.Raw)
	}
}

func TestNew_NilResult(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilResult) {
		t.Errorf("New(nil) error = %v, want ErrNilResult", err)
	}
}

func TestNew_ThreeAxes(t *testing.T) {
	r := olap.NewMemoryResult(
		olap.NewAxis(members(measureH, "Sales")...),
		olap.NewAxis(members(productH, "A", "B")...),
		olap.NewAxis(members(timeH, "2003", "2004", "2005")...),
	)
	_ = r.SetCell([]int{0, 1, 1}, 11.0, "")
	tbl := mustNew(t, r)

	if got, want := columnNames(t, tbl), []string{"Time", "Product", "Sales"}; !reflect.DeepEqual(got, want) {
		t.Errorf("column names = %v, want %v", got, want)
	}
	if tbl.RowCount() != 6 {
		t.Fatalf("RowCount() = %d, want 6", tbl.RowCount())
	}

	row, err := table.Row(tbl, 3)
	if err != nil {
		t.Fatalf("Row(3) error = %v", err)
	}
	if row[0].Raw != "2004" || row[1].Raw != "B" || row[2].Raw != 11.0 {
		t.Errorf("Row(3) = [%v %v %v], want [2004 B 11]", row[0].Raw, row[1].Raw, row[2].Raw)
	}
}

func TestNew_TupleSlots(t *testing.T) {
	a := olap.NewMember(productH, nil, "A")
	x := olap.NewMember(storeH, nil, "X")
	y := olap.NewMember(storeH, nil, "Y")
	r := olap.NewMemoryResult(
		olap.NewAxis(members(measureH, "Sales")...),
		olap.NewAxis(olap.Position{a, x}, olap.Position{a, y}),
	)
	var warnings []Warning
	tbl := mustNew(t, r, WithDiagnostics(func(w Warning) { warnings = append(warnings, w) }))

	if got, want := columnNames(t, tbl), []string{"Product", "Store", "Sales"}; !reflect.DeepEqual(got, want) {
		t.Errorf("column names = %v, want %v", got, want)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	v, _ := tbl.Cell(1, 1)
	if v.Raw != "Y" {
		t.Errorf("Cell(1,1) = %v, want Y", v.Raw)
	}
}

func TestNew_SchemaMismatch(t *testing.T) {
	r := olap.NewMemoryResult(
		olap.NewAxis(members(measureH, "Sales")...),
		olap.NewAxis(
			olap.Position{olap.NewMember(productH, nil, "A")},
			olap.Position{olap.NewMember(storeH, nil, "X")},
		),
	)
	var warnings []Warning
	tbl := mustNew(t, r, WithDiagnostics(func(w Warning) { warnings = append(warnings, w) }))

	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	w := warnings[0]
	if w.Kind != WarnSchemaMismatch || w.Axis != 1 || w.Expected != 1 || w.Observed != 2 {
		t.Errorf("warning = %+v", w)
	}

	if tbl.ColumnCount() != 2 {
		t.Fatalf("ColumnCount() = %d, want 2", tbl.ColumnCount())
	}
	if name, _ := tbl.ColumnName(0); name != "Product" {
		t.Errorf("ColumnName(0) = %q, want Product", name)
	}

	// The slot's dimension is the last one seen.
	v, _ := tbl.Cell(0, 0)
	if !v.IsNull {
		t.Errorf("Cell(0,0) = %v, want null", v.Raw)
	}
	v, _ = tbl.Cell(1, 0)
	if v.Raw != "X" {
		t.Errorf("Cell(1,0) = %v, want X", v.Raw)
	}
}

func TestNew_FewerHierarchiesThanSlots(t *testing.T) {
	r := olap.NewMemoryResult(
		olap.NewAxis(members(measureH, "Sales")...),
		olap.NewAxis(olap.Position{
			olap.NewMember(productH, nil, "A"),
			olap.NewMember(productH, nil, "B"),
		}),
	)
	var warnings []Warning
	tbl := mustNew(t, r, WithDiagnostics(func(w Warning) { warnings = append(warnings, w) }))

	if got, want := columnNames(t, tbl), []string{"Product", "Product", "Sales"}; !reflect.DeepEqual(got, want) {
		t.Errorf("column names = %v, want %v", got, want)
	}
	if len(warnings) != 1 || warnings[0].Expected != 2 || warnings[0].Observed != 1 {
		t.Errorf("warnings = %+v, want one with expected 2, observed 1", warnings)
	}
}

func TestNew_EmptyMiddleAxisKeepsHeaders(t *testing.T) {
	r := olap.NewMemoryResult(
		olap.NewAxis(members(timeH, "2003", "2004")...),
		olap.NewAxis(),
		olap.NewAxis(members(storeH, "X", "Y", "Z")...),
	)
	tbl := mustNew(t, r)

	if tbl.RowCount() != 0 {
		t.Errorf("RowCount() = %d, want 0", tbl.RowCount())
	}
	if got, want := columnNames(t, tbl), []string{"Store", "2003", "2004"}; !reflect.DeepEqual(got, want) {
		t.Errorf("column names = %v, want %v", got, want)
	}
	if _, err := tbl.Cell(0, 0); !errors.Is(err, table.ErrInvalidRow) {
		t.Errorf("Cell(0,0) error = %v, want ErrInvalidRow", err)
	}
}

func TestSlogDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	SlogDiagnostics(logger)(Warning{Kind: WarnSchemaMismatch, Axis: 1, Expected: 1, Observed: 2})

	out := buf.String()
	for _, want := range []string{"level=WARN", "kind=schema_mismatch", "axis=1", "observed=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestWithRowLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, 3},
		{-1, 3},
		{2, 2},
		{3, 3},
		{10, 3},
	}
	for _, tt := range tests {
		tbl := mustNew(t, yearsByProduct(t), WithRowLimit(tt.limit))
		if tbl.RowCount() != tt.want {
			t.Errorf("WithRowLimit(%d): RowCount() = %d, want %d", tt.limit, tbl.RowCount(), tt.want)
		}
	}
}

func TestCell_OutOfRange(t *testing.T) {
	tbl := mustNew(t, yearsByProduct(t))

	tests := []struct {
		name     string
		row, col int
		want     error
	}{
		{"column past end", 0, 3, table.ErrInvalidColumn},
		{"negative column", 0, -1, table.ErrInvalidColumn},
		{"row past end", 3, 0, table.ErrInvalidRow},
		{"negative row", -1, 1, table.ErrInvalidRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tbl.Cell(tt.row, tt.col); !errors.Is(err, tt.want) {
				t.Errorf("Cell(%d,%d) error = %v, want %v", tt.row, tt.col, err, tt.want)
			}
		})
	}
	if _, err := tbl.ColumnName(3); !errors.Is(err, table.ErrInvalidColumn) {
		t.Errorf("ColumnName(3) error = %v, want ErrInvalidColumn", err)
	}
}

func TestRow(t *testing.T) {
	tbl := mustNew(t, yearsByProduct(t))

	row, err := tbl.Row(2)
	if err != nil {
		t.Fatalf("Row(2) error = %v", err)
	}
	got := make([]any, len(row))
	for i, v := range row {
		got[i] = v.Raw
	}
	if want := []any{"C", 200.0, 201.0}; !reflect.DeepEqual(got, want) {
		t.Errorf("Row(2) = %v, want %v", got, want)
	}

	if _, err := tbl.Row(3); !errors.Is(err, table.ErrInvalidRow) {
		t.Errorf("Row(3) error = %v, want ErrInvalidRow", err)
	}
}

func TestColumnName_CompositePosition(t *testing.T) {
	cols := olap.NewAxis(olap.Position{
		olap.NewMember(timeH, nil, "2003"),
		olap.NewMember(measureH, nil, "sales", olap.WithCaption("Sales")),
	})
	tbl := mustNew(t, olap.NewMemoryResult(cols))

	if name, _ := tbl.ColumnName(0); name != "2003/Sales" {
		t.Errorf("ColumnName(0) = %q, want 2003/Sales", name)
	}
}

func TestTryInferType(t *testing.T) {
	r := yearsByProduct(t)
	_ = r.SetCell([]int{1, 0}, nil, "")
	tbl := mustNew(t, r)

	tests := []struct {
		col    int
		want   table.DataType
		wantOK bool
	}{
		{0, table.TypeString, true},
		{1, table.TypeFloat, true},
		{2, table.TypeAny, false},
		{9, table.TypeAny, false},
	}
	for _, tt := range tests {
		got, ok := tbl.TryInferType(tt.col)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("TryInferType(%d) = (%v, %v), want (%v, %v)", tt.col, got, ok, tt.want, tt.wantOK)
		}
	}

	dt, err := tbl.ColumnType(2)
	if err != nil || dt != table.TypeAny {
		t.Errorf("ColumnType(2) = (%v, %v), want (Any, nil)", dt, err)
	}
}

// namedLevel is a level whose unique name is set directly.
type namedLevel struct {
	unique string
	depth  int
}

func (l namedLevel) Name() string       { return l.unique }
func (l namedLevel) UniqueName() string { return l.unique }
func (l namedLevel) Depth() int         { return l.depth }

func TestCellAttributes(t *testing.T) {
	family := olap.NewMember(productH, namedLevel{"Product", 0}, "Food", olap.WithProperty("color", "green"))
	item := olap.NewMember(productH, namedLevel{"[Product].[Item]", 1}, "Apple", olap.WithParent(family))
	r := olap.NewMemoryResult(
		olap.NewAxis(members(measureH, "Sales")...),
		olap.NewAxis(olap.Position{item}),
	)
	_ = r.SetCell([]int{0, 0}, 3.0, "$3.00")
	tbl := mustNew(t, r)

	attrs, err := tbl.CellAttributes(0, 0)
	if err != nil {
		t.Fatalf("CellAttributes(0,0) error = %v", err)
	}
	if attrs[table.AttrName] != "Food" || attrs[table.AttrLevelDepth] != 0 || attrs["color"] != "green" {
		t.Errorf("header attributes = %v, want ancestor Food", attrs)
	}

	attrs, err = tbl.CellAttributes(0, 1)
	if err != nil {
		t.Fatalf("CellAttributes(0,1) error = %v", err)
	}
	if attrs[table.AttrRole] != table.RoleValue || attrs[table.AttrFormatted] != "$3.00" || attrs[table.AttrValue] != 3.0 {
		t.Errorf("value attributes = %v", attrs)
	}

	if _, err := tbl.CellAttributes(1, 0); !errors.Is(err, table.ErrInvalidRow) {
		t.Errorf("CellAttributes(1,0) error = %v, want ErrInvalidRow", err)
	}
}

func TestCellAttributes_NoMatchingLevel(t *testing.T) {
	tbl := mustNew(t, yearsByProduct(t))

	attrs, err := tbl.CellAttributes(0, 0)
	if err != nil {
		t.Fatalf("CellAttributes(0,0) error = %v", err)
	}
	if len(attrs) != 0 {
		t.Errorf("CellAttributes(0,0) = %v, want empty", attrs)
	}
}

func TestColumnAndTableAttributes(t *testing.T) {
	tbl := mustNew(t, yearsByProduct(t))

	attrs, err := tbl.ColumnAttributes(0)
	if err != nil {
		t.Fatalf("ColumnAttributes(0) error = %v", err)
	}
	if attrs[table.AttrRole] != table.RoleHeader || attrs[table.AttrAxis] != 1 || attrs[table.AttrDimension] != "Product" {
		t.Errorf("ColumnAttributes(0) = %v", attrs)
	}

	attrs, _ = tbl.ColumnAttributes(2)
	if attrs[table.AttrRole] != table.RoleValue {
		t.Errorf("ColumnAttributes(2) = %v", attrs)
	}

	if got := tbl.TableAttributes()[table.AttrCrosstabMode]; got != table.CrosstabNormalized {
		t.Errorf("crosstab mode = %v, want %q", got, table.CrosstabNormalized)
	}
}

func TestSchema_ReturnsCopy(t *testing.T) {
	tbl := mustNew(t, yearsByProduct(t))

	s := tbl.Schema()
	s.ColumnNames[0] = "changed"

	if name, _ := tbl.ColumnName(0); name != "Product" {
		t.Errorf("Schema() shares state, ColumnName(0) = %q", name)
	}
}

func TestClose(t *testing.T) {
	r := yearsByProduct(t)
	tbl := mustNew(t, r)

	if err := tbl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !r.Closed() {
		t.Error("underlying result not closed")
	}
	if _, err := tbl.Cell(0, 1); !errors.Is(err, olap.ErrClosed) {
		t.Errorf("Cell after Close error = %v, want ErrClosed", err)
	}
}
