package flatten

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/cubetab/internal/olap"
	"github.com/JonMunkholm/cubetab/internal/table"
)

// ErrNilResult is returned by New when no result is given.
var ErrNilResult = errors.New("flatten: result is nil")

// Compile-time interface checks.
var (
	_ table.Reader         = (*Table)(nil)
	_ table.MetadataReader = (*Table)(nil)
)

type options struct {
	rowLimit    int
	diagnostics Diagnostics
}

// Option configures New.
type Option func(*options)

// WithRowLimit caps the row count. Values <= 0 mean no limit.
func WithRowLimit(n int) Option {
	return func(o *options) { o.rowLimit = n }
}

// WithDiagnostics sets the sink for schema warnings. The default logs them
// through slog.Default.
func WithDiagnostics(d Diagnostics) Option {
	return func(o *options) {
		if d != nil {
			o.diagnostics = d
		}
	}
}

// WithLogger reports schema warnings through logger.
func WithLogger(logger *slog.Logger) Option {
	return WithDiagnostics(SlogDiagnostics(logger))
}

// Table is a flattened, read-only view of an olap.Result.
type Table struct {
	result olap.Result
	axes   []olap.Axis
	schema Schema
}

// New analyzes result and builds its table schema. The result stays owned
// by the returned Table until Close.
func New(result olap.Result, opts ...Option) (*Table, error) {
	if result == nil {
		return nil, ErrNilResult
	}

	o := options{diagnostics: SlogDiagnostics(nil)}
	for _, opt := range opts {
		opt(&o)
	}

	axes := result.Axes()
	a := analyzeAxes(axes)
	return &Table{
		result: result,
		axes:   axes,
		schema: buildSchema(axes, a, o.rowLimit, o.diagnostics),
	}, nil
}

// Schema returns a copy of the table schema.
func (t *Table) Schema() Schema { return t.schema.clone() }

// RowCount implements table.Reader.
func (t *Table) RowCount() int { return t.schema.RowCount }

// ColumnCount implements table.Reader.
func (t *Table) ColumnCount() int { return t.schema.ColumnCount }

// NoMeasures reports whether any axis of the result is empty.
func (t *Table) NoMeasures() bool { return t.schema.NoMeasures }

// ColumnName implements table.Reader.
func (t *Table) ColumnName(col int) (string, error) {
	if err := t.checkColumn(col); err != nil {
		return "", err
	}
	return t.schema.ColumnNames[col], nil
}

// ColumnType implements table.Reader. Columns whose type cannot be inferred
// report TypeAny.
func (t *Table) ColumnType(col int) (table.DataType, error) {
	if err := t.checkColumn(col); err != nil {
		return table.TypeAny, err
	}
	dt, _ := t.TryInferType(col)
	return dt, nil
}

// TryInferType guesses the type of col from its first row. It never fails;
// ok is false when no guess could be made.
func (t *Table) TryInferType(col int) (dt table.DataType, ok bool) {
	if t.checkColumn(col) != nil || t.schema.RowCount == 0 {
		return table.TypeAny, false
	}
	v, err := t.Cell(0, col)
	if err != nil || v.IsNull || v.Type == table.TypeAny {
		return table.TypeAny, false
	}
	return v.Type, true
}

// Cell implements table.Reader.
func (t *Table) Cell(row, col int) (table.Value, error) {
	if err := t.checkAddress(row, col); err != nil {
		return table.Value{}, err
	}
	return t.resolveValue(t.schema.CellKey(row, col), col)
}

// Row returns every value of row.
func (t *Table) Row(row int) ([]table.Value, error) {
	if err := t.checkAddress(row, 0); err != nil {
		return nil, err
	}
	values := make([]table.Value, t.schema.ColumnCount)
	for col := range values {
		v, err := t.resolveValue(t.schema.CellKey(row, col), col)
		if err != nil {
			return nil, err
		}
		values[col] = v
	}
	return values, nil
}

// CellAttributes implements table.MetadataReader.
func (t *Table) CellAttributes(row, col int) (table.Attributes, error) {
	if err := t.checkAddress(row, col); err != nil {
		return nil, err
	}
	return t.resolveAttributes(t.schema.CellKey(row, col), col)
}

// ColumnAttributes implements table.MetadataReader.
func (t *Table) ColumnAttributes(col int) (table.Attributes, error) {
	if err := t.checkColumn(col); err != nil {
		return nil, err
	}
	if !t.schema.IsHeaderColumn(col) {
		return table.Attributes{
			table.AttrRole: table.RoleValue,
			table.AttrAxis: 0,
		}, nil
	}
	attrs := table.Attributes{
		table.AttrRole: table.RoleHeader,
		table.AttrAxis: t.schema.ColumnAxes[col],
	}
	if dim := t.schema.ColumnDimensions[col]; dim != nil {
		attrs[table.AttrDimension] = dim.Name()
	}
	return attrs, nil
}

// TableAttributes implements table.MetadataReader.
func (t *Table) TableAttributes() table.Attributes {
	return table.Attributes{table.AttrCrosstabMode: table.CrosstabNormalized}
}

// Close releases the underlying result.
func (t *Table) Close() error {
	return t.result.Close()
}

func (t *Table) checkColumn(col int) error {
	if col < 0 || col >= t.schema.ColumnCount {
		return fmt.Errorf("%w: %d (columns: %d)", table.ErrInvalidColumn, col, t.schema.ColumnCount)
	}
	return nil
}

func (t *Table) checkAddress(row, col int) error {
	if err := t.checkColumn(col); err != nil {
		return err
	}
	if row < 0 || row >= t.schema.RowCount {
		return fmt.Errorf("%w: %d (rows: %d)", table.ErrInvalidRow, row, t.schema.RowCount)
	}
	return nil
}
