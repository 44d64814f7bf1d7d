// Package export writes a table.Reader in the supported output formats.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JonMunkholm/cubetab/internal/table"
)

// ErrUnknownFormat is returned by ForFormat for unsupported output types.
var ErrUnknownFormat = errors.New("unknown export format")

// DefaultFormat is used when no output type is requested.
const DefaultFormat = "json"

// ctxCheckInterval is how many rows are written between context checks.
const ctxCheckInterval = 1000

// Meta describes the query a table came from.
type Meta struct {
	Title     string
	TotalRows int // rows before paging
	PageStart int
	PageSize  int // 0 when not paged
}

// Exporter renders a table to a writer.
type Exporter interface {
	Name() string
	ContentType() string
	Extension() string
	Export(ctx context.Context, w io.Writer, r table.Reader, meta Meta) error
}

var exporters = map[string]func() Exporter{
	"csv":     func() Exporter { return CSV{} },
	"json":    func() Exporter { return JSON{} },
	"html":    func() Exporter { return HTML{} },
	"arrow":   func() Exporter { return Arrow{} },
	"parquet": func() Exporter { return Parquet{} },
}

// ForFormat returns the exporter for name, case-insensitively. An empty
// name selects DefaultFormat.
func ForFormat(name string) (Exporter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultFormat
	}
	newExporter, ok := exporters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return newExporter(), nil
}

// Formats returns the supported format names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// columnInfo is the resolved header of a table.
type columnInfo struct {
	names  []string
	types  []table.DataType
	header []bool // dimension-header column
}

func describe(r table.Reader) (columnInfo, error) {
	n := r.ColumnCount()
	info := columnInfo{
		names:  make([]string, n),
		types:  make([]table.DataType, n),
		header: make([]bool, n),
	}
	meta, _ := r.(table.MetadataReader)
	for col := 0; col < n; col++ {
		name, err := r.ColumnName(col)
		if err != nil {
			return info, err
		}
		dt, err := r.ColumnType(col)
		if err != nil {
			return info, err
		}
		info.names[col] = name
		info.types[col] = dt
		if meta != nil {
			if attrs, err := meta.ColumnAttributes(col); err == nil {
				info.header[col] = attrs[table.AttrRole] == table.RoleHeader
			}
		}
	}
	return info, nil
}

// eachRow calls fn for every row of r, checking ctx periodically.
func eachRow(ctx context.Context, r table.Reader, fn func(row []table.Value) error) error {
	for i := 0; i < r.RowCount(); i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row, err := table.Row(r, i)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
