package export

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/JonMunkholm/cubetab/internal/table"
)

// CSV writes a header row followed by formatted values. Nulls are empty.
type CSV struct{}

func (CSV) Name() string        { return "csv" }
func (CSV) ContentType() string { return "text/csv; charset=utf-8" }
func (CSV) Extension() string   { return ".csv" }

// Export implements Exporter.
func (CSV) Export(ctx context.Context, w io.Writer, r table.Reader, _ Meta) error {
	names, err := table.ColumnNames(r)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return err
	}

	record := make([]string, len(names))
	err = eachRow(ctx, r, func(row []table.Value) error {
		for i, v := range row {
			record[i] = v.Formatted
		}
		return cw.Write(record)
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
