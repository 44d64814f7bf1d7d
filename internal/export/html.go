package export

import (
	"context"
	"io"

	"github.com/JonMunkholm/cubetab/internal/export/templates"
	"github.com/JonMunkholm/cubetab/internal/table"
	"github.com/a-h/templ"
)

// HTML renders a standalone page holding the table.
type HTML struct{}

func (HTML) Name() string        { return "html" }
func (HTML) ContentType() string { return "text/html; charset=utf-8" }
func (HTML) Extension() string   { return ".html" }

// Export implements Exporter.
func (HTML) Export(ctx context.Context, w io.Writer, r table.Reader, meta Meta) error {
	info, err := describe(r)
	if err != nil {
		return err
	}
	title := meta.Title
	if title == "" {
		title = "Query result"
	}

	columns := make([]templates.Column, len(info.names))
	for i, name := range info.names {
		columns[i] = templates.Column{Name: name, Header: info.header[i]}
	}
	rows := make([][]templates.Cell, 0, r.RowCount())
	err = eachRow(ctx, r, func(row []table.Value) error {
		cells := make([]templates.Cell, len(row))
		for i, v := range row {
			if !v.IsNull {
				cells[i].Text = v.Formatted
			}
			cells[i].Header = info.header[i]
		}
		rows = append(rows, cells)
		return nil
	})
	if err != nil {
		return err
	}

	body := templates.ResultTable(columns, rows)
	return templates.ResultPage(title).Render(templ.WithChildren(ctx, body), w)
}
