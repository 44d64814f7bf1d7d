package export

import (
	"context"
	"io"

	"github.com/JonMunkholm/cubetab/internal/table"
	"github.com/goccy/go-json"
)

// JSON writes the result-set document:
//
//	{"metadata":[{"colIndex":0,"colType":"String","colName":"Product"}],
//	 "resultset":[["A",10.5]],
//	 "queryInfo":{"totalRows":1}}
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }
func (JSON) Extension() string   { return ".json" }

type jsonColumn struct {
	ColIndex int    `json:"colIndex"`
	ColType  string `json:"colType"`
	ColName  string `json:"colName"`
}

type jsonQueryInfo struct {
	TotalRows int `json:"totalRows"`
	PageStart int `json:"pageStart,omitempty"`
	PageSize  int `json:"pageSize,omitempty"`
}

type jsonDocument struct {
	Metadata  []jsonColumn  `json:"metadata"`
	ResultSet [][]any       `json:"resultset"`
	QueryInfo jsonQueryInfo `json:"queryInfo"`
}

// Export implements Exporter.
func (JSON) Export(ctx context.Context, w io.Writer, r table.Reader, meta Meta) error {
	info, err := describe(r)
	if err != nil {
		return err
	}

	doc := jsonDocument{
		Metadata:  make([]jsonColumn, len(info.names)),
		ResultSet: make([][]any, 0, r.RowCount()),
		QueryInfo: jsonQueryInfo{
			TotalRows: meta.TotalRows,
			PageStart: meta.PageStart,
			PageSize:  meta.PageSize,
		},
	}
	if doc.QueryInfo.TotalRows == 0 {
		doc.QueryInfo.TotalRows = r.RowCount()
	}
	for i, name := range info.names {
		doc.Metadata[i] = jsonColumn{ColIndex: i, ColType: info.types[i].String(), ColName: name}
	}

	err = eachRow(ctx, r, func(row []table.Value) error {
		out := make([]any, len(row))
		for i, v := range row {
			if !v.IsNull {
				out[i] = jsonValue(v)
			}
		}
		doc.ResultSet = append(doc.ResultSet, out)
		return nil
	})
	if err != nil {
		return err
	}

	return json.NewEncoder(w).EncodeContext(ctx, doc)
}

// jsonValue keeps numbers and booleans typed and renders the rest as text.
func jsonValue(v table.Value) any {
	switch v.Type {
	case table.TypeInt, table.TypeFloat, table.TypeBool, table.TypeString:
		return v.Raw
	default:
		return v.Formatted
	}
}
