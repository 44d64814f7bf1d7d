package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/cubetab/internal/flatten"
	"github.com/JonMunkholm/cubetab/internal/olap"
	"github.com/JonMunkholm/cubetab/internal/table"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"
)

// salesTable flattens years by product:
//
//	Product | 2003 | 2004
//	A       | 10.5 | null
//	B       | 3    | 4.25
func salesTable(t *testing.T) *flatten.Table {
	t.Helper()
	timeH := olap.NewHierarchy("Time", olap.NewDimension("Time"))
	productH := olap.NewHierarchy("Product", olap.NewDimension("Product"))
	r := olap.NewMemoryResult(
		olap.NewAxis(
			olap.Position{olap.NewMember(timeH, nil, "2003")},
			olap.Position{olap.NewMember(timeH, nil, "2004")},
		),
		olap.NewAxis(
			olap.Position{olap.NewMember(productH, nil, "A")},
			olap.Position{olap.NewMember(productH, nil, "B")},
		),
	)
	for _, c := range []struct {
		coords []int
		v      any
	}{
		{[]int{0, 0}, 10.5},
		{[]int{0, 1}, 3},
		{[]int{1, 1}, 4.25},
	} {
		if err := r.SetCell(c.coords, c.v, ""); err != nil {
			t.Fatal(err)
		}
	}
	tbl, err := flatten.New(r)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func export(t *testing.T, format string, meta Meta) []byte {
	t.Helper()
	e, err := ForFormat(format)
	if err != nil {
		t.Fatalf("ForFormat(%q) error = %v", format, err)
	}
	var buf bytes.Buffer
	if err := e.Export(context.Background(), &buf, salesTable(t), meta); err != nil {
		t.Fatalf("%s Export() error = %v", format, err)
	}
	return buf.Bytes()
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"", "json", nil},
		{"CSV", "csv", nil},
		{" parquet ", "parquet", nil},
		{"arrow", "arrow", nil},
		{"html", "html", nil},
		{"xml", "", ErrUnknownFormat},
	}
	for _, tt := range tests {
		e, err := ForFormat(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ForFormat(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && e.Name() != tt.want {
			t.Errorf("ForFormat(%q) = %s, want %s", tt.in, e.Name(), tt.want)
		}
	}
	if got := strings.Join(Formats(), ","); got != "arrow,csv,html,json,parquet" {
		t.Errorf("Formats() = %s", got)
	}
}

func TestCSV(t *testing.T) {
	got := string(export(t, "csv", Meta{}))
	want := "Product,2003,2004\nA,10.5,\nB,3,4.25\n"
	if got != want {
		t.Errorf("csv =\n%q\nwant\n%q", got, want)
	}
}

func TestJSON(t *testing.T) {
	var doc struct {
		Metadata []struct {
			ColIndex int    `json:"colIndex"`
			ColType  string `json:"colType"`
			ColName  string `json:"colName"`
		} `json:"metadata"`
		ResultSet [][]any `json:"resultset"`
		QueryInfo struct {
			TotalRows int `json:"totalRows"`
			PageSize  int `json:"pageSize"`
		} `json:"queryInfo"`
	}
	if err := json.Unmarshal(export(t, "json", Meta{TotalRows: 10, PageSize: 2}), &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(doc.Metadata) != 3 || doc.Metadata[0].ColName != "Product" || doc.Metadata[0].ColType != "String" || doc.Metadata[1].ColType != "Float" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if len(doc.ResultSet) != 2 {
		t.Fatalf("resultset rows = %d, want 2", len(doc.ResultSet))
	}
	if doc.ResultSet[0][0] != "A" || doc.ResultSet[0][1] != 10.5 || doc.ResultSet[0][2] != nil {
		t.Errorf("row 0 = %v", doc.ResultSet[0])
	}
	if doc.QueryInfo.TotalRows != 10 || doc.QueryInfo.PageSize != 2 {
		t.Errorf("queryInfo = %+v", doc.QueryInfo)
	}
}

func TestHTML(t *testing.T) {
	got := string(export(t, "html", Meta{Title: "Sales <by year>"}))

	for _, want := range []string{
		"<title>Sales &lt;by year&gt;</title>",
		`<th class="header">Product</th>`,
		`<th class="value">2003</th>`,
		`<td class="header">B</td><td class="value">3</td><td class="value">4.25</td>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("html missing %q\n%s", want, got)
		}
	}
}

func TestArrow(t *testing.T) {
	rdr, err := ipc.NewReader(bytes.NewReader(export(t, "arrow", Meta{})))
	if err != nil {
		t.Fatalf("ipc.NewReader() error = %v", err)
	}
	defer rdr.Release()

	if !rdr.Next() {
		t.Fatalf("no record: %v", rdr.Err())
	}
	rec := rdr.Record()
	if rec.NumRows() != 2 || rec.NumCols() != 3 {
		t.Fatalf("record = %dx%d, want 2x3", rec.NumRows(), rec.NumCols())
	}
	if id := rec.Schema().Field(1).Type.ID(); id != arrow.FLOAT64 {
		t.Errorf("column 1 type = %v, want FLOAT64", id)
	}

	product := rec.Column(0).(*array.String)
	sales := rec.Column(1).(*array.Float64)
	if product.Value(1) != "B" || sales.Value(0) != 10.5 || sales.Value(1) != 3 {
		t.Errorf("values = %v / %v", product, sales)
	}
	if !rec.Column(2).IsNull(0) {
		t.Error("null cell not preserved")
	}
}

func TestArrow_MixedColumnWrittenAsText(t *testing.T) {
	mixed, err := table.NewMemory([]string{"v"}, [][]table.Value{
		{table.NewValue(1.5)},
		{table.NewValue("n/a")},
	})
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	var buf bytes.Buffer
	if err := (Arrow{}).Export(context.Background(), &buf, mixed, Meta{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rdr, err := ipc.NewReader(&buf)
	if err != nil {
		t.Fatalf("ipc.NewReader() error = %v", err)
	}
	defer rdr.Release()
	if !rdr.Next() {
		t.Fatalf("no record: %v", rdr.Err())
	}
	col, ok := rdr.Record().Column(0).(*array.String)
	if !ok {
		t.Fatalf("column type = %v, want string", rdr.Record().Schema().Field(0).Type)
	}
	if col.IsNull(1) || col.Value(1) != "n/a" {
		t.Errorf("row 1 = %q, want n/a", col.Value(1))
	}
}

func TestParquet(t *testing.T) {
	pf, err := file.NewParquetReader(bytes.NewReader(export(t, "parquet", Meta{})))
	if err != nil {
		t.Fatalf("NewParquetReader() error = %v", err)
	}
	defer pf.Close()

	if pf.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", pf.NumRows())
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("NewFileReader() error = %v", err)
	}
	schema, err := fr.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if schema.Field(0).Name != "Product" || schema.Field(2).Name != "2004" {
		t.Errorf("schema = %v", schema)
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range Formats() {
		e, _ := ForFormat(name)
		var buf bytes.Buffer
		if err := e.Export(ctx, &buf, salesTable(t), Meta{}); !errors.Is(err, context.Canceled) {
			t.Errorf("%s Export() error = %v, want context.Canceled", name, err)
		}
	}
}
