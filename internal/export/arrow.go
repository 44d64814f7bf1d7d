package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/big"
	"time"

	"github.com/JonMunkholm/cubetab/internal/table"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Arrow writes an Arrow IPC stream with a single record batch.
type Arrow struct{}

func (Arrow) Name() string        { return "arrow" }
func (Arrow) ContentType() string { return "application/vnd.apache.arrow.stream" }
func (Arrow) Extension() string   { return ".arrows" }

// Export implements Exporter.
func (Arrow) Export(ctx context.Context, w io.Writer, r table.Reader, _ Meta) error {
	rec, err := buildRecord(ctx, r)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	return iw.Close()
}

// Parquet writes a Snappy-compressed Parquet file.
type Parquet struct{}

func (Parquet) Name() string        { return "parquet" }
func (Parquet) ContentType() string { return "application/vnd.apache.parquet" }
func (Parquet) Extension() string   { return ".parquet" }

// Export implements Exporter.
func (Parquet) Export(ctx context.Context, w io.Writer, r table.Reader, _ Meta) error {
	rec, err := buildRecord(ctx, r)
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	return writer.Close()
}

// arrowType maps a column type to its Arrow type. Untyped columns are
// written as their formatted text.
func arrowType(dt table.DataType) arrow.DataType {
	switch dt {
	case table.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case table.TypeFloat, table.TypeDecimal:
		return arrow.PrimitiveTypes.Float64
	case table.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case table.TypeDate, table.TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// buildRecord copies r into one record. A column holding a value that does
// not fit its inferred type is written as text instead.
func buildRecord(ctx context.Context, r table.Reader) (arrow.Record, error) {
	info, err := describe(r)
	if err != nil {
		return nil, err
	}

	rows := make([][]table.Value, 0, r.RowCount())
	err = eachRow(ctx, r, func(row []table.Value) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(info.names))
	for i, name := range info.names {
		typ := arrowType(info.types[i])
		for _, row := range rows {
			if !fits(typ, row[i]) {
				typ = arrow.BinaryTypes.String
				break
			}
		}
		fields[i] = arrow.Field{Name: name, Type: typ, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for n, row := range rows {
		for i, v := range row {
			if err := appendValue(b.Field(i), v); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n, info.names[i], err)
			}
		}
	}
	return b.NewRecord(), nil
}

// fits reports whether v can be stored in a column of type typ.
func fits(typ arrow.DataType, v table.Value) bool {
	if v.IsNull {
		return true
	}
	var ok bool
	switch typ.ID() {
	case arrow.INT64:
		_, ok = toInt64(v.Raw)
	case arrow.FLOAT64:
		_, ok = toFloat64(v.Raw)
	case arrow.BOOL:
		_, ok = v.Raw.(bool)
	case arrow.TIMESTAMP:
		_, ok = v.Raw.(time.Time)
	default:
		ok = true
	}
	return ok
}

func appendValue(fb array.Builder, v table.Value) error {
	if v.IsNull {
		fb.AppendNull()
		return nil
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		if n, ok := toInt64(v.Raw); ok {
			b.Append(n)
			return nil
		}
	case *array.Float64Builder:
		if f, ok := toFloat64(v.Raw); ok {
			b.Append(f)
			return nil
		}
	case *array.BooleanBuilder:
		if x, ok := v.Raw.(bool); ok {
			b.Append(x)
			return nil
		}
	case *array.TimestampBuilder:
		if t, ok := v.Raw.(time.Time); ok {
			b.Append(arrow.Timestamp(t.UnixMicro()))
			return nil
		}
	case *array.StringBuilder:
		b.Append(v.Formatted)
		return nil
	}
	return fmt.Errorf("cannot store %T in %s column", v.Raw, fb.Type())
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), true
		}
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case *big.Float:
		f, _ := x.Float64()
		return f, true
	case *big.Rat:
		f, _ := x.Float64()
		return f, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
