// Package frame provides helpers over Apache Arrow records: row/column
// selection, vertical and horizontal stacking, and value materialization.
// It is the shared low-level layer of the columnar dataset backends.
package frame

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

var mem = memory.NewGoAllocator()

// Allocator returns the allocator used for all record construction.
func Allocator() memory.Allocator {
	return mem
}

// NewRecord assembles a record from column names and arrays. All arrays must
// share the same length.
func NewRecord(names []string, cols []arrow.Array) (arrow.Record, error) {
	if len(names) != len(cols) {
		return nil, errors.NewDimensionError("frame.NewRecord", len(names), len(cols), 1)
	}
	rows := 0
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, errors.NewDimensionError("frame.NewRecord", rows, col.Len(), 0)
		}
		fields[i] = arrow.Field{Name: names[i], Type: col.DataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(rows)), nil
}

// ColumnIndex resolves a column name to its position in the record schema.
func ColumnIndex(rec arrow.Record, name string) (int, error) {
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return 0, errors.NewValueError("frame.ColumnIndex", "unknown column "+name)
	}
	return indices[0], nil
}

// appendFrom copies the value at position i of col into the builder. The
// builder must have been created for the column's data type.
func appendFrom(b array.Builder, col arrow.Array, i int) error {
	if col.IsNull(i) {
		b.AppendNull()
		return nil
	}
	switch bld := b.(type) {
	case *array.Float64Builder:
		bld.Append(col.(*array.Float64).Value(i))
	case *array.Float32Builder:
		bld.Append(col.(*array.Float32).Value(i))
	case *array.Int64Builder:
		bld.Append(col.(*array.Int64).Value(i))
	case *array.Int32Builder:
		bld.Append(col.(*array.Int32).Value(i))
	case *array.BooleanBuilder:
		bld.Append(col.(*array.Boolean).Value(i))
	case *array.StringBuilder:
		bld.Append(col.(*array.String).Value(i))
	case *array.TimestampBuilder:
		bld.Append(col.(*array.Timestamp).Value(i))
	default:
		return errors.NewTypeMismatchError("frame.appendFrom", "supported column type", col.DataType().String())
	}
	return nil
}

// TakeRows builds a new record holding the given row positions, in order.
// Positions may repeat; every position must be within [0, NumRows).
func TakeRows(rec arrow.Record, rows []int) (arrow.Record, error) {
	n := int(rec.NumRows())
	for _, r := range rows {
		if r < 0 || r >= n {
			return nil, errors.NewValueError("frame.TakeRows", "row position out of range")
		}
	}

	builder := array.NewRecordBuilder(mem, rec.Schema())
	defer builder.Release()
	for j := 0; j < int(rec.NumCols()); j++ {
		col := rec.Column(j)
		fb := builder.Field(j)
		fb.Reserve(len(rows))
		for _, r := range rows {
			if err := appendFrom(fb, col, r); err != nil {
				return nil, err
			}
		}
	}
	return builder.NewRecord(), nil
}

// SelectColumns builds a record sharing the arrays at the given column
// positions. No data is copied.
func SelectColumns(rec arrow.Record, cols []int) (arrow.Record, error) {
	fields := make([]arrow.Field, len(cols))
	arrays := make([]arrow.Array, len(cols))
	for i, c := range cols {
		if c < 0 || c >= int(rec.NumCols()) {
			return nil, errors.NewValueError("frame.SelectColumns", "column position out of range")
		}
		fields[i] = rec.Schema().Field(c)
		arrays[i] = rec.Column(c)
	}
	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, arrays, rec.NumRows()), nil
}

// Slice2D selects rows and columns independently, iloc-style.
func Slice2D(rec arrow.Record, rows, cols []int) (arrow.Record, error) {
	sub, err := SelectColumns(rec, cols)
	if err != nil {
		return nil, err
	}
	return TakeRows(sub, rows)
}

// DropColumn builds a record without the column at position c.
func DropColumn(rec arrow.Record, c int) (arrow.Record, error) {
	keep := make([]int, 0, int(rec.NumCols())-1)
	for j := 0; j < int(rec.NumCols()); j++ {
		if j != c {
			keep = append(keep, j)
		}
	}
	return SelectColumns(rec, keep)
}

// VStack concatenates records row-wise. All schemas must match.
func VStack(recs []arrow.Record) (arrow.Record, error) {
	if len(recs) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	schema := recs[0].Schema()
	for _, r := range recs[1:] {
		if !schema.Equal(r.Schema()) {
			return nil, errors.NewTypeMismatchError("frame.VStack", schema.String(), r.Schema().String())
		}
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()
	for j := 0; j < int(schema.NumFields()); j++ {
		fb := builder.Field(j)
		for _, r := range recs {
			col := r.Column(j)
			for i := 0; i < col.Len(); i++ {
				if err := appendFrom(fb, col, i); err != nil {
					return nil, err
				}
			}
		}
	}
	return builder.NewRecord(), nil
}

// HStack concatenates the columns of records sharing a row count. Records
// with zero columns are skipped, matching the dense hstack contract.
func HStack(recs []arrow.Record) (arrow.Record, error) {
	var names []string
	var cols []arrow.Array
	rows := -1
	for _, r := range recs {
		if r == nil || r.NumCols() == 0 {
			continue
		}
		if rows == -1 {
			rows = int(r.NumRows())
		} else if int(r.NumRows()) != rows {
			return nil, errors.NewDimensionError("frame.HStack", rows, int(r.NumRows()), 0)
		}
		for j := 0; j < int(r.NumCols()); j++ {
			names = append(names, r.ColumnName(j))
			cols = append(cols, r.Column(j))
		}
	}
	if len(cols) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	return NewRecord(names, cols)
}

// AppendNullRow builds a record with one extra row of nulls at the end. It
// backs the padding row used by first-frame projection of void groups.
func AppendNullRow(rec arrow.Record) (arrow.Record, error) {
	builder := array.NewRecordBuilder(mem, rec.Schema())
	defer builder.Release()
	for j := 0; j < int(rec.NumCols()); j++ {
		col := rec.Column(j)
		fb := builder.Field(j)
		for i := 0; i < col.Len(); i++ {
			if err := appendFrom(fb, col, i); err != nil {
				return nil, err
			}
		}
		fb.AppendNull()
	}
	return builder.NewRecord(), nil
}

// NumericColumn materializes a numeric or boolean column as float64 values,
// with nulls mapped to NaN. Non-numeric columns are rejected.
func NumericColumn(col arrow.Array) ([]float64, error) {
	out := make([]float64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		switch c := col.(type) {
		case *array.Float64:
			out[i] = c.Value(i)
		case *array.Float32:
			out[i] = float64(c.Value(i))
		case *array.Int64:
			out[i] = float64(c.Value(i))
		case *array.Int32:
			out[i] = float64(c.Value(i))
		case *array.Boolean:
			if c.Value(i) {
				out[i] = 1
			}
		default:
			return nil, errors.NewTypeMismatchError("frame.NumericColumn", "numeric column", col.DataType().String())
		}
	}
	return out, nil
}

// FloatColumn builds an arrow column of the given numeric type from float64
// values. NaN stays a value for float types and becomes null for integers.
func FloatColumn(values []float64, dt arrow.DataType) (arrow.Array, error) {
	switch dt.ID() {
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(len(values))
		for _, v := range values {
			b.Append(v)
		}
		return b.NewArray(), nil
	case arrow.FLOAT32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.Reserve(len(values))
		for _, v := range values {
			b.Append(float32(v))
		}
		return b.NewArray(), nil
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.Reserve(len(values))
		for _, v := range values {
			if math.IsNaN(v) {
				b.AppendNull()
			} else {
				b.Append(int64(v))
			}
		}
		return b.NewArray(), nil
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.Reserve(len(values))
		for _, v := range values {
			if math.IsNaN(v) {
				b.AppendNull()
			} else {
				b.Append(int32(v))
			}
		}
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if math.IsNaN(v) {
				b.AppendNull()
			} else {
				b.Append(v != 0)
			}
		}
		return b.NewArray(), nil
	default:
		return nil, errors.NewTypeMismatchError("frame.FloatColumn", "numeric arrow type", dt.String())
	}
}

// Equal reports value equality of two records.
func Equal(a, b arrow.Record) bool {
	return array.RecordEqual(a, b)
}
