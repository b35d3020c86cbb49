package frame

import (
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/araddon/dateparse"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// CastColumn attempts to cast a column to the target type and reports
// success through the second return value instead of an error: a failed
// cast is an expected condition during table dtype coercion, and the caller
// keeps the original column. Nulls survive any cast.
func CastColumn(col arrow.Array, to arrow.DataType) (arrow.Array, bool) {
	if arrow.TypeEqual(col.DataType(), to) {
		return col, true
	}

	values := make([]float64, col.Len())
	nulls := make([]bool, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			nulls[i] = true
			continue
		}
		v, ok := valueAsFloat(col, i)
		if !ok {
			return nil, false
		}
		values[i] = v
	}

	out, err := buildWithNulls(values, nulls, to)
	if err != nil {
		return nil, false
	}
	return out, true
}

// valueAsFloat reads one cell as float64. Strings are parsed; a parse
// failure fails the whole cast.
func valueAsFloat(col arrow.Array, i int) (float64, bool) {
	switch c := col.(type) {
	case *array.Float64:
		return c.Value(i), true
	case *array.Float32:
		return float64(c.Value(i)), true
	case *array.Int64:
		return float64(c.Value(i)), true
	case *array.Int32:
		return float64(c.Value(i)), true
	case *array.Boolean:
		if c.Value(i) {
			return 1, true
		}
		return 0, true
	case *array.String:
		v, err := strconv.ParseFloat(c.Value(i), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func buildWithNulls(values []float64, nulls []bool, dt arrow.DataType) (arrow.Array, error) {
	switch dt.ID() {
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i, v := range values {
			if nulls[i] {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
		return b.NewArray(), nil
	case arrow.FLOAT32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for i, v := range values {
			if nulls[i] {
				b.AppendNull()
			} else {
				b.Append(float32(v))
			}
		}
		return b.NewArray(), nil
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i, v := range values {
			if nulls[i] || math.IsNaN(v) {
				b.AppendNull()
			} else {
				b.Append(int64(v))
			}
		}
		return b.NewArray(), nil
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for i, v := range values {
			if nulls[i] || math.IsNaN(v) {
				b.AppendNull()
			} else {
				b.Append(int32(v))
			}
		}
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i, v := range values {
			if nulls[i] {
				b.AppendNull()
			} else {
				b.Append(v != 0)
			}
		}
		return b.NewArray(), nil
	default:
		return nil, errors.NewTypeMismatchError("frame.buildWithNulls", "numeric arrow type", dt.String())
	}
}

// TimestampType is the canonical storage type of datetime columns.
var TimestampType = arrow.FixedWidthTypes.Timestamp_us.(*arrow.TimestampType)

// ParseTimestamps converts a column to timestamps. String columns are parsed
// with the given layout, or with free-form detection when layout is empty.
// Numeric columns are interpreted as an epoch offset from origin in the
// given unit ("s", "ms", "us" or "ns"; "s" when empty). The conversion runs
// once per column; a row that cannot be parsed becomes null.
func ParseTimestamps(col arrow.Array, layout, unit string, origin time.Time) (arrow.Array, error) {
	if arrow.TypeEqual(col.DataType(), TimestampType) {
		return col, nil
	}

	b := array.NewTimestampBuilder(mem, TimestampType)
	defer b.Release()

	if s, ok := col.(*array.String); ok {
		for i := 0; i < s.Len(); i++ {
			if s.IsNull(i) {
				b.AppendNull()
				continue
			}
			t, err := parseStringTime(s.Value(i), layout)
			if err != nil {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Timestamp(t.UnixMicro()))
		}
		return b.NewArray(), nil
	}

	// Numeric epoch offsets.
	step, err := unitDuration(unit)
	if err != nil {
		return nil, err
	}
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		v, ok := valueAsFloat(col, i)
		if !ok || math.IsNaN(v) {
			b.AppendNull()
			continue
		}
		t := origin.Add(time.Duration(v * float64(step)))
		b.Append(arrow.Timestamp(t.UnixMicro()))
	}
	return b.NewArray(), nil
}

func parseStringTime(v, layout string) (time.Time, error) {
	if layout != "" {
		return time.Parse(layout, v)
	}
	return dateparse.ParseAny(v)
}

func unitDuration(unit string) (time.Duration, error) {
	switch unit {
	case "", "s":
		return time.Second, nil
	case "ms":
		return time.Millisecond, nil
	case "us":
		return time.Microsecond, nil
	case "ns":
		return time.Nanosecond, nil
	default:
		return 0, errors.NewValueError("frame.ParseTimestamps", "unknown datetime unit "+unit)
	}
}
