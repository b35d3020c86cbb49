package dataset

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// arrowArray aliases arrow.Array for brevity in backend code.
type arrowArray = arrow.Array

// DType is the storage type of a column.
type DType uint8

const (
	Float64 DType = iota
	Float32
	Int64
	Int32
	Bool
	String
	Datetime
)

// String returns the string representation of the DType.
func (d DType) String() string {
	switch d {
	case Float64:
		return "Float64"
	case Float32:
		return "Float32"
	case Int64:
		return "Int64"
	case Int32:
		return "Int32"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case Datetime:
		return "Datetime"
	default:
		return fmt.Sprintf("Unknown(%d)", d)
	}
}

// IsNumeric reports whether the dtype can live in a dense numeric buffer.
func (d DType) IsNumeric() bool {
	switch d {
	case Float64, Float32, Int64, Int32:
		return true
	default:
		return false
	}
}

// arrowType maps a DType to its Arrow storage type.
func (d DType) arrowType() arrow.DataType {
	switch d {
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case String:
		return arrow.BinaryTypes.String
	case Datetime:
		return frame.TimestampType
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

// dtypeOfArrow maps an Arrow column type back to a DType.
func dtypeOfArrow(dt arrow.DataType) (DType, bool) {
	switch dt.ID() {
	case arrow.FLOAT64:
		return Float64, true
	case arrow.FLOAT32:
		return Float32, true
	case arrow.INT64:
		return Int64, true
	case arrow.INT32:
		return Int32, true
	case arrow.BOOL:
		return Bool, true
	case arrow.STRING:
		return String, true
	case arrow.TIMESTAMP:
		return Datetime, true
	default:
		return Float64, false
	}
}

// CommonDType computes the narrowest numeric type covering every member.
// Integers wider than Float32's 24-bit mantissa promote float32 unions to
// Float64, so {Int32, Float32} unifies to Float64. Any non-numeric member is
// a hard type error: dense buffers hold numbers only.
func CommonDType(dtypes []DType) (DType, error) {
	if len(dtypes) == 0 {
		return Float64, errors.WithStack(errors.ErrEmptyData)
	}

	var hasFloat64, hasFloat32 bool
	maxInt := 0
	for _, d := range dtypes {
		switch d {
		case Float64:
			hasFloat64 = true
		case Float32:
			hasFloat32 = true
		case Int64:
			if maxInt < 64 {
				maxInt = 64
			}
		case Int32:
			if maxInt < 32 {
				maxInt = 32
			}
		default:
			return Float64, errors.NewTypeMismatchError("CommonDType", "numeric dtype", d.String())
		}
	}

	switch {
	case hasFloat64:
		return Float64, nil
	case hasFloat32 && maxInt > 0:
		return Float64, nil
	case hasFloat32:
		return Float32, nil
	case maxInt == 64:
		return Int64, nil
	default:
		return Int32, nil
	}
}
