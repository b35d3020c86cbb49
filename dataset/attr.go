package dataset

import (
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// AttrKind names an auxiliary-attribute slot. The set is closed: auxiliary
// data is never injected under arbitrary names.
type AttrKind string

const (
	AttrTarget AttrKind = "target"
	AttrGroup  AttrKind = "group"
	AttrWeight AttrKind = "weight"
	AttrFold   AttrKind = "fold"
)

// attrKinds is the deterministic iteration order over attribute slots.
var attrKinds = []AttrKind{AttrTarget, AttrGroup, AttrWeight, AttrFold}

// Attr is a row-aligned auxiliary array, 1-D or 2-D, stored row-major.
type Attr struct {
	values []float64
	rows   int
	cols   int
}

// NewAttr builds a 1-D attribute.
func NewAttr(values []float64) Attr {
	return Attr{values: values, rows: len(values), cols: 1}
}

// NewAttr2D builds a 2-D attribute from row-major values.
func NewAttr2D(values []float64, rows, cols int) (Attr, error) {
	if rows*cols != len(values) {
		return Attr{}, errors.NewDimensionError("NewAttr2D", rows*cols, len(values), 0)
	}
	return Attr{values: values, rows: rows, cols: cols}, nil
}

// Rows returns the row count.
func (a Attr) Rows() int { return a.rows }

// Cols returns the column count (1 for 1-D attributes).
func (a Attr) Cols() int { return a.cols }

// At returns the value at row i, column j.
func (a Attr) At(i, j int) float64 {
	return a.values[i*a.cols+j]
}

// Values returns the backing row-major values. The slice is a view, not a
// copy.
func (a Attr) Values() []float64 { return a.values }

// Take gathers the given rows, in order, into a new attribute. Rows may
// repeat.
func (a Attr) Take(rows []int) Attr {
	out := make([]float64, len(rows)*a.cols)
	for k, r := range rows {
		copy(out[k*a.cols:(k+1)*a.cols], a.values[r*a.cols:(r+1)*a.cols])
	}
	return Attr{values: out, rows: len(rows), cols: a.cols}
}

// Reorder permutes rows so that output row k holds input row order[k]. The
// permutation must cover every row; it is how a shared RowIndexMap is applied
// to an attribute.
func (a Attr) Reorder(order []int) (Attr, error) {
	if len(order) != a.rows {
		return Attr{}, errors.NewDimensionError("Attr.Reorder", a.rows, len(order), 0)
	}
	return a.Take(order), nil
}

// Equal reports value equality.
func (a Attr) Equal(b Attr) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i, v := range a.values {
		if v != b.values[i] {
			return false
		}
	}
	return true
}

// Attrs maps attribute slots to their arrays.
type Attrs map[AttrKind]Attr

// Clone copies the mapping. Attribute values are shared.
func (as Attrs) Clone() Attrs {
	out := make(Attrs, len(as))
	for k, v := range as {
		out[k] = v
	}
	return out
}

// take gathers rows from every attribute.
func (as Attrs) take(rows []int) Attrs {
	out := make(Attrs, len(as))
	for k, v := range as {
		out[k] = v.Take(rows)
	}
	return out
}
