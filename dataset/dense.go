package dataset

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// Dense is the dataset backend over one contiguous 2-D numeric buffer. Every
// column is coerced to a single unified dtype derived from the union of all
// column roles; non-numeric roles are rejected.
type Dense struct {
	base
	dtype DType
	data  *mat.Dense
}

// NewDense builds a dense dataset. A nil features slice generates feat_0..
// names; nil roles infer numeric float for every column; attrs are the
// row-aligned auxiliary arrays (target, weight, ...). A nil data buffer
// produces an empty dataset that accepts a later SetData.
func NewDense(data *mat.Dense, features []string, roles map[string]Role, task Task, attrs Attrs) (*Dense, error) {
	d := &Dense{base: base{task: task, attrs: attrs.Clone()}}
	if data == nil {
		return d, nil
	}
	if err := d.SetData(data, features, roles); err != nil {
		return nil, err
	}
	return d, nil
}

// Kind returns KindDense.
func (d *Dense) Kind() Kind { return KindDense }

// DType returns the unified numeric dtype of all columns.
func (d *Dense) DType() DType { return d.dtype }

// Data returns the backing buffer. Mutating it through the returned
// reference bypasses validation; use SetData to replace it.
func (d *Dense) Data() *mat.Dense { return d.data }

// Shape returns (rows, cols).
func (d *Dense) Shape() (int, int) {
	if d.data == nil {
		return 0, len(d.features)
	}
	return d.data.Dims()
}

// SetData replaces the backing buffer in place and re-runs dtype coercion.
// The replacement state is fully validated before any field is swapped, so a
// failure leaves the dataset unchanged.
func (d *Dense) SetData(data *mat.Dense, features []string, roles map[string]Role) error {
	if data == nil {
		return errors.NewTypeMismatchError("Dense.SetData", "*mat.Dense", "nil")
	}
	rows, cols := data.Dims()

	if features == nil {
		features = FeatureNames("feat", cols)
	}
	if len(features) != cols {
		return errors.NewDimensionError("Dense.SetData", cols, len(features), 1)
	}
	resolved, err := resolveRoles(features, roles)
	if err != nil {
		return err
	}
	dtype, err := unifyDTypes(resolved)
	if err != nil {
		return err
	}
	if err := d.checkAttrRows("Dense.SetData", rows); err != nil {
		return err
	}

	coerced := coerceDense(data, dtype)

	d.data = coerced
	d.features = features
	d.roles = resolved
	d.dtype = dtype
	return nil
}

// coerceDense materializes the buffer at the unified dtype's precision.
func coerceDense(data *mat.Dense, dtype DType) *mat.Dense {
	out := mat.DenseCopyOf(data)
	switch dtype {
	case Float32:
		rows, cols := out.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				v := float32(out.At(i, j))
				if math32.IsNaN(v) {
					out.Set(i, j, math.NaN())
				} else {
					out.Set(i, j, float64(v))
				}
			}
		}
	case Int32, Int64:
		rows, cols := out.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := out.At(i, j); !math.IsNaN(v) {
					out.Set(i, j, math.Trunc(v))
				}
			}
		}
	}
	return out
}

// At returns the scalar value at row i, column j.
func (d *Dense) At(i, j int) float64 { return d.data.At(i, j) }

// Slice selects rows and columns by position into a new dataset. Nil selects
// everything on that axis. Auxiliary attributes follow the row selection.
func (d *Dense) Slice(rows, cols []int) (*Dense, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	nr, nc := d.data.Dims()
	rows = fillRange(rows, nr)
	cols = fillRange(cols, nc)

	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		if r < 0 || r >= nr {
			return nil, errors.NewValueError("Dense.Slice", "row position out of range")
		}
		for j, c := range cols {
			if c < 0 || c >= nc {
				return nil, errors.NewValueError("Dense.Slice", "column position out of range")
			}
			out.Set(i, j, d.data.At(r, c))
		}
	}

	features := make([]string, len(cols))
	for j, c := range cols {
		features[j] = d.features[c]
	}
	return NewDense(out, features, d.subsetRoles(features), d.task, d.attrs.take(rows))
}

// Empty returns a dataset of the same kind and task with no data.
func (d *Dense) Empty() *Dense {
	return &Dense{base: base{task: d.task}}
}

// Equal reports value equality of two dense datasets, NaN-insensitive on
// matching positions.
func (d *Dense) Equal(other *Dense) bool {
	if d.data == nil || other.data == nil {
		return d.data == other.data
	}
	r1, c1 := d.data.Dims()
	r2, c2 := other.data.Dims()
	if r1 != r2 || c1 != c2 {
		return false
	}
	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			a, b := d.data.At(i, j), other.data.At(i, j)
			if math.IsNaN(a) && math.IsNaN(b) {
				continue
			}
			if a != b {
				return false
			}
		}
	}
	return true
}

// ===========================================================================
//
//	Conversions
//
// ===========================================================================

// ToDense returns the same instance.
func (d *Dense) ToDense() (*Dense, error) { return d, nil }

// ToSparse converts to CSR form. All roles must be numeric.
func (d *Dense) ToSparse() (*CSR, error) {
	if err := requireNumericRoles("Dense.ToSparse", d.roles); err != nil {
		return nil, err
	}
	var data *SparseMatrix
	if d.data != nil {
		data = CSRFromDense(d.data)
	}
	return NewCSR(data, d.Features(), d.Roles(), d.task, d.attrs.Clone())
}

// ToTable converts to columnar-table form, materializing each column at its
// role dtype.
func (d *Dense) ToTable() (*Table, error) {
	if d.data == nil {
		return NewTable(nil, d.Roles(), d.task, d.attrs.Clone())
	}
	rows, cols := d.data.Dims()
	arrays := make([]arrowArray, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		mat.Col(col, j, d.data)
		arr, err := frame.FloatColumn(col, d.roles[d.features[j]].DType.arrowType())
		if err != nil {
			return nil, err
		}
		arrays[j] = arr
	}
	rec, err := frame.NewRecord(d.Features(), arrays)
	if err != nil {
		return nil, err
	}
	return NewTable(rec, d.Roles(), d.task, d.attrs.Clone())
}

// ToPartitioned converts through the table backend.
func (d *Dense) ToPartitioned() (*Partitioned, error) {
	t, err := d.ToTable()
	if err != nil {
		return nil, err
	}
	return t.ToPartitioned()
}

// HStackDense stacks the column blocks of dense datasets sharing a row
// count. Zero-column blocks are skipped; the unified dtype is recomputed
// over the merged roles. Attributes missing from the first dataset are
// adopted from later ones.
func HStackDense(datasets []*Dense) (*Dense, error) {
	if len(datasets) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	asDatasets := make([]Dataset, len(datasets))
	for i, d := range datasets {
		asDatasets[i] = d
	}
	features, roles, err := mergeFeatureRoles(asDatasets)
	if err != nil {
		return nil, err
	}

	rows, _ := datasets[0].Shape()
	out := mat.NewDense(rows, len(features), nil)
	at := 0
	for _, d := range datasets {
		if d.data == nil {
			continue
		}
		_, c := d.data.Dims()
		if c == 0 {
			continue
		}
		for j := 0; j < c; j++ {
			for i := 0; i < rows; i++ {
				out.Set(i, at, d.data.At(i, j))
			}
			at++
		}
	}

	result := &Dense{base: base{task: datasets[0].task, attrs: datasets[0].attrs.Clone()}}
	var laterAttrs []Attrs
	for _, d := range datasets[1:] {
		laterAttrs = append(laterAttrs, d.attrs)
	}
	result.adoptAttrs(laterAttrs)
	if err := result.SetData(out, features, roles); err != nil {
		return nil, err
	}
	return result, nil
}

// requireNumericRoles rejects any non-numeric role; strictly numeric
// backends accept nothing else.
func requireNumericRoles(op string, roles map[string]Role) error {
	for f, r := range roles {
		if r.Name != RoleNumeric {
			return errors.NewTypeMismatchError(op, "numeric role for "+f, string(r.Name))
		}
	}
	return nil
}

// fillRange expands a nil selector to all positions 0..n-1.
func fillRange(sel []int, n int) []int {
	if sel != nil {
		return sel
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
