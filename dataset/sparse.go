package dataset

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// SparseMatrix is a CSR-compressed 2-D numeric buffer: row r's stored
// entries live at positions IndPtr[r]..IndPtr[r+1] of Ind/Val.
type SparseMatrix struct {
	Rows   int
	Cols   int
	IndPtr []int
	Ind    []int
	Val    []float64
}

// CSRFromDense compresses a dense matrix, dropping exact zeros. NaN is a
// stored value, not a zero.
func CSRFromDense(m *mat.Dense) *SparseMatrix {
	rows, cols := m.Dims()
	s := &SparseMatrix{Rows: rows, Cols: cols, IndPtr: make([]int, rows+1)}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v != 0 || math.IsNaN(v) {
				s.Ind = append(s.Ind, j)
				s.Val = append(s.Val, v)
			}
		}
		s.IndPtr[i+1] = len(s.Ind)
	}
	return s
}

// At returns the value at row i, column j (zero when not stored).
func (s *SparseMatrix) At(i, j int) float64 {
	for k := s.IndPtr[i]; k < s.IndPtr[i+1]; k++ {
		if s.Ind[k] == j {
			return s.Val[k]
		}
	}
	return 0
}

// ToDense materializes the full buffer.
func (s *SparseMatrix) ToDense() *mat.Dense {
	out := mat.NewDense(s.Rows, s.Cols, nil)
	for i := 0; i < s.Rows; i++ {
		for k := s.IndPtr[i]; k < s.IndPtr[i+1]; k++ {
			out.Set(i, s.Ind[k], s.Val[k])
		}
	}
	return out
}

func (s *SparseMatrix) validate(op string) error {
	if len(s.IndPtr) != s.Rows+1 || len(s.Ind) != len(s.Val) {
		return errors.NewValueError(op, "inconsistent CSR arrays")
	}
	for _, j := range s.Ind {
		if j < 0 || j >= s.Cols {
			return errors.NewValueError(op, "CSR column index out of range")
		}
	}
	return nil
}

// CSR is the dataset backend over a sparse-compressed numeric buffer. Like
// the dense backend it owns a single unified dtype; unlike it, conversion to
// named-column form is undefined for arbitrary sparsity.
type CSR struct {
	base
	dtype DType
	data  *SparseMatrix
}

// NewCSR builds a sparse dataset. Nil data produces an empty dataset whose
// row count, if needed, falls back to the first auxiliary attribute.
func NewCSR(data *SparseMatrix, features []string, roles map[string]Role, task Task, attrs Attrs) (*CSR, error) {
	d := &CSR{base: base{task: task, attrs: attrs.Clone()}}
	if data == nil {
		return d, nil
	}
	if err := d.SetData(data, features, roles); err != nil {
		return nil, err
	}
	return d, nil
}

// Kind returns KindSparse.
func (d *CSR) Kind() Kind { return KindSparse }

// DType returns the unified numeric dtype of all columns.
func (d *CSR) DType() DType { return d.dtype }

// Data returns the backing CSR buffer.
func (d *CSR) Data() *SparseMatrix { return d.data }

// Shape returns (rows, cols). With no data set, the row count falls back to
// the first populated auxiliary attribute.
func (d *CSR) Shape() (int, int) {
	if d.data != nil {
		return d.data.Rows, d.data.Cols
	}
	for _, k := range attrKinds {
		if a, ok := d.attrs[k]; ok {
			return a.Rows(), 0
		}
	}
	return 0, 0
}

// SetData replaces the backing buffer and re-runs dtype coercion. Only
// numeric roles are accepted.
func (d *CSR) SetData(data *SparseMatrix, features []string, roles map[string]Role) error {
	if data == nil {
		return errors.NewTypeMismatchError("CSR.SetData", "*dataset.SparseMatrix", "nil")
	}
	if err := data.validate("CSR.SetData"); err != nil {
		return err
	}

	if features == nil {
		features = FeatureNames("feat", data.Cols)
	}
	if len(features) != data.Cols {
		return errors.NewDimensionError("CSR.SetData", data.Cols, len(features), 1)
	}
	resolved, err := resolveRoles(features, roles)
	if err != nil {
		return err
	}
	dtype, err := unifyDTypes(resolved)
	if err != nil {
		return err
	}
	if err := d.checkAttrRows("CSR.SetData", data.Rows); err != nil {
		return err
	}

	if dtype == Float32 {
		val := make([]float64, len(data.Val))
		for i, v := range data.Val {
			f := float32(v)
			if math32.IsNaN(f) {
				val[i] = math.NaN()
			} else {
				val[i] = float64(f)
			}
		}
		data = &SparseMatrix{Rows: data.Rows, Cols: data.Cols, IndPtr: data.IndPtr, Ind: data.Ind, Val: val}
	}

	d.data = data
	d.features = features
	d.roles = resolved
	d.dtype = dtype
	return nil
}

// SliceRows selects rows by position into a new sparse dataset. Column
// selection is undefined for arbitrary sparsity.
func (d *CSR) SliceRows(rows []int) (*CSR, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	out := &SparseMatrix{Rows: len(rows), Cols: d.data.Cols, IndPtr: make([]int, len(rows)+1)}
	for i, r := range rows {
		if r < 0 || r >= d.data.Rows {
			return nil, errors.NewValueError("CSR.SliceRows", "row position out of range")
		}
		out.Ind = append(out.Ind, d.data.Ind[d.data.IndPtr[r]:d.data.IndPtr[r+1]]...)
		out.Val = append(out.Val, d.data.Val[d.data.IndPtr[r]:d.data.IndPtr[r+1]]...)
		out.IndPtr[i+1] = len(out.Ind)
	}
	return NewCSR(out, d.Features(), d.Roles(), d.task, d.attrs.take(rows))
}

// Empty returns a dataset of the same kind and task with no data.
func (d *CSR) Empty() *CSR {
	return &CSR{base: base{task: d.task}}
}

// ===========================================================================
//
//	Conversions
//
// ===========================================================================

// ToDense materializes the buffer into a dense dataset.
func (d *CSR) ToDense() (*Dense, error) {
	var data *mat.Dense
	if d.data != nil {
		data = d.data.ToDense()
	}
	return NewDense(data, d.Features(), d.Roles(), d.task, d.attrs.Clone())
}

// ToSparse returns the same instance.
func (d *CSR) ToSparse() (*CSR, error) { return d, nil }

// ToTable is unsupported: mapping arbitrary sparsity onto named columns is
// not determined.
func (d *CSR) ToTable() (*Table, error) {
	return nil, errors.Wrap(errors.ErrNotImplemented, "CSR.ToTable")
}

// ToPartitioned is unsupported; the only path runs through the table form.
func (d *CSR) ToPartitioned() (*Partitioned, error) {
	return nil, errors.Wrap(errors.ErrNotImplemented, "CSR.ToPartitioned")
}

// HStackCSR stacks the column blocks of sparse datasets sharing a row count.
func HStackCSR(datasets []*CSR) (*CSR, error) {
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
	out := &SparseMatrix{Rows: rows, IndPtr: make([]int, rows+1)}
	for i := 0; i < rows; i++ {
		colBase := 0
		for _, d := range datasets {
			if d.data == nil || d.data.Cols == 0 {
				continue
			}
			for k := d.data.IndPtr[i]; k < d.data.IndPtr[i+1]; k++ {
				out.Ind = append(out.Ind, colBase+d.data.Ind[k])
				out.Val = append(out.Val, d.data.Val[k])
			}
			colBase += d.data.Cols
		}
		out.IndPtr[i+1] = len(out.Ind)
		out.Cols = colBase
	}

	result := &CSR{base: base{task: datasets[0].task, attrs: datasets[0].attrs.Clone()}}
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
