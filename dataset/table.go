package dataset

import (
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
	"github.com/YuminosukeSato/autotab/ptable"
)

// Table is the dataset backend over a columnar record. Unlike the dense
// backend each column keeps its own dtype; coercion is per-column and
// best-effort, failed casts keep the original column and emit a warning.
type Table struct {
	base
	data arrow.Record
}

// NewTable builds a table dataset. Columns carrying special roles (Target,
// Group, Weight, Fold) are extracted into the matching auxiliary-attribute
// slot and removed from the feature set; Drop columns are removed outright.
// A nil record produces an empty dataset that accepts a later SetData.
func NewTable(data arrow.Record, roles map[string]Role, task Task, attrs Attrs) (*Table, error) {
	d := &Table{base: base{task: task, attrs: attrs.Clone()}}
	if d.attrs == nil {
		d.attrs = make(Attrs)
	}
	if data == nil {
		return d, nil
	}

	data, roles, err := extractSpecialColumns(data, roles, d.attrs)
	if err != nil {
		return nil, err
	}
	if err := d.SetData(data, roles); err != nil {
		return nil, err
	}
	return d, nil
}

// extractSpecialColumns pulls special-role columns out of the record into
// attrs. Several columns under the same slot (multi-output targets) form one
// 2-D attribute in column order.
func extractSpecialColumns(rec arrow.Record, roles map[string]Role, attrs Attrs) (arrow.Record, map[string]Role, error) {
	special := make(map[AttrKind][][]float64)
	var keep []int
	kept := make(map[string]Role)

	for j := 0; j < int(rec.NumCols()); j++ {
		name := rec.ColumnName(j)
		role, ok := roles[name]
		if !ok {
			role = defaultRole
		}
		if role.Name == RoleDrop {
			continue
		}
		if kind, isSpecial := role.attrKind(); isSpecial {
			vals, err := frame.NumericColumn(rec.Column(j))
			if err != nil {
				return nil, nil, err
			}
			special[kind] = append(special[kind], vals)
			continue
		}
		keep = append(keep, j)
		kept[name] = role
	}

	for kind, cols := range special {
		if len(cols) == 1 {
			attrs[kind] = NewAttr(cols[0])
			continue
		}
		rows := len(cols[0])
		values := make([]float64, 0, rows*len(cols))
		for i := 0; i < rows; i++ {
			for _, c := range cols {
				values = append(values, c[i])
			}
		}
		a, err := NewAttr2D(values, rows, len(cols))
		if err != nil {
			return nil, nil, err
		}
		attrs[kind] = a
	}

	out, err := frame.SelectColumns(rec, keep)
	if err != nil {
		return nil, nil, err
	}
	return out, kept, nil
}

// Kind returns KindTable.
func (d *Table) Kind() Kind { return KindTable }

// Record returns the backing record.
func (d *Table) Record() arrow.Record { return d.data }

// Shape returns (rows, cols).
func (d *Table) Shape() (int, int) {
	if d.data == nil {
		return 0, len(d.features)
	}
	return int(d.data.NumRows()), int(d.data.NumCols())
}

// SetData replaces the backing record and re-runs per-column dtype coercion.
// A column that cannot be cast to its role dtype stays at its stored dtype
// and raises a cast warning instead of failing; datetime columns are parsed
// exactly once.
func (d *Table) SetData(data arrow.Record, roles map[string]Role) error {
	if data == nil {
		return errors.NewTypeMismatchError("Table.SetData", "arrow.Record", "nil")
	}

	features := make([]string, int(data.NumCols()))
	for j := range features {
		features[j] = data.ColumnName(j)
	}
	resolved, err := resolveRoles(features, roles)
	if err != nil {
		return err
	}
	if err := d.checkAttrRows("Table.SetData", int(data.NumRows())); err != nil {
		return err
	}

	rec, err := coerceRecord(data, features, resolved, true)
	if err != nil {
		return err
	}

	d.data = rec
	d.features = features
	d.roles = resolved
	return nil
}

// coerceRecord casts every column toward its role dtype, best-effort. When
// settle is true, a failed cast raises a cast warning and each role's DType
// is rewritten to the dtype actually stored. When settle is false the roles
// were already settled by an earlier pass and resolved is treated as
// read-only, so the partitioned engine can call this concurrently over one
// shared map.
func coerceRecord(data arrow.Record, features []string, resolved map[string]Role, settle bool) (arrow.Record, error) {
	cols := make([]arrowArray, len(features))
	for j, f := range features {
		col := data.Column(j)
		role := resolved[f]

		switch {
		case role.Name == RoleDatetime:
			parsed, err := frame.ParseTimestamps(col, role.Layout, role.Unit, role.Origin)
			if err != nil {
				return nil, err
			}
			col = parsed
		case !arrow.TypeEqual(col.DataType(), role.DType.arrowType()):
			if cast, ok := frame.CastColumn(col, role.DType.arrowType()); ok {
				col = cast
			} else if settle {
				errors.Warn(errors.NewCastWarning(f, col.DataType().String(), role.DType.String(), "cast failed, keeping stored dtype"))
			}
		}

		if settle {
			if dt, ok := dtypeOfArrow(col.DataType()); ok {
				role.DType = dt
				resolved[f] = role
			}
		}
		cols[j] = col
	}
	return frame.NewRecord(features, cols)
}

// Column returns the named column.
func (d *Table) Column(name string) (arrow.Array, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	j, err := frame.ColumnIndex(d.data, name)
	if err != nil {
		return nil, err
	}
	return d.data.Column(j), nil
}

// Value returns the scalar cell at row i of the named column; nulls come
// back as nil.
func (d *Table) Value(i int, name string) (any, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= col.Len() {
		return nil, errors.NewValueError("Table.Value", "row position out of range")
	}
	if col.IsNull(i) {
		return nil, nil
	}
	switch c := col.(type) {
	case *array.Float64:
		return c.Value(i), nil
	case *array.Float32:
		return c.Value(i), nil
	case *array.Int64:
		return c.Value(i), nil
	case *array.Int32:
		return c.Value(i), nil
	case *array.Boolean:
		return c.Value(i), nil
	case *array.String:
		return c.Value(i), nil
	case *array.Timestamp:
		return c.Value(i).ToTime(frame.TimestampType.Unit), nil
	default:
		return nil, errors.NewTypeMismatchError("Table.Value", "supported column type", col.DataType().String())
	}
}

// Slice selects rows and columns by position into a new dataset. Nil selects
// everything on that axis. Auxiliary attributes follow the row selection.
func (d *Table) Slice(rows, cols []int) (*Table, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	rows = fillRange(rows, int(d.data.NumRows()))
	cols = fillRange(cols, int(d.data.NumCols()))

	rec, err := frame.Slice2D(d.data, rows, cols)
	if err != nil {
		return nil, err
	}

	out := &Table{base: base{task: d.task, attrs: d.attrs.take(rows)}}
	features := make([]string, len(cols))
	for j, c := range cols {
		features[j] = d.features[c]
	}
	if err := out.SetData(rec, d.subsetRoles(features)); err != nil {
		return nil, err
	}
	return out, nil
}

// Empty returns a dataset of the same kind and task with no data.
func (d *Table) Empty() *Table {
	return &Table{base: base{task: d.task, attrs: make(Attrs)}}
}

// Equal reports value equality of two table datasets.
func (d *Table) Equal(other *Table) bool {
	if d.data == nil || other.data == nil {
		return d.data == other.data
	}
	return frame.Equal(d.data, other.data)
}

// ===========================================================================
//
//	Conversions
//
// ===========================================================================

// ToDense materializes the record into one numeric buffer. Every column must
// carry the Numeric role; nulls become NaN.
func (d *Table) ToDense() (*Dense, error) {
	if err := requireNumericRoles("Table.ToDense", d.roles); err != nil {
		return nil, err
	}
	if d.data == nil {
		return NewDense(nil, nil, nil, d.task, d.attrs.Clone())
	}

	rows, cols := d.Shape()
	if rows == 0 || cols == 0 {
		return NewDense(nil, nil, nil, d.task, d.attrs.Clone())
	}
	buf := make([]float64, rows*cols)
	for j := 0; j < cols; j++ {
		vals, err := frame.NumericColumn(d.data.Column(j))
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			buf[i*cols+j] = v
		}
	}
	return NewDense(mat.NewDense(rows, cols, buf), d.Features(), d.Roles(), d.task, d.attrs.Clone())
}

// ToSparse converts through the dense backend.
func (d *Table) ToSparse() (*CSR, error) {
	dense, err := d.ToDense()
	if err != nil {
		return nil, err
	}
	return dense.ToSparse()
}

// ToTable returns the same instance.
func (d *Table) ToTable() (*Table, error) { return d, nil }

// ToPartitioned splits the record over one partition per available CPU.
func (d *Table) ToPartitioned() (*Partitioned, error) {
	return d.ToPartitionedN(runtime.GOMAXPROCS(0))
}

// ToPartitionedN splits the record into nparts partitions with dense row
// labels, so no re-indexing pass is needed.
func (d *Table) ToPartitionedN(nparts int) (*Partitioned, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	pt, err := ptable.FromRecord(d.data, nparts)
	if err != nil {
		return nil, err
	}
	// The split index is dense by construction; no normalization pass needed.
	return NewPartitioned(pt, d.Roles(), d.task, d.attrs.Clone(), true)
}

// HStackTables stacks the column blocks of table datasets sharing a row
// count.
func HStackTables(datasets []*Table) (*Table, error) {
	if len(datasets) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	asDatasets := make([]Dataset, len(datasets))
	for i, d := range datasets {
		asDatasets[i] = d
	}
	_, roles, err := mergeFeatureRoles(asDatasets)
	if err != nil {
		return nil, err
	}

	recs := make([]arrow.Record, len(datasets))
	for i, d := range datasets {
		recs[i] = d.data
	}
	rec, err := frame.HStack(recs)
	if err != nil {
		return nil, err
	}

	result := &Table{base: base{task: datasets[0].task, attrs: datasets[0].attrs.Clone()}}
	var laterAttrs []Attrs
	for _, d := range datasets[1:] {
		laterAttrs = append(laterAttrs, d.attrs)
	}
	result.adoptAttrs(laterAttrs)
	if err := result.SetData(rec, roles); err != nil {
		return nil, err
	}
	return result, nil
}
