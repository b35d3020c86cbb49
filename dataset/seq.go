package dataset

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/YuminosukeSato/autotab/core/parallel"
	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// GroupIndex is a ragged mapping from group positions to row positions,
// stored as one arena: group g owns rows[starts[g]:starts[g+1]]. Groups may
// overlap, repeat rows and be void (empty).
type GroupIndex struct {
	starts []int
	rows   []int
}

// NewGroupIndex builds an index from explicit per-group row lists.
func NewGroupIndex(groups [][]int) *GroupIndex {
	ix := &GroupIndex{starts: make([]int, len(groups)+1)}
	for g, rows := range groups {
		ix.rows = append(ix.rows, rows...)
		ix.starts[g+1] = len(ix.rows)
	}
	return ix
}

// SingletonIndex builds the trivial index of n groups holding one row each.
func SingletonIndex(n int) *GroupIndex {
	ix := &GroupIndex{starts: make([]int, n+1), rows: make([]int, n)}
	for i := 0; i < n; i++ {
		ix.rows[i] = i
		ix.starts[i+1] = i + 1
	}
	return ix
}

// Len returns the group count.
func (ix *GroupIndex) Len() int { return len(ix.starts) - 1 }

// Group returns the row positions of group g. The slice is a view into the
// arena.
func (ix *GroupIndex) Group(g int) []int {
	return ix.rows[ix.starts[g]:ix.starts[g+1]]
}

// GroupLen returns the row count of group g.
func (ix *GroupIndex) GroupLen(g int) int {
	return ix.starts[g+1] - ix.starts[g]
}

// IsVoid reports whether group g holds no rows.
func (ix *GroupIndex) IsVoid(g int) bool {
	return ix.GroupLen(g) == 0
}

// Flatten returns every referenced row position in group order.
func (ix *GroupIndex) Flatten() []int {
	out := make([]int, len(ix.rows))
	copy(out, ix.rows)
	return out
}

// Equal reports structural equality of two indexes.
func (ix *GroupIndex) Equal(other *GroupIndex) bool {
	if len(ix.starts) != len(other.starts) || len(ix.rows) != len(other.rows) {
		return false
	}
	for i, s := range ix.starts {
		if other.starts[i] != s {
			return false
		}
	}
	for i, r := range ix.rows {
		if other.rows[i] != r {
			return false
		}
	}
	return true
}

// validate rejects row positions outside [0, rows).
func (ix *GroupIndex) validate(rows int) error {
	for _, r := range ix.rows {
		if r < 0 || r >= rows {
			return errors.NewValueError("GroupIndex", "row position out of range")
		}
	}
	return nil
}

// Seq is the sequential overlay: a table dataset plus a group index mapping
// each sequence position to the table rows it covers. Its unit of selection
// is the group, not the row.
type Seq struct {
	name   string
	scheme map[string]string
	tbl    *Table
	idx    *GroupIndex
}

// NewSeq builds a sequential dataset over a columnar record. Construction
// follows the table backend (special-role extraction, per-column coercion);
// a nil index defaults to one singleton group per row. scheme carries the
// sequence metadata (time column, generation parameters) opaquely.
func NewSeq(name string, data arrow.Record, roles map[string]Role, task Task, attrs Attrs, idx *GroupIndex, scheme map[string]string) (*Seq, error) {
	tbl, err := NewTable(data, roles, task, attrs)
	if err != nil {
		return nil, err
	}
	rows, _ := tbl.Shape()
	if idx == nil {
		idx = SingletonIndex(rows)
	}
	if err := idx.validate(rows); err != nil {
		return nil, err
	}
	return &Seq{name: name, scheme: scheme, tbl: tbl, idx: idx}, nil
}

// Kind returns KindSeq.
func (d *Seq) Kind() Kind { return KindSeq }

// Name returns the sequence name.
func (d *Seq) Name() string { return d.name }

// Scheme returns the sequence metadata.
func (d *Seq) Scheme() map[string]string { return d.scheme }

// Task returns the task descriptor.
func (d *Seq) Task() Task { return d.tbl.Task() }

// Features returns the ordered feature names.
func (d *Seq) Features() []string { return d.tbl.Features() }

// Roles returns a defensive copy of the role mapping.
func (d *Seq) Roles() map[string]Role { return d.tbl.Roles() }

// Shape returns the underlying (rows, cols).
func (d *Seq) Shape() (int, int) { return d.tbl.Shape() }

// Attr returns the auxiliary attribute stored under kind.
func (d *Seq) Attr(kind AttrKind) (Attr, bool) { return d.tbl.Attr(kind) }

// AttrKinds lists the populated attribute slots.
func (d *Seq) AttrKinds() []AttrKind { return d.tbl.AttrKinds() }

// Len returns the group count.
func (d *Seq) Len() int { return d.idx.Len() }

// Idx returns the group index.
func (d *Seq) Idx() *GroupIndex { return d.idx }

// SetIdx replaces the group index.
func (d *Seq) SetIdx(idx *GroupIndex) error {
	rows, _ := d.tbl.Shape()
	if err := idx.validate(rows); err != nil {
		return err
	}
	d.idx = idx
	return nil
}

// Slice selects groups by position and columns by name. A nil selector keeps
// every physical row and the index untouched; any explicit selection — even a
// contiguous one — copies the union of the selected groups' rows and renumbers
// the index to the copy, preserving intra-group order, and raises a structure
// warning since positions change meaning. SliceRange is the warning-free range
// form.
func (d *Seq) Slice(groups []int, cols []string) (*Seq, error) {
	colIdx, err := d.columnPositions(cols)
	if err != nil {
		return nil, err
	}

	if groups == nil {
		sub, err := d.tbl.Slice(nil, colIdx)
		if err != nil {
			return nil, err
		}
		return &Seq{name: d.name, scheme: d.scheme, tbl: sub, idx: d.idx}, nil
	}

	set := mapset.NewThreadUnsafeSet[int]()
	for _, g := range groups {
		if g < 0 || g >= d.idx.Len() {
			return nil, errors.NewValueError("Seq.Slice", "group position out of range")
		}
		for _, r := range d.idx.Group(g) {
			set.Add(r)
		}
	}
	rows := set.ToSlice()
	sort.Ints(rows)

	pos := make(map[int]int, len(rows))
	for i, r := range rows {
		pos[r] = i
	}
	newGroups := make([][]int, len(groups))
	for i, g := range groups {
		old := d.idx.Group(g)
		ng := make([]int, len(old))
		for k, r := range old {
			ng[k] = pos[r]
		}
		newGroups[i] = ng
	}

	errors.Warn(errors.NewStructureWarning("Seq.Slice", "group selection copies rows and renumbers the index"))

	sub, err := d.tbl.Slice(rows, colIdx)
	if err != nil {
		return nil, err
	}
	return &Seq{name: d.name, scheme: d.scheme, tbl: sub, idx: NewGroupIndex(newGroups)}, nil
}

// SliceRange selects the groups in [start, stop) by range, the only selection
// form that keeps every physical row and the index untouched; rows outside the
// range stay reachable through their original positions and no warning is
// raised. Columns narrow as in Slice.
func (d *Seq) SliceRange(start, stop int, cols []string) (*Seq, error) {
	if start < 0 || stop > d.idx.Len() || start > stop {
		return nil, errors.NewValueError("Seq.SliceRange", "group range out of bounds")
	}
	colIdx, err := d.columnPositions(cols)
	if err != nil {
		return nil, err
	}
	sub, err := d.tbl.Slice(nil, colIdx)
	if err != nil {
		return nil, err
	}
	return &Seq{name: d.name, scheme: d.scheme, tbl: sub, idx: d.idx}, nil
}

// columnPositions resolves column names to positions; nil selects all.
func (d *Seq) columnPositions(cols []string) ([]int, error) {
	if cols == nil {
		return nil, nil
	}
	out := make([]int, len(cols))
	for i, name := range cols {
		j, err := frame.ColumnIndex(d.tbl.data, name)
		if err != nil {
			return nil, err
		}
		out[i] = j
	}
	return out, nil
}

// FirstFrame projects each group to its first row, yielding a plain table
// with one row per group. Void groups map to a padding row of nulls appended
// for the projection.
func (d *Seq) FirstFrame() (*Table, error) {
	if d.tbl.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	rec := d.tbl.data
	padRow := int(rec.NumRows())
	rows := make([]int, d.idx.Len())
	padded := false
	for g := range rows {
		if d.idx.IsVoid(g) {
			rows[g] = padRow
			padded = true
			continue
		}
		rows[g] = d.idx.Group(g)[0]
	}
	if padded {
		var err error
		rec, err = frame.AppendNullRow(rec)
		if err != nil {
			return nil, err
		}
	}

	taken, err := frame.TakeRows(rec, rows)
	if err != nil {
		return nil, err
	}
	out := &Table{base: base{task: d.tbl.task, attrs: make(Attrs)}}
	if err := out.SetData(taken, d.Roles()); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyFunc aggregates each group into one output row: fn receives the
// group's rows over the selected numeric columns and returns one value per
// column. Groups are processed in parallel. The result is a plain table with
// one row per group.
func (d *Seq) ApplyFunc(groups []int, cols []string, fn func(rows [][]float64) []float64) (*Table, error) {
	if d.tbl.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if groups == nil {
		groups = fillRange(nil, d.idx.Len())
	}
	if cols == nil {
		cols = d.tbl.features
	}

	colVals := make([][]float64, len(cols))
	for j, name := range cols {
		col, err := d.tbl.Column(name)
		if err != nil {
			return nil, err
		}
		vals, err := frame.NumericColumn(col)
		if err != nil {
			return nil, err
		}
		colVals[j] = vals
	}

	out := make([][]float64, len(groups))
	err := parallel.ParallelizeErr(len(groups), func(i int) error {
		g := groups[i]
		if g < 0 || g >= d.idx.Len() {
			return errors.NewValueError("Seq.ApplyFunc", "group position out of range")
		}
		members := d.idx.Group(g)
		block := make([][]float64, len(members))
		for k, r := range members {
			row := make([]float64, len(cols))
			for j := range cols {
				row[j] = colVals[j][r]
			}
			block[k] = row
		}
		res := fn(block)
		if len(res) != len(cols) {
			return errors.NewDimensionError("Seq.ApplyFunc", len(cols), len(res), 1)
		}
		out[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	arrays := make([]arrowArray, len(cols))
	for j := range cols {
		vals := make([]float64, len(groups))
		for i := range groups {
			vals[i] = out[i][j]
		}
		arr, err := frame.FloatColumn(vals, Float64.arrowType())
		if err != nil {
			return nil, err
		}
		arrays[j] = arr
	}
	rec, err := frame.NewRecord(cols, arrays)
	if err != nil {
		return nil, err
	}
	result := &Table{base: base{task: d.tbl.task, attrs: make(Attrs)}}
	if err := result.SetData(rec, UniformRoles(cols, NumericRole(Float64))); err != nil {
		return nil, err
	}
	return result, nil
}

// ===========================================================================
//
//	Conversions
//
// ===========================================================================

// ToTable drops the overlay and returns the underlying table dataset.
func (d *Seq) ToTable() (*Table, error) { return d.tbl, nil }

// ToDense converts the underlying table.
func (d *Seq) ToDense() (*Dense, error) { return d.tbl.ToDense() }

// ToSparse converts the underlying table.
func (d *Seq) ToSparse() (*CSR, error) { return d.tbl.ToSparse() }

// ToPartitioned converts the underlying table.
func (d *Seq) ToPartitioned() (*Partitioned, error) { return d.tbl.ToPartitioned() }

// ConcatSeq stacks the feature blocks of sequential datasets that share a
// group index. The first dataset's name, scheme and index carry over.
func ConcatSeq(datasets []*Seq) (*Seq, error) {
	if len(datasets) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	first := datasets[0]
	for _, d := range datasets[1:] {
		if !first.idx.Equal(d.idx) {
			return nil, errors.NewValidationError("datasets", "group indexes differ", d.name)
		}
	}

	tables := make([]*Table, len(datasets))
	for i, d := range datasets {
		tables[i] = d.tbl
	}
	stacked, err := HStackTables(tables)
	if err != nil {
		return nil, err
	}
	return &Seq{name: first.name, scheme: first.scheme, tbl: stacked, idx: first.idx}, nil
}
