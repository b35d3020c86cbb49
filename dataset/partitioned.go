package dataset

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/YuminosukeSato/autotab/pkg/errors"
	"github.com/YuminosukeSato/autotab/ptable"
)

// Partitioned is the dataset backend over a partitioned columnar table.
// Auxiliary attributes are held in memory and stay row-aligned with the
// partitions: whenever the row index is normalized, the exact same index map
// is applied to the table and to every attribute.
type Partitioned struct {
	base
	data *ptable.Table
}

// NewPartitioned builds a partitioned dataset. Special-role columns are
// extracted into auxiliary attributes and dropped from every partition, then
// dtype coercion runs per partition. When indexOK is false the row index is
// normalized: a single RowIndexMap is built from the current labels and
// applied to the table and to every attribute, so all of them land in the
// same order.
func NewPartitioned(data *ptable.Table, roles map[string]Role, task Task, attrs Attrs, indexOK bool) (*Partitioned, error) {
	d := &Partitioned{base: base{task: task, attrs: attrs.Clone()}}
	if d.attrs == nil {
		d.attrs = make(Attrs)
	}
	if data == nil {
		return d, nil
	}

	data, roles, err := d.extractSpecial(data, roles)
	if err != nil {
		return nil, err
	}
	if err := d.setData(data, roles); err != nil {
		return nil, err
	}

	if !indexOK {
		if err := d.normalizeIndex(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// extractSpecial pulls special-role and Drop columns out of every partition.
// Attribute values come from one synchronizing pass; the remaining columns
// keep their partitioning.
func (d *Partitioned) extractSpecial(data *ptable.Table, roles map[string]Role) (*ptable.Table, map[string]Role, error) {
	schema := data.Schema()
	hasSpecial := false
	for i := 0; i < schema.NumFields(); i++ {
		role, ok := roles[schema.Field(i).Name]
		if !ok {
			continue
		}
		if _, special := role.attrKind(); special || role.Name == RoleDrop {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return data, roles, nil
	}

	whole, err := data.Compute()
	if err != nil {
		return nil, nil, err
	}
	rec, kept, err := extractSpecialColumns(whole, roles, d.attrs)
	if err != nil {
		return nil, nil, err
	}
	out, err := ptable.FromRecord(rec, data.NumPartitions())
	if err != nil {
		return nil, nil, err
	}
	// FromRecord assigns a dense index; restore the caller's labels so a
	// later normalization still sees them.
	out, err = ptable.New(collectParts(out), splitLabels(data.Labels(), out))
	if err != nil {
		return nil, nil, err
	}
	return out, kept, nil
}

func collectParts(t *ptable.Table) []arrow.Record {
	parts := make([]arrow.Record, t.NumPartitions())
	for p := range parts {
		parts[p] = t.Partition(p)
	}
	return parts
}

func splitLabels(labels []int64, t *ptable.Table) [][]int64 {
	out := make([][]int64, t.NumPartitions())
	at := 0
	for p := range out {
		n := int(t.Partition(p).NumRows())
		out[p] = labels[at : at+n]
		at += n
	}
	return out
}

// setData settles roles against the first partition, then coerces every
// partition to the settled dtypes.
func (d *Partitioned) setData(data *ptable.Table, roles map[string]Role) error {
	schema := data.Schema()
	features := make([]string, schema.NumFields())
	for j := range features {
		features[j] = schema.Field(j).Name
	}
	resolved, err := resolveRoles(features, roles)
	if err != nil {
		return err
	}
	if err := d.checkAttrRows("Partitioned.SetData", data.NumRows()); err != nil {
		return err
	}

	// Settle dtypes (and emit any cast warnings) on the first partition
	// only; the parallel pass over all partitions then runs silent and
	// read-only against the settled roles, so the shared map is never
	// written from the partition goroutines.
	if _, err := coerceRecord(data.Partition(0), features, resolved, true); err != nil {
		return err
	}
	coerced, err := data.MapPartitions(func(rec arrow.Record) (arrow.Record, error) {
		return coerceRecord(rec, features, resolved, false)
	})
	if err != nil {
		return err
	}

	d.data = coerced
	d.features = features
	d.roles = resolved
	return nil
}

// normalizeIndex rebuilds a dense contiguous row index and reorders the table
// and every attribute through the same map.
func (d *Partitioned) normalizeIndex() error {
	labels := d.data.Labels()
	m, err := ptable.BuildRowIndexMap(labels)
	if err != nil {
		return err
	}
	order, err := m.Permutation(labels)
	if err != nil {
		return err
	}

	reindexed, err := d.data.Reindex(m)
	if err != nil {
		return err
	}
	for k, a := range d.attrs {
		reordered, err := a.Reorder(order)
		if err != nil {
			return err
		}
		d.attrs[k] = reordered
	}
	d.data = reindexed
	return nil
}

// Kind returns KindPartitioned.
func (d *Partitioned) Kind() Kind { return KindPartitioned }

// Data returns the backing partitioned table.
func (d *Partitioned) Data() *ptable.Table { return d.data }

// NumPartitions returns the partition count.
func (d *Partitioned) NumPartitions() int {
	if d.data == nil {
		return 0
	}
	return d.data.NumPartitions()
}

// Shape returns (rows, cols). The row count forces a synchronizing pass over
// all partitions.
func (d *Partitioned) Shape() (int, int) {
	if d.data == nil {
		return 0, len(d.features)
	}
	return d.data.NumRows(), d.data.NumCols()
}

// Loc selects rows by label and columns by position. Labels outside the
// materialized bounds are clipped, so the result may hold fewer rows than
// requested. Auxiliary attributes follow the surviving rows.
func (d *Partitioned) Loc(sel []int64, cols []int) (*Partitioned, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	sub, err := d.data.Loc(sel, cols)
	if err != nil {
		return nil, err
	}

	// Resolve which positions survived the clip so the attributes follow
	// the exact same rows.
	pos := make(map[int64]int, d.data.NumRows())
	for i, l := range d.data.Labels() {
		pos[l] = i
	}
	keptLabels := sub.Labels()
	rows := make([]int, len(keptLabels))
	for i, l := range keptLabels {
		rows[i] = pos[l]
	}

	features := d.features
	if cols != nil {
		features = make([]string, len(cols))
		for j, c := range cols {
			if c < 0 || c >= len(d.features) {
				return nil, errors.NewValueError("Partitioned.Loc", "column position out of range")
			}
			features[j] = d.features[c]
		}
	}

	out := &Partitioned{base: base{
		task:     d.task,
		features: features,
		roles:    d.subsetRoles(features),
		attrs:    d.attrs.take(rows),
	}}
	out.data = sub
	return out, nil
}

// MapPartitions applies fn to every partition in parallel, preserving roles,
// attributes and the row index. fn must preserve row count and schema.
func (d *Partitioned) MapPartitions(fn func(arrow.Record) (arrow.Record, error)) (*Partitioned, error) {
	if d.data == nil {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	mapped, err := d.data.MapPartitions(fn)
	if err != nil {
		return nil, err
	}
	out := &Partitioned{base: base{
		task:     d.task,
		features: d.Features(),
		roles:    d.Roles(),
		attrs:    d.attrs.Clone(),
	}}
	out.data = mapped
	return out, nil
}

// Empty returns a dataset of the same kind and task with no data.
func (d *Partitioned) Empty() *Partitioned {
	return &Partitioned{base: base{task: d.task, attrs: make(Attrs)}}
}

// ===========================================================================
//
//	Conversions
//
// ===========================================================================

// ToTable materializes all partitions into a single-record table. This is a
// synchronization point.
func (d *Partitioned) ToTable() (*Table, error) {
	out := &Table{base: base{task: d.task, attrs: d.attrs.Clone()}}
	if d.data == nil {
		return out, nil
	}
	whole, err := d.data.Compute()
	if err != nil {
		return nil, err
	}
	// Roles were already settled partition-wise; this pass is an identity.
	if err := out.SetData(whole, d.Roles()); err != nil {
		return nil, err
	}
	return out, nil
}

// ToDense converts through the table backend. Every column must carry the
// Numeric role.
func (d *Partitioned) ToDense() (*Dense, error) {
	t, err := d.ToTable()
	if err != nil {
		return nil, err
	}
	return t.ToDense()
}

// ToSparse converts through the dense backend.
func (d *Partitioned) ToSparse() (*CSR, error) {
	dense, err := d.ToDense()
	if err != nil {
		return nil, err
	}
	return dense.ToSparse()
}

// ToPartitioned returns the same instance.
func (d *Partitioned) ToPartitioned() (*Partitioned, error) { return d, nil }

// hstackPartitioned materializes, stacks and repartitions to the first
// dataset's partition count.
func hstackPartitioned(datasets []*Partitioned) (*Partitioned, error) {
	if len(datasets) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	tables := make([]*Table, len(datasets))
	for i, d := range datasets {
		t, err := d.ToTable()
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	stacked, err := HStackTables(tables)
	if err != nil {
		return nil, err
	}
	return stacked.ToPartitionedN(datasets[0].NumPartitions())
}
