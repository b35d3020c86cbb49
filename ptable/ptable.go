// Package ptable implements a partitioned columnar table: an ordered set of
// Arrow record partitions with per-row integer labels. It stands in for a
// host compute-distribution layer; transformations are expressed per
// partition and forced to completion at explicit synchronization points
// (NumRows, Compute, Reindex).
package ptable

import (
	"log/slog"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/YuminosukeSato/autotab/core/parallel"
	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
	mllog "github.com/YuminosukeSato/autotab/pkg/log"
)

// Table is a partitioned table. Partition p holds rows labeled labels[p],
// aligned by position with the rows of parts[p].
type Table struct {
	parts  []arrow.Record
	labels [][]int64
}

// New builds a table from partitions and their row labels.
func New(parts []arrow.Record, labels [][]int64) (*Table, error) {
	if len(parts) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if len(parts) != len(labels) {
		return nil, errors.NewDimensionError("ptable.New", len(parts), len(labels), 0)
	}
	for p, rec := range parts {
		if int(rec.NumRows()) != len(labels[p]) {
			return nil, errors.NewDimensionError("ptable.New", int(rec.NumRows()), len(labels[p]), 0)
		}
		if !parts[0].Schema().Equal(rec.Schema()) {
			return nil, errors.NewTypeMismatchError("ptable.New", parts[0].Schema().String(), rec.Schema().String())
		}
	}
	return &Table{parts: parts, labels: labels}, nil
}

// FromRecord splits a record into nparts partitions with a dense row index
// 0..N-1.
func FromRecord(rec arrow.Record, nparts int) (*Table, error) {
	if nparts < 1 {
		return nil, errors.NewValueError("ptable.FromRecord", "partition count must be positive")
	}
	n := int(rec.NumRows())
	if nparts > n && n > 0 {
		nparts = n
	}
	if n == 0 {
		nparts = 1
	}

	chunk := (n + nparts - 1) / nparts
	if chunk == 0 {
		chunk = 1
	}
	var parts []arrow.Record
	var labels [][]int64
	for start := 0; start == 0 || start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		parts = append(parts, rec.NewSlice(int64(start), int64(end)))
		lab := make([]int64, end-start)
		for i := range lab {
			lab[i] = int64(start + i)
		}
		labels = append(labels, lab)
	}
	return &Table{parts: parts, labels: labels}, nil
}

// NumPartitions returns the partition count.
func (t *Table) NumPartitions() int {
	return len(t.parts)
}

// Partition returns the record backing partition p.
func (t *Table) Partition(p int) arrow.Record {
	return t.parts[p]
}

// NumRows counts rows with a synchronizing pass over all partitions; a
// partitioned table does not know its row count without one.
func (t *Table) NumRows() int {
	n := 0
	for _, lab := range t.labels {
		n += len(lab)
	}
	return n
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return int(t.parts[0].NumCols())
}

// Schema returns the shared partition schema.
func (t *Table) Schema() *arrow.Schema {
	return t.parts[0].Schema()
}

// Labels snapshots the current row index in partition order.
func (t *Table) Labels() []int64 {
	out := make([]int64, 0, t.NumRows())
	for _, lab := range t.labels {
		out = append(out, lab...)
	}
	return out
}

// Compute materializes the whole table as a single record, in partition
// order. This is a synchronization point: it forces every partition.
func (t *Table) Compute() (arrow.Record, error) {
	if len(t.parts) == 1 {
		return t.parts[0], nil
	}
	return frame.VStack(t.parts)
}

// MapPartitions applies fn to every partition in parallel and returns a new
// table with the same labels. A failing partition is fatal: the first error
// propagates unchanged, wrapped with its partition id. fn must preserve row
// count.
func (t *Table) MapPartitions(fn func(arrow.Record) (arrow.Record, error)) (*Table, error) {
	out := make([]arrow.Record, len(t.parts))
	err := parallel.ParallelizeErr(len(t.parts), func(p int) error {
		rec, err := fn(t.parts[p])
		if err != nil {
			return errors.NewComputeError("ptable.MapPartitions", p, err)
		}
		if int(rec.NumRows()) != len(t.labels[p]) {
			return errors.NewComputeError("ptable.MapPartitions", p,
				errors.NewDimensionError("ptable.MapPartitions", len(t.labels[p]), int(rec.NumRows()), 0))
		}
		out[p] = rec
		return nil
	})
	if err != nil {
		slog.Error("partition computation failed",
			mllog.ErrAttr(err),
			slog.Int(mllog.PartitionsKey, len(t.parts)),
		)
		return nil, err
	}
	return &Table{parts: out, labels: t.labels}, nil
}

// Loc selects rows by label and columns by position. Labels outside the
// currently materialized bounds are clipped to [min, max] before positions
// are resolved, so out-of-range selections shrink instead of failing.
func (t *Table) Loc(sel []int64, cols []int) (*Table, error) {
	labels := t.Labels()
	if len(labels) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	minLabel, maxLabel := labels[0], labels[0]
	for _, l := range labels[1:] {
		if l < minLabel {
			minLabel = l
		}
		if l > maxLabel {
			maxLabel = l
		}
	}
	pos := make(map[int64]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	var rows []int
	var kept []int64
	for _, l := range sel {
		if l < minLabel || l > maxLabel {
			continue
		}
		i, ok := pos[l]
		if !ok {
			continue
		}
		rows = append(rows, i)
		kept = append(kept, l)
	}

	whole, err := t.Compute()
	if err != nil {
		return nil, err
	}
	if cols == nil {
		cols = make([]int, t.NumCols())
		for j := range cols {
			cols[j] = j
		}
	}
	rec, err := frame.Slice2D(whole, rows, cols)
	if err != nil {
		return nil, err
	}
	return &Table{parts: []arrow.Record{rec}, labels: [][]int64{kept}}, nil
}

// Reindex re-keys the row index through m and persists the rows sorted by
// their new labels, repartitioned to the previous partition count. The same
// map must be applied to every row-aligned attribute of the caller.
func (t *Table) Reindex(m *RowIndexMap) (*Table, error) {
	labels := t.Labels()
	if len(labels) != m.Len() {
		return nil, errors.NewDimensionError("ptable.Reindex", m.Len(), len(labels), 0)
	}

	order, err := m.Permutation(labels)
	if err != nil {
		return nil, err
	}

	whole, err := t.Compute()
	if err != nil {
		return nil, err
	}
	sorted, err := frame.TakeRows(whole, order)
	if err != nil {
		return nil, err
	}
	return FromRecord(sorted, len(t.parts))
}

// RowIndexMap is a bijective mapping from existing row labels to a dense
// contiguous index 0..N-1. One map instance is built per normalization and
// passed by reference to the table and to every auxiliary attribute, so the
// exact same mapping reorders all of them.
type RowIndexMap struct {
	pos map[int64]int
}

// BuildRowIndexMap assigns each distinct label its dense position in sorted
// label order. Duplicate labels are rejected.
func BuildRowIndexMap(labels []int64) (*RowIndexMap, error) {
	sorted := make([]int64, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pos := make(map[int64]int, len(sorted))
	for i, l := range sorted {
		if _, dup := pos[l]; dup {
			return nil, errors.NewValueError("ptable.BuildRowIndexMap", "duplicate row label")
		}
		pos[l] = i
	}
	return &RowIndexMap{pos: pos}, nil
}

// Len returns the number of mapped rows.
func (m *RowIndexMap) Len() int {
	return len(m.pos)
}

// Lookup returns the dense position of a label.
func (m *RowIndexMap) Lookup(label int64) (int, bool) {
	i, ok := m.pos[label]
	return i, ok
}

// Permutation resolves, for rows currently ordered as labels, the take order
// that sorts them by new dense position: order[newPos] = oldPos. Every label
// must be present in the map.
func (m *RowIndexMap) Permutation(labels []int64) ([]int, error) {
	if len(labels) != len(m.pos) {
		return nil, errors.NewDimensionError("RowIndexMap.Permutation", len(m.pos), len(labels), 0)
	}
	order := make([]int, len(labels))
	for old, l := range labels {
		newPos, ok := m.pos[l]
		if !ok {
			return nil, errors.NewValueError("RowIndexMap.Permutation", "label missing from row index map")
		}
		order[newPos] = old
	}
	return order, nil
}
