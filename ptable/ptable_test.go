package ptable

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

func record(t *testing.T, values []float64) arrow.Record {
	t.Helper()
	col, err := frame.FloatColumn(values, arrow.PrimitiveTypes.Float64)
	require.NoError(t, err)
	rec, err := frame.NewRecord([]string{"x"}, []arrow.Array{col})
	require.NoError(t, err)
	return rec
}

func columnValues(t *testing.T, rec arrow.Record, j int) []float64 {
	t.Helper()
	vals, err := frame.NumericColumn(rec.Column(j))
	require.NoError(t, err)
	return vals
}

func TestFromRecordSplitsEvenly(t *testing.T) {
	rec := record(t, []float64{0, 1, 2, 3, 4})
	pt, err := FromRecord(rec, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, pt.NumPartitions())
	assert.Equal(t, 5, pt.NumRows())
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, pt.Labels())

	whole, err := pt.Compute()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, columnValues(t, whole, 0))
}

func TestFromRecordMorePartitionsThanRows(t *testing.T) {
	pt, err := FromRecord(record(t, []float64{1, 2}), 8)
	require.NoError(t, err)
	assert.Equal(t, 2, pt.NumPartitions())
}

func TestFromRecordRejectsZeroPartitions(t *testing.T) {
	_, err := FromRecord(record(t, []float64{1}), 0)
	require.Error(t, err)
}

func TestNewValidatesAlignment(t *testing.T) {
	rec := record(t, []float64{1, 2})
	_, err := New([]arrow.Record{rec}, [][]int64{{0}})
	require.Error(t, err)

	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMapPartitionsPreservesLabels(t *testing.T) {
	pt, err := FromRecord(record(t, []float64{0, 1, 2, 3}), 2)
	require.NoError(t, err)

	out, err := pt.MapPartitions(func(rec arrow.Record) (arrow.Record, error) {
		return rec, nil
	})
	require.NoError(t, err)
	assert.Equal(t, pt.Labels(), out.Labels())
}

func TestMapPartitionsWrapsFailure(t *testing.T) {
	pt, err := FromRecord(record(t, []float64{0, 1, 2, 3}), 2)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = pt.MapPartitions(func(rec arrow.Record) (arrow.Record, error) {
		return nil, boom
	})
	require.Error(t, err)

	var computeErr *errors.ComputeError
	require.True(t, errors.As(err, &computeErr))
	assert.True(t, errors.Is(err, boom))
}

func TestMapPartitionsRejectsRowCountChange(t *testing.T) {
	pt, err := FromRecord(record(t, []float64{0, 1, 2, 3}), 2)
	require.NoError(t, err)

	_, err = pt.MapPartitions(func(rec arrow.Record) (arrow.Record, error) {
		return rec.NewSlice(0, 1), nil
	})
	require.Error(t, err)

	var computeErr *errors.ComputeError
	assert.True(t, errors.As(err, &computeErr))
}

func TestLocClipsAndSelects(t *testing.T) {
	pt, err := FromRecord(record(t, []float64{10, 11, 12, 13}), 2)
	require.NoError(t, err)

	sub, err := pt.Loc([]int64{3, 42, 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 1}, sub.Labels())
	whole, err := sub.Compute()
	require.NoError(t, err)
	assert.Equal(t, []float64{13, 11}, columnValues(t, whole, 0))
}

func TestBuildRowIndexMapRejectsDuplicates(t *testing.T) {
	_, err := BuildRowIndexMap([]int64{1, 2, 1})
	require.Error(t, err)
}

func TestRowIndexMapPermutation(t *testing.T) {
	m, err := BuildRowIndexMap([]int64{7, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	// Sorted label order assigns 3->0, 5->1, 7->2.
	pos, ok := m.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	order, err := m.Permutation([]int64{7, 3, 5})
	require.NoError(t, err)
	// order[newPos] = oldPos: row labeled 3 (old pos 1) comes first.
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestReindexSortsByLabel(t *testing.T) {
	p0 := record(t, []float64{3, 1})
	p1 := record(t, []float64{0, 2})
	pt, err := New([]arrow.Record{p0, p1}, [][]int64{{3, 1}, {0, 2}})
	require.NoError(t, err)

	m, err := BuildRowIndexMap(pt.Labels())
	require.NoError(t, err)

	out, err := pt.Reindex(m)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, 2, 3}, out.Labels())
	assert.Equal(t, 2, out.NumPartitions())

	whole, err := out.Compute()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, columnValues(t, whole, 0))
}

func TestReindexRejectsSizeMismatch(t *testing.T) {
	pt, err := FromRecord(record(t, []float64{0, 1}), 1)
	require.NoError(t, err)

	m, err := BuildRowIndexMap([]int64{0, 1, 2})
	require.NoError(t, err)

	_, err = pt.Reindex(m)
	require.Error(t, err)
}
