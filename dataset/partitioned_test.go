package dataset

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/ptable"
)

// shuffledPTable builds a two-partition table whose rows arrive out of label
// order: labels 3,1 in the first partition and 0,2 in the second. Feature
// values equal their label so order is observable.
func shuffledPTable(t *testing.T) *ptable.Table {
	t.Helper()
	p0 := testRecord(t, []string{"x"}, []arrow.Array{float64Column(t, []float64{3, 1})})
	p1 := testRecord(t, []string{"x"}, []arrow.Array{float64Column(t, []float64{0, 2})})
	pt, err := ptable.New([]arrow.Record{p0, p1}, [][]int64{{3, 1}, {0, 2}})
	require.NoError(t, err)
	return pt
}

func TestNewPartitionedNormalizesIndex(t *testing.T) {
	pt := shuffledPTable(t)
	// Attribute rows arrive in the same shuffled order as the labels.
	attrs := Attrs{AttrTarget: NewAttr([]float64{30, 10, 0, 20})}
	roles := UniformRoles([]string{"x"}, NumericRole(Float64))

	d, err := NewPartitioned(pt, roles, regTask(), attrs, false)
	require.NoError(t, err)

	// After normalization rows are sorted by label with a dense index.
	assert.Equal(t, []int64{0, 1, 2, 3}, d.Data().Labels())

	tbl, err := d.ToTable()
	require.NoError(t, err)
	col, err := tbl.Column("x")
	require.NoError(t, err)
	vals, err := frame.NumericColumn(col)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, vals)

	// The same map reordered the attribute, so rows still line up.
	target, ok := d.Attr(AttrTarget)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 10, 20, 30}, target.Values())
}

func TestNewPartitionedIndexOKSkipsNormalization(t *testing.T) {
	pt := shuffledPTable(t)
	roles := UniformRoles([]string{"x"}, NumericRole(Float64))

	d, err := NewPartitioned(pt, roles, regTask(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 0, 2}, d.Data().Labels())
}

func TestNewPartitionedExtractsSpecialColumns(t *testing.T) {
	p0 := testRecord(t,
		[]string{"x", "y"},
		[]arrow.Array{
			float64Column(t, []float64{1, 2}),
			float64Column(t, []float64{10, 20}),
		},
	)
	p1 := testRecord(t,
		[]string{"x", "y"},
		[]arrow.Array{
			float64Column(t, []float64{3}),
			float64Column(t, []float64{30}),
		},
	)
	pt, err := ptable.New([]arrow.Record{p0, p1}, [][]int64{{0, 1}, {2}})
	require.NoError(t, err)

	roles := map[string]Role{
		"x": NumericRole(Float64),
		"y": TargetRole(),
	}
	d, err := NewPartitioned(pt, roles, regTask(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, d.Features())
	assert.Equal(t, 1, d.Data().NumCols())

	target, ok := d.Attr(AttrTarget)
	require.True(t, ok)
	assert.Equal(t, []float64{10, 20, 30}, target.Values())
}

func TestPartitionedShapeSynchronizes(t *testing.T) {
	pt := shuffledPTable(t)
	d, err := NewPartitioned(pt, UniformRoles([]string{"x"}, NumericRole(Float64)), regTask(), nil, false)
	require.NoError(t, err)

	rows, cols := d.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 1, cols)
}

func TestPartitionedLocClipsOutOfRange(t *testing.T) {
	pt := shuffledPTable(t)
	attrs := Attrs{AttrWeight: NewAttr([]float64{3, 1, 0, 2})}
	d, err := NewPartitioned(pt, UniformRoles([]string{"x"}, NumericRole(Float64)), regTask(), attrs, false)
	require.NoError(t, err)

	// Label 99 is clipped away instead of failing.
	sub, err := d.Loc([]int64{2, 99, 0}, nil)
	require.NoError(t, err)

	rows, _ := sub.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, []int64{2, 0}, sub.Data().Labels())

	weight, ok := sub.Attr(AttrWeight)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 0}, weight.Values())
}

func TestPartitionedMapPartitionsPreservesMetadata(t *testing.T) {
	pt := shuffledPTable(t)
	d, err := NewPartitioned(pt, UniformRoles([]string{"x"}, NumericRole(Float64)), regTask(), nil, false)
	require.NoError(t, err)

	mapped, err := d.MapPartitions(func(rec arrow.Record) (arrow.Record, error) {
		return rec, nil
	})
	require.NoError(t, err)

	assert.Equal(t, d.Features(), mapped.Features())
	assert.Equal(t, d.Data().Labels(), mapped.Data().Labels())
}

func TestPartitionedIdentityConversion(t *testing.T) {
	pt := shuffledPTable(t)
	d, err := NewPartitioned(pt, UniformRoles([]string{"x"}, NumericRole(Float64)), regTask(), nil, false)
	require.NoError(t, err)

	same, err := d.ToPartitioned()
	require.NoError(t, err)
	assert.Same(t, d, same)
}

func TestConcatPartitioned(t *testing.T) {
	left, err := NewPartitioned(shuffledPTable(t), UniformRoles([]string{"x"}, NumericRole(Float64)), regTask(), nil, false)
	require.NoError(t, err)

	p0 := testRecord(t, []string{"z"}, []arrow.Array{float64Column(t, []float64{5, 6, 7, 8})})
	pt, err := ptable.New([]arrow.Record{p0}, [][]int64{{0, 1, 2, 3}})
	require.NoError(t, err)
	right, err := NewPartitioned(pt, UniformRoles([]string{"z"}, NumericRole(Float64)), regTask(), nil, true)
	require.NoError(t, err)

	stacked, err := Concat([]Dataset{left, right})
	require.NoError(t, err)

	rows, cols := stacked.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []string{"x", "z"}, stacked.Features())
	assert.Equal(t, 2, stacked.(*Partitioned).NumPartitions())
}
