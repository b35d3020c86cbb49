package dataset

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotab/frame"
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

func float64Column(t *testing.T, values []float64) arrow.Array {
	t.Helper()
	col, err := frame.FloatColumn(values, arrow.PrimitiveTypes.Float64)
	require.NoError(t, err)
	return col
}

func stringColumn(t *testing.T, values []string) arrow.Array {
	t.Helper()
	b := array.NewStringBuilder(frame.Allocator())
	defer b.Release()
	for _, v := range values {
		b.Append(v)
	}
	return b.NewArray()
}

func testRecord(t *testing.T, names []string, cols []arrow.Array) arrow.Record {
	t.Helper()
	rec, err := frame.NewRecord(names, cols)
	require.NoError(t, err)
	return rec
}

// captureWarnings redirects the warning sink for the duration of the test.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var captured []error
	errors.SetWarningHandler(func(w error) { captured = append(captured, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	return &captured
}

func TestNewTableExtractsSpecialColumns(t *testing.T) {
	rec := testRecord(t,
		[]string{"x", "y", "junk"},
		[]arrow.Array{
			float64Column(t, []float64{1, 2}),
			float64Column(t, []float64{0, 1}),
			float64Column(t, []float64{9, 9}),
		},
	)
	roles := map[string]Role{
		"x":    NumericRole(Float64),
		"y":    TargetRole(),
		"junk": DropRole(),
	}
	d, err := NewTable(rec, roles, regTask(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, d.Features())

	target, ok := d.Attr(AttrTarget)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, target.Values())

	_, err = d.Column("junk")
	require.Error(t, err)
}

func TestNewTableMultiTarget(t *testing.T) {
	rec := testRecord(t,
		[]string{"x", "t1", "t2"},
		[]arrow.Array{
			float64Column(t, []float64{1, 2}),
			float64Column(t, []float64{10, 20}),
			float64Column(t, []float64{30, 40}),
		},
	)
	roles := map[string]Role{
		"x":  NumericRole(Float64),
		"t1": TargetRole(),
		"t2": TargetRole(),
	}
	d, err := NewTable(rec, roles, Task{Name: TaskMultiReg}, nil)
	require.NoError(t, err)

	target, ok := d.Attr(AttrTarget)
	require.True(t, ok)
	assert.Equal(t, 2, target.Rows())
	assert.Equal(t, 2, target.Cols())
	assert.Equal(t, 10.0, target.At(0, 0))
	assert.Equal(t, 40.0, target.At(1, 1))
}

func TestTableCastSuccess(t *testing.T) {
	rec := testRecord(t,
		[]string{"x"},
		[]arrow.Array{stringColumn(t, []string{"1.5", "2.5"})},
	)
	roles := map[string]Role{"x": NumericRole(Float64)}
	d, err := NewTable(rec, roles, regTask(), nil)
	require.NoError(t, err)

	assert.Equal(t, Float64, d.Roles()["x"].DType)

	col, err := d.Column("x")
	require.NoError(t, err)
	vals, err := frame.NumericColumn(col)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, vals)
}

func TestTableCastFailureWarnsAndKeepsColumn(t *testing.T) {
	captured := captureWarnings(t)

	rec := testRecord(t,
		[]string{"x"},
		[]arrow.Array{stringColumn(t, []string{"not-a-number"})},
	)
	roles := map[string]Role{"x": NumericRole(Float64)}
	d, err := NewTable(rec, roles, regTask(), nil)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	var castWarn *errors.CastWarning
	require.True(t, errors.As((*captured)[0], &castWarn))
	assert.Equal(t, "x", castWarn.Column)

	// Column keeps its stored dtype; the role follows it.
	assert.Equal(t, String, d.Roles()["x"].DType)
}

func TestCoerceRecordConcurrentReadsSettledRoles(t *testing.T) {
	rec := testRecord(t,
		[]string{"x"},
		[]arrow.Array{stringColumn(t, []string{"1.5", "2.5"})},
	)
	features := []string{"x"}
	resolved := map[string]Role{"x": NumericRole(Float64)}

	// Settling runs once, serially; afterwards the role map is read-only
	// for the goroutines the partitioned engine spawns per partition.
	_, err := coerceRecord(rec, features, resolved, true)
	require.NoError(t, err)
	require.Equal(t, Float64, resolved["x"].DType)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := coerceRecord(rec, features, resolved, false)
			assert.NoError(t, err)
			assert.NotNil(t, out)
		}()
	}
	wg.Wait()

	assert.Equal(t, Float64, resolved["x"].DType)
}

func TestTableDatetimeParsing(t *testing.T) {
	rec := testRecord(t,
		[]string{"ts"},
		[]arrow.Array{stringColumn(t, []string{"2024-01-02", "bogus"})},
	)
	roles := map[string]Role{"ts": DatetimeRole("2006-01-02", "", time.Time{})}
	d, err := NewTable(rec, roles, regTask(), nil)
	require.NoError(t, err)

	col, err := d.Column("ts")
	require.NoError(t, err)
	ts := col.(*array.Timestamp)
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMicro()
	assert.Equal(t, arrow.Timestamp(want), ts.Value(0))
	assert.True(t, ts.IsNull(1))
}

func TestTableSlice(t *testing.T) {
	rec := testRecord(t,
		[]string{"a", "b"},
		[]arrow.Array{
			float64Column(t, []float64{1, 2, 3}),
			float64Column(t, []float64{4, 5, 6}),
		},
	)
	attrs := Attrs{AttrTarget: NewAttr([]float64{0, 1, 0})}
	d, err := NewTable(rec, UniformRoles([]string{"a", "b"}, NumericRole(Float64)), regTask(), attrs)
	require.NoError(t, err)

	sub, err := d.Slice([]int{2, 0}, []int{1})
	require.NoError(t, err)

	rows, cols := sub.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, []string{"b"}, sub.Features())

	col, err := sub.Column("b")
	require.NoError(t, err)
	vals, err := frame.NumericColumn(col)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 4}, vals)

	target, ok := sub.Attr(AttrTarget)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0}, target.Values())
}

func TestTableValue(t *testing.T) {
	rec := testRecord(t,
		[]string{"x", "s"},
		[]arrow.Array{
			float64Column(t, []float64{1.5, 2.5}),
			stringColumn(t, []string{"a", "b"}),
		},
	)
	roles := map[string]Role{
		"x": NumericRole(Float64),
		"s": CategoryRole(String),
	}
	d, err := NewTable(rec, roles, regTask(), nil)
	require.NoError(t, err)

	v, err := d.Value(1, "x")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	s, err := d.Value(0, "s")
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	_, err = d.Value(5, "x")
	require.Error(t, err)
}

func TestTableToDenseRequiresNumericRoles(t *testing.T) {
	rec := testRecord(t,
		[]string{"c"},
		[]arrow.Array{stringColumn(t, []string{"red", "blue"})},
	)
	d, err := NewTable(rec, map[string]Role{"c": CategoryRole(String)}, regTask(), nil)
	require.NoError(t, err)

	_, err = d.ToDense()
	require.Error(t, err)

	var typeErr *errors.TypeMismatchError
	assert.True(t, errors.As(err, &typeErr))
}

func TestTableToDenseNullsBecomeNaN(t *testing.T) {
	rec := testRecord(t,
		[]string{"x"},
		[]arrow.Array{float64Column(t, []float64{1, 2})},
	)
	d, err := NewTable(rec, UniformRoles([]string{"x"}, NumericRole(Int64)), regTask(), nil)
	require.NoError(t, err)

	nullRec, err := frame.AppendNullRow(d.Record())
	require.NoError(t, err)
	require.NoError(t, d.SetData(nullRec, d.Roles()))

	dense, err := d.ToDense()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(dense.At(2, 0)))
}

func TestHStackTables(t *testing.T) {
	left, err := NewTable(
		testRecord(t, []string{"a"}, []arrow.Array{float64Column(t, []float64{1, 2})}),
		UniformRoles([]string{"a"}, NumericRole(Float64)), regTask(), nil,
	)
	require.NoError(t, err)
	right, err := NewTable(
		testRecord(t, []string{"b"}, []arrow.Array{float64Column(t, []float64{3, 4})}),
		UniformRoles([]string{"b"}, NumericRole(Float64)), regTask(),
		Attrs{AttrWeight: NewAttr([]float64{1, 1})},
	)
	require.NoError(t, err)

	stacked, err := Concat([]Dataset{left, right})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, stacked.Features())
	_, hasWeight := stacked.Attr(AttrWeight)
	assert.True(t, hasWeight)
}

func TestTableRoundTripThroughPartitioned(t *testing.T) {
	rec := testRecord(t,
		[]string{"a", "b"},
		[]arrow.Array{
			float64Column(t, []float64{1, 2, 3, 4, 5}),
			float64Column(t, []float64{6, 7, 8, 9, 10}),
		},
	)
	roles := UniformRoles([]string{"a", "b"}, NumericRole(Float64))
	d, err := NewTable(rec, roles, regTask(), nil)
	require.NoError(t, err)

	pt, err := d.ToPartitionedN(2)
	require.NoError(t, err)
	assert.Equal(t, 2, pt.NumPartitions())

	back, err := pt.ToTable()
	require.NoError(t, err)
	assert.True(t, d.Equal(back))
}
