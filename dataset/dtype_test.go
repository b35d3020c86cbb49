package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

func TestCommonDType(t *testing.T) {
	tests := []struct {
		name   string
		dtypes []DType
		want   DType
	}{
		{
			name:   "single float32",
			dtypes: []DType{Float32},
			want:   Float32,
		},
		{
			name:   "float64 dominates",
			dtypes: []DType{Float32, Float64, Int32},
			want:   Float64,
		},
		{
			name:   "int32 and float32 promote to float64",
			dtypes: []DType{Int32, Float32},
			want:   Float64,
		},
		{
			name:   "int64 and float32 promote to float64",
			dtypes: []DType{Int64, Float32},
			want:   Float64,
		},
		{
			name:   "pure integers widen",
			dtypes: []DType{Int32, Int64},
			want:   Int64,
		},
		{
			name:   "int32 only",
			dtypes: []DType{Int32, Int32},
			want:   Int32,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CommonDType(tt.dtypes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommonDTypeRejectsNonNumeric(t *testing.T) {
	_, err := CommonDType([]DType{Float64, String})
	require.Error(t, err)

	var typeErr *errors.TypeMismatchError
	assert.True(t, errors.As(err, &typeErr))
}

func TestCommonDTypeEmpty(t *testing.T) {
	_, err := CommonDType(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestDTypeIsNumeric(t *testing.T) {
	assert.True(t, Float64.IsNumeric())
	assert.True(t, Int32.IsNumeric())
	assert.False(t, String.IsNumeric())
	assert.False(t, Bool.IsNumeric())
	assert.False(t, Datetime.IsNumeric())
}

func TestUnifyDTypesRewritesRoles(t *testing.T) {
	roles := map[string]Role{
		"a": NumericRole(Int32),
		"b": NumericRole(Float32),
	}
	common, err := unifyDTypes(roles)
	require.NoError(t, err)
	assert.Equal(t, Float64, common)
	assert.Equal(t, Float64, roles["a"].DType)
	assert.Equal(t, Float64, roles["b"].DType)
}
