package dataset

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// RoleName is the semantic tag of a column.
type RoleName string

const (
	RoleNumeric  RoleName = "Numeric"
	RoleCategory RoleName = "Category"
	RoleDatetime RoleName = "Datetime"
	RoleTarget   RoleName = "Target"
	RoleGroup    RoleName = "Group"
	RoleWeight   RoleName = "Weight"
	RoleFold     RoleName = "Fold"
	RoleDrop     RoleName = "Drop"
)

// Role carries a column's semantic meaning, its canonical storage dtype and,
// for datetime columns, the parse parameters.
type Role struct {
	Name  RoleName
	DType DType

	// Datetime parse metadata. An empty Layout means free-form detection
	// for string columns; Unit and Origin interpret numeric epoch columns.
	Layout string
	Unit   string
	Origin time.Time
}

// NumericRole tags an ordinary numeric feature.
func NumericRole(dt DType) Role {
	return Role{Name: RoleNumeric, DType: dt}
}

// CategoryRole tags a categorical feature.
func CategoryRole(dt DType) Role {
	return Role{Name: RoleCategory, DType: dt}
}

// DatetimeRole tags a datetime feature with its parse parameters.
func DatetimeRole(layout, unit string, origin time.Time) Role {
	return Role{Name: RoleDatetime, DType: Datetime, Layout: layout, Unit: unit, Origin: origin}
}

// TargetRole marks the column holding the learning target.
func TargetRole() Role { return Role{Name: RoleTarget, DType: Float64} }

// GroupRole marks the column holding group ids.
func GroupRole() Role { return Role{Name: RoleGroup, DType: Float64} }

// WeightRole marks the column holding sample weights.
func WeightRole() Role { return Role{Name: RoleWeight, DType: Float64} }

// FoldRole marks the column holding precomputed fold ids.
func FoldRole() Role { return Role{Name: RoleFold, DType: Float64} }

// DropRole marks a column excluded from the feature set.
func DropRole() Role { return Role{Name: RoleDrop, DType: Float64} }

// attrKind maps a special role to the auxiliary-attribute slot its column is
// extracted into during table dataset construction.
func (r Role) attrKind() (AttrKind, bool) {
	switch r.Name {
	case RoleTarget:
		return AttrTarget, true
	case RoleGroup:
		return AttrGroup, true
	case RoleWeight:
		return AttrWeight, true
	case RoleFold:
		return AttrFold, true
	default:
		return "", false
	}
}

// defaultRole is applied when no role is given: infer numeric float.
var defaultRole = NumericRole(Float32)

// UniformRoles applies a single role to every feature.
func UniformRoles(features []string, r Role) map[string]Role {
	return lo.SliceToMap(features, func(f string) (string, Role) { return f, r })
}

// FeatureNames generates names prefix_0 .. prefix_{n-1}. An empty prefix
// defaults to "feat".
func FeatureNames(prefix string, n int) []string {
	if prefix == "" {
		prefix = "feat"
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return names
}

// resolveRoles produces the per-column role table for the given features.
// A nil mapping infers numeric float for every column; otherwise every
// feature must be covered (extra keys are ignored).
func resolveRoles(features []string, roles map[string]Role) (map[string]Role, error) {
	if roles == nil {
		return UniformRoles(features, defaultRole), nil
	}
	out := make(map[string]Role, len(features))
	for _, f := range features {
		r, ok := roles[f]
		if !ok {
			return nil, errors.NewValueError("resolveRoles", "no role for feature "+f)
		}
		out[f] = r
	}
	return out, nil
}

// unifyDTypes computes the single numeric dtype of a dense backend from the
// union of all feature roles and rewrites every role to carry it.
func unifyDTypes(roles map[string]Role) (DType, error) {
	dtypes := lo.Map(lo.Values(roles), func(r Role, _ int) DType { return r.DType })
	common, err := CommonDType(dtypes)
	if err != nil {
		return common, err
	}
	for f, r := range roles {
		r.DType = common
		roles[f] = r
	}
	return common, nil
}
