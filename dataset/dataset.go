// Package dataset implements the typed tabular dataset abstraction shared by
// every stage of the pipeline: four storage backends (dense matrix, sparse
// matrix, columnar table, partitioned table), a column-role system driving
// dtype coercion, a sequential (grouped) overlay, and the conversion graph
// that moves data losslessly between the backends.
package dataset

import (
	"sort"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// TaskName identifies the learning task a dataset is prepared for.
type TaskName string

const (
	TaskBinary     TaskName = "binary"
	TaskMulticlass TaskName = "multiclass"
	TaskReg        TaskName = "reg"
	TaskMultiReg   TaskName = "multi:reg"
)

// Task is the task descriptor carried along with a dataset. The dataset core
// treats it as opaque.
type Task struct {
	Name TaskName
}

// Kind is the closed discriminant over storage backends. Downstream
// consumers (validation iterator selection, model training) dispatch on it;
// the set is fixed.
type Kind uint8

const (
	KindDense Kind = iota
	KindSparse
	KindTable
	KindPartitioned
	KindSeq
)

// String returns the backend name.
func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindSparse:
		return "sparse"
	case KindTable:
		return "table"
	case KindPartitioned:
		return "partitioned"
	case KindSeq:
		return "seq"
	default:
		return "unknown"
	}
}

// Dataset is the uniform contract every backend implements. Conversions
// preserve features, roles, task and every auxiliary attribute; identity
// conversions return the receiver.
type Dataset interface {
	Kind() Kind
	Task() Task
	Features() []string
	Roles() map[string]Role
	Shape() (rows, cols int)
	Attr(kind AttrKind) (Attr, bool)
	AttrKinds() []AttrKind

	ToDense() (*Dense, error)
	ToSparse() (*CSR, error)
	ToTable() (*Table, error)
	ToPartitioned() (*Partitioned, error)
}

// base carries the state shared by every backend.
type base struct {
	task     Task
	features []string
	roles    map[string]Role
	attrs    Attrs
}

// Task returns the task descriptor.
func (b *base) Task() Task { return b.task }

// Features returns the ordered feature names.
func (b *base) Features() []string {
	out := make([]string, len(b.features))
	copy(out, b.features)
	return out
}

// Roles returns a defensive copy of the role mapping, never the live map.
func (b *base) Roles() map[string]Role {
	out := make(map[string]Role, len(b.roles))
	for k, v := range b.roles {
		out[k] = v
	}
	return out
}

// Attr returns the auxiliary attribute stored under kind.
func (b *base) Attr(kind AttrKind) (Attr, bool) {
	a, ok := b.attrs[kind]
	return a, ok
}

// AttrKinds lists the populated attribute slots in deterministic order.
func (b *base) AttrKinds() []AttrKind {
	return lo.Filter(attrKinds, func(k AttrKind, _ int) bool {
		_, ok := b.attrs[k]
		return ok
	})
}

// Target returns the target attribute.
func (b *base) Target() (Attr, bool) { return b.Attr(AttrTarget) }

// checkAttrRows validates that every auxiliary attribute is row-aligned
// with the feature data.
func (b *base) checkAttrRows(op string, rows int) error {
	for _, k := range attrKinds {
		a, ok := b.attrs[k]
		if !ok {
			continue
		}
		if a.Rows() != rows {
			return errors.NewDimensionError(op, rows, a.Rows(), 0)
		}
	}
	return nil
}

// subsetRoles narrows the role mapping to the given features, preserving
// their order in the returned feature list.
func (b *base) subsetRoles(features []string) map[string]Role {
	out := make(map[string]Role, len(features))
	for _, f := range features {
		if r, ok := b.roles[f]; ok {
			out[f] = r
		}
	}
	return out
}

// adoptAttrs copies attribute slots from later datasets that the receiver
// does not populate yet; the concat contract for auxiliary data.
func (b *base) adoptAttrs(others []Attrs) {
	for _, other := range others {
		for k, v := range other {
			if _, ok := b.attrs[k]; !ok {
				if b.attrs == nil {
					b.attrs = make(Attrs)
				}
				b.attrs[k] = v
			}
		}
	}
}

// ===========================================================================
//
//	Concatenation
//
// ===========================================================================

// concatChecks are the pre-registered compatibility checks every Concat call
// runs before stacking.
var concatChecks = []func([]Dataset) error{
	checkConcatNonEmpty,
	checkConcatSameKind,
	checkConcatSameRows,
}

func checkConcatNonEmpty(datasets []Dataset) error {
	if len(datasets) == 0 {
		return errors.NewValidationError("datasets", "nothing to concatenate", 0)
	}
	return nil
}

func checkConcatSameKind(datasets []Dataset) error {
	kind := datasets[0].Kind()
	for _, d := range datasets[1:] {
		if d.Kind() != kind {
			return errors.NewValidationError("datasets", "mixed backend kinds", d.Kind().String())
		}
	}
	return nil
}

func checkConcatSameRows(datasets []Dataset) error {
	rows, _ := datasets[0].Shape()
	for _, d := range datasets[1:] {
		r, _ := d.Shape()
		if r != rows {
			return errors.NewValidationError("datasets", "row counts differ", r)
		}
	}
	return nil
}

// Concat horizontally stacks the feature blocks of datasets sharing a
// backend and a row count. Auxiliary attributes present only in later
// datasets are adopted into the result.
func Concat(datasets []Dataset) (Dataset, error) {
	for _, check := range concatChecks {
		if err := check(datasets); err != nil {
			return nil, err
		}
	}

	switch datasets[0].Kind() {
	case KindDense:
		return HStackDense(castAll[*Dense](datasets))
	case KindSparse:
		return HStackCSR(castAll[*CSR](datasets))
	case KindTable:
		return HStackTables(castAll[*Table](datasets))
	case KindPartitioned:
		return hstackPartitioned(castAll[*Partitioned](datasets))
	case KindSeq:
		return ConcatSeq(castAll[*Seq](datasets))
	default:
		return nil, errors.NewValueError("Concat", "unknown dataset kind")
	}
}

func castAll[T Dataset](datasets []Dataset) []T {
	return lo.Map(datasets, func(d Dataset, _ int) T { return d.(T) })
}

// mergeFeatureRoles unions feature lists and role maps across datasets,
// keeping feature order and rejecting duplicate names.
func mergeFeatureRoles(datasets []Dataset) ([]string, map[string]Role, error) {
	var features []string
	roles := make(map[string]Role)
	for _, d := range datasets {
		for f, r := range d.Roles() {
			if _, dup := roles[f]; dup {
				return nil, nil, errors.NewValidationError("features", "duplicate feature name", f)
			}
			roles[f] = r
		}
		features = append(features, d.Features()...)
	}
	sortedCheck := make([]string, len(features))
	copy(sortedCheck, features)
	sort.Strings(sortedCheck)
	for i := 1; i < len(sortedCheck); i++ {
		if sortedCheck[i] == sortedCheck[i-1] {
			return nil, nil, errors.NewValidationError("features", "duplicate feature name", sortedCheck[i])
		}
	}
	return features, roles, nil
}
