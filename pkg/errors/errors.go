// Package errors provides error handling and the warning system for the
// whole project. Hard contract violations are typed errors carrying stack
// traces; recoverable conditions are warnings routed through a global,
// replaceable handler.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("autotab-warning: %v\n", w)
	}
	// zerolog sink, lazily injected to avoid a circular import.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the library-wide warning handler.
// Use it to silence or redirect warnings such as StructureWarning:
//
//	errors.SetWarningHandler(func(w error) {})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The zerolog sink takes precedence when installed;
// otherwise the plain handler runs. Warnings never abort execution.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// StructureWarning reports that a grouped (sequential) dataset was sliced
// with a non-contiguous row selection, so the resulting group structure may
// differ from the source's. Execution proceeds.
type StructureWarning struct {
	Op     string
	Reason string
}

func (w *StructureWarning) Error() string {
	return fmt.Sprintf("%s: resulting sequential dataset may have different structure: %s", w.Op, w.Reason)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *StructureWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Str("reason", w.Reason).
		Str("type", "StructureWarning")
}

// NewStructureWarning creates a new StructureWarning.
func NewStructureWarning(op, reason string) *StructureWarning {
	return &StructureWarning{Op: op, Reason: reason}
}

// CastWarning reports a best-effort column cast that failed during table
// dtype coercion. The column keeps its prior dtype; this is deliberate
// soft-fail behavior, not an error.
type CastWarning struct {
	Column   string
	FromType string
	ToType   string
	Reason   string
}

func (w *CastWarning) Error() string {
	return fmt.Sprintf("column %q kept as %s, cast to %s failed: %s", w.Column, w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *CastWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "CastWarning")
}

// NewCastWarning creates a new CastWarning.
func NewCastWarning(column, from, to, reason string) *CastWarning {
	return &CastWarning{Column: column, FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// TypeMismatchError is raised when a dataset receives a backing store of the
// wrong concrete type, or when a conversion requires numeric roles and a
// non-numeric role is present. It always fails loudly, never coerces.
type TypeMismatchError struct {
	Op       string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("autotab: %s: expected %s, got %s", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *TypeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("expected", e.Expected).
		Str("got", e.Got).
		Str("type", "TypeMismatchError")
}

// NewTypeMismatchError creates a TypeMismatchError with a stack trace.
func NewTypeMismatchError(op, expected, got string) error {
	err := &TypeMismatchError{Op: op, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// DimensionError is raised when the shape of an input differs from what the
// operation requires, e.g. an auxiliary attribute whose row count does not
// match the feature table.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("autotab: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is raised when a pre-registered compatibility check fails,
// e.g. concatenating datasets with different groupings.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("autotab: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is raised when an argument value is invalid for the operation,
// e.g. a row index outside the dataset.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("autotab: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ComputeError wraps a failure surfaced by the partitioned execution engine
// during a forced computation. It is fatal and propagates unchanged; this
// library owns no retry policy.
type ComputeError struct {
	Op        string
	Partition int
	Err       error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("autotab: %s: partition %d: %v", e.Op, e.Partition, e.Err)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ComputeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("partition", e.Partition).
		Err(e.Err).
		Str("type", "ComputeError")
}

// NewComputeError creates a ComputeError with a stack trace.
func NewComputeError(op string, partition int, err error) error {
	computeErr := &ComputeError{Op: op, Partition: partition, Err: err}
	return errors.WithStack(computeErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches the target error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be cast to the target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an existing error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to an error.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common sentinel errors
//
// ===========================================================================

var (
	// ErrNotImplemented marks a conversion or operation a backend does not
	// define (e.g. sparse to table). Callers branch on it to probe
	// capability; it is distinct from a type error.
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData is returned when an operation needs data and none is set.
	ErrEmptyData = New("empty data")
)
