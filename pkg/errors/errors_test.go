package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewTypeMismatchError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		expected string
		got      string
		wantMsg  string
	}{
		{
			name:     "wrong backing store",
			op:       "Dense.SetData",
			expected: "*mat.Dense",
			got:      "nil",
			wantMsg:  "autotab: Dense.SetData: expected *mat.Dense, got nil",
		},
		{
			name:     "non numeric role",
			op:       "Table.ToDense",
			expected: "numeric roles",
			got:      "Category",
			wantMsg:  "autotab: Table.ToDense: expected numeric roles, got Category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTypeMismatchError(tt.op, tt.expected, tt.got)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var typeErr *TypeMismatchError
			if !As(err, &typeErr) {
				t.Error("Error should be castable to *TypeMismatchError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("NewDense", 10, 7, 0)

	want := "autotab: NewDense: dimension mismatch on axis 0 (rows). Expected 10, got 7"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Axis != 0 {
		t.Errorf("Axis = %d, want 0", dimErr.Axis)
	}
}

func TestNotImplementedSentinel(t *testing.T) {
	err := Wrap(ErrNotImplemented, "CSR.ToTable")
	if !Is(err, ErrNotImplemented) {
		t.Error("wrapped sentinel should still match ErrNotImplemented")
	}

	// A type error must stay distinguishable from an unimplemented path.
	typeErr := NewTypeMismatchError("CSR.SetData", "*dataset.SparseMatrix", "string")
	if Is(typeErr, ErrNotImplemented) {
		t.Error("type mismatch must not match ErrNotImplemented")
	}
}

func TestWarnHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) {
		captured = append(captured, w)
	})
	defer SetWarningHandler(nil)

	Warn(NewStructureWarning("Seq.Slice", "non-contiguous row selection"))
	Warn(NewCastWarning("age", "utf8", "float32", "strconv"))

	if len(captured) != 2 {
		t.Fatalf("captured %d warnings, want 2", len(captured))
	}

	var sw *StructureWarning
	if !As(captured[0], &sw) {
		t.Error("first warning should be *StructureWarning")
	}
	var cw *CastWarning
	if !As(captured[1], &cw) {
		t.Error("second warning should be *CastWarning")
	}
	if cw.Column != "age" {
		t.Errorf("CastWarning.Column = %q, want %q", cw.Column, "age")
	}
}

func TestComputeErrorUnwrap(t *testing.T) {
	inner := New("partition exploded")
	err := NewComputeError("ptable.MapPartitions", 3, inner)

	if !Is(err, inner) {
		t.Error("ComputeError should unwrap to the engine failure")
	}

	var ce *ComputeError
	if !As(err, &ce) {
		t.Fatal("Error should be castable to *ComputeError")
	}
	if ce.Partition != 3 {
		t.Errorf("Partition = %d, want 3", ce.Partition)
	}
}
