// Package autotab provides the typed tabular dataset layer of an AutoML
// pipeline: multiple storage backends behind one contract, a column-role
// system driving dtype coercion, and a conversion graph that moves data
// between backends without losing metadata.
//
// # Backends
//
//   - dataset.Dense: one contiguous numeric buffer (gonum mat.Dense) with a
//     single unified dtype
//   - dataset.CSR: sparse-compressed numeric buffer
//   - dataset.Table: columnar Arrow record with per-column dtypes
//   - dataset.Partitioned: partitioned columnar table with a per-row label
//     index
//   - dataset.Seq: sequential (grouped) overlay on a table
//
// # Quick start
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/YuminosukeSato/autotab/dataset"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{
//	        1, 10,
//	        2, 20,
//	        3, 30,
//	        4, 40,
//	    })
//	    ds, err := dataset.NewDense(X, []string{"age", "income"}, nil,
//	        dataset.Task{Name: dataset.TaskReg}, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    tbl, err := ds.ToTable()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = tbl
//	}
//
// # Packages
//
//   - dataset: the backends, roles, attributes and the conversion graph
//   - frame: low-level helpers over Apache Arrow records
//   - ptable: the partitioned-table primitive and its row index map
//   - pkg/errors: typed errors with stack traces and the warning system
//   - pkg/log: structured logging setup
//   - core/parallel: parallel processing utilities
package autotab
