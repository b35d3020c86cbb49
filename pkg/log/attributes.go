// Package log defines standard attribute keys for dataset operations.
//
// Using these keys keeps log lines filterable across the library: every
// backend logs the same names for the same facts (which backend, how many
// rows, which operation).
package log

const (
	// DatasetKindKey identifies the backend of a dataset.
	// Values: "dense", "sparse", "table", "partitioned", "seq".
	DatasetKindKey = "dataset.kind"

	// OperationKey names the dataset operation being performed.
	// Examples: "set_data", "to_dense", "reindex", "concat".
	OperationKey = "dataset.operation"

	// RowsKey and ColsKey carry the shape involved in the operation.
	RowsKey = "data.rows"
	ColsKey = "data.cols"

	// PartitionsKey is the partition count of a distributed table.
	PartitionsKey = "data.partitions"

	// FeatureKey names a single column when an operation is per-column,
	// e.g. a dtype cast or datetime parse.
	FeatureKey = "data.feature"
)
