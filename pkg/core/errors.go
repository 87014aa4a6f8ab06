package core

import "errors"

// Failure taxonomy. All failures are scoped to a single dataset; none of them
// aborts processing of the remaining datasets.
var (
	// ErrMissingDataset indicates a referenced snapshot could not be read.
	// Callers treat the dataset as empty and skip generation that strictly
	// requires it.
	ErrMissingDataset = errors.New("dataset missing or unreadable")

	// ErrUnparsableWatermark indicates a date or marker value did not match
	// the expected format. Callers fall back to a conservative default.
	ErrUnparsableWatermark = errors.New("unparsable watermark value")

	// ErrSchemaMismatch indicates new rows and the existing snapshot disagree
	// on columns. Reconciled during merge, never fatal.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrPersistenceFailure indicates a storage write failed. Surfaced to the
	// caller for that dataset only.
	ErrPersistenceFailure = errors.New("persistence failure")
)
