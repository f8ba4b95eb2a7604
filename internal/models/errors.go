package models

import "errors"

var (
	// ErrDialectUnrecognized means no grammar is registered for the label.
	ErrDialectUnrecognized = errors.New("dialect not recognized")
	// ErrMalformedAmount means an amount matched but did not parse as a decimal.
	ErrMalformedAmount = errors.New("malformed amount")
	// ErrCollaboratorFailure wraps OCR or classifier errors for a single file.
	ErrCollaboratorFailure = errors.New("collaborator failure")
	// ErrAggregationInconsistency means stored totals disagree with stored transactions.
	ErrAggregationInconsistency = errors.New("aggregation inconsistency")
	// ErrBatchNotFound is returned by stores for unknown upload IDs.
	ErrBatchNotFound = errors.New("batch not found")
)
