package billing

import "errors"

var (
	// ErrNotFound is returned by Find operations when no record matching
	// the criteria exists in the graph.
	ErrNotFound = errors.New("record not found")

	// ErrMissingID is returned when an upsert property bag has no id.
	ErrMissingID = errors.New("property bag is missing an id")
)
