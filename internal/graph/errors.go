package graph

import "errors"

var (
	// ErrUnknownType is returned when a materialize call names a root type
	// token that was never registered.
	ErrUnknownType = errors.New("unknown entity type")

	// ErrRegistrySealed is returned by Register once serving has begun.
	// Registration must complete during initialization, before the first
	// materialize call.
	ErrRegistrySealed = errors.New("type registry is sealed")

	// ErrInvalidMetadata is returned when a TypeMeta is missing its token,
	// label, or mapper.
	ErrInvalidMetadata = errors.New("invalid type metadata")

	// ErrInvalidPattern is returned when a dynamic child pattern does not
	// contain exactly one "*" placeholder.
	ErrInvalidPattern = errors.New("invalid dynamic child pattern")
)
