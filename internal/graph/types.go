// Package graph materializes flat graph-query result rows into typed,
// deduplicated, nested entity graphs. Feature modules register their entity
// types at startup; at query time the materializer reconstructs the object
// graph a query returned, resolving statically declared relationships as
// well as relationships whose target type is only discoverable per row from
// a column-name pattern or from the node's own labels.
package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Entity is a materialized graph record: a mapping from field name to
// primitive, nested entity, or slice of nested entities.
type Entity map[string]any

// Mapper converts a raw property bag into an entity. The bag must not be
// mutated. Mappers receive the full row and the originating column so they
// can pull sibling values or hydrate further via the materializer.
type Mapper func(props map[string]any, row Row, m *Materializer, column string) (Entity, error)

// TypeMeta describes one registered entity type.
type TypeMeta struct {
	// Token is the short lookup key, unique across the registry. It doubles
	// as the column name convention: a root column is named after the root
	// type's token, a child column is "<parentColumn>_<childToken>".
	Token string

	// Label is the graph label used to recognize a node value when its type
	// is not known from the column name, only from the data.
	Label string

	// Mapper builds the typed entity from the raw property bag.
	Mapper Mapper

	// SingleChildren lists tokens embedded as a single nested entity when
	// the "<parentColumn>_<childToken>" column is present.
	SingleChildren []string

	// ManyChildren lists tokens collected into a slice field, deduplicated
	// by the child's id.
	ManyChildren []string

	// DynamicSingleChildPatterns and DynamicManyChildPatterns hold patterns
	// with one "*" placeholder for the dynamic segment. The matched segment
	// names the field on the parent; the child's type is resolved per row
	// from the segment (as a token), then from the node's labels, then
	// falls back to a generic untyped entity.
	DynamicSingleChildPatterns []string
	DynamicManyChildPatterns   []string
}

// Row is one ordered record produced by a graph query. Column order follows
// the query's RETURN clause; the materializer reports pattern matches in
// that order.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from ordered column names and their values.
func NewRow(keys []string, values map[string]any) Row {
	return Row{keys: keys, values: values}
}

// Get returns the value at a column, if present.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the row's column names in query order.
func (r Row) Columns() []string {
	return r.keys
}

// NodeValue classifies a row value as a graph node.
func NodeValue(v any) (neo4j.Node, bool) {
	n, ok := v.(neo4j.Node)
	return n, ok
}

// RelationshipValue classifies a row value as a graph relationship.
func RelationshipValue(v any) (neo4j.Relationship, bool) {
	r, ok := v.(neo4j.Relationship)
	return r, ok
}

// PropertyMapper returns a Mapper that copies the raw property bag into a
// new entity unchanged. Feature modules that need no field transformation
// register this directly.
func PropertyMapper() Mapper {
	return func(props map[string]any, _ Row, _ *Materializer, _ string) (Entity, error) {
		entity := make(Entity, len(props))
		for k, v := range props {
			entity[k] = v
		}
		return entity, nil
	}
}
