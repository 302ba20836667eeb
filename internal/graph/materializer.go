package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const edgePropsSuffix = "_edgePropsCollection"

// Engine materializes query result rows against a registry. It is safe for
// concurrent use: every Materialize call owns its own identity map.
type Engine struct {
	registry *Registry
}

// NewEngine creates a materialization engine over the given registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Materialize reconstructs the deduplicated, nested root entities from an
// ordered list of result rows. Roots come back in the order their identity
// was first encountered. The first call seals the registry.
//
// A row missing its root column contributes no root but is otherwise
// processed for cross-linking. A mapper error aborts the whole call; no
// partial result is returned.
func (e *Engine) Materialize(rootToken string, rows []Row) ([]Entity, error) {
	meta, ok := e.registry.ResolveByToken(rootToken)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, rootToken)
	}
	e.registry.seal()

	m := &Materializer{
		registry: e.registry,
		identity: make(map[string]Entity),
		nodeRefs: make(map[string]Entity),
		relRefs:  make(map[string]Entity),
		rootSeen: make(map[string]bool),
	}

	for _, row := range rows {
		root, key, err := m.hydrate(meta, row, meta.Token)
		if err != nil {
			return nil, err
		}
		if root != nil && key != "" && !m.rootSeen[key] {
			m.rootSeen[key] = true
			m.roots = append(m.roots, root)
		}
		m.crossLink(row)
	}

	if m.roots == nil {
		return []Entity{}, nil
	}
	return m.roots, nil
}

// Materializer holds the per-call state of one materialization: the identity
// map and the node/relationship back-reference indexes. It is never shared
// across calls.
type Materializer struct {
	registry *Registry

	// identity maps "<token>#<id>" to the single entity instance for that
	// conceptual node or relationship.
	identity map[string]Entity

	// nodeRefs and relRefs index materialized entities by their underlying
	// engine-assigned element id, for relationship cross-linking.
	nodeRefs map[string]Entity
	relRefs  map[string]Entity

	roots    []Entity
	rootSeen map[string]bool
}

// HydrateOrMerge materializes the value at a column under an explicitly
// chosen type token. Mappers use this to hydrate values the declarative
// metadata cannot reach. The bool reports whether the column held a
// hydratable value.
func (m *Materializer) HydrateOrMerge(token string, row Row, column string) (Entity, bool, error) {
	meta, ok := m.registry.ResolveByToken(token)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownType, token)
	}
	entity, _, err := m.hydrate(meta, row, column)
	return entity, entity != nil, err
}

// hydrate materializes the node or relationship at a column, reusing the
// existing instance when its identity was seen before (first-seen property
// values win), then resolves the entity's declared and pattern-discovered
// children relative to the column. It returns the entity and its identity
// key, or nils when the column is absent or holds no graph value.
func (m *Materializer) hydrate(meta *TypeMeta, row Row, column string) (Entity, string, error) {
	value, ok := row.Get(column)
	if !ok || value == nil {
		return nil, "", nil
	}

	var (
		entity Entity
		key    string
	)

	switch v := value.(type) {
	case neo4j.Node:
		key = identityKey(meta.Token, nodeID(v))
		if existing, seen := m.identity[key]; seen {
			entity = existing
		} else {
			mapped, err := meta.Mapper(v.Props, row, m, column)
			if err != nil {
				return nil, "", err
			}
			m.identity[key] = mapped
			entity = mapped
		}
		m.nodeRefs[elementRef(v.ElementId, v.Id)] = entity

	case neo4j.Relationship:
		id := relationshipID(v)
		key = identityKey(meta.Token, id)
		if existing, seen := m.identity[key]; seen {
			entity = existing
		} else {
			// Fold the relationship type and identity into the bag the
			// mapper sees; the raw driver properties stay untouched.
			bag := make(map[string]any, len(v.Props)+2)
			for k, p := range v.Props {
				bag[k] = p
			}
			bag["id"] = id
			bag["type"] = v.Type
			mapped, err := meta.Mapper(bag, row, m, column)
			if err != nil {
				return nil, "", err
			}
			m.identity[key] = mapped
			entity = mapped
		}
		m.relRefs[elementRef(v.ElementId, v.Id)] = entity

	default:
		// Primitive, array, or null: not this engine's concern.
		return nil, "", nil
	}

	if err := m.resolveChildren(meta, row, column, entity); err != nil {
		return nil, "", err
	}

	return entity, key, nil
}

// resolveChildren wires every declared and pattern-discovered child of the
// entity at the given column, then folds any edge-property collections. It
// runs on every row occurrence of the entity: single assignments stick to
// the first row that provided them, many-valued fields keep accumulating.
func (m *Materializer) resolveChildren(meta *TypeMeta, row Row, column string, entity Entity) error {
	for _, token := range meta.SingleChildren {
		childMeta, ok := m.registry.ResolveByToken(token)
		if !ok {
			continue
		}
		child, _, err := m.hydrate(childMeta, row, column+"_"+token)
		if err != nil {
			return err
		}
		if child != nil {
			setIfAbsent(entity, token, child)
		}
	}

	for _, token := range meta.ManyChildren {
		childMeta, ok := m.registry.ResolveByToken(token)
		if !ok {
			continue
		}
		child, _, err := m.hydrate(childMeta, row, column+"_"+token)
		if err != nil {
			return err
		}
		if child != nil {
			appendUnique(entity, token, child)
		}
	}

	for _, pattern := range meta.DynamicSingleChildPatterns {
		matches, err := ResolvePattern(m.registry, pattern, column, row.Columns())
		if err != nil {
			return err
		}
		for _, match := range matches {
			child, err := m.hydrateDynamic(match, row)
			if err != nil {
				return err
			}
			if child != nil {
				setIfAbsent(entity, match.Segment, child)
			}
		}
	}

	for _, pattern := range meta.DynamicManyChildPatterns {
		matches, err := ResolvePattern(m.registry, pattern, column, row.Columns())
		if err != nil {
			return err
		}
		for _, match := range matches {
			child, err := m.hydrateDynamic(match, row)
			if err != nil {
				return err
			}
			if child != nil {
				appendUnique(entity, match.Segment, child)
			}
		}
	}

	m.foldEdgeProps(row, column, entity)

	return nil
}

// hydrateDynamic resolves one dynamic pattern match through the fallback
// chain: segment as a registered token, then the node's labels, then a
// generic untyped entity built straight from the node's property bag.
func (m *Materializer) hydrateDynamic(match Match, row Row) (Entity, error) {
	if match.Meta != nil {
		entity, _, err := m.hydrate(match.Meta, row, match.Column)
		return entity, err
	}

	value, ok := row.Get(match.Column)
	if !ok || value == nil {
		return nil, nil
	}
	node, ok := NodeValue(value)
	if !ok {
		return nil, nil
	}

	for _, label := range node.Labels {
		if meta, found := m.registry.ResolveByLabel(label); found {
			entity, _, err := m.hydrate(meta, row, match.Column)
			return entity, err
		}
	}

	return genericEntity(node), nil
}

// crossLink assigns startNode/endNode back-references on every relationship
// entity in the row whose endpoints were already materialized. Unresolvable
// endpoints stay unset; this is best-effort, not an error.
func (m *Materializer) crossLink(row Row) {
	for _, column := range row.Columns() {
		value, _ := row.Get(column)
		rel, ok := RelationshipValue(value)
		if !ok {
			continue
		}
		entity, materialized := m.relRefs[elementRef(rel.ElementId, rel.Id)]
		if !materialized {
			continue
		}
		if start, found := m.nodeRefs[elementRef(rel.StartElementId, rel.StartId)]; found {
			setIfAbsent(entity, "startNode", start)
		}
		if end, found := m.nodeRefs[elementRef(rel.EndElementId, rel.EndId)]; found {
			setIfAbsent(entity, "endNode", end)
		}
	}
}

// foldEdgeProps merges "<column>_<relName>_edgePropsCollection" columns into
// a "<relName>EdgeProps" map field on the entity, keyed by node id. Entries
// accumulate across rows; the first edge seen for a node id wins.
func (m *Materializer) foldEdgeProps(row Row, column string, entity Entity) {
	prefix := column + "_"
	for _, col := range row.Columns() {
		if !strings.HasPrefix(col, prefix) || !strings.HasSuffix(col, edgePropsSuffix) {
			continue
		}
		relName := col[len(prefix) : len(col)-len(edgePropsSuffix)]
		if relName == "" || strings.Contains(relName, "_") {
			// Belongs to a descendant column, not this entity.
			continue
		}

		value, ok := row.Get(col)
		if !ok {
			continue
		}
		pairs, ok := value.([]any)
		if !ok {
			continue
		}

		field := relName + "EdgeProps"
		folded, _ := entity[field].(map[string]any)
		if folded == nil {
			folded = make(map[string]any)
			entity[field] = folded
		}

		for _, item := range pairs {
			pair, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key := idString(pair["nodeId"])
			if key == "" {
				continue
			}
			if _, exists := folded[key]; !exists {
				folded[key] = pair["edgeProps"]
			}
		}
	}
}

// genericEntity builds a minimal untyped entity from a node's property bag
// and labels. No relationship wiring happens for generic entities.
func genericEntity(node neo4j.Node) Entity {
	entity := make(Entity, len(node.Props)+2)
	for k, v := range node.Props {
		entity[k] = v
	}
	if _, ok := entity["id"]; !ok {
		entity["id"] = nodeID(node)
	}
	entity["labels"] = node.Labels
	return entity
}

func identityKey(token, id string) string {
	return token + "#" + id
}

// nodeID prefers the business id from the property bag, then the
// engine-assigned element id.
func nodeID(node neo4j.Node) string {
	if id := idString(node.Props["id"]); id != "" {
		return id
	}
	return elementRef(node.ElementId, node.Id)
}

// relationshipID prefers an explicit identity in the property bag and
// synthesizes one from the element id otherwise.
func relationshipID(rel neo4j.Relationship) string {
	if id := idString(rel.Props["id"]); id != "" {
		return id
	}
	return elementRef(rel.ElementId, rel.Id)
}

func elementRef(elementID string, legacyID int64) string {
	if elementID != "" {
		return elementID
	}
	return strconv.FormatInt(legacyID, 10)
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func setIfAbsent(entity Entity, field string, value any) {
	if _, exists := entity[field]; !exists {
		entity[field] = value
	}
}

// appendUnique appends a child to a slice field unless an entity with the
// same id is already present.
func appendUnique(entity Entity, field string, child Entity) {
	existing, _ := entity[field].([]Entity)
	childID := idString(child["id"])
	for _, e := range existing {
		if childID != "" && idString(e["id"]) == childID {
			return
		}
	}
	entity[field] = append(existing, child)
}
