package billing

import (
	"context"

	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/store"
)

// repository is the shared base of the per-entity repositories: it runs a
// query and materializes the rows under the entity's root token. Write
// operations go through gocypher; the hydration queries are per-entity
// Cypher constants because their OPTIONAL MATCH chains are what produce the
// column-naming convention the materializer depends on.
type repository struct {
	runner store.Runner
	engine *graph.Engine
	token  string
	label  string
}

// many runs a query and returns every materialized root entity.
func (r repository) many(ctx context.Context, query string, params map[string]any) ([]graph.Entity, error) {
	rows, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return r.engine.Materialize(r.token, rows)
}

// one runs a query expected to yield a single root entity.
func (r repository) one(ctx context.Context, query string, params map[string]any) (graph.Entity, error) {
	entities, err := r.many(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNotFound
	}
	return entities[0], nil
}

// upsert merges the entity's node by business id and sets the remaining
// properties.
func (r repository) upsert(ctx context.Context, props map[string]any) error {
	id, ok := props["id"]
	if !ok {
		return ErrMissingID
	}

	set := make(map[string]any, len(props))
	for k, v := range props {
		if k != "id" {
			set["n."+k] = v
		}
	}

	qb := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", r.label).WithProperties(map[string]any{"id": id}))
	if len(set) > 0 {
		qb = qb.Set(set)
	}
	query, params, err := qb.Return("n").Build()
	if err != nil {
		return err
	}

	_, err = r.runner.Run(ctx, query, params)
	return err
}

// delete removes the entity's node and any relationships attached to it.
func (r repository) delete(ctx context.Context, id string) error {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.label).WithProperties(map[string]any{"id": id})).
		DetachDelete("n").
		Build()
	if err != nil {
		return err
	}

	_, err = r.runner.Run(ctx, query, params)
	return err
}

// relate creates a directed relationship between two existing nodes.
func (r repository) relate(ctx context.Context, fromLabel, fromID, relType, toLabel, toID string, relProps map[string]any) error {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", fromLabel).WithProperties(map[string]any{"id": fromID})).
		Match(gocypher.N("b", toLabel).WithProperties(map[string]any{"id": toID})).
		Create(
			gocypher.N("a", ""),
			gocypher.R("r", relType).To().WithProperties(relProps),
			gocypher.N("b", ""),
		).
		Build()
	if err != nil {
		return err
	}

	_, err = r.runner.Run(ctx, query, params)
	return err
}
