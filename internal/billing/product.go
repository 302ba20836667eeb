package billing

import (
	"context"

	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/store"
)

func productTypeMeta() *graph.TypeMeta {
	return &graph.TypeMeta{
		Token:  TokenProduct,
		Label:  LabelProduct,
		Mapper: graph.PropertyMapper(),
	}
}

const productByIDQuery = `
MATCH (product:Product {id: $id})
RETURN product`

const productListQuery = `
MATCH (product:Product)
RETURN product
ORDER BY product.created DESC
SKIP $offset LIMIT $limit`

// ProductRepository reads and writes Product nodes.
type ProductRepository struct {
	repository
}

// NewProductRepository creates a repository over the given runner and
// materialization engine.
func NewProductRepository(runner store.Runner, engine *graph.Engine) *ProductRepository {
	return &ProductRepository{repository{
		runner: runner,
		engine: engine,
		token:  TokenProduct,
		label:  LabelProduct,
	}}
}

// FindByID returns a single product.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (graph.Entity, error) {
	return r.one(ctx, productByIDQuery, map[string]any{"id": id})
}

// List returns a page of products, newest first.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]graph.Entity, error) {
	return r.many(ctx, productListQuery, map[string]any{"limit": limit, "offset": offset})
}

// Upsert merges the product node by id.
func (r *ProductRepository) Upsert(ctx context.Context, props map[string]any) error {
	return r.upsert(ctx, props)
}

// Delete detaches and removes the product node.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
