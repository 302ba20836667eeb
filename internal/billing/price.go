package billing

import (
	"context"

	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/store"
)

func priceTypeMeta() *graph.TypeMeta {
	return &graph.TypeMeta{
		Token:          TokenPrice,
		Label:          LabelPrice,
		Mapper:         graph.PropertyMapper(),
		SingleChildren: []string{TokenProduct},
	}
}

const priceByIDQuery = `
MATCH (price:Price {id: $id})
OPTIONAL MATCH (price)-[:FOR_PRODUCT]->(price_product:Product)
RETURN price, price_product`

const priceListQuery = `
MATCH (price:Price)
OPTIONAL MATCH (price)-[:FOR_PRODUCT]->(price_product:Product)
RETURN price, price_product
ORDER BY price.created DESC
SKIP $offset LIMIT $limit`

// PriceRepository reads and writes Price nodes and their product link.
type PriceRepository struct {
	repository
}

// NewPriceRepository creates a repository over the given runner and
// materialization engine.
func NewPriceRepository(runner store.Runner, engine *graph.Engine) *PriceRepository {
	return &PriceRepository{repository{
		runner: runner,
		engine: engine,
		token:  TokenPrice,
		label:  LabelPrice,
	}}
}

// FindByID returns a price with its product embedded.
func (r *PriceRepository) FindByID(ctx context.Context, id string) (graph.Entity, error) {
	return r.one(ctx, priceByIDQuery, map[string]any{"id": id})
}

// List returns a page of prices, newest first, each with its product.
func (r *PriceRepository) List(ctx context.Context, limit, offset int) ([]graph.Entity, error) {
	return r.many(ctx, priceListQuery, map[string]any{"limit": limit, "offset": offset})
}

// Upsert merges the price node by id.
func (r *PriceRepository) Upsert(ctx context.Context, props map[string]any) error {
	return r.upsert(ctx, props)
}

// SetProduct links a price to its product.
func (r *PriceRepository) SetProduct(ctx context.Context, priceID, productID string) error {
	return r.relate(ctx, LabelPrice, priceID, "FOR_PRODUCT", LabelProduct, productID, nil)
}

// Delete detaches and removes the price node.
func (r *PriceRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
