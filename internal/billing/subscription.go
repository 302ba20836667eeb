package billing

import (
	"context"
	"strings"

	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/store"
)

func subscriptionTypeMeta() *graph.TypeMeta {
	return &graph.TypeMeta{
		Token:          TokenSubscription,
		Label:          LabelSubscription,
		Mapper:         subscriptionMapper,
		SingleChildren: []string{TokenCustomer},
		ManyChildren:   []string{TokenPrice},
	}
}

// subscriptionMapper normalizes the provider's status casing; everything
// else passes through untouched.
func subscriptionMapper(props map[string]any, _ graph.Row, _ *graph.Materializer, _ string) (graph.Entity, error) {
	entity := make(graph.Entity, len(props))
	for k, v := range props {
		entity[k] = v
	}
	if status, ok := entity["status"].(string); ok {
		entity["status"] = strings.ToLower(status)
	}
	return entity, nil
}

// The items edge carries per-price attributes (quantity, position); the
// collect column folds them into an itemsEdgeProps map on the subscription.
const subscriptionByIDQuery = `
MATCH (subscription:Subscription {id: $id})
OPTIONAL MATCH (subscription)-[:FOR_CUSTOMER]->(subscription_customer:Customer)
OPTIONAL MATCH (subscription)-[item:HAS_PRICE]->(subscription_price:Price)
OPTIONAL MATCH (subscription_price)-[:FOR_PRODUCT]->(subscription_price_product:Product)
RETURN subscription, subscription_customer, subscription_price, subscription_price_product,
       collect({nodeId: subscription_price.id, edgeProps: properties(item)}) AS subscription_items_edgePropsCollection`

const subscriptionListQuery = `
MATCH (subscription:Subscription)
OPTIONAL MATCH (subscription)-[:FOR_CUSTOMER]->(subscription_customer:Customer)
OPTIONAL MATCH (subscription)-[:HAS_PRICE]->(subscription_price:Price)
RETURN subscription, subscription_customer, subscription_price
ORDER BY subscription.created DESC
SKIP $offset LIMIT $limit`

// SubscriptionRepository reads and writes Subscription nodes, their
// customer and price links, and the per-item edge attributes.
type SubscriptionRepository struct {
	repository
}

// NewSubscriptionRepository creates a repository over the given runner and
// materialization engine.
func NewSubscriptionRepository(runner store.Runner, engine *graph.Engine) *SubscriptionRepository {
	return &SubscriptionRepository{repository{
		runner: runner,
		engine: engine,
		token:  TokenSubscription,
		label:  LabelSubscription,
	}}
}

// FindByID returns a subscription with its customer, prices, products, and
// per-item edge attributes.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (graph.Entity, error) {
	return r.one(ctx, subscriptionByIDQuery, map[string]any{"id": id})
}

// List returns a page of subscriptions, newest first.
func (r *SubscriptionRepository) List(ctx context.Context, limit, offset int) ([]graph.Entity, error) {
	return r.many(ctx, subscriptionListQuery, map[string]any{"limit": limit, "offset": offset})
}

// Upsert merges the subscription node by id.
func (r *SubscriptionRepository) Upsert(ctx context.Context, props map[string]any) error {
	return r.upsert(ctx, props)
}

// SetCustomer links a subscription to its customer.
func (r *SubscriptionRepository) SetCustomer(ctx context.Context, subscriptionID, customerID string) error {
	return r.relate(ctx, LabelSubscription, subscriptionID, "FOR_CUSTOMER", LabelCustomer, customerID, nil)
}

// AddPrice links a subscription to a price with per-item edge attributes.
func (r *SubscriptionRepository) AddPrice(ctx context.Context, subscriptionID, priceID string, itemProps map[string]any) error {
	return r.relate(ctx, LabelSubscription, subscriptionID, "HAS_PRICE", LabelPrice, priceID, itemProps)
}

// Delete detaches and removes the subscription node.
func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
