package billing

import (
	"context"

	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/store"
)

func customerTypeMeta() *graph.TypeMeta {
	return &graph.TypeMeta{
		Token:        TokenCustomer,
		Label:        LabelCustomer,
		Mapper:       graph.PropertyMapper(),
		ManyChildren: []string{TokenSubscription},
	}
}

const customerByIDQuery = `
MATCH (customer:Customer {id: $id})
OPTIONAL MATCH (customer)<-[:FOR_CUSTOMER]-(customer_subscription:Subscription)
OPTIONAL MATCH (customer_subscription)-[:HAS_PRICE]->(customer_subscription_price:Price)
RETURN customer, customer_subscription, customer_subscription_price`

const customerListQuery = `
MATCH (customer:Customer)
RETURN customer
ORDER BY customer.created DESC
SKIP $offset LIMIT $limit`

// CustomerRepository reads and writes Customer nodes.
type CustomerRepository struct {
	repository
}

// NewCustomerRepository creates a repository over the given runner and
// materialization engine.
func NewCustomerRepository(runner store.Runner, engine *graph.Engine) *CustomerRepository {
	return &CustomerRepository{repository{
		runner: runner,
		engine: engine,
		token:  TokenCustomer,
		label:  LabelCustomer,
	}}
}

// FindByID returns a customer with its subscriptions and their prices.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (graph.Entity, error) {
	return r.one(ctx, customerByIDQuery, map[string]any{"id": id})
}

// List returns a page of customers, newest first.
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]graph.Entity, error) {
	return r.many(ctx, customerListQuery, map[string]any{"limit": limit, "offset": offset})
}

// Upsert merges the customer node by id.
func (r *CustomerRepository) Upsert(ctx context.Context, props map[string]any) error {
	return r.upsert(ctx, props)
}

// Delete detaches and removes the customer node.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
