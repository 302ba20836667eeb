package billing

import (
	"context"

	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/store"
)

func invoiceTypeMeta() *graph.TypeMeta {
	return &graph.TypeMeta{
		Token:          TokenInvoice,
		Label:          LabelInvoice,
		Mapper:         graph.PropertyMapper(),
		SingleChildren: []string{TokenCustomer, TokenSubscription},
		// Invoice queries may return extra related columns the metadata does
		// not fix up front (credit notes, charges, one-off line targets);
		// the dynamic pattern picks them up per row.
		DynamicSingleChildPatterns: []string{"*"},
	}
}

const invoiceByIDQuery = `
MATCH (invoice:Invoice {id: $id})
OPTIONAL MATCH (invoice)-[:FOR_CUSTOMER]->(invoice_customer:Customer)
OPTIONAL MATCH (invoice)-[:FOR_SUBSCRIPTION]->(invoice_subscription:Subscription)
RETURN invoice, invoice_customer, invoice_subscription`

const invoiceListQuery = `
MATCH (invoice:Invoice)
OPTIONAL MATCH (invoice)-[:FOR_CUSTOMER]->(invoice_customer:Customer)
RETURN invoice, invoice_customer
ORDER BY invoice.created DESC
SKIP $offset LIMIT $limit`

const invoicesByCustomerQuery = `
MATCH (invoice:Invoice)-[:FOR_CUSTOMER]->(:Customer {id: $customerId})
RETURN invoice
ORDER BY invoice.created DESC`

// InvoiceRepository reads and writes Invoice nodes and their links.
type InvoiceRepository struct {
	repository
}

// NewInvoiceRepository creates a repository over the given runner and
// materialization engine.
func NewInvoiceRepository(runner store.Runner, engine *graph.Engine) *InvoiceRepository {
	return &InvoiceRepository{repository{
		runner: runner,
		engine: engine,
		token:  TokenInvoice,
		label:  LabelInvoice,
	}}
}

// FindByID returns an invoice with its customer and subscription embedded.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (graph.Entity, error) {
	return r.one(ctx, invoiceByIDQuery, map[string]any{"id": id})
}

// List returns a page of invoices, newest first.
func (r *InvoiceRepository) List(ctx context.Context, limit, offset int) ([]graph.Entity, error) {
	return r.many(ctx, invoiceListQuery, map[string]any{"limit": limit, "offset": offset})
}

// ListByCustomer returns every invoice linked to a customer, newest first.
func (r *InvoiceRepository) ListByCustomer(ctx context.Context, customerID string) ([]graph.Entity, error) {
	return r.many(ctx, invoicesByCustomerQuery, map[string]any{"customerId": customerID})
}

// Upsert merges the invoice node by id.
func (r *InvoiceRepository) Upsert(ctx context.Context, props map[string]any) error {
	return r.upsert(ctx, props)
}

// SetCustomer links an invoice to its customer.
func (r *InvoiceRepository) SetCustomer(ctx context.Context, invoiceID, customerID string) error {
	return r.relate(ctx, LabelInvoice, invoiceID, "FOR_CUSTOMER", LabelCustomer, customerID, nil)
}

// SetSubscription links an invoice to the subscription it bills.
func (r *InvoiceRepository) SetSubscription(ctx context.Context, invoiceID, subscriptionID string) error {
	return r.relate(ctx, LabelInvoice, invoiceID, "FOR_SUBSCRIPTION", LabelSubscription, subscriptionID, nil)
}

// Delete detaches and removes the invoice node.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
