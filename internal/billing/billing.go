// Package billing holds the per-entity feature modules of the billing
// backend: customers, products, prices, subscriptions, and invoices synced
// from the payment provider into the property graph. Each module registers
// its type metadata with the graph registry at startup and exposes a
// repository that queries the graph and materializes the results.
package billing

import (
	"github.com/graphbill/graphbill/internal/graph"
)

// Entity type tokens. The token doubles as the column-name convention the
// repositories' queries follow.
const (
	TokenCustomer     = "customer"
	TokenProduct      = "product"
	TokenPrice        = "price"
	TokenSubscription = "subscription"
	TokenInvoice      = "invoice"
)

// Graph labels per entity.
const (
	LabelCustomer     = "Customer"
	LabelProduct      = "Product"
	LabelPrice        = "Price"
	LabelSubscription = "Subscription"
	LabelInvoice      = "Invoice"
)

// RegisterTypes registers every billing entity type. Call during
// initialization, before any materialize call seals the registry.
func RegisterTypes(reg *graph.Registry) error {
	for _, meta := range []*graph.TypeMeta{
		customerTypeMeta(),
		productTypeMeta(),
		priceTypeMeta(),
		subscriptionTypeMeta(),
		invoiceTypeMeta(),
	} {
		if err := reg.Register(meta); err != nil {
			return err
		}
	}
	return nil
}

// Labels returns every graph label the billing modules use, for constraint
// bootstrap.
func Labels() []string {
	return []string{LabelCustomer, LabelProduct, LabelPrice, LabelSubscription, LabelInvoice}
}
