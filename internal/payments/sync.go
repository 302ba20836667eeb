package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/graphbill/graphbill/internal/billing"
)

// Syncer copies provider objects into the property graph. Each Sync method
// fetches one object, upserts its node, and re-creates its links. The graph
// is the read model; the provider stays the source of truth.
type Syncer struct {
	api           ProviderAPI
	customers     *billing.CustomerRepository
	products      *billing.ProductRepository
	prices        *billing.PriceRepository
	subscriptions *billing.SubscriptionRepository
	invoices      *billing.InvoiceRepository
	log           *zap.Logger
}

// NewSyncer wires a syncer over the provider API and the billing
// repositories.
func NewSyncer(
	api ProviderAPI,
	customers *billing.CustomerRepository,
	products *billing.ProductRepository,
	prices *billing.PriceRepository,
	subscriptions *billing.SubscriptionRepository,
	invoices *billing.InvoiceRepository,
	log *zap.Logger,
) *Syncer {
	return &Syncer{
		api:           api,
		customers:     customers,
		products:      products,
		prices:        prices,
		subscriptions: subscriptions,
		invoices:      invoices,
		log:           log,
	}
}

// SyncCustomer fetches a customer from the provider and upserts its node.
func (s *Syncer) SyncCustomer(ctx context.Context, id string) error {
	cus, err := s.api.GetCustomer(id)
	if err != nil {
		return fmt.Errorf("fetching customer %s: %w", id, err)
	}
	if err := s.customers.Upsert(ctx, CustomerProps(cus)); err != nil {
		return fmt.Errorf("upserting customer %s: %w", id, err)
	}
	s.log.Info("synced customer", zap.String("id", id))
	return nil
}

// SyncProduct fetches a product from the provider and upserts its node.
func (s *Syncer) SyncProduct(ctx context.Context, id string) error {
	prod, err := s.api.GetProduct(id)
	if err != nil {
		return fmt.Errorf("fetching product %s: %w", id, err)
	}
	if err := s.products.Upsert(ctx, ProductProps(prod)); err != nil {
		return fmt.Errorf("upserting product %s: %w", id, err)
	}
	s.log.Info("synced product", zap.String("id", id))
	return nil
}

// SyncPrice fetches a price, upserts its node, and links it to its product.
func (s *Syncer) SyncPrice(ctx context.Context, id string) error {
	price, err := s.api.GetPrice(id)
	if err != nil {
		return fmt.Errorf("fetching price %s: %w", id, err)
	}
	if err := s.prices.Upsert(ctx, PriceProps(price)); err != nil {
		return fmt.Errorf("upserting price %s: %w", id, err)
	}
	if price.Product != nil {
		if err := s.SyncProduct(ctx, price.Product.ID); err != nil {
			return err
		}
		if err := s.prices.SetProduct(ctx, price.ID, price.Product.ID); err != nil {
			return fmt.Errorf("linking price %s to product: %w", id, err)
		}
	}
	s.log.Info("synced price", zap.String("id", id))
	return nil
}

// SyncSubscription fetches a subscription, upserts its node, links its
// customer, and links each item's price with the item's edge attributes.
func (s *Syncer) SyncSubscription(ctx context.Context, id string) error {
	sub, err := s.api.GetSubscription(id)
	if err != nil {
		return fmt.Errorf("fetching subscription %s: %w", id, err)
	}
	if err := s.subscriptions.Upsert(ctx, SubscriptionProps(sub)); err != nil {
		return fmt.Errorf("upserting subscription %s: %w", id, err)
	}
	if sub.Customer != nil {
		if err := s.SyncCustomer(ctx, sub.Customer.ID); err != nil {
			return err
		}
		if err := s.subscriptions.SetCustomer(ctx, sub.ID, sub.Customer.ID); err != nil {
			return fmt.Errorf("linking subscription %s to customer: %w", id, err)
		}
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price == nil {
				continue
			}
			if err := s.SyncPrice(ctx, item.Price.ID); err != nil {
				return err
			}
			if err := s.subscriptions.AddPrice(ctx, sub.ID, item.Price.ID, ItemProps(item)); err != nil {
				return fmt.Errorf("linking subscription %s to price %s: %w", id, item.Price.ID, err)
			}
		}
	}
	s.log.Info("synced subscription", zap.String("id", id))
	return nil
}

// SyncInvoice fetches an invoice, upserts its node, and links its customer
// and subscription.
func (s *Syncer) SyncInvoice(ctx context.Context, id string) error {
	inv, err := s.api.GetInvoice(id)
	if err != nil {
		return fmt.Errorf("fetching invoice %s: %w", id, err)
	}
	if err := s.invoices.Upsert(ctx, InvoiceProps(inv)); err != nil {
		return fmt.Errorf("upserting invoice %s: %w", id, err)
	}
	if inv.Customer != nil {
		if err := s.invoices.SetCustomer(ctx, inv.ID, inv.Customer.ID); err != nil {
			return fmt.Errorf("linking invoice %s to customer: %w", id, err)
		}
	}
	if inv.Subscription != nil {
		if err := s.invoices.SetSubscription(ctx, inv.ID, inv.Subscription.ID); err != nil {
			return fmt.Errorf("linking invoice %s to subscription: %w", id, err)
		}
	}
	s.log.Info("synced invoice", zap.String("id", id))
	return nil
}

// CustomerProps maps a provider customer to node properties.
func CustomerProps(c *stripe.Customer) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"email":      c.Email,
		"name":       c.Name,
		"currency":   string(c.Currency),
		"delinquent": c.Delinquent,
		"created":    c.Created,
	}
}

// ProductProps maps a provider product to node properties.
func ProductProps(p *stripe.Product) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"active":      p.Active,
		"created":     p.Created,
	}
}

// PriceProps maps a provider price to node properties.
func PriceProps(p *stripe.Price) map[string]any {
	props := map[string]any{
		"id":          p.ID,
		"currency":    string(p.Currency),
		"unit_amount": p.UnitAmount,
		"nickname":    p.Nickname,
		"active":      p.Active,
		"created":     p.Created,
	}
	if p.Recurring != nil {
		props["interval"] = string(p.Recurring.Interval)
	}
	return props
}

// SubscriptionProps maps a provider subscription to node properties.
func SubscriptionProps(s *stripe.Subscription) map[string]any {
	return map[string]any{
		"id":                   s.ID,
		"status":               string(s.Status),
		"cancel_at_period_end": s.CancelAtPeriodEnd,
		"current_period_start": s.CurrentPeriodStart,
		"current_period_end":   s.CurrentPeriodEnd,
		"created":              s.Created,
	}
}

// ItemProps maps a subscription item to edge attributes for the HAS_PRICE
// relationship.
func ItemProps(item *stripe.SubscriptionItem) map[string]any {
	return map[string]any{
		"item_id":  item.ID,
		"quantity": item.Quantity,
	}
}

// InvoiceProps maps a provider invoice to node properties.
func InvoiceProps(i *stripe.Invoice) map[string]any {
	return map[string]any{
		"id":         i.ID,
		"number":     i.Number,
		"status":     string(i.Status),
		"currency":   string(i.Currency),
		"amount_due": i.AmountDue,
		"total":      i.Total,
		"created":    i.Created,
	}
}
