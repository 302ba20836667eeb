// Package payments wraps the payment provider's SDK: thin services that
// fetch provider objects and upsert them into the property graph, plus
// webhook payload verification.
package payments

import (
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// ProviderAPI is the subset of the provider SDK the sync services use,
// kept as an interface so tests can substitute a fake.
type ProviderAPI interface {
	GetCustomer(id string) (*stripe.Customer, error)
	GetProduct(id string) (*stripe.Product, error)
	GetPrice(id string) (*stripe.Price, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	GetInvoice(id string) (*stripe.Invoice, error)
}

// StripeAPI implements ProviderAPI over the official client.
type StripeAPI struct {
	api *client.API
}

// NewStripeAPI creates a provider client with the given secret key.
func NewStripeAPI(apiKey string) *StripeAPI {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeAPI{api: api}
}

func (s *StripeAPI) GetCustomer(id string) (*stripe.Customer, error) {
	return s.api.Customers.Get(id, nil)
}

func (s *StripeAPI) GetProduct(id string) (*stripe.Product, error) {
	return s.api.Products.Get(id, nil)
}

func (s *StripeAPI) GetPrice(id string) (*stripe.Price, error) {
	return s.api.Prices.Get(id, nil)
}

func (s *StripeAPI) GetSubscription(id string) (*stripe.Subscription, error) {
	return s.api.Subscriptions.Get(id, nil)
}

func (s *StripeAPI) GetInvoice(id string) (*stripe.Invoice, error) {
	return s.api.Invoices.Get(id, nil)
}

// VerifyWebhook checks the provider's signature header and decodes the
// event payload.
func VerifyWebhook(payload []byte, signatureHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, secret)
}
