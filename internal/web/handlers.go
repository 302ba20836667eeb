package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/graphbill/graphbill/internal/billing"
	"github.com/graphbill/graphbill/internal/graph"
	"github.com/graphbill/graphbill/internal/payments"
	"github.com/graphbill/graphbill/internal/webhooks"
)

const (
	defaultPageLimit = 25
	maxPageLimit     = 100
	maxWebhookBody   = 1 << 16
)

// API holds the HTTP handlers over the billing repositories and the webhook
// dispatcher.
type API struct {
	customers     *billing.CustomerRepository
	products      *billing.ProductRepository
	prices        *billing.PriceRepository
	subscriptions *billing.SubscriptionRepository
	invoices      *billing.InvoiceRepository

	dispatcher    *webhooks.Dispatcher
	webhookSecret string
	limiter       *RateLimiter

	log *zap.Logger
}

// WithRateLimiter applies rl to the /api routes. The webhook endpoint is
// never limited; the provider retries on 429 and that churns the retry
// budget for nothing.
func (a *API) WithRateLimiter(rl *RateLimiter) *API {
	a.limiter = rl
	return a
}

// NewAPI wires the HTTP surface.
func NewAPI(
	customers *billing.CustomerRepository,
	products *billing.ProductRepository,
	prices *billing.PriceRepository,
	subscriptions *billing.SubscriptionRepository,
	invoices *billing.InvoiceRepository,
	dispatcher *webhooks.Dispatcher,
	webhookSecret string,
	log *zap.Logger,
) *API {
	return &API{
		customers:     customers,
		products:      products,
		prices:        prices,
		subscriptions: subscriptions,
		invoices:      invoices,
		dispatcher:    dispatcher,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// Routes builds the router with the standard middleware chain.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(a.log))
	r.Use(Recovery(a.log))

	r.Post("/webhooks/provider", a.handleWebhook)

	r.Route("/api", func(r chi.Router) {
		if a.limiter != nil {
			r.Use(a.limiter.Middleware(a.log))
		}
		r.Get("/customers", a.listCustomers)
		r.Get("/customers/{id}", a.getCustomer)
		r.Get("/customers/{id}/invoices", a.listCustomerInvoices)
		r.Get("/products", a.listProducts)
		r.Get("/products/{id}", a.getProduct)
		r.Get("/prices", a.listPrices)
		r.Get("/prices/{id}", a.getPrice)
		r.Get("/subscriptions", a.listSubscriptions)
		r.Get("/subscriptions/{id}", a.getSubscription)
		r.Get("/invoices", a.listInvoices)
		r.Get("/invoices/{id}", a.getInvoice)
	})

	return r
}

func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid Payload", "could not read request body")
		return
	}

	event, err := payments.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"), a.webhookSecret)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid Signature", "")
		return
	}

	if err := a.dispatcher.Dispatch(r.Context(), event); err != nil {
		if errors.Is(err, webhooks.ErrTooManyAttempts) {
			// Acknowledge so the provider stops redelivering; the event is
			// already dead-lettered for manual replay.
			w.WriteHeader(http.StatusOK)
			return
		}
		// Hand the event to the background worker instead of forcing the
		// provider to redeliver the whole batch.
		if err := a.dispatcher.Requeue(r.Context(), payload); err != nil {
			RenderError(w, http.StatusInternalServerError, "Event Processing Failed", "")
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) getCustomer(w http.ResponseWriter, r *http.Request) {
	a.renderOne(w, r, func(id string) (graph.Entity, error) {
		return a.customers.FindByID(r.Context(), id)
	}, func(e graph.Entity) any { return customerResource(e) })
}

func (a *API) listCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entities, err := a.customers.List(r.Context(), limit, offset)
	if err != nil {
		a.renderListError(w, r, err)
		return
	}
	resources := make([]*CustomerResource, len(entities))
	for i, e := range entities {
		resources[i] = customerResource(e)
	}
	a.render(w, r, resources)
}

func (a *API) listCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	entities, err := a.invoices.ListByCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.renderListError(w, r, err)
		return
	}
	resources := make([]*InvoiceResource, len(entities))
	for i, e := range entities {
		resources[i] = invoiceResource(e)
	}
	a.render(w, r, resources)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	a.renderOne(w, r, func(id string) (graph.Entity, error) {
		return a.products.FindByID(r.Context(), id)
	}, func(e graph.Entity) any { return productResource(e) })
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entities, err := a.products.List(r.Context(), limit, offset)
	if err != nil {
		a.renderListError(w, r, err)
		return
	}
	resources := make([]*ProductResource, len(entities))
	for i, e := range entities {
		resources[i] = productResource(e)
	}
	a.render(w, r, resources)
}

func (a *API) getPrice(w http.ResponseWriter, r *http.Request) {
	a.renderOne(w, r, func(id string) (graph.Entity, error) {
		return a.prices.FindByID(r.Context(), id)
	}, func(e graph.Entity) any { return priceResource(e) })
}

func (a *API) listPrices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entities, err := a.prices.List(r.Context(), limit, offset)
	if err != nil {
		a.renderListError(w, r, err)
		return
	}
	resources := make([]*PriceResource, len(entities))
	for i, e := range entities {
		resources[i] = priceResource(e)
	}
	a.render(w, r, resources)
}

func (a *API) getSubscription(w http.ResponseWriter, r *http.Request) {
	a.renderOne(w, r, func(id string) (graph.Entity, error) {
		return a.subscriptions.FindByID(r.Context(), id)
	}, func(e graph.Entity) any { return subscriptionResource(e) })
}

func (a *API) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entities, err := a.subscriptions.List(r.Context(), limit, offset)
	if err != nil {
		a.renderListError(w, r, err)
		return
	}
	resources := make([]*SubscriptionResource, len(entities))
	for i, e := range entities {
		resources[i] = subscriptionResource(e)
	}
	a.render(w, r, resources)
}

func (a *API) getInvoice(w http.ResponseWriter, r *http.Request) {
	a.renderOne(w, r, func(id string) (graph.Entity, error) {
		return a.invoices.FindByID(r.Context(), id)
	}, func(e graph.Entity) any { return invoiceResource(e) })
}

func (a *API) listInvoices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entities, err := a.invoices.List(r.Context(), limit, offset)
	if err != nil {
		a.renderListError(w, r, err)
		return
	}
	resources := make([]*InvoiceResource, len(entities))
	for i, e := range entities {
		resources[i] = invoiceResource(e)
	}
	a.render(w, r, resources)
}

func (a *API) renderOne(w http.ResponseWriter, r *http.Request, find func(string) (graph.Entity, error), project func(graph.Entity) any) {
	entity, err := find(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			RenderError(w, http.StatusNotFound, "Not Found", "")
			return
		}
		a.log.Error("lookup failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		RenderError(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	a.render(w, r, project(entity))
}

func (a *API) render(w http.ResponseWriter, r *http.Request, payload any) {
	if err := RenderJSONAPI(w, http.StatusOK, payload); err != nil {
		a.log.Error("response marshaling failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		RenderError(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func (a *API) renderListError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.Error("list failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))
	RenderError(w, http.StatusInternalServerError, "Internal Server Error", "")
}

// pageParams reads the JSON:API page[limit]/page[offset] query parameters.
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("page[limit]"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := r.URL.Query().Get("page[offset]"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
