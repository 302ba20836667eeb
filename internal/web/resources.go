package web

import (
	"github.com/graphbill/graphbill/internal/graph"
)

// JSON:API resource shapes for the read endpoints. Nested entities the
// materializer embedded (a price's product, a subscription's prices) are
// exposed as structured attributes rather than separate included resources;
// the read surface is denormalized on purpose.

// CustomerResource is the JSON:API projection of a Customer entity.
type CustomerResource struct {
	ID            string           `jsonapi:"primary,customers"`
	Email         string           `jsonapi:"attr" json:"email,omitempty"`
	Name          string           `jsonapi:"attr" json:"name,omitempty"`
	Currency      string           `jsonapi:"attr" json:"currency,omitempty"`
	Delinquent    bool             `jsonapi:"attr" json:"delinquent"`
	Created       int64            `jsonapi:"attr" json:"created,omitempty"`
	Subscriptions []map[string]any `jsonapi:"attr" json:"subscriptions,omitempty"`
}

// ProductResource is the JSON:API projection of a Product entity.
type ProductResource struct {
	ID          string `jsonapi:"primary,products"`
	Name        string `jsonapi:"attr" json:"name,omitempty"`
	Description string `jsonapi:"attr" json:"description,omitempty"`
	Active      bool   `jsonapi:"attr" json:"active"`
	Created     int64  `jsonapi:"attr" json:"created,omitempty"`
}

// PriceResource is the JSON:API projection of a Price entity.
type PriceResource struct {
	ID         string         `jsonapi:"primary,prices"`
	Currency   string         `jsonapi:"attr" json:"currency,omitempty"`
	UnitAmount int64          `jsonapi:"attr" json:"unit_amount,omitempty"`
	Nickname   string         `jsonapi:"attr" json:"nickname,omitempty"`
	Interval   string         `jsonapi:"attr" json:"interval,omitempty"`
	Active     bool           `jsonapi:"attr" json:"active"`
	Created    int64          `jsonapi:"attr" json:"created,omitempty"`
	Product    map[string]any `jsonapi:"attr" json:"product,omitempty"`
}

// SubscriptionResource is the JSON:API projection of a Subscription entity.
type SubscriptionResource struct {
	ID                string           `jsonapi:"primary,subscriptions"`
	Status            string           `jsonapi:"attr" json:"status,omitempty"`
	CancelAtPeriodEnd bool             `jsonapi:"attr" json:"cancel_at_period_end"`
	Created           int64            `jsonapi:"attr" json:"created,omitempty"`
	Customer          map[string]any   `jsonapi:"attr" json:"customer,omitempty"`
	Prices            []map[string]any `jsonapi:"attr" json:"prices,omitempty"`
	ItemsEdgeProps    map[string]any   `jsonapi:"attr" json:"items_edge_props,omitempty"`
}

// InvoiceResource is the JSON:API projection of an Invoice entity.
type InvoiceResource struct {
	ID           string         `jsonapi:"primary,invoices"`
	Number       string         `jsonapi:"attr" json:"number,omitempty"`
	Status       string         `jsonapi:"attr" json:"status,omitempty"`
	Currency     string         `jsonapi:"attr" json:"currency,omitempty"`
	AmountDue    int64          `jsonapi:"attr" json:"amount_due,omitempty"`
	Total        int64          `jsonapi:"attr" json:"total,omitempty"`
	Created      int64          `jsonapi:"attr" json:"created,omitempty"`
	Customer     map[string]any `jsonapi:"attr" json:"customer,omitempty"`
	Subscription map[string]any `jsonapi:"attr" json:"subscription,omitempty"`
}

func customerResource(e graph.Entity) *CustomerResource {
	return &CustomerResource{
		ID:            strField(e, "id"),
		Email:         strField(e, "email"),
		Name:          strField(e, "name"),
		Currency:      strField(e, "currency"),
		Delinquent:    boolField(e, "delinquent"),
		Created:       intField(e, "created"),
		Subscriptions: entitySlice(e, "subscription"),
	}
}

func productResource(e graph.Entity) *ProductResource {
	return &ProductResource{
		ID:          strField(e, "id"),
		Name:        strField(e, "name"),
		Description: strField(e, "description"),
		Active:      boolField(e, "active"),
		Created:     intField(e, "created"),
	}
}

func priceResource(e graph.Entity) *PriceResource {
	return &PriceResource{
		ID:         strField(e, "id"),
		Currency:   strField(e, "currency"),
		UnitAmount: intField(e, "unit_amount"),
		Nickname:   strField(e, "nickname"),
		Interval:   strField(e, "interval"),
		Active:     boolField(e, "active"),
		Created:    intField(e, "created"),
		Product:    entityField(e, "product"),
	}
}

func subscriptionResource(e graph.Entity) *SubscriptionResource {
	props, _ := e["itemsEdgeProps"].(map[string]any)
	return &SubscriptionResource{
		ID:                strField(e, "id"),
		Status:            strField(e, "status"),
		CancelAtPeriodEnd: boolField(e, "cancel_at_period_end"),
		Created:           intField(e, "created"),
		Customer:          entityField(e, "customer"),
		Prices:            entitySlice(e, "price"),
		ItemsEdgeProps:    props,
	}
}

func invoiceResource(e graph.Entity) *InvoiceResource {
	return &InvoiceResource{
		ID:           strField(e, "id"),
		Number:       strField(e, "number"),
		Status:       strField(e, "status"),
		Currency:     strField(e, "currency"),
		AmountDue:    intField(e, "amount_due"),
		Total:        intField(e, "total"),
		Created:      intField(e, "created"),
		Customer:     entityField(e, "customer"),
		Subscription: entityField(e, "subscription"),
	}
}

func strField(e graph.Entity, key string) string {
	s, _ := e[key].(string)
	return s
}

func intField(e graph.Entity, key string) int64 {
	switch v := e[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func boolField(e graph.Entity, key string) bool {
	b, _ := e[key].(bool)
	return b
}

func entityField(e graph.Entity, key string) map[string]any {
	nested, _ := e[key].(graph.Entity)
	return nested
}

func entitySlice(e graph.Entity, key string) []map[string]any {
	nested, _ := e[key].([]graph.Entity)
	if nested == nil {
		return nil
	}
	out := make([]map[string]any, len(nested))
	for i, item := range nested {
		out[i] = item
	}
	return out
}
