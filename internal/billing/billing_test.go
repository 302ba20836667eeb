package billing

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphbill/graphbill/internal/graph"
)

// fakeRunner returns canned rows and records every executed query.
type fakeRunner struct {
	rows    []graph.Row
	err     error
	queries []string
}

func (f *fakeRunner) Run(_ context.Context, query string, _ map[string]any) ([]graph.Row, error) {
	f.queries = append(f.queries, query)
	return f.rows, f.err
}

func testEngine(t *testing.T) *graph.Engine {
	t.Helper()

	reg := graph.NewRegistry()
	require.NoError(t, RegisterTypes(reg))
	return graph.NewEngine(reg)
}

func node(label, id string, props map[string]any) neo4j.Node {
	all := map[string]any{"id": id}
	for k, v := range props {
		all[k] = v
	}
	return neo4j.Node{
		ElementId: "el:" + label + ":" + id,
		Labels:    []string{label},
		Props:     all,
	}
}

func TestRegisterTypes(t *testing.T) {
	reg := graph.NewRegistry()
	require.NoError(t, RegisterTypes(reg))

	for _, token := range []string{TokenCustomer, TokenProduct, TokenPrice, TokenSubscription, TokenInvoice} {
		_, ok := reg.ResolveByToken(token)
		assert.True(t, ok, "token %s should be registered", token)
	}

	meta, ok := reg.ResolveByLabel(LabelPrice)
	require.True(t, ok)
	assert.Equal(t, TokenPrice, meta.Token)
	assert.Equal(t, []string{TokenProduct}, meta.SingleChildren)
}

func TestPriceRepositoryFindByID(t *testing.T) {
	runner := &fakeRunner{
		rows: []graph.Row{
			graph.NewRow([]string{"price", "price_product"}, map[string]any{
				"price":         node(LabelPrice, "price_123", map[string]any{"unit_amount": int64(900), "currency": "usd"}),
				"price_product": node(LabelProduct, "prod_123", map[string]any{"name": "Basic"}),
			}),
		},
	}

	repo := NewPriceRepository(runner, testEngine(t))
	price, err := repo.FindByID(context.Background(), "price_123")
	require.NoError(t, err)

	assert.Equal(t, "price_123", price["id"])
	assert.Equal(t, int64(900), price["unit_amount"])

	product, ok := price["product"].(graph.Entity)
	require.True(t, ok)
	assert.Equal(t, "prod_123", product["id"])
	assert.Equal(t, "Basic", product["name"])
}

func TestPriceRepositoryNotFound(t *testing.T) {
	repo := NewPriceRepository(&fakeRunner{}, testEngine(t))

	_, err := repo.FindByID(context.Background(), "price_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriptionRepositoryFindByID(t *testing.T) {
	sub := node(LabelSubscription, "sub_1", map[string]any{"status": "Active"})
	columns := []string{
		"subscription", "subscription_customer", "subscription_price",
		"subscription_items_edgePropsCollection",
	}
	runner := &fakeRunner{
		rows: []graph.Row{
			graph.NewRow(columns, map[string]any{
				"subscription":          sub,
				"subscription_customer": node(LabelCustomer, "cus_1", nil),
				"subscription_price":    node(LabelPrice, "price_a", nil),
				"subscription_items_edgePropsCollection": []any{
					map[string]any{"nodeId": "price_a", "edgeProps": map[string]any{"quantity": int64(3)}},
				},
			}),
			graph.NewRow(columns, map[string]any{
				"subscription":          sub,
				"subscription_customer": node(LabelCustomer, "cus_1", nil),
				"subscription_price":    node(LabelPrice, "price_b", nil),
				"subscription_items_edgePropsCollection": []any{
					map[string]any{"nodeId": "price_b", "edgeProps": map[string]any{"quantity": int64(1)}},
				},
			}),
		},
	}

	repo := NewSubscriptionRepository(runner, testEngine(t))
	subscription, err := repo.FindByID(context.Background(), "sub_1")
	require.NoError(t, err)

	assert.Equal(t, "active", subscription["status"], "mapper lowercases the provider status")

	customer, ok := subscription["customer"].(graph.Entity)
	require.True(t, ok)
	assert.Equal(t, "cus_1", customer["id"])

	prices, ok := subscription["price"].([]graph.Entity)
	require.True(t, ok)
	require.Len(t, prices, 2)
	assert.Equal(t, "price_a", prices[0]["id"])
	assert.Equal(t, "price_b", prices[1]["id"])

	edgeProps, ok := subscription["itemsEdgeProps"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"quantity": int64(3)}, edgeProps["price_a"])
	assert.Equal(t, map[string]any{"quantity": int64(1)}, edgeProps["price_b"])
}

func TestRepositoryUpsert(t *testing.T) {
	runner := &fakeRunner{}
	repo := NewCustomerRepository(runner, testEngine(t))

	err := repo.Upsert(context.Background(), map[string]any{"id": "cus_1", "email": "a@b.c"})
	require.NoError(t, err)
	require.Len(t, runner.queries, 1)
	assert.True(t, strings.Contains(runner.queries[0], LabelCustomer))

	err = repo.Upsert(context.Background(), map[string]any{"email": "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestRepositoryQueriesFollowColumnConvention(t *testing.T) {
	// The materializer's column contract: root column named after the root
	// token, children "<parent>_<childToken>", edge-prop collections
	// "<parent>_<rel>_edgePropsCollection".
	assert.Contains(t, priceByIDQuery, "price_product:Product")
	assert.Contains(t, customerByIDQuery, "customer_subscription:Subscription")
	assert.Contains(t, customerByIDQuery, "customer_subscription_price:Price")
	assert.Contains(t, subscriptionByIDQuery, "subscription_items_edgePropsCollection")
	assert.Contains(t, invoiceByIDQuery, "invoice_customer:Customer")
}
