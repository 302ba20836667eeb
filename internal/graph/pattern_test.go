package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	t.Run("anchors literally against the parent prefix", func(t *testing.T) {
		matcher, err := CompilePattern("*", "price")
		require.NoError(t, err)

		assert.True(t, matcher.MatchString("price_product"))
		assert.False(t, matcher.MatchString("subscription_price"))
		assert.False(t, matcher.MatchString("price_product_tier"))
		assert.False(t, matcher.MatchString("price_"))
	})

	t.Run("captures the dynamic segment", func(t *testing.T) {
		matcher, err := CompilePattern("items_*", "order")
		require.NoError(t, err)

		sub := matcher.FindStringSubmatch("order_items_discount")
		require.NotNil(t, sub)
		assert.Equal(t, "discount", sub[matcher.SubexpIndex("segment")])

		assert.False(t, matcher.MatchString("order_items_"))
		assert.False(t, matcher.MatchString("order_discount"))
	})

	t.Run("requires exactly one placeholder", func(t *testing.T) {
		_, err := CompilePattern("items", "order")
		assert.ErrorIs(t, err, ErrInvalidPattern)

		_, err = CompilePattern("*_*", "order")
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("identical inputs reuse the cached matcher", func(t *testing.T) {
		first, err := CompilePattern("*", "cachedprefix")
		require.NoError(t, err)
		second, err := CompilePattern("*", "cachedprefix")
		require.NoError(t, err)

		assert.Same(t, first, second)
	})
}

func TestResolvePattern(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&TypeMeta{Token: "product", Label: "Product", Mapper: PropertyMapper()}))

	t.Run("reports matches in column order with resolved tokens", func(t *testing.T) {
		columns := []string{"price", "price_product", "price_tierset", "other"}

		matches, err := ResolvePattern(reg, "*", "price", columns)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		assert.Equal(t, "price_product", matches[0].Column)
		assert.Equal(t, "product", matches[0].Segment)
		require.NotNil(t, matches[0].Meta)
		assert.Equal(t, "Product", matches[0].Meta.Label)

		assert.Equal(t, "price_tierset", matches[1].Column)
		assert.Equal(t, "tierset", matches[1].Segment)
		assert.Nil(t, matches[1].Meta)
	})

	t.Run("no columns match", func(t *testing.T) {
		matches, err := ResolvePattern(reg, "*", "price", []string{"subscription", "subscription_price"})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}
