package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("register and resolve by token", func(t *testing.T) {
		reg := NewRegistry()

		err := reg.Register(&TypeMeta{Token: "price", Label: "Price", Mapper: PropertyMapper()})
		require.NoError(t, err)

		meta, ok := reg.ResolveByToken("price")
		require.True(t, ok)
		assert.Equal(t, "Price", meta.Label)

		_, ok = reg.ResolveByToken("product")
		assert.False(t, ok)
	})

	t.Run("register replaces existing token", func(t *testing.T) {
		reg := NewRegistry()

		require.NoError(t, reg.Register(&TypeMeta{Token: "price", Label: "Price", Mapper: PropertyMapper()}))
		require.NoError(t, reg.Register(&TypeMeta{
			Token:          "price",
			Label:          "Price",
			Mapper:         PropertyMapper(),
			SingleChildren: []string{"product"},
		}))

		meta, ok := reg.ResolveByToken("price")
		require.True(t, ok)
		assert.Equal(t, []string{"product"}, meta.SingleChildren)
		assert.Equal(t, []string{"price"}, reg.Tokens())
	})

	t.Run("resolve by label scans in registration order", func(t *testing.T) {
		reg := NewRegistry()

		require.NoError(t, reg.Register(&TypeMeta{Token: "price", Label: "Price", Mapper: PropertyMapper()}))
		require.NoError(t, reg.Register(&TypeMeta{Token: "legacyprice", Label: "Price", Mapper: PropertyMapper()}))

		meta, ok := reg.ResolveByLabel("Price")
		require.True(t, ok)
		assert.Equal(t, "price", meta.Token)

		_, ok = reg.ResolveByLabel("Unknown")
		assert.False(t, ok)
	})

	t.Run("rejects incomplete metadata", func(t *testing.T) {
		reg := NewRegistry()

		assert.ErrorIs(t, reg.Register(nil), ErrInvalidMetadata)
		assert.ErrorIs(t, reg.Register(&TypeMeta{Token: "price"}), ErrInvalidMetadata)
		assert.ErrorIs(t, reg.Register(&TypeMeta{Token: "price", Label: "Price"}), ErrInvalidMetadata)
	})

	t.Run("rejects malformed dynamic patterns", func(t *testing.T) {
		reg := NewRegistry()

		err := reg.Register(&TypeMeta{
			Token:                      "price",
			Label:                      "Price",
			Mapper:                     PropertyMapper(),
			DynamicSingleChildPatterns: []string{"no_placeholder"},
		})
		assert.ErrorIs(t, err, ErrInvalidPattern)

		err = reg.Register(&TypeMeta{
			Token:                    "price",
			Label:                    "Price",
			Mapper:                   PropertyMapper(),
			DynamicManyChildPatterns: []string{"*_*"},
		})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("sealed after first materialize call", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&TypeMeta{Token: "price", Label: "Price", Mapper: PropertyMapper()}))

		_, err := NewEngine(reg).Materialize("price", nil)
		require.NoError(t, err)

		err = reg.Register(&TypeMeta{Token: "product", Label: "Product", Mapper: PropertyMapper()})
		assert.ErrorIs(t, err, ErrRegistrySealed)
	})
}
