package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	phone := smartphones(7)[0]

	t.Run("Success", func(t *testing.T) {
		products := new(MockProductStorer)
		products.On("GetProductByID", mock.Anything, domain.TypeSmartphone, int64(7)).Return(phone, nil).Once()

		got, err := NewResolver(NewRegistry(nil), products).Resolve(ctx, domain.ProductRef{Type: domain.TypeSmartphone, ID: 7})
		require.NoError(t, err)
		assert.Equal(t, phone, got)
		products.AssertExpectations(t)
	})

	t.Run("Unknown type never reaches the store", func(t *testing.T) {
		products := new(MockProductStorer)

		_, err := NewResolver(NewRegistry(nil), products).Resolve(ctx, domain.ProductRef{Type: "tablet", ID: 7})
		assert.ErrorIs(t, err, ErrUnknownType)
		products.AssertNotCalled(t, "GetProductByID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Not found", func(t *testing.T) {
		products := new(MockProductStorer)
		products.On("GetProductByID", mock.Anything, domain.TypeNotebook, int64(99)).Return(nil, store.ErrProductNotFound).Once()

		_, err := NewResolver(NewRegistry(nil), products).Resolve(ctx, domain.ProductRef{Type: domain.TypeNotebook, ID: 99})
		assert.ErrorIs(t, err, store.ErrProductNotFound)
		products.AssertExpectations(t)
	})
}

func TestResolver_ResolveSlug(t *testing.T) {
	ctx := context.Background()
	nb := notebooks(3)[0]

	products := new(MockProductStorer)
	products.On("GetProductBySlug", mock.Anything, domain.TypeNotebook, "notebook-3").Return(nb, nil).Once()
	r := NewResolver(NewRegistry(nil), products)

	got, err := r.ResolveSlug(ctx, domain.TypeNotebook, "notebook-3")
	require.NoError(t, err)
	assert.Equal(t, "/products/notebook/notebook-3/", ProductURL(got))

	_, err = r.ResolveSlug(ctx, "fridge", "notebook-3")
	assert.ErrorIs(t, err, ErrUnknownType)
	products.AssertExpectations(t)
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "/products/smartphone/galaxy-s24/", ProductPath(domain.TypeSmartphone, "galaxy-s24"))
	assert.Equal(t, "/products/notebook/a%20b/", ProductPath(domain.TypeNotebook, "a b"))
	assert.Equal(t, "/category/notebooks/", CategoryURL(domain.Category{Slug: "notebooks"}))
}
