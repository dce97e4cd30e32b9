package catalog

import (
	"context"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// Resolver turns polymorphic product references into concrete products.
type Resolver struct {
	registry *Registry
	products store.ProductStorer
}

func NewResolver(registry *Registry, products store.ProductStorer) *Resolver {
	return &Resolver{registry: registry, products: products}
}

// Resolve loads the product ref points at. It fails with ErrUnknownType for
// tags outside the registry and store.ErrProductNotFound for missing ids.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ProductRef) (domain.Product, error) {
	if _, err := r.registry.Lookup(ref.Type); err != nil {
		return nil, err
	}
	return r.products.GetProductByID(ctx, ref.Type, ref.ID)
}

// ResolveSlug loads a product by the (type, slug) pair used in its URL.
func (r *Resolver) ResolveSlug(ctx context.Context, tag domain.TypeTag, slug string) (domain.Product, error) {
	if _, err := r.registry.Lookup(tag); err != nil {
		return nil, err
	}
	return r.products.GetProductBySlug(ctx, tag, slug)
}
