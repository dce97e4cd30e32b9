package catalog

import (
	"context"
	"fmt"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// CategoryProducts returns every product filed under category, grouped by
// type in registry order and newest first within a type.
func CategoryProducts(ctx context.Context, registry *Registry, products store.ProductStorer, category *domain.Category) ([]domain.Product, error) {
	var out []domain.Product
	for _, tag := range registry.ConcreteTypes() {
		list, err := products.ListProductsByCategory(ctx, tag, category.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s products of category %q: %w", tag, category.Slug, err)
		}
		out = append(out, list...)
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}
