package catalog

import (
	"context"
	"fmt"
	"slices"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// DefaultLatestLimit is the number of products taken per type.
const DefaultLatestLimit = 5

// LatestSelector picks the newest products of several types for the front page.
type LatestSelector struct {
	registry *Registry
	products store.ProductStorer
}

func NewLatestSelector(registry *Registry, products store.ProductStorer) *LatestSelector {
	return &LatestSelector{registry: registry, products: products}
}

// Latest returns up to limitPerType newest products of each tag, grouped in
// the order of tags. If prioritize is one of tags, its products are moved to
// the front with relative order kept; otherwise prioritize has no effect.
func (s *LatestSelector) Latest(ctx context.Context, tags []domain.TypeTag, limitPerType int, prioritize *domain.TypeTag) ([]domain.Product, error) {
	if limitPerType <= 0 {
		limitPerType = DefaultLatestLimit
	}
	for _, tag := range tags {
		if _, err := s.registry.Lookup(tag); err != nil {
			return nil, err
		}
	}

	products := make([]domain.Product, 0, len(tags)*limitPerType)
	for _, tag := range tags {
		recent, err := s.products.ListRecentProducts(ctx, tag, limitPerType)
		if err != nil {
			return nil, fmt.Errorf("catalog: latest %s products: %w", tag, err)
		}
		products = append(products, recent...)
	}

	if prioritize != nil && slices.Contains(tags, *prioritize) {
		first := *prioritize
		slices.SortStableFunc(products, func(a, b domain.Product) int {
			return rank(a, first) - rank(b, first)
		})
	}
	return products, nil
}

func rank(p domain.Product, first domain.TypeTag) int {
	if p.Type() == first {
		return 0
	}
	return 1
}
