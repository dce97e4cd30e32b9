package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"storefront-service/internal/cache"
	"storefront-service/internal/store"
)

const sidebarCacheKey = "sidebar:categories"

// SidebarEntry is one category line of the navigation sidebar.
type SidebarEntry struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Sidebar aggregates per-category product counts across every product type.
type Sidebar struct {
	registry   *Registry
	categories store.CategoryStorer
	products   store.ProductStorer
	cache      cache.Cache
	logger     *log.Logger
	sfg        singleflight.Group
}

// NewSidebar wires the aggregator. A nil cache disables caching and a nil
// logger falls back to the standard logger.
func NewSidebar(registry *Registry, categories store.CategoryStorer, products store.ProductStorer, c cache.Cache, logger *log.Logger) *Sidebar {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sidebar{registry: registry, categories: categories, products: products, cache: c, logger: logger}
}

// Entries returns one entry per category in name order. A category bound to
// a type the registry does not know is left out.
func (s *Sidebar) Entries(ctx context.Context) ([]SidebarEntry, error) {
	var cached []SidebarEntry
	err := s.cache.Get(ctx, sidebarCacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Printf("WARN: sidebar cache get failed: %v", err)
	}

	v, err, _ := s.sfg.Do(sidebarCacheKey, func() (interface{}, error) {
		entries, err := s.compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, sidebarCacheKey, entries); err != nil {
			s.logger.Printf("WARN: sidebar cache set failed: %v", err)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]SidebarEntry), nil
}

// Invalidate drops the cached sidebar after catalog writes.
func (s *Sidebar) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, sidebarCacheKey); err != nil {
		s.logger.Printf("WARN: sidebar cache invalidation failed: %v", err)
	}
}

func (s *Sidebar) compute(ctx context.Context) ([]SidebarEntry, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: sidebar categories: %w", err)
	}

	totals := make(map[int64]int)
	for _, tag := range s.registry.ConcreteTypes() {
		counts, err := s.products.CountProductsByCategory(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("catalog: sidebar %s counts: %w", tag, err)
		}
		for categoryID, n := range counts {
			totals[categoryID] += n
		}
	}

	entries := make([]SidebarEntry, 0, len(categories))
	for _, c := range categories {
		if tag, bound := s.registry.BoundType(c.Slug); bound {
			if _, err := s.registry.Lookup(tag); err != nil {
				s.logger.Printf("WARN: sidebar omits category %q: bound to unregistered type %q", c.Slug, tag)
				continue
			}
		}
		entries = append(entries, SidebarEntry{
			Name:  c.Name,
			URL:   CategoryURL(c),
			Count: totals[c.ID],
		})
	}
	return entries, nil
}
