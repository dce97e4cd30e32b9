package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/imaging"
	"storefront-service/internal/store"
)

// SidebarInvalidator drops cached category counts. *catalog.Sidebar satisfies it.
type SidebarInvalidator interface {
	Invalidate(ctx context.Context)
}

// Seeder writes a fixture Catalog through the store interfaces.
type Seeder struct {
	registry   *catalog.Registry
	categories store.CategoryStorer
	products   store.ProductStorer
	images     *imaging.Normalizer
	media      imaging.Storage
	sidebar    SidebarInvalidator
	logger     *log.Logger
}

func NewSeeder(registry *catalog.Registry, categories store.CategoryStorer, products store.ProductStorer,
	images *imaging.Normalizer, media imaging.Storage, sidebar SidebarInvalidator, logger *log.Logger) *Seeder {
	if logger == nil {
		logger = log.Default()
	}
	return &Seeder{
		registry:   registry,
		categories: categories,
		products:   products,
		images:     images,
		media:      media,
		sidebar:    sidebar,
		logger:     logger,
	}
}

// Result counts what a run created.
type Result struct {
	Categories int
	Products   int
	Skipped    int
}

// Run creates missing categories, then every product whose slug is not yet
// taken within its type. Product images are read from assets and normalized before storing.
// The cached sidebar is dropped whenever the run created something, even if it then failed.
func (s *Seeder) Run(ctx context.Context, c *Catalog, assets fs.FS) (res Result, err error) {
	defer func() {
		if s.sidebar != nil && res.Categories+res.Products > 0 {
			s.sidebar.Invalidate(ctx)
		}
	}()
	return s.run(ctx, c, assets)
}

func (s *Seeder) run(ctx context.Context, c *Catalog, assets fs.FS) (Result, error) {
	var res Result
	bySlug := make(map[string]*domain.Category, len(c.Categories))

	for _, cf := range c.Categories {
		category, err := s.categories.GetCategoryBySlug(ctx, cf.Slug)
		if errors.Is(err, store.ErrCategoryNotFound) {
			category, err = s.categories.CreateCategory(ctx, &domain.Category{Name: cf.Name, Slug: cf.Slug})
			if err == nil {
				res.Categories++
				s.logger.Printf("INFO: Created category %s", cf.Slug)
			}
		}
		if err != nil {
			return res, fmt.Errorf("seed: category %q: %w", cf.Slug, err)
		}
		bySlug[cf.Slug] = category
	}

	for _, pf := range c.Products {
		category, ok := bySlug[pf.Category]
		if !ok {
			return res, fmt.Errorf("seed: product %q: category %q is not in the fixture", pf.Slug, pf.Category)
		}
		product, err := pf.Product(category.ID)
		if err != nil {
			return res, err
		}
		if err := s.registry.CheckCategory(product.Type(), category); err != nil {
			return res, fmt.Errorf("seed: product %q: %w", pf.Slug, err)
		}

		_, err = s.products.GetProductBySlug(ctx, product.Type(), pf.Slug)
		if err == nil {
			res.Skipped++
			s.logger.Printf("INFO: Product %s/%s already exists, skipping", pf.Type, pf.Slug)
			continue
		}
		if !errors.Is(err, store.ErrProductNotFound) {
			return res, fmt.Errorf("seed: product %q: %w", pf.Slug, err)
		}

		if pf.Image != "" {
			name, err := s.storeImage(ctx, assets, pf.Image)
			if err != nil {
				return res, fmt.Errorf("seed: product %q: %w", pf.Slug, err)
			}
			product.Core().Image = name
		}

		if _, err := s.products.CreateProduct(ctx, product); err != nil {
			return res, fmt.Errorf("seed: product %q: %w", pf.Slug, err)
		}
		res.Products++
		s.logger.Printf("INFO: Created %s/%s", pf.Type, pf.Slug)
	}
	return res, nil
}

func (s *Seeder) storeImage(ctx context.Context, assets fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(assets, name)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	normalized, err := s.images.Normalize(data, name)
	if err != nil {
		return "", err
	}
	return s.media.Save(ctx, normalized)
}
