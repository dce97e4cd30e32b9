package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"storefront-service/internal/domain"
)

// MockProductStorer is a mock implementation of store.ProductStorer
type MockProductStorer struct {
	mock.Mock
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStorer) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductByID(ctx context.Context, tag domain.TypeTag, id int64) (domain.Product, error) {
	args := m.Called(ctx, tag, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductBySlug(ctx context.Context, tag domain.TypeTag, slug string) (domain.Product, error) {
	args := m.Called(ctx, tag, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStorer) ListRecentProducts(ctx context.Context, tag domain.TypeTag, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, tag, limit)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockProductStorer) ListProductsByCategory(ctx context.Context, tag domain.TypeTag, categoryID int64) ([]domain.Product, error) {
	args := m.Called(ctx, tag, categoryID)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockProductStorer) CountProductsByCategory(ctx context.Context, tag domain.TypeTag) (map[int64]int, error) {
	args := m.Called(ctx, tag)
	var counts map[int64]int
	if arg0 := args.Get(0); arg0 != nil {
		counts = arg0.(map[int64]int)
	}
	return counts, args.Error(1)
}

func (m *MockProductStorer) UpdateProductImage(ctx context.Context, tag domain.TypeTag, id int64, image string) error {
	return m.Called(ctx, tag, id, image).Error(0)
}

func (m *MockProductStorer) DeleteProduct(ctx context.Context, tag domain.TypeTag, id int64) error {
	return m.Called(ctx, tag, id).Error(0)
}

// MockCategoryStorer is a mock implementation of store.CategoryStorer
type MockCategoryStorer struct {
	mock.Mock
}

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Error(1)
}

func (m *MockCategoryStorer) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func PtrTo[T any](v T) *T {
	return &v
}

func notebooks(ids ...int64) []domain.Product {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, &domain.Notebook{ProductCore: domain.ProductCore{
			ID: id, Title: fmt.Sprintf("Notebook %d", id), Slug: fmt.Sprintf("notebook-%d", id), Price: decimal.NewFromInt(100),
		}})
	}
	return out
}

func smartphones(ids ...int64) []domain.Product {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, &domain.Smartphone{ProductCore: domain.ProductCore{
			ID: id, Title: fmt.Sprintf("Phone %d", id), Slug: fmt.Sprintf("phone-%d", id), Price: decimal.NewFromInt(50),
		}})
	}
	return out
}

func refs(products []domain.Product) []domain.ProductRef {
	out := make([]domain.ProductRef, len(products))
	for i, p := range products {
		out[i] = domain.Ref(p)
	}
	return out
}
