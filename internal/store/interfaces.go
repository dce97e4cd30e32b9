package store

import (
	"context"

	"storefront-service/internal/domain"
)

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ProductStorer defines the database operations shared by every concrete
// product type. The type tag selects the table; lookups never cross tables.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	GetProductByID(ctx context.Context, tag domain.TypeTag, id int64) (domain.Product, error)
	GetProductBySlug(ctx context.Context, tag domain.TypeTag, slug string) (domain.Product, error)
	// ListRecentProducts returns the newest products of one type, newest first.
	ListRecentProducts(ctx context.Context, tag domain.TypeTag, limit int) ([]domain.Product, error)
	ListProductsByCategory(ctx context.Context, tag domain.TypeTag, categoryID int64) ([]domain.Product, error)
	// CountProductsByCategory returns category id -> number of products of the given type.
	CountProductsByCategory(ctx context.Context, tag domain.TypeTag) (map[int64]int, error)
	UpdateProductImage(ctx context.Context, tag domain.TypeTag, id int64, image string) error
	// DeleteProduct removes the product and every cart line referencing it.
	DeleteProduct(ctx context.Context, tag domain.TypeTag, id int64) error
}

// CustomerStorer defines the database operations for customers.
type CustomerStorer interface {
	GetCustomerByUserRef(ctx context.Context, userRef string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
}

// CartStorer defines the database operations for carts and their lines.
type CartStorer interface {
	// GetOpenCart returns the cart of the owner that is not yet part of an order.
	GetOpenCart(ctx context.Context, ownerID int64, anonymous bool) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)
	InsertCartLine(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error)
	UpdateCartLine(ctx context.Context, line *domain.CartLine) error
	DeleteCartLine(ctx context.Context, cartID, lineID int64) error
	UpdateCartTotals(ctx context.Context, cart *domain.Cart) error
}
