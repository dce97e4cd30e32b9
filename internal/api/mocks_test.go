package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/auth"
	"storefront-service/internal/catalog"
	"storefront-service/internal/config"
	"storefront-service/internal/domain"
	"storefront-service/internal/imaging"
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

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

// MockCustomerStorer is a mock implementation of store.CustomerStorer
type MockCustomerStorer struct {
	mock.Mock
}

func (m *MockCustomerStorer) GetCustomerByUserRef(ctx context.Context, userRef string) (*domain.Customer, error) {
	args := m.Called(ctx, userRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCustomerStorer) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	args := m.Called(ctx, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCustomerStorer) UpdateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	args := m.Called(ctx, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

// MockCartStorer is a mock implementation of store.CartStorer
type MockCartStorer struct {
	mock.Mock
}

func (m *MockCartStorer) GetOpenCart(ctx context.Context, ownerID int64, anonymous bool) (*domain.Cart, error) {
	args := m.Called(ctx, ownerID, anonymous)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartStorer) CreateCart(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	args := m.Called(ctx, cart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartStorer) InsertCartLine(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error) {
	args := m.Called(ctx, line)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartLine), args.Error(1)
}

func (m *MockCartStorer) UpdateCartLine(ctx context.Context, line *domain.CartLine) error {
	return m.Called(ctx, line).Error(0)
}

func (m *MockCartStorer) DeleteCartLine(ctx context.Context, cartID, lineID int64) error {
	return m.Called(ctx, cartID, lineID).Error(0)
}

func (m *MockCartStorer) UpdateCartTotals(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

type testStores struct {
	categories *MockCategoryStorer
	products   *MockProductStorer
	customers  *MockCustomerStorer
	carts      *MockCartStorer
}

func newTestStores() testStores {
	return testStores{
		categories: new(MockCategoryStorer),
		products:   new(MockProductStorer),
		customers:  new(MockCustomerStorer),
		carts:      new(MockCartStorer),
	}
}

func (s testStores) assertExpectations(t *testing.T) {
	s.categories.AssertExpectations(t)
	s.products.AssertExpectations(t)
	s.customers.AssertExpectations(t)
	s.carts.AssertExpectations(t)
}

const testJWTSecret = "test-secret"

func testServices(t *testing.T, st testStores) Services {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	media, err := imaging.NewDirStorage(t.TempDir(), "products")
	require.NoError(t, err)
	return Services{
		Registry:   catalog.NewRegistry(map[string]string{"notebooks": "notebook", "smartphones": "smartphone"}),
		Categories: st.categories,
		Products:   st.products,
		Customers:  st.customers,
		Carts:      st.carts,
		Images: imaging.NewNormalizer(config.ImageConfig{
			MinWidth: 400, MinHeight: 400, MaxWidth: 1000, MaxHeight: 1000,
			MaxBytes: 3145728, ResizeTarget: "min", JPEGQuality: 90,
		}),
		Media:       media,
		Auth:        auth.NewAuthenticator(config.AuthConfig{JWTSecret: testJWTSecret, CookieName: "anon"}, quiet),
		LatestLimit: 5,
		Prioritize:  domain.TypeNotebook,
		Logger:      quiet,
	}
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, st testStores) *httptest.Server {
	t.Helper()
	handler := NewHTTPHandler(testServices(t, st))
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body interface{}, header http.Header) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func testNotebook(id int64, slug string) *domain.Notebook {
	return &domain.Notebook{
		ProductCore: domain.ProductCore{
			ID: id, CategoryID: 1, Title: "Notebook " + slug, Slug: slug, Price: decimal.RequireFromString("100.000"),
		},
		Diagonal: "15.6", Display: "IPS", ProcessorFreq: "3.2 GHz", RAM: "16 GB", Video: "RTX 3050", TimeWithoutCharge: "8 h",
	}
}

func testSmartphone(id int64, slug string, sd bool) *domain.Smartphone {
	p := &domain.Smartphone{
		ProductCore: domain.ProductCore{
			ID: id, CategoryID: 2, Title: "Phone " + slug, Slug: slug, Price: decimal.RequireFromString("50.000"),
		},
		Diagonal: "6.1", Display: "OLED", Resolution: "2532x1170", AccumVolume: "3200 mAh", RAM: "6 GB",
		SD: sd, MainCamMP: "12", FrontalCamMP: "12",
	}
	if sd {
		p.SDVolume = PtrTo("256 GB")
	}
	return p
}
