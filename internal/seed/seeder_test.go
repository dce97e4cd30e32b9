package seed

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/cache"
	"storefront-service/internal/catalog"
	"storefront-service/internal/config"
	"storefront-service/internal/domain"
	"storefront-service/internal/imaging"
	"storefront-service/internal/store"
)

const fixture = `
categories:
  - name: Notebooks
    slug: notebooks
  - name: Smartphones
    slug: smartphones
products:
  - type: notebook
    category: notebooks
    title: ThinkPad X1
    slug: thinkpad-x1
    price: "1499.990"
    image: x1.png
    attributes:
      diagonal: "14"
      display: IPS
      processor_freq: 4.2 GHz
      ram: 16 GB
      video: Iris Xe
      time_without_charge: 12 h
  - type: smartphone
    category: smartphones
    title: Pixel 8
    slug: pixel-8
    price: "699"
    description: Compact flagship
    attributes:
      diagonal: "6.2"
      display: OLED
      resolution: 2400x1080
      accum_volume: 4575 mAh
      ram: 8 GB
      sd: false
      sd_volume: 128 GB
      main_cam_mp: "50"
      frontal_cam_mp: "10.5"
`

type MockCategoryStorer struct{ mock.Mock }

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, c)
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

func (m *MockCategoryStorer) GetCategoryByID(context.Context, int64) (*domain.Category, error) {
	panic("not used by the seeder")
}

func (m *MockCategoryStorer) ListCategories(context.Context) ([]domain.Category, error) {
	panic("not used by the seeder")
}

func (m *MockCategoryStorer) UpdateCategory(context.Context, *domain.Category) (*domain.Category, error) {
	panic("not used by the seeder")
}

func (m *MockCategoryStorer) DeleteCategory(context.Context, int64) error {
	panic("not used by the seeder")
}

// MockProductStorer embeds the interface so only the methods the seeder
// calls need implementing.
type MockProductStorer struct {
	mock.Mock
	store.ProductStorer
}

func (m *MockProductStorer) GetProductBySlug(ctx context.Context, tag domain.TypeTag, slug string) (domain.Product, error) {
	args := m.Called(ctx, tag, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

const sidebarKey = "storefront:sidebar:categories"

func newTestSeeder(t *testing.T) (*Seeder, *MockCategoryStorer, *MockProductStorer) {
	s, categories, products, _ := newCachedTestSeeder(t)
	return s, categories, products
}

// newCachedTestSeeder returns a seeder whose sidebar cache lives in the
// returned miniredis, primed with a stale sidebar entry.
func newCachedTestSeeder(t *testing.T) (*Seeder, *MockCategoryStorer, *MockProductStorer, *miniredis.Miniredis) {
	t.Helper()
	categories := &MockCategoryStorer{}
	products := &MockProductStorer{}
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(sidebarKey, `[{"name":"Notebooks","slug":"notebooks","count":0}]`))
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	media, err := imaging.NewDirStorage(t.TempDir(), "products")
	require.NoError(t, err)
	images := imaging.NewNormalizer(config.ImageConfig{
		MinWidth: 400, MinHeight: 400, MaxWidth: 1000, MaxHeight: 1000, MaxBytes: 3145728, ResizeTarget: "min", JPEGQuality: 90,
	})
	registry := catalog.NewRegistry(map[string]string{"notebooks": "notebook", "smartphones": "smartphone"})
	logger := log.New(io.Discard, "", 0)
	sidebar := catalog.NewSidebar(registry, categories, products, cache.NewRedisCache(client, time.Minute), logger)
	return NewSeeder(registry, categories, products, images, media, sidebar, logger), categories, products, mr
}

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, c.Categories, 2)
	require.Len(t, c.Products, 2)

	p, err := c.Products[1].Product(2)
	require.NoError(t, err)
	phone, ok := p.(*domain.Smartphone)
	require.True(t, ok)
	assert.Equal(t, int64(2), phone.CategoryID)
	assert.True(t, phone.Price.Equal(decimal.NewFromInt(699)))
	assert.Nil(t, phone.SDVolume, "sd_volume is dropped when sd is false")
	require.NotNil(t, phone.Description)
	assert.Equal(t, "Compact flagship", *phone.Description)
}

func TestLoad_Rejects(t *testing.T) {
	_, err := Load(strings.NewReader("categories:\n  - name: A\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	bad := ProductFixture{Type: "tablet", Slug: "tab", Price: "1"}
	_, err = bad.Product(1)
	assert.Error(t, err)

	bad = ProductFixture{Type: "notebook", Slug: "nb", Price: "cheap"}
	_, err = bad.Product(1)
	assert.Error(t, err)
}

func TestSeeder_Run(t *testing.T) {
	s, categories, products := newTestSeeder(t)
	c, err := Load(strings.NewReader(fixture))
	require.NoError(t, err)

	notebooksCat := &domain.Category{ID: 1, Name: "Notebooks", Slug: "notebooks"}
	phonesCat := &domain.Category{ID: 2, Name: "Smartphones", Slug: "smartphones"}
	categories.On("GetCategoryBySlug", mock.Anything, "notebooks").Return(notebooksCat, nil).Once()
	categories.On("GetCategoryBySlug", mock.Anything, "smartphones").Return(nil, store.ErrCategoryNotFound).Once()
	categories.On("CreateCategory", mock.Anything, mock.MatchedBy(func(c *domain.Category) bool { return c.Slug == "smartphones" })).
		Return(phonesCat, nil).Once()

	products.On("GetProductBySlug", mock.Anything, domain.TypeNotebook, "thinkpad-x1").Return(nil, store.ErrProductNotFound).Once()
	products.On("GetProductBySlug", mock.Anything, domain.TypeSmartphone, "pixel-8").Return(&domain.Smartphone{}, nil).Once()
	products.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		core := p.Core()
		return core.Slug == "thinkpad-x1" && core.CategoryID == 1 &&
			strings.HasPrefix(core.Image, "products/x1_") && strings.HasSuffix(core.Image, ".jpg")
	})).Return(&domain.Notebook{}, nil).Once()

	assets := fstest.MapFS{"x1.png": {Data: pngBytes(t, 1600, 1200)}}
	res, err := s.Run(context.Background(), c, assets)
	require.NoError(t, err)
	assert.Equal(t, Result{Categories: 1, Products: 1, Skipped: 1}, res)

	categories.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestSeeder_Run_InvalidatesSidebar(t *testing.T) {
	c := &Catalog{
		Categories: []CategoryFixture{{Name: "Notebooks", Slug: "notebooks"}},
		Products:   []ProductFixture{{Type: "notebook", Category: "notebooks", Slug: "nb", Price: "10"}},
	}

	t.Run("Created products drop the cached sidebar", func(t *testing.T) {
		s, categories, products, mr := newCachedTestSeeder(t)
		categories.On("GetCategoryBySlug", mock.Anything, "notebooks").Return(&domain.Category{ID: 1, Slug: "notebooks"}, nil).Once()
		products.On("GetProductBySlug", mock.Anything, domain.TypeNotebook, "nb").Return(nil, store.ErrProductNotFound).Once()
		products.On("CreateProduct", mock.Anything, mock.Anything).Return(&domain.Notebook{}, nil).Once()

		res, err := s.Run(context.Background(), c, fstest.MapFS{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Products)
		assert.False(t, mr.Exists(sidebarKey))
	})

	t.Run("Nothing created keeps the cached sidebar", func(t *testing.T) {
		s, categories, products, mr := newCachedTestSeeder(t)
		categories.On("GetCategoryBySlug", mock.Anything, "notebooks").Return(&domain.Category{ID: 1, Slug: "notebooks"}, nil).Once()
		products.On("GetProductBySlug", mock.Anything, domain.TypeNotebook, "nb").Return(&domain.Notebook{}, nil).Once()

		res, err := s.Run(context.Background(), c, fstest.MapFS{})
		require.NoError(t, err)
		assert.Equal(t, Result{Skipped: 1}, res)
		assert.True(t, mr.Exists(sidebarKey))
	})

	t.Run("Created category drops the cache even when a product fails", func(t *testing.T) {
		s, categories, products, mr := newCachedTestSeeder(t)
		categories.On("GetCategoryBySlug", mock.Anything, "notebooks").Return(nil, store.ErrCategoryNotFound).Once()
		categories.On("CreateCategory", mock.Anything, mock.Anything).Return(&domain.Category{ID: 1, Slug: "notebooks"}, nil).Once()
		products.On("GetProductBySlug", mock.Anything, domain.TypeNotebook, "nb").Return(nil, errors.New("connection reset")).Once()

		res, err := s.Run(context.Background(), c, fstest.MapFS{})
		assert.Error(t, err)
		assert.Equal(t, 1, res.Categories)
		assert.False(t, mr.Exists(sidebarKey))
	})
}

func TestSeeder_Run_CategoryMismatch(t *testing.T) {
	s, categories, _ := newTestSeeder(t)
	c := &Catalog{
		Categories: []CategoryFixture{{Name: "Smartphones", Slug: "smartphones"}},
		Products:   []ProductFixture{{Type: "notebook", Category: "smartphones", Slug: "nb", Price: "10"}},
	}
	categories.On("GetCategoryBySlug", mock.Anything, "smartphones").Return(&domain.Category{ID: 2, Slug: "smartphones"}, nil).Once()

	_, err := s.Run(context.Background(), c, fstest.MapFS{})
	assert.ErrorIs(t, err, catalog.ErrCategoryMismatch)
}

func TestSeeder_Run_MissingImage(t *testing.T) {
	s, categories, products := newTestSeeder(t)
	c := &Catalog{
		Categories: []CategoryFixture{{Name: "Notebooks", Slug: "notebooks"}},
		Products:   []ProductFixture{{Type: "notebook", Category: "notebooks", Slug: "nb", Price: "10", Image: "missing.png"}},
	}
	categories.On("GetCategoryBySlug", mock.Anything, "notebooks").Return(&domain.Category{ID: 1, Slug: "notebooks"}, nil).Once()
	products.On("GetProductBySlug", mock.Anything, domain.TypeNotebook, "nb").Return(nil, store.ErrProductNotFound).Once()

	_, err := s.Run(context.Background(), c, fstest.MapFS{})
	assert.Error(t, err)
	products.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}
