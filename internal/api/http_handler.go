package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/imaging"
	"storefront-service/internal/store"
)

// Services bundles what the HTTP and gRPC handlers are built from.
type Services struct {
	Registry   *catalog.Registry
	Categories store.CategoryStorer
	Products   store.ProductStorer
	Customers  store.CustomerStorer
	Carts      store.CartStorer
	Sidebar    *catalog.Sidebar
	Images     *imaging.Normalizer
	Media      imaging.Storage
	Auth       *auth.Authenticator
	// LatestLimit and Prioritize are the front-page defaults.
	LatestLimit int
	Prioritize  domain.TypeTag
	Logger      *log.Logger
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	registry      *catalog.Registry
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	customerStore store.CustomerStorer
	resolver      *catalog.Resolver
	latest        *catalog.LatestSelector
	sidebar       *catalog.Sidebar
	carts         *cart.Service
	customers     *auth.Customers
	authenticator *auth.Authenticator
	images        *imaging.Normalizer
	media         imaging.Storage
	latestLimit   int
	prioritize    domain.TypeTag
	validate      *validator.Validate
	logger        *log.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(s Services) *HTTPHandler {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	sidebar := s.Sidebar
	if sidebar == nil {
		sidebar = catalog.NewSidebar(s.Registry, s.Categories, s.Products, nil, logger)
	}
	resolver := catalog.NewResolver(s.Registry, s.Products)
	return &HTTPHandler{
		registry:      s.Registry,
		categoryStore: s.Categories,
		productStore:  s.Products,
		customerStore: s.Customers,
		resolver:      resolver,
		latest:        catalog.NewLatestSelector(s.Registry, s.Products),
		sidebar:       sidebar,
		carts:         cart.NewService(resolver, s.Carts, logger),
		customers:     auth.NewCustomers(s.Customers),
		authenticator: s.Auth,
		images:        s.Images,
		media:         s.Media,
		latestLimit:   s.LatestLimit,
		prioritize:    s.Prioritize,
		validate:      newValidator(),
		logger:        logger,
	}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// Prices are validated as numbers.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sidebar", h.GetSidebar)

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", h.CreateCategory)
			r.Get("/", h.ListCategories)
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", h.GetCategory)
				r.Put("/", h.UpdateCategory)
				r.Delete("/", h.DeleteCategory)
			})
		})

		r.Route("/products", func(r chi.Router) {
			// Registered before {type} so "latest" is never taken for a type tag.
			r.Get("/latest", h.GetLatestProducts)
			r.Route("/{type}", func(r chi.Router) {
				r.Post("/", h.CreateProduct)
				r.Route("/{slug}", func(r chi.Router) {
					r.Get("/", h.GetProduct)
					r.Put("/", h.UpdateProduct)
					r.Delete("/", h.DeleteProduct)
					r.Post("/image", h.UploadProductImage)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authenticator.Middleware)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/lines", h.AddCartLine)
				r.Patch("/lines/{lineId}", h.ChangeCartLineQty)
				r.Delete("/lines/{lineId}", h.RemoveCartLine)
			})
			r.Get("/customers/me", h.GetCurrentCustomer)
			r.Put("/customers/me", h.UpdateCurrentCustomer)
		})
	})
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("ERROR: Failed to encode JSON response: %v", err)
	}
}

// decodeJSON reads and validates a request body into dst. It writes the 400
// response itself and reports whether the handler should continue.
func (h *HTTPHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// respondWithDomainError maps package sentinel errors onto HTTP statuses.
// Unrecognized errors are logged and reported as fallback with a 500.
func (h *HTTPHandler) respondWithDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, catalog.ErrUnknownType),
		errors.Is(err, catalog.ErrCategoryMismatch),
		errors.Is(err, cart.ErrInvalidQuantity):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrCartLineNotFound),
		errors.Is(err, store.ErrCustomerNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrCategorySlugExists),
		errors.Is(err, store.ErrProductSlugExists),
		errors.Is(err, store.ErrCategoryInUse),
		errors.Is(err, cart.ErrCartLocked):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, imaging.ErrMinResolution),
		errors.Is(err, imaging.ErrMaxSize),
		errors.Is(err, imaging.ErrUnsupportedFormat):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, auth.ErrNoIdentity):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Printf("ERROR: %s: %v", fallback, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// --- Sidebar ---

func (h *HTTPHandler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sidebar.Entries(r.Context())
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to build sidebar")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}
