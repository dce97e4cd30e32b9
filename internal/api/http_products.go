package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const maxUploadBody = 32 << 20

// ProductCoreInput holds the fields every product type accepts.
type ProductCoreInput struct {
	CategoryID  int64            `json:"category_id" validate:"required,gt=0"`
	Title       string           `json:"title" validate:"required,max=255"`
	Slug        string           `json:"slug" validate:"required,max=255,slug"`
	Description *string          `json:"description" validate:"omitempty"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0,lte=999999.999"`
}

func (in ProductCoreInput) core() domain.ProductCore {
	return domain.ProductCore{
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Slug:        in.Slug,
		Description: in.Description,
		Price:       *in.Price,
	}
}

// NotebookInput defines the expected input for a notebook.
type NotebookInput struct {
	ProductCoreInput
	Diagonal          string `json:"diagonal" validate:"required,max=255"`
	Display           string `json:"display" validate:"required,max=255"`
	ProcessorFreq     string `json:"processor_freq" validate:"required,max=255"`
	RAM               string `json:"ram" validate:"required,max=255"`
	Video             string `json:"video" validate:"required,max=255"`
	TimeWithoutCharge string `json:"time_without_charge" validate:"required,max=255"`
}

// SmartphoneInput defines the expected input for a smartphone.
type SmartphoneInput struct {
	ProductCoreInput
	Diagonal     string  `json:"diagonal" validate:"required,max=255"`
	Display      string  `json:"display" validate:"required,max=255"`
	Resolution   string  `json:"resolution" validate:"required,max=255"`
	AccumVolume  string  `json:"accum_volume" validate:"required,max=255"`
	RAM          string  `json:"ram" validate:"required,max=255"`
	SD           bool    `json:"sd"`
	SDVolume     *string `json:"sd_volume" validate:"omitempty,max=255"`
	MainCamMP    string  `json:"main_cam_mp" validate:"required,max=255"`
	FrontalCamMP string  `json:"frontal_cam_mp" validate:"required,max=255"`
}

// ProductSummary is the list form of a product.
type ProductSummary struct {
	Type    domain.TypeTag `json:"type"`
	URL     string         `json:"url"`
	Product domain.Product `json:"product"`
}

// ProductDetailResponse is a product with its rendered specification table.
type ProductDetailResponse struct {
	ProductSummary
	Specification []catalog.SpecRow `json:"specification"`
}

func summarize(p domain.Product) ProductSummary {
	return ProductSummary{Type: p.Type(), URL: catalog.ProductURL(p), Product: p}
}

// decodeProduct reads the body of a create or update request for tag.
func (h *HTTPHandler) decodeProduct(w http.ResponseWriter, r *http.Request, tag domain.TypeTag) (domain.Product, bool) {
	switch tag {
	case domain.TypeNotebook:
		var in NotebookInput
		if !h.decodeJSON(w, r, &in) {
			return nil, false
		}
		return &domain.Notebook{
			ProductCore:       in.core(),
			Diagonal:          in.Diagonal,
			Display:           in.Display,
			ProcessorFreq:     in.ProcessorFreq,
			RAM:               in.RAM,
			Video:             in.Video,
			TimeWithoutCharge: in.TimeWithoutCharge,
		}, true
	case domain.TypeSmartphone:
		var in SmartphoneInput
		if !h.decodeJSON(w, r, &in) {
			return nil, false
		}
		sdVolume := in.SDVolume
		if !in.SD {
			sdVolume = nil
		}
		return &domain.Smartphone{
			ProductCore:  in.core(),
			Diagonal:     in.Diagonal,
			Display:      in.Display,
			Resolution:   in.Resolution,
			AccumVolume:  in.AccumVolume,
			RAM:          in.RAM,
			SD:           in.SD,
			SDVolume:     sdVolume,
			MainCamMP:    in.MainCamMP,
			FrontalCamMP: in.FrontalCamMP,
		}, true
	}
	respondWithError(w, http.StatusBadRequest, fmt.Sprintf("%v: %q", catalog.ErrUnknownType, tag))
	return nil, false
}

// checkCategory verifies the product's category exists and accepts its type.
func (h *HTTPHandler) checkCategory(w http.ResponseWriter, r *http.Request, p domain.Product) bool {
	category, err := h.categoryStore.GetCategoryByID(r.Context(), p.Core().CategoryID)
	if errors.Is(err, store.ErrCategoryNotFound) {
		respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist.")
		return false
	}
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve category")
		return false
	}
	if err := h.registry.CheckCategory(p.Type(), category); err != nil {
		h.respondWithDomainError(w, err, "Failed to check category")
		return false
	}
	return true
}

func (h *HTTPHandler) typeParam(w http.ResponseWriter, r *http.Request) (domain.TypeTag, bool) {
	tag, err := h.registry.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return tag, true
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.typeParam(w, r)
	if !ok {
		return
	}
	product, ok := h.decodeProduct(w, r, tag)
	if !ok || !h.checkCategory(w, r, product) {
		return
	}

	created, err := h.productStore.CreateProduct(r.Context(), product)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to create product")
		return
	}
	h.sidebar.Invalidate(r.Context())
	respondWithJSON(w, http.StatusCreated, summarize(created))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.typeParam(w, r)
	if !ok {
		return
	}
	product, err := h.resolver.ResolveSlug(r.Context(), tag, chi.URLParam(r, "slug"))
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve product")
		return
	}

	rows, err := h.registry.RenderTable(product, catalog.YesNo)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to render specification")
		return
	}
	respondWithJSON(w, http.StatusOK, ProductDetailResponse{ProductSummary: summarize(product), Specification: rows})
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.typeParam(w, r)
	if !ok {
		return
	}
	existing, err := h.resolver.ResolveSlug(r.Context(), tag, chi.URLParam(r, "slug"))
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve product")
		return
	}
	product, ok := h.decodeProduct(w, r, tag)
	if !ok {
		return
	}
	// The image is only replaced through the upload endpoint.
	product.Core().ID = existing.Core().ID
	product.Core().Image = existing.Core().Image
	if !h.checkCategory(w, r, product) {
		return
	}

	updated, err := h.productStore.UpdateProduct(r.Context(), product)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to update product")
		return
	}
	if updated.Core().CategoryID != existing.Core().CategoryID {
		h.sidebar.Invalidate(r.Context())
	}
	respondWithJSON(w, http.StatusOK, summarize(updated))
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.typeParam(w, r)
	if !ok {
		return
	}
	existing, err := h.resolver.ResolveSlug(r.Context(), tag, chi.URLParam(r, "slug"))
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve product")
		return
	}

	if err := h.productStore.DeleteProduct(r.Context(), tag, existing.Core().ID); err != nil {
		h.respondWithDomainError(w, err, "Failed to delete product")
		return
	}
	h.sidebar.Invalidate(r.Context())
	respondWithJSON(w, http.StatusNoContent, nil)
}

// UploadProductImage accepts a multipart "image" file, validates and
// normalizes it, stores it and records the stored name on the product.
func (h *HTTPHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.typeParam(w, r)
	if !ok {
		return
	}
	product, err := h.resolver.ResolveSlug(r.Context(), tag, chi.URLParam(r, "slug"))
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve product")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}

	normalized, err := h.images.ProcessUpload(data, header.Filename)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to process image")
		return
	}
	name, err := h.media.Save(r.Context(), normalized)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to store image")
		return
	}
	if err := h.productStore.UpdateProductImage(r.Context(), tag, product.Core().ID, name); err != nil {
		h.respondWithDomainError(w, err, "Failed to update product image")
		return
	}
	h.logger.Printf("INFO: Stored image %s for %s (resized=%t)", name, domain.Ref(product), normalized.Resized)

	product.Core().Image = name
	respondWithJSON(w, http.StatusOK, summarize(product))
}

// maxLatestLimit caps the per-type limit of latest-product requests on every transport.
const maxLatestLimit = 100

// prioritizeParam normalizes a caller-supplied prioritize value. Blank disables prioritization.
func prioritizeParam(raw string) *domain.TypeTag {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil
	}
	p := domain.TypeTag(raw)
	return &p
}

// GetLatestProducts serves the front page selection. types defaults to every
// registered type; an empty prioritize parameter disables prioritization.
func (h *HTTPHandler) GetLatestProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tags := h.registry.ConcreteTypes()
	if raw := q.Get("types"); raw != "" {
		tags = tags[:0]
		for _, part := range strings.Split(raw, ",") {
			tag, err := h.registry.ParseType(part)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			tags = append(tags, tag)
		}
	}

	limit := h.latestLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLatestLimit {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit: must be between 1 and %d", maxLatestLimit))
			return
		}
		limit = n
	}

	var prioritize *domain.TypeTag
	if h.prioritize != "" {
		p := h.prioritize
		prioritize = &p
	}
	if q.Has("prioritize") {
		prioritize = prioritizeParam(q.Get("prioritize"))
	}

	products, err := h.latest.Latest(r.Context(), tags, limit, prioritize)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve latest products")
		return
	}
	summaries := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, summarize(p))
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": summaries})
}
