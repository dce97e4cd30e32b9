package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
)

// CategoryInput defines the expected input for creating or updating a category.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"required,max=255,slug"`
}

// CategoryDetailResponse is a category with every product filed under it.
type CategoryDetailResponse struct {
	Category *domain.Category `json:"category"`
	URL      string           `json:"url"`
	Products []ProductSummary `json:"products"`
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), &domain.Category{Name: input.Name, Slug: input.Slug})
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to create category")
		return
	}
	h.sidebar.Invalidate(r.Context())
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryStore.ListCategories(r.Context())
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": categories})
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	category, err := h.categoryStore.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve category")
		return
	}

	products, err := catalog.CategoryProducts(r.Context(), h.registry, h.productStore, category)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve category products")
		return
	}
	summaries := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, summarize(p))
	}

	respondWithJSON(w, http.StatusOK, CategoryDetailResponse{
		Category: category,
		URL:      catalog.CategoryURL(*category),
		Products: summaries,
	})
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	existing, err := h.categoryStore.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve category")
		return
	}

	var input CategoryInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	updated, err := h.categoryStore.UpdateCategory(r.Context(), &domain.Category{
		ID:   existing.ID,
		Name: input.Name,
		Slug: input.Slug,
	})
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to update category")
		return
	}
	h.sidebar.Invalidate(r.Context())
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	existing, err := h.categoryStore.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to retrieve category")
		return
	}

	if err := h.categoryStore.DeleteCategory(r.Context(), existing.ID); err != nil {
		h.respondWithDomainError(w, err, "Failed to delete category")
		return
	}
	h.sidebar.Invalidate(r.Context())
	respondWithJSON(w, http.StatusNoContent, nil)
}
