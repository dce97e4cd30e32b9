package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront-service/internal/auth"
	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
)

// CartLineInput defines the expected input for adding a product to the cart.
type CartLineInput struct {
	Type      string `json:"type" validate:"required"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Qty       *int   `json:"qty"`
}

// CartQtyInput defines the expected input for changing a line quantity.
type CartQtyInput struct {
	Qty int `json:"qty"`
}

// CustomerInput defines the editable customer fields.
type CustomerInput struct {
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=255"`
}

// CartLineView is a cart line with the product it points at.
type CartLineView struct {
	ID         int64           `json:"id"`
	Type       domain.TypeTag  `json:"type"`
	ProductID  int64           `json:"product_id"`
	Title      string          `json:"title,omitempty"`
	URL        string          `json:"url,omitempty"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// CartResponse is the shopper's open cart.
type CartResponse struct {
	ID            int64           `json:"id"`
	Lines         []CartLineView  `json:"lines"`
	TotalProducts int             `json:"total_products"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	InOrder       bool            `json:"in_order"`
}

// currentCart resolves the request identity to its customer and open cart.
func (h *HTTPHandler) currentCart(r *http.Request) (*domain.Cart, error) {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		return nil, err
	}
	customer, err := h.customers.Resolve(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return h.carts.OpenCart(r.Context(), customer, id.Anonymous)
}

func (h *HTTPHandler) cartView(r *http.Request, c *domain.Cart) CartResponse {
	lines := make([]CartLineView, 0, len(c.Lines))
	for _, l := range c.Lines {
		view := CartLineView{
			ID:         l.ID,
			Type:       l.Product.Type,
			ProductID:  l.Product.ID,
			Qty:        l.Qty,
			UnitPrice:  l.UnitPrice(),
			FinalPrice: l.FinalPrice,
		}
		if p, err := h.resolver.Resolve(r.Context(), l.Product); err == nil {
			view.Title = p.Core().Title
			view.URL = catalog.ProductURL(p)
		} else {
			h.logger.Printf("WARN: Cart %d line %d points at %s: %v", c.ID, l.ID, l.Product, err)
		}
		lines = append(lines, view)
	}
	return CartResponse{
		ID:            c.ID,
		Lines:         lines,
		TotalProducts: c.TotalProducts,
		FinalPrice:    c.FinalPrice,
		InOrder:       c.InOrder,
	}
}

func lineIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineId"), 10, 64)
	if err != nil || lineID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid cart line ID format")
		return 0, false
	}
	return lineID, true
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.currentCart(r)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to load cart")
		return
	}
	respondWithJSON(w, http.StatusOK, h.cartView(r, c))
}

func (h *HTTPHandler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var input CartLineInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	tag, err := h.registry.ParseType(input.Type)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	qty := 1
	if input.Qty != nil {
		qty = *input.Qty
	}

	c, err := h.currentCart(r)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to load cart")
		return
	}
	if _, err := h.carts.AddLine(r.Context(), c, domain.ProductRef{Type: tag, ID: input.ProductID}, qty); err != nil {
		h.respondWithDomainError(w, err, "Failed to add product to cart")
		return
	}
	respondWithJSON(w, http.StatusCreated, h.cartView(r, c))
}

func (h *HTTPHandler) ChangeCartLineQty(w http.ResponseWriter, r *http.Request) {
	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}
	var input CartQtyInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	c, err := h.currentCart(r)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to load cart")
		return
	}
	if _, err := h.carts.ChangeQty(r.Context(), c, lineID, input.Qty); err != nil {
		h.respondWithDomainError(w, err, "Failed to change quantity")
		return
	}
	respondWithJSON(w, http.StatusOK, h.cartView(r, c))
}

func (h *HTTPHandler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	c, err := h.currentCart(r)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to load cart")
		return
	}
	if err := h.carts.RemoveLine(r.Context(), c, lineID); err != nil {
		h.respondWithDomainError(w, err, "Failed to remove cart line")
		return
	}
	respondWithJSON(w, http.StatusOK, h.cartView(r, c))
}

// --- Customer Handlers ---

func (h *HTTPHandler) GetCurrentCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := auth.FromContext(r.Context())
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to identify customer")
		return
	}
	customer, err := h.customers.Resolve(r.Context(), id)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to load customer")
		return
	}
	respondWithJSON(w, http.StatusOK, customer)
}

func (h *HTTPHandler) UpdateCurrentCustomer(w http.ResponseWriter, r *http.Request) {
	var input CustomerInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	id, err := auth.FromContext(r.Context())
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to identify customer")
		return
	}
	customer, err := h.customers.Resolve(r.Context(), id)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to load customer")
		return
	}

	customer.Phone = input.Phone
	customer.Address = input.Address
	updated, err := h.customerStore.UpdateCustomer(r.Context(), customer)
	if err != nil {
		h.respondWithDomainError(w, err, "Failed to update customer")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}
