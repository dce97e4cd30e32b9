package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the shop-side record of an external user identity.
// UserRef is the identity provider's subject, or "anon:<uuid>" for guests.
type Customer struct {
	ID        int64     `json:"id"`
	UserRef   string    `json:"user_ref"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is one entry of a cart. FinalPrice is the unit price times Qty
// captured when the line was added; it is never recomputed from the catalog.
type CartLine struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	CartID     int64           `json:"cart_id"`
	Product    ProductRef      `json:"product"`
	Qty        int             `json:"qty"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// UnitPrice recovers the snapshotted unit price of the line.
func (l CartLine) UnitPrice() decimal.Decimal {
	if l.Qty <= 0 {
		return decimal.Zero
	}
	return l.FinalPrice.Div(decimal.NewFromInt(int64(l.Qty)))
}

// Cart aggregates cart lines. TotalProducts and FinalPrice are only
// consistent with Lines after the cart service recomputes them.
type Cart struct {
	ID               int64           `json:"id"`
	OwnerID          int64           `json:"owner_id"`
	Lines            []CartLine      `json:"lines"`
	TotalProducts    int             `json:"total_products"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	InOrder          bool            `json:"in_order"`
	ForAnonymousUser bool            `json:"for_anonymous_user"`
}

// LineIndex returns the position of the line with the given id, or -1.
func (c *Cart) LineIndex(lineID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}
