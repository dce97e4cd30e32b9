// Package cart maintains shopping carts whose lines point at products of any
// registered type.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

var (
	ErrCartLocked      = errors.New("cart: cart is part of an order and cannot be changed")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
)

// ProductResolver loads the product a cart line refers to.
type ProductResolver interface {
	Resolve(ctx context.Context, ref domain.ProductRef) (domain.Product, error)
}

// Service applies line mutations and keeps cart totals in step with them.
type Service struct {
	resolver ProductResolver
	carts    store.CartStorer
	logger   *log.Logger
}

func NewService(resolver ProductResolver, carts store.CartStorer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{resolver: resolver, carts: carts, logger: logger}
}

// RecomputeTotals sets TotalProducts and FinalPrice from the current lines.
func RecomputeTotals(cart *domain.Cart) {
	total := 0
	price := decimal.Zero
	for _, l := range cart.Lines {
		total += l.Qty
		price = price.Add(l.FinalPrice)
	}
	cart.TotalProducts = total
	cart.FinalPrice = price
}

// OpenCart returns the customer's cart that is not yet part of an order,
// creating an empty one on first use.
func (s *Service) OpenCart(ctx context.Context, customer *domain.Customer, anonymous bool) (*domain.Cart, error) {
	cart, err := s.carts.GetOpenCart(ctx, customer.ID, anonymous)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrCartNotFound) {
		return nil, err
	}

	cart, err = s.carts.CreateCart(ctx, &domain.Cart{
		OwnerID:          customer.ID,
		FinalPrice:       decimal.Zero,
		ForAnonymousUser: anonymous,
	})
	if errors.Is(err, store.ErrOpenCartExists) {
		// Another request created it first.
		return s.carts.GetOpenCart(ctx, customer.ID, anonymous)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Printf("INFO: Opened cart %d for customer %d (anonymous=%t)", cart.ID, customer.ID, anonymous)
	return cart, nil
}

// AddLine puts qty units of the referenced product in the cart at its current
// price. A product already in the cart has qty added to its existing line at
// the unit price that line was snapshotted with.
func (s *Service) AddLine(ctx context.Context, cart *domain.Cart, ref domain.ProductRef, qty int) (*domain.CartLine, error) {
	if cart.InOrder {
		return nil, ErrCartLocked
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	for i := range cart.Lines {
		if cart.Lines[i].Product == ref {
			return s.setQty(ctx, cart, i, cart.Lines[i].Qty+qty)
		}
	}

	product, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	line, err := s.carts.InsertCartLine(ctx, &domain.CartLine{
		CustomerID: cart.OwnerID,
		CartID:     cart.ID,
		Product:    ref,
		Qty:        qty,
		FinalPrice: product.Core().Price.Mul(decimal.NewFromInt(int64(qty))),
	})
	if err != nil {
		return nil, err
	}
	cart.Lines = append(cart.Lines, *line)
	if err := s.saveTotals(ctx, cart); err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveLine deletes a line from the cart.
func (s *Service) RemoveLine(ctx context.Context, cart *domain.Cart, lineID int64) error {
	if cart.InOrder {
		return ErrCartLocked
	}
	idx := cart.LineIndex(lineID)
	if idx < 0 {
		return store.ErrCartLineNotFound
	}
	if err := s.carts.DeleteCartLine(ctx, cart.ID, lineID); err != nil {
		return err
	}
	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	return s.saveTotals(ctx, cart)
}

// ChangeQty sets the quantity of a line. The line keeps the unit price it
// was added at.
func (s *Service) ChangeQty(ctx context.Context, cart *domain.Cart, lineID int64, qty int) (*domain.CartLine, error) {
	if cart.InOrder {
		return nil, ErrCartLocked
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	idx := cart.LineIndex(lineID)
	if idx < 0 {
		return nil, store.ErrCartLineNotFound
	}
	return s.setQty(ctx, cart, idx, qty)
}

func (s *Service) setQty(ctx context.Context, cart *domain.Cart, idx, qty int) (*domain.CartLine, error) {
	line := cart.Lines[idx]
	line.FinalPrice = line.UnitPrice().Mul(decimal.NewFromInt(int64(qty)))
	line.Qty = qty
	if err := s.carts.UpdateCartLine(ctx, &line); err != nil {
		return nil, err
	}
	cart.Lines[idx] = line
	if err := s.saveTotals(ctx, cart); err != nil {
		return nil, err
	}
	return &cart.Lines[idx], nil
}

func (s *Service) saveTotals(ctx context.Context, cart *domain.Cart) error {
	RecomputeTotals(cart)
	if err := s.carts.UpdateCartTotals(ctx, cart); err != nil {
		return fmt.Errorf("cart: save totals of cart %d: %w", cart.ID, err)
	}
	return nil
}
