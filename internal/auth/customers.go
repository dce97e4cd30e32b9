package auth

import (
	"context"
	"errors"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// Customers maps identities to customer records, creating them on first use.
type Customers struct {
	store store.CustomerStorer
}

func NewCustomers(s store.CustomerStorer) *Customers {
	return &Customers{store: s}
}

// Resolve returns the customer for id.
func (c *Customers) Resolve(ctx context.Context, id Identity) (*domain.Customer, error) {
	customer, err := c.store.GetCustomerByUserRef(ctx, id.Subject)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, store.ErrCustomerNotFound) {
		return nil, err
	}
	customer, err = c.store.CreateCustomer(ctx, &domain.Customer{UserRef: id.Subject})
	if errors.Is(err, store.ErrCustomerExists) {
		return c.store.GetCustomerByUserRef(ctx, id.Subject)
	}
	return customer, err
}
