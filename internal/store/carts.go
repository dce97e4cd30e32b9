package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

// --- CustomerStorer Implementation ---

func (s *PostgresStore) GetCustomerByUserRef(ctx context.Context, userRef string) (*domain.Customer, error) {
	query := `
		SELECT id, user_ref, phone, address, created_at
		FROM shop.customers
		WHERE user_ref = $1;
	`
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, query, userRef).Scan(&c.ID, &c.UserRef, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("store: GetCustomerByUserRef failed to scan row: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	query := `
		INSERT INTO shop.customers (user_ref, phone, address)
		VALUES ($1, $2, $3)
		RETURNING id, user_ref, phone, address, created_at;
	`
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, query, customer.UserRef, customer.Phone, customer.Address).
		Scan(&c.ID, &c.UserRef, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if _, ok := isPQCode(err, pqUniqueViolation); ok {
			return nil, ErrCustomerExists
		}
		return nil, fmt.Errorf("store: CreateCustomer failed to scan row: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	query := `
		UPDATE shop.customers
		SET phone = $1, address = $2
		WHERE id = $3
		RETURNING id, user_ref, phone, address, created_at;
	`
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, query, customer.Phone, customer.Address, customer.ID).
		Scan(&c.ID, &c.UserRef, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("store: UpdateCustomer failed to scan row: %w", err)
	}
	return &c, nil
}

// --- CartStorer Implementation ---

func (s *PostgresStore) GetOpenCart(ctx context.Context, ownerID int64, anonymous bool) (*domain.Cart, error) {
	query := `
		SELECT id, owner_id, total_products, final_price, in_order, for_anonymous_user
		FROM shop.carts
		WHERE owner_id = $1 AND for_anonymous_user = $2 AND in_order = FALSE;
	`
	var cart domain.Cart
	err := s.db.QueryRowContext(ctx, query, ownerID, anonymous).Scan(
		&cart.ID, &cart.OwnerID, &cart.TotalProducts, &cart.FinalPrice, &cart.InOrder, &cart.ForAnonymousUser,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("store: GetOpenCart failed to scan row: %w", err)
	}

	linesQuery := `
		SELECT id, customer_id, cart_id, product_type, product_id, qty, final_price
		FROM shop.cart_lines
		WHERE cart_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.db.QueryContext(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("store: GetOpenCart failed to query lines: %w", err)
	}
	defer rows.Close()

	cart.Lines = make([]domain.CartLine, 0)
	for rows.Next() {
		var l domain.CartLine
		var productType string
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.CartID, &productType, &l.Product.ID, &l.Qty, &l.FinalPrice); err != nil {
			return nil, fmt.Errorf("store: GetOpenCart failed to scan line row: %w", err)
		}
		l.Product.Type = domain.TypeTag(productType)
		cart.Lines = append(cart.Lines, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: GetOpenCart line iteration error: %w", err)
	}
	return &cart, nil
}

func (s *PostgresStore) CreateCart(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	query := `
		INSERT INTO shop.carts (owner_id, total_products, final_price, in_order, for_anonymous_user)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`
	created := *cart
	err := s.db.QueryRowContext(ctx, query,
		cart.OwnerID, cart.TotalProducts, cart.FinalPrice, cart.InOrder, cart.ForAnonymousUser,
	).Scan(&created.ID)
	if err != nil {
		if _, ok := isPQCode(err, pqUniqueViolation); ok {
			return nil, ErrOpenCartExists
		}
		return nil, fmt.Errorf("store: CreateCart failed to scan row: %w", err)
	}
	if created.Lines == nil {
		created.Lines = []domain.CartLine{}
	}
	return &created, nil
}

func (s *PostgresStore) InsertCartLine(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error) {
	query := `
		INSERT INTO shop.cart_lines (customer_id, cart_id, product_type, product_id, qty, final_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	created := *line
	err := s.db.QueryRowContext(ctx, query,
		line.CustomerID, line.CartID, string(line.Product.Type), line.Product.ID, line.Qty, line.FinalPrice,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("store: InsertCartLine failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) UpdateCartLine(ctx context.Context, line *domain.CartLine) error {
	query := `
		UPDATE shop.cart_lines
		SET qty = $1, final_price = $2
		WHERE id = $3 AND cart_id = $4;
	`
	result, err := s.db.ExecContext(ctx, query, line.Qty, line.FinalPrice, line.ID, line.CartID)
	if err != nil {
		return fmt.Errorf("store: UpdateCartLine failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdateCartLine failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCartLine(ctx context.Context, cartID, lineID int64) error {
	query := `DELETE FROM shop.cart_lines WHERE id = $1 AND cart_id = $2;`
	result, err := s.db.ExecContext(ctx, query, lineID, cartID)
	if err != nil {
		return fmt.Errorf("store: DeleteCartLine failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCartLine failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateCartTotals(ctx context.Context, cart *domain.Cart) error {
	query := `
		UPDATE shop.carts
		SET total_products = $1, final_price = $2
		WHERE id = $3;
	`
	result, err := s.db.ExecContext(ctx, query, cart.TotalProducts, cart.FinalPrice, cart.ID)
	if err != nil {
		return fmt.Errorf("store: UpdateCartTotals failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdateCartTotals failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartNotFound
	}
	return nil
}
