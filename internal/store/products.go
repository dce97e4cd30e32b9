package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"storefront-service/internal/domain"
)

// productTable maps a concrete product type onto its table. The shared
// ProductCore columns come first in every query, followed by columns.
type productTable struct {
	name    string
	columns []string
	newRow  func() domain.Product
	// dest returns scan targets for the type-specific columns.
	dest func(p domain.Product) []any
	// args returns the type-specific column values for writes.
	args func(p domain.Product) []any
}

var coreColumns = []string{"id", "category_id", "title", "slug", "image", "description", "price", "created_at", "updated_at"}

// writableCoreColumns are the ProductCore columns set by inserts and updates.
var writableCoreColumns = []string{"category_id", "title", "slug", "image", "description", "price"}

var productTables = map[domain.TypeTag]productTable{
	domain.TypeNotebook: {
		name:    "shop.notebooks",
		columns: []string{"diagonal", "display", "processor_freq", "ram", "video", "time_without_charge"},
		newRow:  func() domain.Product { return &domain.Notebook{} },
		dest: func(p domain.Product) []any {
			n := p.(*domain.Notebook)
			return []any{&n.Diagonal, &n.Display, &n.ProcessorFreq, &n.RAM, &n.Video, &n.TimeWithoutCharge}
		},
		args: func(p domain.Product) []any {
			n := p.(*domain.Notebook)
			return []any{n.Diagonal, n.Display, n.ProcessorFreq, n.RAM, n.Video, n.TimeWithoutCharge}
		},
	},
	domain.TypeSmartphone: {
		name:    "shop.smartphones",
		columns: []string{"diagonal", "display", "resolution", "accum_volume", "ram", "sd", "sd_volume", "main_cam_mp", "frontal_cam_mp"},
		newRow:  func() domain.Product { return &domain.Smartphone{} },
		dest: func(p domain.Product) []any {
			s := p.(*domain.Smartphone)
			return []any{&s.Diagonal, &s.Display, &s.Resolution, &s.AccumVolume, &s.RAM, &s.SD, &s.SDVolume, &s.MainCamMP, &s.FrontalCamMP}
		},
		args: func(p domain.Product) []any {
			s := p.(*domain.Smartphone)
			return []any{s.Diagonal, s.Display, s.Resolution, s.AccumVolume, s.RAM, s.SD, s.SDVolume, s.MainCamMP, s.FrontalCamMP}
		},
	},
}

func tableFor(tag domain.TypeTag) (productTable, error) {
	t, ok := productTables[tag]
	if !ok {
		return productTable{}, fmt.Errorf("%w: %q", ErrUnknownProductType, tag)
	}
	return t, nil
}

func (t productTable) selectList() string {
	return strings.Join(append(append([]string{}, coreColumns...), t.columns...), ", ")
}

func (t productTable) insertQuery() string {
	cols := append(append([]string{}, writableCoreColumns...), t.columns...)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s;",
		t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), t.selectList())
}

func (t productTable) updateQuery() string {
	cols := append(append([]string{}, writableCoreColumns...), t.columns...)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d RETURNING %s;",
		t.name, strings.Join(sets, ", "), len(cols)+1, t.selectList())
}

func (t productTable) writeArgs(p domain.Product) []any {
	c := p.Core()
	return append([]any{c.CategoryID, c.Title, c.Slug, c.Image, c.Description, c.Price}, t.args(p)...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (t productTable) scan(row rowScanner) (domain.Product, error) {
	p := t.newRow()
	c := p.Core()
	dest := append([]any{
		&c.ID, &c.CategoryID, &c.Title, &c.Slug, &c.Image, &c.Description, &c.Price, &c.CreatedAt, &c.UpdatedAt,
	}, t.dest(p)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return p, nil
}

func (t productTable) scanAll(rows *sql.Rows) ([]domain.Product, error) {
	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func mapProductWriteError(err error) error {
	if pqErr, ok := isPQCode(err, pqUniqueViolation); ok {
		if strings.Contains(pqErr.Constraint, "_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
			return ErrProductSlugExists
		}
	}
	if _, ok := isPQCode(err, pqForeignKeyViolation); ok {
		return ErrCategoryNotFound
	}
	return nil
}

// --- ProductStorer Implementation ---

func (s *PostgresStore) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	t, err := tableFor(product.Type())
	if err != nil {
		return nil, err
	}
	created, err := t.scan(s.db.QueryRowContext(ctx, t.insertQuery(), t.writeArgs(product)...))
	if err != nil {
		if mapped := mapProductWriteError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: CreateProduct(%s) failed to scan row: %w", product.Type(), err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	t, err := tableFor(product.Type())
	if err != nil {
		return nil, err
	}
	args := append(t.writeArgs(product), product.Core().ID)
	updated, err := t.scan(s.db.QueryRowContext(ctx, t.updateQuery(), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if mapped := mapProductWriteError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: UpdateProduct(%s) failed to scan row: %w", product.Type(), err)
	}
	return updated, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, tag domain.TypeTag, id int64) (domain.Product, error) {
	t, err := tableFor(tag)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1;", t.selectList(), t.name)
	p, err := t.scan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID(%s) failed to scan row: %w", tag, err)
	}
	return p, nil
}

func (s *PostgresStore) GetProductBySlug(ctx context.Context, tag domain.TypeTag, slug string) (domain.Product, error) {
	t, err := tableFor(tag)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE slug = $1;", t.selectList(), t.name)
	p, err := t.scan(s.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductBySlug(%s) failed to scan row: %w", tag, err)
	}
	return p, nil
}

func (s *PostgresStore) ListRecentProducts(ctx context.Context, tag domain.TypeTag, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		return []domain.Product{}, nil
	}
	t, err := tableFor(tag)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC LIMIT $1;", t.selectList(), t.name)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: ListRecentProducts(%s) failed to query products: %w", tag, err)
	}
	defer rows.Close()

	products, err := t.scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("store: ListRecentProducts(%s) failed to scan product row: %w", tag, err)
	}
	return products, nil
}

func (s *PostgresStore) ListProductsByCategory(ctx context.Context, tag domain.TypeTag, categoryID int64) ([]domain.Product, error) {
	t, err := tableFor(tag)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE category_id = $1 ORDER BY id DESC;", t.selectList(), t.name)
	rows, err := s.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductsByCategory(%s) failed to query products: %w", tag, err)
	}
	defer rows.Close()

	products, err := t.scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductsByCategory(%s) failed to scan product row: %w", tag, err)
	}
	return products, nil
}

func (s *PostgresStore) CountProductsByCategory(ctx context.Context, tag domain.TypeTag) (map[int64]int, error) {
	t, err := tableFor(tag)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT category_id, COUNT(*) FROM %s GROUP BY category_id;", t.name)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: CountProductsByCategory(%s) failed to query counts: %w", tag, err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var categoryID int64
		var n int
		if err := rows.Scan(&categoryID, &n); err != nil {
			return nil, fmt.Errorf("store: CountProductsByCategory(%s) failed to scan row: %w", tag, err)
		}
		counts[categoryID] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: CountProductsByCategory(%s) iteration error: %w", tag, err)
	}
	return counts, nil
}

func (s *PostgresStore) UpdateProductImage(ctx context.Context, tag domain.TypeTag, id int64, image string) error {
	t, err := tableFor(tag)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET image = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2;", t.name)
	result, err := s.db.ExecContext(ctx, query, image, id)
	if err != nil {
		return fmt.Errorf("store: UpdateProductImage(%s) failed to execute update: %w", tag, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdateProductImage(%s) failed to get rows affected: %w", tag, err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct deletes the product together with the cart lines pointing at
// it and refreshes the totals of the carts that lost lines. cart_lines has no
// foreign key to the product tables, so this is the only cascade path.
func (s *PostgresStore) DeleteProduct(ctx context.Context, tag domain.TypeTag, id int64) error {
	t, err := tableFor(tag)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	rows, err := tx.QueryContext(ctx,
		`DELETE FROM shop.cart_lines WHERE product_type = $1 AND product_id = $2 RETURNING cart_id;`,
		string(tag), id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to delete cart lines: %w", err)
	}
	var cartIDs []int64
	for rows.Next() {
		var cartID int64
		if err := rows.Scan(&cartID); err != nil {
			rows.Close()
			return fmt.Errorf("store: DeleteProduct failed to scan cart id: %w", err)
		}
		cartIDs = append(cartIDs, cartID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: DeleteProduct cart line iteration error: %w", err)
	}

	result, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1;", t.name), id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if len(cartIDs) > 0 {
		if _, err := tx.ExecContext(ctx, recomputeCartTotalsQuery, pq.Array(cartIDs)); err != nil {
			return fmt.Errorf("store: DeleteProduct failed to refresh cart totals: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: DeleteProduct failed to commit: %w", err)
	}
	return nil
}

const recomputeCartTotalsQuery = `
		UPDATE shop.carts c
		SET total_products = COALESCE((SELECT SUM(l.qty) FROM shop.cart_lines l WHERE l.cart_id = c.id), 0),
			final_price = COALESCE((SELECT SUM(l.final_price) FROM shop.cart_lines l WHERE l.cart_id = c.id), 0)
		WHERE c.id = ANY($1);
	`
