package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"storefront-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound   = errors.New("store: category not found")
	ErrCategorySlugExists = errors.New("store: category slug already exists")
	ErrCategoryInUse      = errors.New("store: category still has products")
	ErrProductNotFound    = errors.New("store: product not found")
	ErrProductSlugExists  = errors.New("store: product slug already exists")
	ErrUnknownProductType = errors.New("store: no table for product type")
	ErrCustomerNotFound   = errors.New("store: customer not found")
	ErrCustomerExists     = errors.New("store: customer already exists")
	ErrCartNotFound       = errors.New("store: cart not found")
	ErrOpenCartExists     = errors.New("store: owner already has an open cart")
	ErrCartLineNotFound   = errors.New("store: cart line not found")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore implements the store interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying pool for health checks and migrations.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func isPQCode(err error, code string) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr, true
	}
	return nil, false
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO shop.categories (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug, created_at, updated_at;
	`
	var created domain.Category
	err := s.db.QueryRowContext(ctx, query, category.Name, category.Slug).Scan(
		&created.ID, &created.Name, &created.Slug, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := isPQCode(err, pqUniqueViolation); ok {
			if strings.Contains(pqErr.Constraint, "categories_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
				return nil, ErrCategorySlugExists
			}
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM shop.categories
		WHERE slug = $1;
	`
	var category domain.Category
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&category.ID, &category.Name, &category.Slug, &category.CreatedAt, &category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryBySlug failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM shop.categories
		WHERE id = $1;
	`
	var category domain.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID, &category.Name, &category.Slug, &category.CreatedAt, &category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

// ListCategories returns every category ordered by name. The sidebar needs
// the full set, so there is no pagination.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM shop.categories
		ORDER BY name ASC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE shop.categories
		SET name = $1, slug = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING id, name, slug, created_at, updated_at;
	`
	var updated domain.Category
	err := s.db.QueryRowContext(ctx, query, category.Name, category.Slug, category.ID).Scan(
		&updated.ID, &updated.Name, &updated.Slug, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if pqErr, ok := isPQCode(err, pqUniqueViolation); ok {
			if strings.Contains(pqErr.Constraint, "categories_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
				return nil, ErrCategorySlugExists
			}
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

// DeleteCategory removes a category. Products reference categories with
// ON DELETE RESTRICT, so a category that still holds products is refused.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM shop.categories WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		if _, ok := isPQCode(err, pqForeignKeyViolation); ok {
			return ErrCategoryInUse
		}
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		if err := s.db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
	}
	return nil
}
