package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

const productColumns = `id, name, description, price::text, category, image_urls, created_at, updated_at`

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) List(ctx context.Context) ([]*Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ProductStore) GetByID(ctx context.Context, productID uuid.UUID) (*Product, error) {
	product, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID))
	if err != nil {
		return nil, translateError(err)
	}
	return product, nil
}

func (s *ProductStore) Create(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (name, description, price, category, image_urls)
		VALUES ($1, $2, $3::text::numeric, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Price.StringFixed(2),
		product.Category,
		imageURLs(product.ImageURLs),
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	return translateError(err)
}

func (s *ProductStore) Update(ctx context.Context, product *Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4::text::numeric, category = $5, image_urls = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price.StringFixed(2),
		product.Category,
		imageURLs(product.ImageURLs),
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	return translateError(err)
}

func (s *ProductStore) Delete(ctx context.Context, productID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAll swaps the whole catalog in a single transaction. Used by the seed operation.
func (s *ProductStore) ReplaceAll(ctx context.Context, categories []*Category, products []*Product) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	for _, category := range categories {
		err := tx.QueryRow(ctx,
			`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
			category.Name, category.Slug,
		).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert category %q: %w", category.Name, translateError(err))
		}
	}

	for _, product := range products {
		err := tx.QueryRow(ctx,
			`INSERT INTO products (name, description, price, category, image_urls)
			 VALUES ($1, $2, $3::text::numeric, $4, $5)
			 RETURNING id, created_at, updated_at`,
			product.Name, product.Description, product.Price.StringFixed(2), product.Category, imageURLs(product.ImageURLs),
		).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert product %q: %w", product.Name, translateError(err))
		}
	}

	return tx.Commit(ctx)
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		product Product
		price   string
		created time.Time
		updated time.Time
	)
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&price,
		&product.Category,
		&product.ImageURLs,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for product %s: %w", product.ID, err)
	}
	product.Price = parsed
	product.CreatedAt = created
	product.UpdatedAt = updated
	if product.ImageURLs == nil {
		product.ImageURLs = []string{}
	}
	return &product, nil
}

func imageURLs(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
