package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryStore struct {
	pool *pgxpool.Pool
}

const categoryColumns = `id, name, slug, created_at, updated_at`

func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

func (s *CategoryStore) List(ctx context.Context) ([]*Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CategoryStore) GetByID(ctx context.Context, categoryID uuid.UUID) (*Category, error) {
	category, err := scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, categoryID))
	if err != nil {
		return nil, translateError(err)
	}
	return category, nil
}

// Create inserts a category. A name or slug collision returns ErrDuplicate.
func (s *CategoryStore) Create(ctx context.Context, category *Category) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		category.Name, category.Slug,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return translateError(err)
}

func (s *CategoryStore) Update(ctx context.Context, category *Category) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE categories SET name = $2, slug = $3, updated_at = NOW() WHERE id = $1 RETURNING created_at, updated_at`,
		category.ID, category.Name, category.Slug,
	).Scan(&category.CreatedAt, &category.UpdatedAt)
	return translateError(err)
}

func (s *CategoryStore) Delete(ctx context.Context, categoryID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (*Category, error) {
	var category Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}
