package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/models"
)

type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all active categories.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, `
		SELECT id, slug, name, description, icon, parent_id, sort_order, is_active, created_at
		FROM categories WHERE is_active = TRUE ORDER BY sort_order, name
	`)
	return categories, err
}

// ListRoots returns top-level categories only.
func (r *CategoryRepository) ListRoots(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, `
		SELECT id, slug, name, description, icon, parent_id, sort_order, is_active, created_at
		FROM categories WHERE is_active = TRUE AND parent_id IS NULL ORDER BY sort_order, name
	`)
	return categories, err
}

// ListChildren returns subcategories of a category.
func (r *CategoryRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, `
		SELECT id, slug, name, description, icon, parent_id, sort_order, is_active, created_at
		FROM categories WHERE is_active = TRUE AND parent_id = $1 ORDER BY sort_order, name
	`, parentID)
	return categories, err
}

// GetBySlug returns an active category by slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category, `
		SELECT id, slug, name, description, icon, parent_id, sort_order, is_active, created_at
		FROM categories WHERE slug = $1 AND is_active = TRUE
	`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// GetByID returns a category by identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category, `
		SELECT id, slug, name, description, icon, parent_id, sort_order, is_active, created_at
		FROM categories WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}
