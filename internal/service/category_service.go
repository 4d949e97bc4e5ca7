package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/repository"
)

// CategoryService serves the service catalog tree.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// Tree returns root categories with their children attached.
func (s *CategoryService) Tree(ctx context.Context) ([]models.Category, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	byParent := make(map[uuid.UUID][]models.Category)
	var roots []models.Category
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}
	for i := range roots {
		roots[i].Children = byParent[roots[i].ID]
	}
	return roots, nil
}

// GetBySlug returns one active category.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return category, nil
}

// ListChildren returns subcategories of a category.
func (s *CategoryService) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	return s.repo.ListChildren(ctx, parentID)
}
