package service

import (
	"context"
	"strings"
	"time"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/repository"

	"github.com/google/uuid"
)

// CreateCategoryInput carries the fields accepted on category creation.
type CreateCategoryInput struct {
	Name     string
	ParentID *uuid.UUID
}

// UpdateCategoryInput carries a partial category update. Nil fields are left
// unchanged; ParentSet distinguishes "clear the parent" from "don't touch it".
type UpdateCategoryInput struct {
	Name      *string
	ParentID  *uuid.UUID
	ParentSet bool
}

// CategoryService owns category entities and the hierarchy rules: a parent
// must be an existing top-level category, a category may not parent itself,
// and a category with dependents cannot be deleted. Structural checks run
// here; relational checks re-run inside the repository transaction.
type CategoryService interface {
	Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
}

type categoryService struct {
	repo repository.CategoryRepository
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

// Create validates and persists a new category.
func (s *categoryService) Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewError(domain.KindValidation, "category", "name must not be empty").
			WithField("name")
	}

	now := time.Now()
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  input.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, category.ID)
}

// Update applies a partial update to a category, re-validating the hierarchy.
func (s *categoryService) Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*domain.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.NewError(domain.KindValidation, "category", "name must not be empty").
				WithID(id.String()).WithField("name")
		}
		category.Name = name
	}
	if input.ParentSet {
		category.ParentID = input.ParentID
	}

	if category.ParentID != nil && *category.ParentID == id {
		return nil, domain.NewError(domain.KindHierarchy, "category", "a category cannot be its own parent").
			WithID(id.String()).WithField("parentId")
	}

	category.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, id)
}

// Delete removes a category; the repository rejects it while dependents exist.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Get retrieves a single category with derived counts.
func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns the flat category listing, top-level categories first.
func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.repo.List(ctx)
}
