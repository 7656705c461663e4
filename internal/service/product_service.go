package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/repository"

	"github.com/google/uuid"
)

// CreateProductInput carries the fields accepted on product creation.
type CreateProductInput struct {
	Title       string
	Description string
	PriceCents  int64
	Currency    string
	CategoryID  *uuid.UUID
	IsActive    bool
	Details     domain.ProductDetails
	Images      []domain.ProductImage
}

// UpdateProductInput carries a partial product update. Nil fields are left
// unchanged. CategorySet distinguishes "clear the category" from "don't
// touch it"; a non-nil Images replaces the whole gallery.
type UpdateProductInput struct {
	Title       *string
	Description *string
	PriceCents  *int64
	Currency    *string
	CategoryID  *uuid.UUID
	CategorySet bool
	IsActive    *bool
	Details     *domain.ProductDetails
	Images      []domain.ProductImage
}

// ProductService owns product entities: the price must be a non-negative
// integer amount of minor units, at most one image may be the primary one,
// and a category reference must resolve. The full invariant set runs before
// any persistence write; failures leave no partial state.
type ProductService interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type productService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

// Create validates and persists a new product with its images.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Currency:    strings.ToUpper(strings.TrimSpace(input.Currency)),
		CategoryID:  input.CategoryID,
		IsActive:    input.IsActive,
		Details:     input.Details,
		Images:      input.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Images == nil {
		product.Images = []domain.ProductImage{}
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, product.ID)
}

// Update merges the partial input onto the stored product and re-runs the
// full invariant set before writing.
func (s *productService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.Currency != nil {
		product.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.CategorySet {
		product.CategoryID = input.CategoryID
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.Details != nil {
		product.Details = *input.Details
	}
	if input.Images != nil {
		product.Images = input.Images
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	product.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, id)
}

// Delete removes the product and its owned images unconditionally.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Get retrieves a single product.
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

// validateProduct runs the structural product invariants.
func validateProduct(product *domain.Product) error {
	if product.Title == "" {
		return domain.NewError(domain.KindValidation, "product", "title must not be empty").
			WithField("title")
	}
	if product.PriceCents < 0 {
		return domain.NewError(domain.KindValidation, "product",
			fmt.Sprintf("price must be a non-negative amount of minor units, got %d", product.PriceCents)).
			WithField("priceCents")
	}
	if product.Currency == "" {
		return domain.NewError(domain.KindValidation, "product", "currency must not be empty").
			WithField("currency")
	}
	return validateImages(product.Images)
}

// validateImages scans the image list once: every kind must be known and at
// most one image may be MAIN. Zero MAIN images is fine; consumers fall back
// to the first gallery image or a placeholder.
func validateImages(images []domain.ProductImage) error {
	mainIndices := []int{}
	for i, image := range images {
		if strings.TrimSpace(image.URL) == "" {
			return domain.NewError(domain.KindValidation, "product",
				fmt.Sprintf("image at index %d has an empty url", i)).
				WithField("images")
		}
		if !image.Kind.Valid() {
			return domain.NewError(domain.KindValidation, "product",
				fmt.Sprintf("image at index %d has unknown kind %q", i, image.Kind)).
				WithField("images")
		}
		if image.Kind == domain.ImageKindMain {
			mainIndices = append(mainIndices, i)
		}
	}

	if len(mainIndices) > 1 {
		return domain.NewError(domain.KindImageConstraint, "product",
			fmt.Sprintf("at most one image may be MAIN, found %d at indices %v", len(mainIndices), mainIndices)).
			WithField("images")
	}
	return nil
}
