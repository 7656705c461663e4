package service

import (
	"context"
	"fmt"
	"time"

	"memorabilia-catalog/internal/cache"
	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryTreeKey is the cache key for the category tree projection.
const CategoryTreeKey = "catalog:category_tree"

// treeCacheTTL keeps stale trees short-lived; the gateway also invalidates
// eagerly after every successful mutation.
const treeCacheTTL = 5 * time.Minute

// SearchQuery narrows and paginates a product listing. Page and PageSize
// are 1-based and both must be >= 1.
type SearchQuery struct {
	Term       string
	CategoryID *uuid.UUID
	ActiveOnly bool
	Page       int
	PageSize   int
}

// SearchResult is one page of products plus the total match count.
type SearchResult struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// CategoryNode is one root of the two-level category tree. Children are leaf
// values, so deeper nesting is unrepresentable in this projection.
type CategoryNode struct {
	domain.Category
	Children []domain.Category `json:"children"`
}

// CatalogService is the read side of the catalog: filtered, paginated
// product search and the category-tree projection rebuilt from the flat
// parent-pointer listing.
type CatalogService interface {
	Search(ctx context.Context, query SearchQuery) (*SearchResult, error)
	CategoryTree(ctx context.Context) ([]CategoryNode, error)
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	treeCache *cache.Cache,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		cache:      treeCache,
		logger:     logger,
	}
}

// Search matches term case-insensitively against title and description,
// ordered by most recently updated first with id as the tie-break.
func (s *catalogService) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	if query.Page < 1 {
		return nil, domain.NewError(domain.KindValidation, "product",
			fmt.Sprintf("page must be >= 1, got %d", query.Page)).
			WithField("page")
	}
	if query.PageSize < 1 {
		return nil, domain.NewError(domain.KindValidation, "product",
			fmt.Sprintf("pageSize must be >= 1, got %d", query.PageSize)).
			WithField("pageSize")
	}

	filter := repository.SearchFilter{
		Term:       query.Term,
		CategoryID: query.CategoryID,
		ActiveOnly: query.ActiveOnly,
	}
	products, total, err := s.products.Search(ctx, filter, query.Page, query.PageSize)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Products: products,
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

// CategoryTree reconstructs the two-level tree from the flat listing. A
// category whose declared parent does not resolve means the write-time
// hierarchy checks were bypassed somewhere; that is surfaced as a
// consistency error rather than silently dropped.
func (s *catalogService) CategoryTree(ctx context.Context) ([]CategoryNode, error) {
	var cached []CategoryNode
	if s.cache.Get(ctx, CategoryTreeKey, &cached) {
		return cached, nil
	}

	flat, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	roots := []CategoryNode{}
	rootIndex := make(map[uuid.UUID]int)
	for _, category := range flat {
		if category.IsRoot() {
			rootIndex[category.ID] = len(roots)
			roots = append(roots, CategoryNode{Category: *category, Children: []domain.Category{}})
		}
	}

	for _, category := range flat {
		if category.IsRoot() {
			continue
		}
		idx, ok := rootIndex[*category.ParentID]
		if !ok {
			s.logger.Error("Category references a parent that is not a top-level category",
				zap.String("category_id", category.ID.String()),
				zap.String("parent_id", category.ParentID.String()),
			)
			return nil, domain.NewError(domain.KindConsistency, "category",
				"category references a missing or non-top-level parent").
				WithID(category.ID.String()).WithField("parentId")
		}
		roots[idx].Children = append(roots[idx].Children, *category)
	}

	s.cache.Set(ctx, CategoryTreeKey, roots, treeCacheTTL)
	return roots, nil
}
