package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/repository"

	"github.com/google/uuid"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

// In-memory repositories mirroring the transactional checks the real
// Postgres repositories perform.

type mockCategoryRepository struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*domain.Category
	products   *mockProductRepository
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) checkParent(parentID uuid.UUID) error {
	parent, exists := m.categories[parentID]
	if !exists {
		return domain.NewError(domain.KindHierarchy, "category", "parent category does not exist").
			WithID(parentID.String()).WithField("parentId")
	}
	if parent.ParentID != nil {
		return domain.NewError(domain.KindHierarchy, "category",
			"parent is itself a subcategory; the hierarchy allows only two levels").
			WithID(parentID.String()).WithField("parentId")
	}
	return nil
}

func (m *mockCategoryRepository) childCount(id uuid.UUID) int {
	count := 0
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			count++
		}
	}
	return count
}

func (m *mockCategoryRepository) productCount(id uuid.UUID) int {
	if m.products == nil {
		return 0
	}
	count := 0
	for _, p := range m.products.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			count++
		}
	}
	return count
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if category.ParentID != nil {
		if err := m.checkParent(*category.ParentID); err != nil {
			return err
		}
	}
	clone := *category
	m.categories[category.ID] = &clone
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.categories[category.ID]; !exists {
		return domain.NewError(domain.KindNotFound, "category", "category not found").
			WithID(category.ID.String())
	}
	if category.ParentID != nil {
		if *category.ParentID == category.ID {
			return domain.NewError(domain.KindHierarchy, "category", "a category cannot be its own parent").
				WithID(category.ID.String()).WithField("parentId")
		}
		if err := m.checkParent(*category.ParentID); err != nil {
			return err
		}
		if n := m.childCount(category.ID); n > 0 {
			return domain.NewError(domain.KindHierarchy, "category",
				fmt.Sprintf("cannot become a subcategory while it has %d subcategories", n)).
				WithID(category.ID.String()).WithField("parentId")
		}
	}
	clone := *category
	m.categories[category.ID] = &clone
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.categories[id]; !exists {
		return domain.NewError(domain.KindNotFound, "category", "category not found").
			WithID(id.String())
	}
	subcategories := m.childCount(id)
	products := m.productCount(id)
	if subcategories > 0 || products > 0 {
		return domain.NewError(domain.KindDependency, "category",
			fmt.Sprintf("category has %d subcategories and %d products; reassign or delete them first",
				subcategories, products)).
			WithID(id.String())
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	category, exists := m.categories[id]
	if !exists {
		return nil, domain.NewError(domain.KindNotFound, "category", "category not found").
			WithID(id.String())
	}
	clone := *category
	clone.SubcategoryCount = m.childCount(id)
	clone.ProductCount = m.productCount(id)
	return &clone, nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := []*domain.Category{}
	for id, category := range m.categories {
		clone := *category
		clone.SubcategoryCount = m.childCount(id)
		clone.ProductCount = m.productCount(id)
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		ri, rj := all[i].IsRoot(), all[j].IsRoot()
		if ri != rj {
			return ri
		}
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return all, nil
}

type mockProductRepository struct {
	mu         sync.Mutex
	products   map[uuid.UUID]*domain.Product
	categories *mockCategoryRepository
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

// bindMocks links the two repositories the way foreign keys do in Postgres.
func bindMocks(categories *mockCategoryRepository, products *mockProductRepository) {
	categories.products = products
	products.categories = categories
}

func (m *mockProductRepository) checkCategory(categoryID uuid.UUID) error {
	if m.categories == nil {
		return nil
	}
	if _, exists := m.categories.categories[categoryID]; !exists {
		return domain.NewError(domain.KindNotFound, "category", "referenced category does not exist").
			WithID(categoryID.String()).WithField("categoryId")
	}
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	clone := *p
	clone.Images = append([]domain.ProductImage{}, p.Images...)
	return &clone
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if product.CategoryID != nil {
		if err := m.checkCategory(*product.CategoryID); err != nil {
			return err
		}
	}
	m.products[product.ID] = cloneProduct(product)
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[product.ID]; !exists {
		return domain.NewError(domain.KindNotFound, "product", "product not found").
			WithID(product.ID.String())
	}
	if product.CategoryID != nil {
		if err := m.checkCategory(*product.CategoryID); err != nil {
			return err
		}
	}
	m.products[product.ID] = cloneProduct(product)
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[id]; !exists {
		return domain.NewError(domain.KindNotFound, "product", "product not found").
			WithID(id.String())
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, exists := m.products[id]
	if !exists {
		return nil, domain.NewError(domain.KindNotFound, "product", "product not found").
			WithID(id.String())
	}
	return cloneProduct(product), nil
}

func (m *mockProductRepository) Search(ctx context.Context, filter repository.SearchFilter, page, pageSize int) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(filter.Term))
	matched := []*domain.Product{}
	for _, product := range m.products {
		if term != "" &&
			!strings.Contains(strings.ToLower(product.Title), term) &&
			!strings.Contains(strings.ToLower(product.Description), term) {
			continue
		}
		if filter.CategoryID != nil &&
			(product.CategoryID == nil || *product.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.ActiveOnly && !product.IsActive {
			continue
		}
		matched = append(matched, cloneProduct(product))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []*domain.Product{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// flakyCategoryRepository fails the first n writes with a transient error.
type flakyCategoryRepository struct {
	repository.CategoryRepository
	mu       sync.Mutex
	failures int
}

func (f *flakyCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return domain.NewError(domain.KindTransient, "storage", "connection reset")
	}
	f.mu.Unlock()
	return f.CategoryRepository.Create(ctx, category)
}
