package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"memorabilia-catalog/internal/auth"
	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/repository"
	"memorabilia-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory repositories backing the HTTP tests. They enforce the same
// relational rules the SQL repositories re-check inside their transactions.
type memCategoryRepo struct {
	categories map[uuid.UUID]*domain.Category
	products   *memProductRepo
}

type memProductRepo struct {
	products   map[uuid.UUID]*domain.Product
	categories *memCategoryRepo
}

func newMemRepos() (*memCategoryRepo, *memProductRepo) {
	c := &memCategoryRepo{categories: make(map[uuid.UUID]*domain.Category)}
	p := &memProductRepo{products: make(map[uuid.UUID]*domain.Product)}
	c.products = p
	p.categories = c
	return c, p
}

func (m *memCategoryRepo) checkParent(parentID uuid.UUID) error {
	parent, ok := m.categories[parentID]
	if !ok {
		return domain.NewError(domain.KindHierarchy, "category", "parent category does not exist").
			WithID(parentID.String()).WithField("parentId")
	}
	if parent.ParentID != nil {
		return domain.NewError(domain.KindHierarchy, "category", "parent must be a top-level category").
			WithID(parentID.String()).WithField("parentId")
	}
	return nil
}

func (m *memCategoryRepo) childCount(id uuid.UUID) int {
	n := 0
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n
}

func (m *memCategoryRepo) productCount(id uuid.UUID) int {
	n := 0
	for _, p := range m.products.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			n++
		}
	}
	return n
}

func (m *memCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	if category.ParentID != nil {
		if err := m.checkParent(*category.ParentID); err != nil {
			return err
		}
	}
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *memCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return domain.NewError(domain.KindNotFound, "category", "category not found").WithID(category.ID.String())
	}
	if category.ParentID != nil {
		if err := m.checkParent(*category.ParentID); err != nil {
			return err
		}
		if m.childCount(category.ID) > 0 {
			return domain.NewError(domain.KindHierarchy, "category", "cannot nest a category that has subcategories").
				WithID(category.ID.String()).WithField("parentId")
		}
	}
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *memCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return domain.NewError(domain.KindNotFound, "category", "category not found").WithID(id.String())
	}
	if m.childCount(id) > 0 || m.productCount(id) > 0 {
		return domain.NewError(domain.KindDependency, "category", "category still has subcategories or products").
			WithID(id.String())
	}
	delete(m.categories, id)
	return nil
}

func (m *memCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "category", "category not found").WithID(id.String())
	}
	copied := *c
	copied.SubcategoryCount = m.childCount(id)
	copied.ProductCount = m.productCount(id)
	return &copied, nil
}

func (m *memCategoryRepo) List(_ context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(m.categories))
	for id := range m.categories {
		c, _ := m.FindByID(context.Background(), id)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].ParentID == nil) != (out[j].ParentID == nil) {
			return out[i].ParentID == nil
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *memProductRepo) checkCategory(categoryID uuid.UUID) error {
	if _, ok := m.categories.categories[categoryID]; !ok {
		return domain.NewError(domain.KindNotFound, "category", "referenced category not found").
			WithID(categoryID.String()).WithField("categoryId")
	}
	return nil
}

func (m *memProductRepo) Create(_ context.Context, product *domain.Product) error {
	if product.CategoryID != nil {
		if err := m.checkCategory(*product.CategoryID); err != nil {
			return err
		}
	}
	copied := *product
	copied.Images = append([]domain.ProductImage(nil), product.Images...)
	m.products[product.ID] = &copied
	return nil
}

func (m *memProductRepo) Update(_ context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return domain.NewError(domain.KindNotFound, "product", "product not found").WithID(product.ID.String())
	}
	if product.CategoryID != nil {
		if err := m.checkCategory(*product.CategoryID); err != nil {
			return err
		}
	}
	copied := *product
	copied.Images = append([]domain.ProductImage(nil), product.Images...)
	m.products[product.ID] = &copied
	return nil
}

func (m *memProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return domain.NewError(domain.KindNotFound, "product", "product not found").WithID(id.String())
	}
	delete(m.products, id)
	return nil
}

func (m *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "product", "product not found").WithID(id.String())
	}
	copied := *p
	copied.Images = append([]domain.ProductImage(nil), p.Images...)
	return &copied, nil
}

func (m *memProductRepo) Search(_ context.Context, filter repository.SearchFilter, page, pageSize int) ([]*domain.Product, int, error) {
	var matched []*domain.Product
	term := strings.ToLower(filter.Term)
	for _, p := range m.products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		copied := *p
		copied.Images = append([]domain.ProductImage(nil), p.Images...)
		matched = append(matched, &copied)
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
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// testAuthMiddleware stands in for session validation and injects a fixed
// admin identity.
func testAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAdmin(r.Context(), auth.Admin{ID: uuid.New(), Email: "admin@example.com"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type testHarness struct {
	router *chi.Mux
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	categoryRepo, productRepo := newMemRepos()
	logger := zap.NewNop()

	categories := service.NewCategoryService(categoryRepo)
	products := service.NewProductService(productRepo)
	catalog := service.NewCatalogService(productRepo, categoryRepo, nil, logger)
	gateway := service.NewGateway(categories, products, nil, logger)

	router := chi.NewRouter()
	NewCategoryHandler(gateway, categories, catalog, logger).RegisterRoutes(router, testAuthMiddleware)
	NewProductHandler(gateway, products, catalog, logger).RegisterRoutes(router, testAuthMiddleware)

	return &testHarness{router: router}
}

func (h *testHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (h *testHarness) createCategory(t *testing.T, name string, parentID string) domain.Category {
	t.Helper()
	body := `{"name":"` + name + `"}`
	if parentID != "" {
		body = `{"name":"` + name + `","parentId":"` + parentID + `"}`
	}
	w := h.do(t, "POST", "/admin/categories", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeJSON[domain.Category](t, w)
}
