package transport

import (
	"net/http"
	"testing"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryEndpoints_CreateTopLevelAndChild(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")
	assert.Nil(t, root.ParentID)

	child := h.createCategory(t, "Jerseys", root.ID.String())
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)
}

func TestCategoryEndpoints_GrandchildRejected(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")
	child := h.createCategory(t, "Jerseys", root.ID.String())

	w := h.do(t, "POST", "/admin/categories", `{"name":"Signed","parentId":"`+child.ID.String()+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeJSON[map[string]map[string]any](t, w)
	assert.Equal(t, string(domain.KindHierarchy), resp["error"]["kind"])
}

func TestCategoryEndpoints_UnknownParentRejected(t *testing.T) {
	h := newTestHarness(t)

	// A dangling parent reference is a hierarchy violation, not a missing
	// resource: the category being created does not exist yet.
	w := h.do(t, "POST", "/admin/categories", `{"name":"Jerseys","parentId":"11111111-1111-1111-1111-111111111111"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeJSON[map[string]map[string]any](t, w)
	assert.Equal(t, string(domain.KindHierarchy), resp["error"]["kind"])
	assert.Equal(t, "parentId", resp["error"]["field"])
}

func TestCategoryEndpoints_MissingNameRejected(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(t, "POST", "/admin/categories", `{"parentId":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryEndpoints_RenameKeepsParent(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")
	child := h.createCategory(t, "Jerseys", root.ID.String())

	w := h.do(t, "PUT", "/admin/categories/"+child.ID.String(), `{"name":"Signed Jerseys"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decodeJSON[domain.Category](t, w)
	assert.Equal(t, "Signed Jerseys", updated.Name)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, root.ID, *updated.ParentID)
}

func TestCategoryEndpoints_EmptyParentIDClearsParent(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")
	child := h.createCategory(t, "Jerseys", root.ID.String())

	w := h.do(t, "PUT", "/admin/categories/"+child.ID.String(), `{"parentId":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decodeJSON[domain.Category](t, w)
	assert.Nil(t, updated.ParentID)
}

func TestCategoryEndpoints_DeleteWithProductConflicts(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")

	w := h.do(t, "POST", "/admin/products",
		`{"title":"Signed Ball","priceCents":150000,"currency":"MXN","categoryId":"`+root.ID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decodeJSON[domain.Product](t, w)

	w = h.do(t, "DELETE", "/admin/categories/"+root.ID.String(), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Detach the product, then the delete goes through.
	w = h.do(t, "PUT", "/admin/products/"+product.ID.String(), `{"categoryId":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, "DELETE", "/admin/categories/"+root.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategoryEndpoints_DeleteUnknownReturns404(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(t, "DELETE", "/admin/categories/11111111-1111-1111-1111-111111111111", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryEndpoints_InvalidIDReturns400(t *testing.T) {
	h := newTestHarness(t)

	w := h.do(t, "DELETE", "/admin/categories/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryEndpoints_ListShowsDerivedCounts(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")
	h.createCategory(t, "Jerseys", root.ID.String())

	w := h.do(t, "GET", "/admin/categories", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[struct {
		Categories []domain.Category `json:"categories"`
	}](t, w)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "NBA", resp.Categories[0].Name)
	assert.Equal(t, 1, resp.Categories[0].SubcategoryCount)
}

func TestCategoryEndpoints_TreeNestsChildren(t *testing.T) {
	h := newTestHarness(t)

	root := h.createCategory(t, "NBA", "")
	h.createCategory(t, "Jerseys", root.ID.String())
	h.createCategory(t, "Balls", root.ID.String())
	h.createCategory(t, "MLB", "")

	w := h.do(t, "GET", "/admin/categories/tree", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[struct {
		Categories []service.CategoryNode `json:"categories"`
	}](t, w)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "MLB", resp.Categories[0].Name)
	assert.Equal(t, "NBA", resp.Categories[1].Name)
	require.Len(t, resp.Categories[1].Children, 2)
	assert.Equal(t, "Balls", resp.Categories[1].Children[0].Name)
}
