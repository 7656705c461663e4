package transport

import (
	"errors"
	"net/http"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/middleware"
	"memorabilia-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCategoryRequest represents the category creation payload.
// An empty parentId means top-level.
type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parentId" validate:"omitempty,uuid"`
}

// UpdateCategoryRequest represents a partial category update. Omitted fields
// are left unchanged; parentId present but empty clears the parent.
type UpdateCategoryRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	ParentID *string `json:"parentId" validate:"omitempty"`
}

// CategoryHandler handles HTTP requests for category operations. Reads go
// to the query side; every write goes through the mutation gateway.
type CategoryHandler struct {
	gateway    *service.Gateway
	categories service.CategoryService
	catalog    service.CatalogService
	logger     *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(gateway *service.Gateway, categories service.CategoryService, catalog service.CatalogService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		gateway:    gateway,
		categories: categories,
		catalog:    catalog,
		logger:     logger,
	}
}

// RegisterRoutes registers all category routes behind the auth middleware
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/admin/categories", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/tree", h.Tree)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List returns the flat category listing with derived counts
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

// Tree returns the two-level category tree projection
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.catalog.CategoryTree(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to build category tree")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": tree,
	})
}

// Create handles category creation
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateCategoryInput{Name: req.Name}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid parentId")
			return
		}
		input.ParentID = &parentID
	}

	category, err := h.gateway.CreateCategory(r.Context(), input)
	if err != nil {
		h.respondError(w, err, "failed to create category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// Update handles partial category updates
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req UpdateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateCategoryInput{Name: req.Name}
	if req.ParentID != nil {
		input.ParentSet = true
		if *req.ParentID != "" {
			parentID, err := uuid.Parse(*req.ParentID)
			if err != nil {
				middleware.RespondWithError(w, http.StatusBadRequest, "invalid parentId")
				return
			}
			input.ParentID = &parentID
		}
	}

	category, err := h.gateway.UpdateCategory(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err, "failed to update category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Delete handles category deletion
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.gateway.DeleteCategory(r.Context(), id); err != nil {
		h.respondError(w, err, "failed to delete category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *CategoryHandler) respondError(w http.ResponseWriter, err error, logMsg string) {
	var catalogErr *domain.Error
	if errors.As(err, &catalogErr) {
		if catalogErr.Kind == domain.KindConsistency || catalogErr.Kind == domain.KindTransient {
			h.logger.Error(logMsg, zap.Error(err))
		}
		middleware.RespondWithCatalogError(w, catalogErr)
		return
	}

	h.logger.Error(logMsg, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, logMsg)
}
