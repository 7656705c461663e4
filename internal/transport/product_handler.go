package transport

import (
	"errors"
	"net/http"
	"strconv"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/middleware"
	"memorabilia-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductImageRequest is one entry of a product's image list. The first MAIN
// image, if any, is the representative thumbnail.
type ProductImageRequest struct {
	URL  string `json:"url" validate:"required"`
	Alt  string `json:"alt"`
	Kind string `json:"type" validate:"required,oneof=MAIN GALLERY"`
}

// ProductDetailsRequest carries the nested free-text details block
type ProductDetailsRequest struct {
	TechnicalSheet   string `json:"technicalSheet"`
	CollectorInfo    string `json:"collectorInfo"`
	CareInstructions string `json:"careInstructions"`
}

// CreateProductRequest represents the product creation payload. Prices are
// integer minor units; fractional amounts fail JSON decoding.
type CreateProductRequest struct {
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description"`
	PriceCents  int64                  `json:"priceCents" validate:"gte=0"`
	Currency    string                 `json:"currency" validate:"required,len=3"`
	CategoryID  string                 `json:"categoryId" validate:"omitempty,uuid"`
	IsActive    bool                   `json:"isActive"`
	Details     ProductDetailsRequest  `json:"details"`
	Images      []ProductImageRequest  `json:"images" validate:"omitempty,dive"`
}

// UpdateProductRequest represents a partial product update. Omitted fields
// are left unchanged; categoryId present but empty clears the category; a
// present images list replaces the whole gallery.
type UpdateProductRequest struct {
	Title       *string                `json:"title" validate:"omitempty,min=1"`
	Description *string                `json:"description"`
	PriceCents  *int64                 `json:"priceCents" validate:"omitempty,gte=0"`
	Currency    *string                `json:"currency" validate:"omitempty,len=3"`
	CategoryID  *string                `json:"categoryId"`
	IsActive    *bool                  `json:"isActive"`
	Details     *ProductDetailsRequest `json:"details"`
	Images      []ProductImageRequest  `json:"images" validate:"omitempty,dive"`
}

// ProductHandler handles HTTP requests for product operations. Reads go to
// the query side; every write goes through the mutation gateway.
type ProductHandler struct {
	gateway  *service.Gateway
	products service.ProductService
	catalog  service.CatalogService
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(gateway *service.Gateway, products service.ProductService, catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		gateway:  gateway,
		products: products,
		catalog:  catalog,
		logger:   logger,
	}
}

// RegisterRoutes registers all product routes behind the auth middleware
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/admin/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Search)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Search lists products with optional term, category and active filters
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := service.SearchQuery{
		Term:     r.URL.Query().Get("q"),
		Page:     1,
		PageSize: 50,
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid page")
			return
		}
		query.Page = page
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid pageSize")
			return
		}
		query.PageSize = pageSize
	}
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		query.CategoryID = &categoryID
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		activeOnly, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid active flag")
			return
		}
		query.ActiveOnly = activeOnly
	}

	result, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		h.respondError(w, err, "failed to search products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Get retrieves a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		IsActive:    req.IsActive,
		Details: domain.ProductDetails{
			TechnicalSheet:   req.Details.TechnicalSheet,
			CollectorInfo:    req.Details.CollectorInfo,
			CareInstructions: req.Details.CareInstructions,
		},
		Images: toImages(req.Images),
	}
	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		input.CategoryID = &categoryID
	}

	product, err := h.gateway.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondError(w, err, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles partial product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateProductInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		IsActive:    req.IsActive,
	}
	if req.Details != nil {
		input.Details = &domain.ProductDetails{
			TechnicalSheet:   req.Details.TechnicalSheet,
			CollectorInfo:    req.Details.CollectorInfo,
			CareInstructions: req.Details.CareInstructions,
		}
	}
	if req.Images != nil {
		input.Images = toImages(req.Images)
	}
	if req.CategoryID != nil {
		input.CategorySet = true
		if *req.CategoryID != "" {
			categoryID, err := uuid.Parse(*req.CategoryID)
			if err != nil {
				middleware.RespondWithError(w, http.StatusBadRequest, "invalid categoryId")
				return
			}
			input.CategoryID = &categoryID
		}
	}

	product, err := h.gateway.UpdateProduct(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles product deletion
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.gateway.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err, "failed to delete product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ProductHandler) respondError(w http.ResponseWriter, err error, logMsg string) {
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

func toImages(reqs []ProductImageRequest) []domain.ProductImage {
	images := make([]domain.ProductImage, len(reqs))
	for i, req := range reqs {
		images[i] = domain.ProductImage{
			URL:      req.URL,
			Alt:      req.Alt,
			Kind:     domain.ImageKind(req.Kind),
			Position: i,
		}
	}
	return images
}
