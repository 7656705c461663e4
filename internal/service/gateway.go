package service

import (
	"context"
	"time"

	"memorabilia-catalog/internal/auth"
	"memorabilia-catalog/internal/cache"
	"memorabilia-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	// maxTransientRetries bounds how often a transient storage failure is
	// retried before it surfaces to the caller.
	maxTransientRetries = 3
	retryBaseDelay      = 50 * time.Millisecond
)

// Gateway is the single entry point for catalog mutations. Transport
// handlers never call the stores directly, so no caller can bypass the
// invariant checks. Each mutation either fully applies or leaves nothing
// changed; transient storage failures are retried with bounded backoff
// before surfacing.
type Gateway struct {
	categories CategoryService
	products   ProductService
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewGateway creates a new mutation gateway over the two stores.
func NewGateway(categories CategoryService, products ProductService, treeCache *cache.Cache, logger *zap.Logger) *Gateway {
	return &Gateway{
		categories: categories,
		products:   products,
		cache:      treeCache,
		logger:     logger,
	}
}

// CreateCategory validates and applies a category creation.
func (g *Gateway) CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	return applyMutation(ctx, g, "category.create", func(ctx context.Context) (*domain.Category, error) {
		return g.categories.Create(ctx, input)
	})
}

// UpdateCategory validates and applies a partial category update.
func (g *Gateway) UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*domain.Category, error) {
	return applyMutation(ctx, g, "category.update", func(ctx context.Context) (*domain.Category, error) {
		return g.categories.Update(ctx, id, input)
	})
}

// DeleteCategory deletes a category once it has no dependents.
func (g *Gateway) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	_, err := applyMutation(ctx, g, "category.delete", func(ctx context.Context) (*domain.Category, error) {
		return nil, g.categories.Delete(ctx, id)
	})
	return err
}

// CreateProduct validates and applies a product creation.
func (g *Gateway) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	return applyMutation(ctx, g, "product.create", func(ctx context.Context) (*domain.Product, error) {
		return g.products.Create(ctx, input)
	})
}

// UpdateProduct validates and applies a partial product update.
func (g *Gateway) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	return applyMutation(ctx, g, "product.update", func(ctx context.Context) (*domain.Product, error) {
		return g.products.Update(ctx, id, input)
	})
}

// DeleteProduct deletes a product and its owned images.
func (g *Gateway) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := applyMutation(ctx, g, "product.delete", func(ctx context.Context) (*domain.Product, error) {
		return nil, g.products.Delete(ctx, id)
	})
	return err
}

// applyMutation runs one mutation through the gateway lifecycle: log the
// request with its actor, retry transient failures, invalidate the tree
// projection after a successful write.
func applyMutation[T any](ctx context.Context, g *Gateway, op string, apply func(context.Context) (T, error)) (T, error) {
	actor := "unknown"
	if admin, ok := auth.AdminFrom(ctx); ok {
		actor = admin.Email
	}

	g.logger.Debug("Mutation received",
		zap.String("op", op),
		zap.String("actor", actor),
	)

	var result T
	backoff := retry.WithMaxRetries(maxTransientRetries, retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var applyErr error
		result, applyErr = apply(ctx)
		if applyErr != nil && domain.IsKind(applyErr, domain.KindTransient) {
			g.logger.Warn("Transient storage failure, retrying",
				zap.String("op", op),
				zap.Error(applyErr),
			)
			return retry.RetryableError(applyErr)
		}
		return applyErr
	})
	if err != nil {
		g.logger.Info("Mutation rejected",
			zap.String("op", op),
			zap.String("actor", actor),
			zap.Error(err),
		)
		return result, err
	}

	// Any successful write can change derived counts or the tree shape.
	g.cache.Delete(ctx, CategoryTreeKey)

	g.logger.Info("Mutation applied",
		zap.String("op", op),
		zap.String("actor", actor),
	)
	return result, nil
}
