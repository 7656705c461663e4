package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"memorabilia-catalog/internal/domain"

	"github.com/google/uuid"
)

// SearchFilter narrows a product listing. Zero values mean "no filter".
type SearchFilter struct {
	Term       string
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// ProductRepository defines the interface for product data access. The
// product row and its image rows are written in a single transaction; the
// category reference is verified inside that same transaction.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Search(ctx context.Context, filter SearchFilter, page, pageSize int) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a product and its images atomically.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return transientf(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if product.CategoryID != nil {
		if err := checkCategoryExists(ctx, tx, *product.CategoryID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO products (id, title, description, price_cents, currency, category_id,
		                      is_active, technical_sheet, collector_info, care_instructions,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.CategoryID,
		product.IsActive,
		product.Details.TechnicalSheet,
		product.Details.CollectorInfo,
		product.Details.CareInstructions,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return transientf(err, "failed to create product")
	}

	if err := insertImages(ctx, tx, product.ID, product.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return transientf(err, "failed to commit product create")
	}
	return nil
}

// Update replaces the product row and its full image list atomically.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return transientf(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// Lock the product row so concurrent updates serialize per entity.
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT TRUE FROM products WHERE id = $1 FOR UPDATE`,
		product.ID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(domain.KindNotFound, "product", "product not found").
				WithID(product.ID.String())
		}
		return transientf(err, "failed to lock product")
	}

	if product.CategoryID != nil {
		if err := checkCategoryExists(ctx, tx, *product.CategoryID); err != nil {
			return err
		}
	}

	query := `
		UPDATE products
		SET title = $2, description = $3, price_cents = $4, currency = $5,
		    category_id = $6, is_active = $7, technical_sheet = $8,
		    collector_info = $9, care_instructions = $10, updated_at = NOW()
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.CategoryID,
		product.IsActive,
		product.Details.TechnicalSheet,
		product.Details.CollectorInfo,
		product.Details.CareInstructions,
	)
	if err != nil {
		return transientf(err, "failed to update product")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_images WHERE product_id = $1`, product.ID); err != nil {
		return transientf(err, "failed to clear product images")
	}
	if err := insertImages(ctx, tx, product.ID, product.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return transientf(err, "failed to commit product update")
	}
	return nil
}

// Delete removes a product unconditionally; its images cascade.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return transientf(err, "failed to delete product")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return transientf(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return domain.NewError(domain.KindNotFound, "product", "product not found").
			WithID(id.String())
	}

	return nil
}

// FindByID retrieves a product with its ordered image list.
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, title, description, price_cents, currency, category_id, is_active,
		       technical_sheet, collector_info, care_instructions, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.PriceCents,
		&product.Currency,
		&product.CategoryID,
		&product.IsActive,
		&product.Details.TechnicalSheet,
		&product.Details.CollectorInfo,
		&product.Details.CareInstructions,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "product", "product not found").
				WithID(id.String())
		}
		return nil, transientf(err, "failed to find product by ID")
	}

	images, err := r.loadImages(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	product.Images = images[id]
	if product.Images == nil {
		product.Images = []domain.ProductImage{}
	}

	return product, nil
}

// Search lists products matching the filter, most recently updated first
// with id as the deterministic tie-break, and returns the total match count.
func (r *productRepository) Search(ctx context.Context, filter SearchFilter, page, pageSize int) ([]*domain.Product, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if term := strings.TrimSpace(filter.Term); term != "" {
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+term+"%")
		argIndex++
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, transientf(err, "failed to count products")
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT id, title, description, price_cents, currency, category_id, is_active,
		       technical_sheet, collector_info, care_instructions, created_at, updated_at
		FROM products
		%s
		ORDER BY updated_at DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, transientf(err, "failed to search products")
	}
	defer rows.Close()

	products := []*domain.Product{}
	ids := []uuid.UUID{}
	for rows.Next() {
		product := &domain.Product{Images: []domain.ProductImage{}}
		err := rows.Scan(
			&product.ID,
			&product.Title,
			&product.Description,
			&product.PriceCents,
			&product.Currency,
			&product.CategoryID,
			&product.IsActive,
			&product.Details.TechnicalSheet,
			&product.Details.CollectorInfo,
			&product.Details.CareInstructions,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, 0, transientf(err, "failed to scan product")
		}
		products = append(products, product)
		ids = append(ids, product.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, transientf(err, "error iterating products")
	}

	if len(ids) > 0 {
		images, err := r.loadImages(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, product := range products {
			if imgs, ok := images[product.ID]; ok {
				product.Images = imgs
			}
		}
	}

	return products, total, nil
}

// loadImages fetches the ordered image lists for the given product ids.
func (r *productRepository) loadImages(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.ProductImage, error) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT product_id, position, url, alt, kind
		FROM product_images
		WHERE product_id IN (%s)
		ORDER BY product_id, position ASC
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, transientf(err, "failed to load product images")
	}
	defer rows.Close()

	images := make(map[uuid.UUID][]domain.ProductImage)
	for rows.Next() {
		var productID uuid.UUID
		var image domain.ProductImage
		if err := rows.Scan(&productID, &image.Position, &image.URL, &image.Alt, &image.Kind); err != nil {
			return nil, transientf(err, "failed to scan product image")
		}
		images[productID] = append(images[productID], image)
	}
	if err = rows.Err(); err != nil {
		return nil, transientf(err, "error iterating product images")
	}

	return images, nil
}

// insertImages writes the image list preserving submitted order.
func insertImages(ctx context.Context, tx *sql.Tx, productID uuid.UUID, images []domain.ProductImage) error {
	for i, image := range images {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_images (product_id, position, url, alt, kind)
			VALUES ($1, $2, $3, $4, $5)
		`, productID, i, image.URL, image.Alt, image.Kind)
		if err != nil {
			return transientf(err, "failed to insert product image")
		}
	}
	return nil
}

// checkCategoryExists verifies the referenced category inside the write
// transaction so a concurrent category delete cannot race past it.
func checkCategoryExists(ctx context.Context, tx *sql.Tx, categoryID uuid.UUID) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT TRUE FROM categories WHERE id = $1 FOR SHARE`,
		categoryID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(domain.KindNotFound, "category", "referenced category does not exist").
				WithID(categoryID.String()).WithField("categoryId")
		}
		return transientf(err, "failed to check category reference")
	}
	return nil
}
