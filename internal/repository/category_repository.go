package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"memorabilia-catalog/internal/domain"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category data access.
//
// Hierarchy invariants (parent exists, parent is top-level, no re-parenting
// of a category that has children, dependency-free delete) are re-checked
// inside each write transaction while the relevant rows are locked, so two
// concurrent mutations cannot both validate against a stale snapshot.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create inserts a new category after verifying the parent, if any, exists
// and is itself top-level. The parent row stays locked until commit.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return transientf(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if category.ParentID != nil {
		if err := lockAndCheckParent(ctx, tx, *category.ParentID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO categories (id, name, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, query,
		category.ID,
		category.Name,
		category.ParentID,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return transientf(err, "failed to create category")
	}

	if err := tx.Commit(); err != nil {
		return transientf(err, "failed to commit category create")
	}
	return nil
}

// Update renames and/or re-parents a category. A category that currently has
// children may not become a child itself; that is rejected, not flattened.
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return transientf(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// Lock the category row itself so concurrent re-parents serialize.
	var currentParent *uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT parent_id FROM categories WHERE id = $1 FOR UPDATE`,
		category.ID,
	).Scan(&currentParent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(domain.KindNotFound, "category", "category not found").
				WithID(category.ID.String())
		}
		return transientf(err, "failed to lock category")
	}

	if category.ParentID != nil {
		if *category.ParentID == category.ID {
			return domain.NewError(domain.KindHierarchy, "category", "a category cannot be its own parent").
				WithID(category.ID.String()).WithField("parentId")
		}

		if err := lockAndCheckParent(ctx, tx, *category.ParentID); err != nil {
			return err
		}

		// Becoming a subcategory while having children would create a
		// depth-3 chain.
		var childCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE parent_id = $1`,
			category.ID,
		).Scan(&childCount)
		if err != nil {
			return transientf(err, "failed to count subcategories")
		}
		if childCount > 0 {
			return domain.NewError(domain.KindHierarchy, "category",
				fmt.Sprintf("cannot become a subcategory while it has %d subcategories", childCount)).
				WithID(category.ID.String()).WithField("parentId")
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE categories SET name = $2, parent_id = $3, updated_at = NOW() WHERE id = $1`,
		category.ID,
		category.Name,
		category.ParentID,
	)
	if err != nil {
		return transientf(err, "failed to update category")
	}

	if err := tx.Commit(); err != nil {
		return transientf(err, "failed to commit category update")
	}
	return nil
}

// Delete removes a category only when it has no subcategories and no
// linked products.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return transientf(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT TRUE FROM categories WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(domain.KindNotFound, "category", "category not found").
				WithID(id.String())
		}
		return transientf(err, "failed to lock category")
	}

	var subcategories, products int
	err = tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories WHERE parent_id = $1),
			(SELECT COUNT(*) FROM products WHERE category_id = $1)
	`, id).Scan(&subcategories, &products)
	if err != nil {
		return transientf(err, "failed to count category dependents")
	}

	if subcategories > 0 || products > 0 {
		return domain.NewError(domain.KindDependency, "category",
			fmt.Sprintf("category has %d subcategories and %d products; reassign or delete them first",
				subcategories, products)).
			WithID(id.String())
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return transientf(err, "failed to delete category")
	}

	if err := tx.Commit(); err != nil {
		return transientf(err, "failed to commit category delete")
	}
	return nil
}

// FindByID retrieves a category by ID with derived counts attached.
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT c.id, c.name, c.parent_id, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM categories s WHERE s.parent_id = c.id),
		       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
		FROM categories c
		WHERE c.id = $1
	`

	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.ParentID,
		&category.CreatedAt,
		&category.UpdatedAt,
		&category.SubcategoryCount,
		&category.ProductCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "category", "category not found").
				WithID(id.String())
		}
		return nil, transientf(err, "failed to find category by ID")
	}

	return category, nil
}

// List retrieves all categories with derived counts, top-level categories
// first (ordered by name), then subcategories grouped under their parent.
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT c.id, c.name, c.parent_id, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM categories s WHERE s.parent_id = c.id),
		       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
		FROM categories c
		ORDER BY (c.parent_id IS NOT NULL), c.name ASC, c.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, transientf(err, "failed to list categories")
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category := &domain.Category{}
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.ParentID,
			&category.CreatedAt,
			&category.UpdatedAt,
			&category.SubcategoryCount,
			&category.ProductCount,
		)
		if err != nil {
			return nil, transientf(err, "failed to scan category")
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, transientf(err, "error iterating categories")
	}

	return categories, nil
}

// lockAndCheckParent locks the prospective parent row and verifies it is a
// top-level category.
func lockAndCheckParent(ctx context.Context, tx *sql.Tx, parentID uuid.UUID) error {
	var grandparent *uuid.UUID
	err := tx.QueryRowContext(ctx,
		`SELECT parent_id FROM categories WHERE id = $1 FOR UPDATE`,
		parentID,
	).Scan(&grandparent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(domain.KindHierarchy, "category", "parent category does not exist").
				WithID(parentID.String()).WithField("parentId")
		}
		return transientf(err, "failed to lock parent category")
	}
	if grandparent != nil {
		return domain.NewError(domain.KindHierarchy, "category",
			"parent is itself a subcategory; the hierarchy allows only two levels").
			WithID(parentID.String()).WithField("parentId")
	}
	return nil
}
