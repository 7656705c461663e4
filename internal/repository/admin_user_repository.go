package repository

import (
	"context"
	"database/sql"
	"errors"

	"memorabilia-catalog/internal/domain"

	"github.com/google/uuid"
)

// AdminUserRepository defines the interface for administrator account access.
type AdminUserRepository interface {
	Create(ctx context.Context, user *domain.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error)
	Count(ctx context.Context) (int, error)
}

type adminUserRepository struct {
	db *sql.DB
}

// NewAdminUserRepository creates a new instance of AdminUserRepository
func NewAdminUserRepository(db *sql.DB) AdminUserRepository {
	return &adminUserRepository{db: db}
}

// Create inserts a new administrator account
func (r *adminUserRepository) Create(ctx context.Context, user *domain.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, password_hash, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.CreatedAt,
	)
	if err != nil {
		return transientf(err, "failed to create admin user")
	}

	return nil
}

// FindByEmail retrieves an administrator by email
func (r *adminUserRepository) FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, name, created_at
		FROM admin_users
		WHERE email = $1
	`

	user := &domain.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "admin_user", "admin user not found")
		}
		return nil, transientf(err, "failed to find admin user by email")
	}

	return user, nil
}

// FindByID retrieves an administrator by ID
func (r *adminUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, name, created_at
		FROM admin_users
		WHERE id = $1
	`

	user := &domain.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "admin_user", "admin user not found").
				WithID(id.String())
		}
		return nil, transientf(err, "failed to find admin user by ID")
	}

	return user, nil
}

// Count returns the number of administrator accounts
func (r *adminUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&count); err != nil {
		return 0, transientf(err, "failed to count admin users")
	}
	return count, nil
}
