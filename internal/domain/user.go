package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser is an administrator account allowed to mutate the catalog.
type AdminUser struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
