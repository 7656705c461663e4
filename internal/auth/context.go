package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const adminKey contextKey = "admin"

// Admin is the identity claim attached to an authenticated request.
// Authorization itself is decided before requests reach the catalog core;
// the claim is carried for attribution only.
type Admin struct {
	ID    uuid.UUID
	Email string
}

// WithAdmin returns a context carrying the authenticated admin.
func WithAdmin(ctx context.Context, admin Admin) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// AdminFrom extracts the authenticated admin from the context.
func AdminFrom(ctx context.Context) (Admin, bool) {
	admin, ok := ctx.Value(adminKey).(Admin)
	return admin, ok
}
