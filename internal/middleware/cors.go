package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware configures CORS settings. The admin UI authenticates with
// a cookie, so credentials must be allowed and origins cannot be * outside
// development.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	if isDevelopment {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	// go-chi/cors treats an empty origin list as "*". A credentialed API
	// must never fall back to that, so no configured origins means no
	// cross-origin access at all.
	allowOrigin := func(r *http.Request, origin string) bool {
		return false
	}
	if len(allowedOrigins) > 0 {
		allowOrigin = nil
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowOriginFunc:  allowOrigin,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}
