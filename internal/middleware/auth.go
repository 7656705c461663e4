package middleware

import (
	"errors"
	"net/http"
	"strings"

	"memorabilia-catalog/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie carrying the admin session token.
const SessionCookieName = "session"

// AuthMiddleware validates the admin session token, taken from the session
// cookie or from a Bearer header, and attaches the admin identity to the
// request context.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := sessionToken(r)
			if tokenString == "" {
				logger.Debug("Missing session token")
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				// Validate signing method
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "session expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid session")
				}
				return
			}

			if !token.Valid {
				logger.Debug("Invalid token")
				RespondWithError(w, http.StatusUnauthorized, "invalid session")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from token")
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			adminIDRaw, ok := claims["admin_id"].(string)
			if !ok {
				logger.Error("Missing admin_id in token claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}
			adminID, err := uuid.Parse(adminIDRaw)
			if err != nil {
				logger.Error("Malformed admin_id in token claims", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			email, ok := claims["email"].(string)
			if !ok {
				logger.Error("Missing email in token claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			ctx := auth.WithAdmin(r.Context(), auth.Admin{ID: adminID, Email: email})

			logger.Debug("Admin authenticated",
				zap.String("admin_id", adminID.String()),
				zap.String("email", email),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionToken extracts the raw token from the session cookie, falling back
// to an Authorization Bearer header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
