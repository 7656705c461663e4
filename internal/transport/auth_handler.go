package transport

import (
	"errors"
	"net/http"
	"time"

	"memorabilia-catalog/internal/auth"
	"memorabilia-catalog/internal/middleware"
	"memorabilia-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminProfile represents the authenticated administrator
type AdminProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthHandler handles HTTP requests for admin authentication
type AuthHandler struct {
	authService   service.AuthService
	logger        *zap.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		logger:        logger,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, loginRateLimit func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if loginRateLimit != nil {
				r.Use(loginRateLimit)
			}
			r.Post("/login", h.Login)
		})
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/me", h.Me)
		})
	})
}

// Login authenticates an administrator and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, admin, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	http.SetCookie(w, h.sessionCookie(token, h.sessionTTL))

	h.logger.Info("Admin logged in", zap.String("admin_id", admin.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, AdminProfile{
		ID:    admin.ID.String(),
		Email: admin.Email,
		Name:  admin.Name,
	})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -time.Hour))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the currently authenticated administrator
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.AdminFrom(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	admin, err := h.authService.GetAdmin(r.Context(), claims.ID)
	if err != nil {
		h.logger.Error("Failed to resolve admin", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "session no longer valid")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AdminProfile{
		ID:    admin.ID.String(),
		Email: admin.Email,
		Name:  admin.Name,
	})
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}
