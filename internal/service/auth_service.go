package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"memorabilia-catalog/internal/domain"
	"memorabilia-catalog/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims represents the admin session JWT claims
type Claims struct {
	AdminID uuid.UUID `json:"admin_id"`
	Email   string    `json:"email"`
	jwt.RegisteredClaims
}

// AuthService authenticates administrators and issues session tokens. The
// catalog core itself treats authorization as already decided; this service
// exists so the surrounding HTTP application has somewhere to decide it.
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, admin *domain.AdminUser, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetAdmin(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error)
	Bootstrap(ctx context.Context, email, password string) error
}

type authService struct {
	repo       repository.AdminUserRepository
	jwtSecret  string
	sessionTTL time.Duration
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(repo repository.AdminUserRepository, jwtSecret string, sessionTTL time.Duration) AuthService {
	return &authService{
		repo:       repo,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
	}
}

// Login authenticates an administrator and returns a session token.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.AdminUser, error) {
	admin, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find admin user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return token, admin, nil
}

// ValidateToken validates a session token and returns the claims.
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetAdmin retrieves an administrator by ID.
func (s *authService) GetAdmin(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	return s.repo.FindByID(ctx, id)
}

// Bootstrap seeds the first administrator account when none exist yet.
// It is a no-op when accounts already exist or credentials are not
// configured.
func (s *authService) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := &domain.AdminUser{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Name:         "Administrator",
		CreatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return nil
}

// generateToken signs a session JWT for the given administrator.
func (s *authService) generateToken(admin *domain.AdminUser) (string, error) {
	now := time.Now()
	claims := &Claims{
		AdminID: admin.ID,
		Email:   admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
