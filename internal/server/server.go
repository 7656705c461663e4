package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"memorabilia-catalog/internal/cache"
	"memorabilia-catalog/internal/config"
	custommiddleware "memorabilia-catalog/internal/middleware"
	"memorabilia-catalog/internal/repository"
	"memorabilia-catalog/internal/service"
	"memorabilia-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Server {
	isDev := cfg.Server.Env != "production"

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSOrigins, isDev))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// Initialize services
	treeCache := cache.New(redisClient, logger)
	categoryService := service.NewCategoryService(categoryRepo)
	productService := service.NewProductService(productRepo)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, treeCache, logger)
	gateway := service.NewGateway(categoryService, productService, treeCache, logger)
	authService := service.NewAuthService(adminRepo, cfg.JWT.Secret, cfg.JWT.SessionTTL())

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authService, logger, cfg.JWT.SessionTTL(), !isDev)
	categoryHandler := transport.NewCategoryHandler(gateway, categoryService, catalogService, logger)
	productHandler := transport.NewProductHandler(gateway, productService, catalogService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Rate limit login attempts when redis is available
	var loginRateLimit func(http.Handler) http.Handler
	if redisClient != nil {
		loginRateLimit = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 10,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit:login",
		}, logger)
	}

	// Register routes
	authHandler.RegisterRoutes(router, authMiddleware, loginRateLimit)
	categoryHandler.RegisterRoutes(router, authMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
