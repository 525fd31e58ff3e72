package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/database"
	custommiddleware "marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/storage"
	"marketplace/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	users  service.UserService
}

// NewRedisClient creates the client used for rate limiting
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// newObjectStorage uses the configured bucket, or hands out placeholder
// URLs when none is configured
func newObjectStorage(cfg config.StorageConfig, logger *zap.Logger) (storage.ObjectStorage, error) {
	if !cfg.Enabled() {
		logger.Warn("Object storage is not configured, image uploads use placeholder URLs")
		return storage.NewStubObjectStorage(), nil
	}
	s3Storage, err := storage.NewS3ObjectStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	return s3Storage, nil
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) (*Server, error) {
	objectStorage, err := newObjectStorage(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server))

	router.Get("/health", healthHandler(db, redisClient))

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	shopRepo := repository.NewShopRepository(sqlDB)
	componentRepo := repository.NewComponentRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB, repository.NewStockLedger())

	// Initialize services
	uploadTTL := time.Duration(cfg.Storage.PresignMinutes) * time.Minute
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT, logger)
	shopService := service.NewShopService(shopRepo, componentRepo, logger)
	productService := service.NewProductService(productRepo, shopRepo, objectStorage, uploadTTL, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, shopRepo, logger)
	paymentService := service.NewPaymentService(orderRepo, shopRepo, cfg.Payment)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	shopHandler := transport.NewShopHandler(shopService, productService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	orderHandler := transport.NewOrderHandler(orderService, paymentService, logger)
	adminHandler := transport.NewAdminHandler(userService, shopService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	checkoutLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.CheckoutRequests,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware)
	shopHandler.RegisterRoutes(router)
	productHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router, authMiddleware, checkoutLimiter)

	router.Route("/api/vendor", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(custommiddleware.RequireVendor(logger))
		shopHandler.RegisterVendorRoutes(r)
		productHandler.RegisterVendorRoutes(r)
		orderHandler.RegisterVendorRoutes(r)
	})

	router.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(custommiddleware.RequireAdmin(logger))
		adminHandler.RegisterRoutes(r)
	})

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
		users:  userService,
	}

	return server, nil
}

// healthHandler reports database and redis reachability. A redis outage
// reports degraded, a database outage 503.
func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health()

		redisStatus := "up"
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		status, code := "ok", http.StatusOK
		switch {
		case dbHealth["status"] != "up":
			status, code = "unavailable", http.StatusServiceUnavailable
		case redisStatus != "up":
			status = "degraded"
		}

		custommiddleware.RespondWithJSON(w, code, map[string]interface{}{
			"status":   status,
			"database": dbHealth,
			"redis":    redisStatus,
		})
	}
}

// PurgeTokensEvery deletes expired refresh tokens on every tick until ctx
// is done
func (s *Server) PurgeTokensEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.users.PurgeExpiredTokens(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Failed to purge expired refresh tokens", zap.Error(err))
			}
		}
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
