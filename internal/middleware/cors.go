package middleware

import (
	"net/http"
	"time"

	"marketplace/internal/config"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORSMiddleware configures CORS for the storefront and vendor dashboard
// origins. Development servers accept any origin.
func CORSMiddleware(cfg config.ServerConfig) func(http.Handler) http.Handler {
	allowedOrigins := cfg.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: !cfg.IsDevelopment(),
		MaxAge:           300,
	})
}

// DefaultMiddlewareStack returns the middleware every request passes through
func DefaultMiddlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.CleanPath,
		middleware.Compress(5),
		middleware.Timeout(30 * time.Second),
	}
}
