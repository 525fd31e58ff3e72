package middleware

import (
	"net/http"

	"marketplace/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, domain.RoleAdmin)
}

// RequireVendor lets vendors through. Admins are not vendors: they own no
// shop to act on.
func RequireVendor(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, domain.RoleVendor)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(logger *zap.Logger, allowedRoles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User role not authorized",
				zap.String("role", string(role)),
				zap.String("path", r.URL.Path),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
