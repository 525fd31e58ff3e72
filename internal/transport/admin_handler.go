package transport

import (
	"net/http"
	"strings"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the platform administration console
type AdminHandler struct {
	userService service.UserService
	shopService service.ShopService
	logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userService service.UserService, shopService service.ShopService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		shopService: shopService,
		logger:      logger,
	}
}

// RegisterRoutes registers the admin routes.
// r is expected to be authenticated and limited to admins.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.ListUsers)
	r.Patch("/users/{id}/active", h.SetUserActive)
	r.Get("/shops", h.ListShops)
	r.Patch("/shops/{id}/active", h.SetShopActive)
}

// ListUsers returns every account, optionally filtered with ?role=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))))

	users, err := h.userService.ListUsers(r.Context(), role)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	profiles := make([]UserProfile, len(users))
	for i, user := range users {
		profiles[i] = newUserProfile(user)
	}
	middleware.RespondWithJSON(w, http.StatusOK, profiles)
}

// SetUserActive enables or disables an account
func (h *AdminHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req activeRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.SetUserActive(r.Context(), userID, *req.Active)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

// ListShops returns every shop, inactive included
func (h *AdminHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shopService.ListAll(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shops)
}

// SetShopActive opens or closes a shop
func (h *AdminHandler) SetShopActive(w http.ResponseWriter, r *http.Request) {
	shopID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req activeRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	shop, err := h.shopService.SetActive(r.Context(), shopID, *req.Active)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shop)
}
