package transport

import (
	"encoding/json"
	"net/http"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShopRequest is the create and update payload of a vendor shop
type ShopRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	Slug            string `json:"slug" validate:"required,max=100"`
	Description     string `json:"description"`
	BankBIN         string `json:"bank_bin" validate:"omitempty,numeric,len=6"`
	BankAccountNo   string `json:"bank_account_no" validate:"omitempty,max=32"`
	BankAccountName string `json:"bank_account_name" validate:"omitempty,max=100"`
}

func (req ShopRequest) input() service.ShopInput {
	return service.ShopInput{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		BankBIN:         req.BankBIN,
		BankAccountNo:   req.BankAccountNo,
		BankAccountName: req.BankAccountName,
	}
}

// ComponentRequest adds a block to the vendor's shop page
type ComponentRequest struct {
	Type   string          `json:"type" validate:"required"`
	Config json.RawMessage `json:"config"`
}

// ComponentConfigRequest replaces the configuration of a block
type ComponentConfigRequest struct {
	Config json.RawMessage `json:"config"`
}

// ReorderRequest lists every component id of the shop in the new order
type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// ShopHandler serves storefront pages and the vendor's shop settings
type ShopHandler struct {
	shopService    service.ShopService
	productService service.ProductService
	logger         *zap.Logger
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(shopService service.ShopService, productService service.ProductService, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{
		shopService:    shopService,
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the public storefront routes
func (h *ShopHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/shops", func(r chi.Router) {
		r.Get("/", h.ListShops)
		r.Get("/{slug}", h.GetShop)
		r.Get("/{slug}/products", h.ListShopProducts)
		r.Get("/{slug}/components", h.ListShopComponents)
	})
}

// RegisterVendorRoutes registers the shop settings and page builder routes.
// r is expected to be authenticated and limited to vendors.
func (h *ShopHandler) RegisterVendorRoutes(r chi.Router) {
	r.Route("/shop", func(r chi.Router) {
		r.Get("/", h.GetMyShop)
		r.Post("/", h.CreateShop)
		r.Put("/", h.UpdateShop)

		r.Get("/components", h.ListMyComponents)
		r.Post("/components", h.AddComponent)
		r.Put("/components/order", h.ReorderComponents)
		r.Put("/components/{id}", h.UpdateComponent)
		r.Delete("/components/{id}", h.DeleteComponent)
	})
}

// ListShops returns every active shop
func (h *ShopHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shopService.ListActive(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shops)
}

// GetShop returns an active shop by slug
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.shopService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shop)
}

// ListShopProducts returns a page of the shop's active products
func (h *ShopHandler) ListShopProducts(w http.ResponseWriter, r *http.Request) {
	filter := pageQuery(r)
	products, total, err := h.productService.ListForShop(r.Context(), chi.URLParam(r, "slug"), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductPage(products, total, filter))
}

// ListShopComponents returns the blocks of a shop page in display order
func (h *ShopHandler) ListShopComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.shopService.ListComponents(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, components)
}

// GetMyShop returns the vendor's own shop, active or not
func (h *ShopHandler) GetMyShop(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	shop, err := h.shopService.GetMine(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shop)
}

// CreateShop opens the vendor's shop
func (h *ShopHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ShopRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	shop, err := h.shopService.Create(r.Context(), userID, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Shop created", zap.String("shop_id", shop.ID.String()), zap.String("slug", shop.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, shop)
}

// UpdateShop edits the vendor's shop settings
func (h *ShopHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ShopRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	shop, err := h.shopService.Update(r.Context(), userID, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, shop)
}

// ListMyComponents returns the vendor's page blocks
func (h *ShopHandler) ListMyComponents(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	components, err := h.shopService.ListMyComponents(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, components)
}

// AddComponent appends a block to the end of the vendor's page
func (h *ShopHandler) AddComponent(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ComponentRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	component, err := h.shopService.AddComponent(r.Context(), userID, domain.ComponentType(req.Type), req.Config)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, component)
}

// UpdateComponent replaces a block's configuration
func (h *ShopHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	componentID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req ComponentConfigRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	component, err := h.shopService.UpdateComponent(r.Context(), userID, componentID, req.Config)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, component)
}

// DeleteComponent removes a block and closes the gap in positions
func (h *ShopHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	componentID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.shopService.DeleteComponent(r.Context(), userID, componentID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderComponents applies a new order to the vendor's page blocks
func (h *ShopHandler) ReorderComponents(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ReorderRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	components, err := h.shopService.ReorderComponents(r.Context(), userID, req.IDs)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, components)
}
