package transport

import (
	"net/http"
	"strings"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/service"
	"marketplace/internal/variant"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartItemRequest is one line of the cart
type CartItemRequest struct {
	ProductID       string `json:"product_id" validate:"required,uuid"`
	Quantity        int    `json:"quantity" validate:"gt=0,lte=2147483647"`
	SelectedVariant string `json:"selected_variant"`
}

// CheckoutRequest places an order against one shop
type CheckoutRequest struct {
	ShopID          string            `json:"shop_id" validate:"required,uuid"`
	RecipientName   string            `json:"recipient_name" validate:"required,max=255"`
	Phone           string            `json:"phone" validate:"required,vnphone"`
	Email           string            `json:"email" validate:"omitempty,email"`
	ShippingAddress string            `json:"shipping_address" validate:"required"`
	Note            string            `json:"note" validate:"max=1000"`
	Items           []CartItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req CheckoutRequest) input() service.CheckoutInput {
	items := make([]service.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CartItem{
			ProductID:       uuid.MustParse(item.ProductID),
			Quantity:        item.Quantity,
			SelectedVariant: item.SelectedVariant,
		}
	}

	return service.CheckoutInput{
		ShopID:          uuid.MustParse(req.ShopID),
		RecipientName:   req.RecipientName,
		Phone:           req.Phone,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		Note:            req.Note,
		Items:           items,
	}
}

// StatusRequest moves an order along its lifecycle
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderItemView struct {
	domain.OrderItem
	VariantLabel string          `json:"variant_label,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// orderView adds readable variant labels and line subtotals to an order
type orderView struct {
	*domain.Order
	Items []orderItemView `json:"items"`
}

func newOrderView(order *domain.Order) orderView {
	view := orderView{Order: order, Items: make([]orderItemView, len(order.Items))}
	for i, item := range order.Items {
		view.Items[i] = orderItemView{
			OrderItem:    item,
			VariantLabel: variant.FormatKey(item.SelectedVariant),
			Subtotal:     item.Subtotal(),
		}
	}
	return view
}

func newOrderViews(orders []*domain.Order) []orderView {
	views := make([]orderView, len(orders))
	for i, order := range orders {
		views[i] = newOrderView(order)
	}
	return views
}

type statusChangeView struct {
	Order         orderView          `json:"order"`
	From          domain.OrderStatus `json:"from"`
	To            domain.OrderStatus `json:"to"`
	StockRestored bool               `json:"stock_restored"`
}

func newStatusChangeView(change *domain.StatusChange) statusChangeView {
	return statusChangeView{
		Order:         newOrderView(change.Order),
		From:          change.From,
		To:            change.To,
		StockRestored: change.StockRestored,
	}
}

// OrderHandler serves checkout, order history and order fulfilment
type OrderHandler struct {
	orderService   service.OrderService
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, paymentService service.PaymentService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
		logger:         logger,
	}
}

// RegisterRoutes registers the buyer order routes. checkoutLimiter wraps
// only the checkout endpoint.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, checkoutLimiter func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(checkoutLimiter).Post("/checkout", h.Checkout)
		r.Get("/", h.ListMyOrders)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Get("/{id}/payment", h.GetPayment)
	})
}

// RegisterVendorRoutes registers the shop fulfilment routes.
// r is expected to be authenticated and limited to vendors.
func (h *OrderHandler) RegisterVendorRoutes(r chi.Router) {
	r.Get("/orders", h.ListShopOrders)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// Checkout places an order and deducts its stock
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.Checkout(r.Context(), userID, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("shop_id", order.ShopID.String()),
		zap.String("total", order.Total.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newOrderView(order))
}

// ListMyOrders returns the buyer's orders, newest first
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListForBuyer(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderViews(orders))
}

// GetOrder returns one order to its buyer, its vendor or an admin
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), service.Viewer{UserID: userID, Role: role}, orderID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderView(order))
}

// CancelOrder cancels a pending order of the buyer
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	change, err := h.orderService.CancelByBuyer(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newStatusChangeView(change))
}

// GetPayment returns the bank transfer details and QR code of an order
func (h *OrderHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	info, err := h.paymentService.TransferInfo(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, info)
}

// ListShopOrders returns the orders of the vendor's shop, optionally
// filtered with ?status=
func (h *OrderHandler) ListShopOrders(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	orders, err := h.orderService.ListForShop(r.Context(), userID, status)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderViews(orders))
}

// UpdateStatus moves an order of the vendor's shop to a new status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	change, err := h.orderService.UpdateStatus(r.Context(), userID, orderID, status)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newStatusChangeView(change))
}
