package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/payment"
	"marketplace/internal/repository"
	"marketplace/internal/variant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxLineQuantity caps one order line, after merging duplicates. Stock
// columns and order_items.quantity are 32-bit integers.
const MaxLineQuantity = math.MaxInt32

// CartItem is one requested line of a checkout
type CartItem struct {
	ProductID       uuid.UUID
	Quantity        int
	SelectedVariant string
}

// CheckoutInput is a cart for a single shop plus delivery details
type CheckoutInput struct {
	ShopID          uuid.UUID
	RecipientName   string
	Phone           string
	Email           string
	ShippingAddress string
	Note            string
	Items           []CartItem
}

// Viewer identifies who is reading an order
type Viewer struct {
	UserID uuid.UUID
	Role   domain.Role
}

// OrderService drives checkout and the order lifecycle
type OrderService interface {
	Checkout(ctx context.Context, buyerID uuid.UUID, input CheckoutInput) (*domain.Order, error)
	UpdateStatus(ctx context.Context, vendorID, orderID uuid.UUID, status domain.OrderStatus) (*domain.StatusChange, error)
	CancelByBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*domain.StatusChange, error)
	Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*domain.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListForShop(ctx context.Context, vendorID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	shopRepo    repository.ShopRepository
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	shopRepo repository.ShopRepository,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		shopRepo:    shopRepo,
		logger:      logger,
	}
}

type lineKey struct {
	productID uuid.UUID
	variant   string
}

// Checkout validates the cart, prices it at current product prices and
// places the order. Stock is deducted atomically with the order insert;
// the availability check here only gives an early, friendlier error.
func (s *orderService) Checkout(ctx context.Context, buyerID uuid.UUID, input CheckoutInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}
	phone := strings.TrimSpace(input.Phone)
	if !domain.IsValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	shop, err := s.shopRepo.FindByID(ctx, input.ShopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, ErrShopUnavailable
		}
		return nil, err
	}
	if !shop.IsActive {
		return nil, ErrShopUnavailable
	}

	products := make(map[uuid.UUID]*domain.Product)
	lines := make(map[lineKey]*domain.OrderItem)
	var order []lineKey

	for _, item := range input.Items {
		if item.Quantity <= 0 || item.Quantity > MaxLineQuantity {
			return nil, ErrInvalidQuantity
		}

		product, ok := products[item.ProductID]
		if !ok {
			product, err = s.productRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			products[item.ProductID] = product
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		if product.ShopID != shop.ID {
			return nil, fmt.Errorf("%w: %s", ErrProductNotInShop, product.Name)
		}

		key, err := selectedVariant(product, item.SelectedVariant)
		if err != nil {
			return nil, err
		}

		lk := lineKey{productID: product.ID, variant: key}
		if line, ok := lines[lk]; ok {
			if line.Quantity > MaxLineQuantity-item.Quantity {
				return nil, ErrInvalidQuantity
			}
			line.Quantity += item.Quantity
			continue
		}
		lines[lk] = &domain.OrderItem{
			ID:              uuid.New(),
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        item.Quantity,
			Price:           product.Price,
			SelectedVariant: key,
		}
		order = append(order, lk)
	}

	orderID := uuid.New()
	total := decimal.Zero
	items := make([]domain.OrderItem, 0, len(order))
	for _, lk := range order {
		line := lines[lk]
		product := products[lk.productID]
		if available := product.Available(line.SelectedVariant); available < line.Quantity {
			return nil, &repository.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				VariantKey:  line.SelectedVariant,
				Requested:   line.Quantity,
			}
		}

		line.OrderID = orderID
		total = total.Add(line.Subtotal())
		items = append(items, *line)
	}

	now := time.Now()
	placed := &domain.Order{
		ID:               orderID,
		BuyerID:          buyerID,
		ShopID:           shop.ID,
		Status:           domain.OrderStatusPending,
		RecipientName:    strings.TrimSpace(input.RecipientName),
		Phone:            phone,
		Email:            strings.TrimSpace(input.Email),
		ShippingAddress:  strings.TrimSpace(input.ShippingAddress),
		Note:             strings.TrimSpace(input.Note),
		Total:            total,
		PaymentReference: payment.Reference(orderID),
		Items:            items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.orderRepo.Create(ctx, placed); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			s.logger.Warn("Checkout lost stock race",
				zap.String("buyer_id", buyerID.String()),
				zap.String("shop_id", shop.ID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("shop_id", shop.ID.String()),
		zap.Int("items", len(items)),
		zap.String("total", total.String()),
	)
	return placed, nil
}

// selectedVariant canonicalizes the requested key and checks it against the
// product's axes. Products without axes take no key.
func selectedVariant(product *domain.Product, requested string) (string, error) {
	if !product.HasVariants() {
		return "", nil
	}

	key := variant.Canonicalize(strings.TrimSpace(requested))
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrVariantRequired, product.Name)
	}
	if !product.Variants.Contains(key) {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnknownVariant, product.Name, variant.FormatKey(key))
	}
	return key, nil
}

// UpdateStatus moves an order of the vendor's shop through its lifecycle.
// Cancelling puts the items back on the shelf.
func (s *orderService) UpdateStatus(ctx context.Context, vendorID, orderID uuid.UUID, status domain.OrderStatus) (*domain.StatusChange, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	shop, err := s.shopRepo.FindByOwner(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	change, err := s.orderRepo.UpdateStatus(ctx, orderID, status, func(order *domain.Order) error {
		if order.ShopID != shop.ID {
			return ErrForbidden
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logStatusChange(change)
	return change, nil
}

// CancelByBuyer lets a buyer cancel their own order while it is pending.
// Cancelling an already cancelled order changes nothing.
func (s *orderService) CancelByBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*domain.StatusChange, error) {
	change, err := s.orderRepo.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, func(order *domain.Order) error {
		if order.BuyerID != buyerID {
			return ErrForbidden
		}
		if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusCancelled {
			return ErrCannotCancel
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logStatusChange(change)
	return change, nil
}

func (s *orderService) logStatusChange(change *domain.StatusChange) {
	s.logger.Info("Order status updated",
		zap.String("order_id", change.Order.ID.String()),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Bool("stock_restored", change.StockRestored),
	)
}

// Get returns an order to its buyer, the owner of its shop or an admin
func (s *orderService) Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case viewer.Role == domain.RoleAdmin:
		return order, nil
	case order.BuyerID == viewer.UserID:
		return order, nil
	case viewer.Role == domain.RoleVendor:
		shop, err := s.shopRepo.FindByOwner(ctx, viewer.UserID)
		if err == nil && shop.ID == order.ShopID {
			return order, nil
		}
		if err != nil && !errors.Is(err, repository.ErrShopNotFound) {
			return nil, err
		}
	}
	return nil, ErrForbidden
}

func (s *orderService) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByBuyer(ctx, buyerID)
}

// ListForShop lists the orders of the vendor's shop, optionally by status
func (s *orderService) ListForShop(ctx context.Context, vendorID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	shop, err := s.shopRepo.FindByOwner(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.ListByShop(ctx, shop.ID, status)
}
