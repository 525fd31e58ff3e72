package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids
var ErrInvalidTransition = errors.New("invalid order status transition")

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Moving to the current status is allowed and changes nothing.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// RestoresStock reports whether moving from one status to another must put
// the order's items back on the shelf. Only entering CANCELLED does.
func RestoresStock(from, to OrderStatus) bool {
	return to == OrderStatusCancelled && from != OrderStatusCancelled
}

// Order is one checkout against a single shop
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	BuyerID          uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	ShopID           uuid.UUID       `json:"shop_id" db:"shop_id"`
	Status           OrderStatus     `json:"status" db:"status"`
	RecipientName    string          `json:"recipient_name" db:"recipient_name"`
	Phone            string          `json:"phone" db:"phone"`
	Email            string          `json:"email,omitempty" db:"email"`
	ShippingAddress  string          `json:"shipping_address" db:"shipping_address"`
	Note             string          `json:"note,omitempty" db:"note"`
	Total            decimal.Decimal `json:"total" db:"total"`
	PaymentReference string          `json:"payment_reference" db:"payment_reference"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is a line of an order, priced at purchase time.
// SelectedVariant is the canonical variant key, empty for products
// without variants.
type OrderItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName     string          `json:"product_name" db:"product_name"`
	Quantity        int             `json:"quantity" db:"quantity"`
	Price           decimal.Decimal `json:"price" db:"price"`
	SelectedVariant string          `json:"selected_variant,omitempty" db:"selected_variant"`
}

// Subtotal is price times quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusChange is the result of an order status update
type StatusChange struct {
	Order         *Order      `json:"order"`
	From          OrderStatus `json:"from"`
	To            OrderStatus `json:"to"`
	StockRestored bool        `json:"stock_restored"`
}
