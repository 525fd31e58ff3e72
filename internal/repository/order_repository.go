package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// StatusGuard inspects the locked order before a status change and may veto
// it by returning an error
type StatusGuard func(order *domain.Order) error

// OrderRepository persists orders together with the stock they hold
type OrderRepository interface {
	// Create deducts stock for every item and inserts the order with its
	// items in one transaction. Nothing is written if any item is short.
	Create(ctx context.Context, order *domain.Order) error
	// UpdateStatus locks the order row, runs guard, checks the transition
	// and restores stock when the order enters CANCELLED, all in one
	// transaction.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, guard StatusGuard) (*domain.StatusChange, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error)
}

type orderRepository struct {
	db     *sql.DB
	ledger StockLedger
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB, ledger StockLedger) OrderRepository {
	return &orderRepository{db: db, ledger: ledger}
}

const orderColumns = `id, buyer_id, shop_id, status, recipient_name, phone, COALESCE(email, ''),
	shipping_address, COALESCE(note, ''), total, payment_reference, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.ShopID,
		&order.Status,
		&order.RecipientName,
		&order.Phone,
		&order.Email,
		&order.ShippingAddress,
		&order.Note,
		&order.Total,
		&order.PaymentReference,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range inLockOrder(order.Items) {
		if err := r.ledger.Deduct(ctx, tx, item); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, shop_id, status, recipient_name, phone, email,
		                    shipping_address, note, total, payment_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11, $12, $13)`,
		order.ID,
		order.BuyerID,
		order.ShopID,
		order.Status,
		order.RecipientName,
		order.Phone,
		order.Email,
		order.ShippingAddress,
		order.Note,
		order.Total,
		order.PaymentReference,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, selected_variant)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`,
			item.ID,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
			item.SelectedVariant,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *orderRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.OrderStatus,
	guard StatusGuard,
) (*domain.StatusChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	if guard != nil {
		if err := guard(order); err != nil {
			return nil, err
		}
	}

	from := order.Status
	if !from.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, status)
	}

	order.Items, err = listItems(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}

	change := &domain.StatusChange{Order: order, From: from, To: status}
	if from == status {
		return change, tx.Commit()
	}

	if domain.RestoresStock(from, status) {
		for _, item := range inLockOrder(order.Items) {
			if err := r.ledger.Restore(ctx, tx, item); err != nil {
				return nil, fmt.Errorf("failed to restore item %s: %w", item.ID, err)
			}
		}
		change.StockRestored = true
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.Status = status
	order.UpdatedAt = now
	return change, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	order.Items, err = listItems(ctx, r.db, order.ID)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`, buyerID)
}

// ListByShop returns a shop's orders newest first; an empty status lists all
func (r *orderRepository) ListByShop(ctx context.Context, shopID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE shop_id = $1`
	args := []interface{}{shopID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, args...)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	rows.Close()

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		if order.Items, err = listItems(ctx, r.db, order.ID); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func listItems(ctx context.Context, db DBTX, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price, COALESCE(selected_variant, '')
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.SelectedVariant,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
