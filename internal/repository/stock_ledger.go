package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"marketplace/internal/domain"
	"marketplace/internal/variant"

	"github.com/google/uuid"
)

// ErrInsufficientStock matches every *InsufficientStockError
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError names the line item that could not be deducted
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	VariantKey  string
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantKey == "" {
		return fmt.Sprintf("insufficient stock for product %s: requested %d", e.ProductName, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s (%s): requested %d",
		e.ProductName, variant.FormatKey(e.VariantKey), e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockLedger moves stock for order line items. Every call is a single
// conditional UPDATE, so it must run inside the transaction that creates or
// cancels the order.
type StockLedger interface {
	// Deduct takes item.Quantity units of the item's variant, or of the
	// general stock when it has no variant. It fails with
	// *InsufficientStockError, changing nothing, if fewer units are left.
	Deduct(ctx context.Context, tx DBTX, item domain.OrderItem) error
	// Restore puts item.Quantity units back. A variant key that no longer
	// exists is recreated holding the restored quantity.
	Restore(ctx context.Context, tx DBTX, item domain.OrderItem) error
}

type stockLedger struct{}

// NewStockLedger creates the Postgres StockLedger
func NewStockLedger() StockLedger {
	return stockLedger{}
}

const (
	// Counts that are not whole numbers read as zero, matching
	// variant.ParseStock.
	deductVariantStockSQL = `
		UPDATE products
		SET variant_stock = jsonb_set(
		        variant_stock,
		        ARRAY[$2::text],
		        to_jsonb((variant_stock ->> $2::text)::numeric - $3::int)
		    ),
		    updated_at = NOW()
		WHERE id = $1
		  AND CASE WHEN jsonb_typeof(variant_stock -> $2::text) = 'number'
		           THEN mod((variant_stock ->> $2::text)::numeric, 1) = 0
		                AND (variant_stock ->> $2::text)::numeric >= $3::int
		           ELSE FALSE
		      END
	`

	deductGeneralStockSQL = `
		UPDATE products
		SET stock = stock - $2::int, updated_at = NOW()
		WHERE id = $1 AND stock >= $2::int
	`

	restoreVariantStockSQL = `
		UPDATE products
		SET variant_stock = jsonb_set(
		        COALESCE(variant_stock, '{}'::jsonb),
		        ARRAY[$2::text],
		        to_jsonb(
		            CASE WHEN jsonb_typeof(variant_stock -> $2::text) = 'number'
		                 THEN CASE WHEN mod((variant_stock ->> $2::text)::numeric, 1) = 0
		                           THEN GREATEST((variant_stock ->> $2::text)::numeric, 0)
		                           ELSE 0
		                      END
		                 ELSE 0
		            END + $3::int
		        ),
		        true
		    ),
		    updated_at = NOW()
		WHERE id = $1
	`

	restoreGeneralStockSQL = `
		UPDATE products
		SET stock = stock + $2::int, updated_at = NOW()
		WHERE id = $1
	`
)

func (stockLedger) Deduct(ctx context.Context, tx DBTX, item domain.OrderItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
	}

	var (
		query string
		args  []interface{}
	)
	if item.SelectedVariant != "" {
		query = deductVariantStockSQL
		args = []interface{}{item.ProductID, item.SelectedVariant, item.Quantity}
	} else {
		query = deductGeneralStockSQL
		args = []interface{}{item.ProductID, item.Quantity}
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &InsufficientStockError{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			VariantKey:  item.SelectedVariant,
			Requested:   item.Quantity,
		}
	}

	return nil
}

func (stockLedger) Restore(ctx context.Context, tx DBTX, item domain.OrderItem) error {
	var (
		query string
		args  []interface{}
	)
	if item.SelectedVariant != "" {
		query = restoreVariantStockSQL
		args = []interface{}{item.ProductID, item.SelectedVariant, item.Quantity}
	} else {
		query = restoreGeneralStockSQL
		args = []interface{}{item.ProductID, item.Quantity}
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// inLockOrder returns the items sorted by product id, then variant key, so
// every transaction locks product rows in the same order.
func inLockOrder(items []domain.OrderItem) []domain.OrderItem {
	sorted := make([]domain.OrderItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := bytes.Compare(sorted[i].ProductID[:], sorted[j].ProductID[:]); c != 0 {
			return c < 0
		}
		return sorted[i].SelectedVariant < sorted[j].SelectedVariant
	})
	return sorted
}
