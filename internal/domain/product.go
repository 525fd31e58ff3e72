package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"marketplace/internal/variant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a shop item. When Variants has at least one usable axis,
// VariantStock is authoritative per combination and Stock is only
// informational; otherwise Stock governs availability.
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ShopID       uuid.UUID       `json:"shop_id" db:"shop_id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Stock        int             `json:"stock" db:"stock"`
	Images       ImageList       `json:"images" db:"images"`
	Variants     variant.Axes    `json:"variants" db:"variants"`
	VariantStock variant.Stock   `json:"variant_stock" db:"variant_stock"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// HasVariants reports whether availability is tracked per combination
func (p *Product) HasVariants() bool {
	return p.Variants.HasVariants()
}

// Available returns how many units of the given combination can be bought.
// key is ignored for products without variants.
func (p *Product) Available(key string) int {
	if p.HasVariants() {
		return variant.StockFor(p.VariantStock, true, key)
	}
	if p.Stock < 0 {
		return 0
	}
	return p.Stock
}

// InStock reports whether any unit of the product can be bought
func (p *Product) InStock() bool {
	if p.HasVariants() {
		return p.VariantStock.Total() > 0
	}
	return p.Stock > 0
}

// ImageList is a JSONB list of image URLs
type ImageList []string

// Value implements driver.Valuer
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner
func (l *ImageList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ImageList", src)
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return fmt.Errorf("failed to decode images: %w", err)
	}
	*l = urls
	return nil
}
