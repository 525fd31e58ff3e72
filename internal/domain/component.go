package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ComponentType is an entry of the page builder component library
type ComponentType string

const (
	ComponentBanner           ComponentType = "banner"
	ComponentText             ComponentType = "text"
	ComponentImage            ComponentType = "image"
	ComponentProductGrid      ComponentType = "product_grid"
	ComponentFeaturedProducts ComponentType = "featured_products"
	ComponentDivider          ComponentType = "divider"
)

// ComponentTypes lists the library in the order the builder offers it
var ComponentTypes = []ComponentType{
	ComponentBanner,
	ComponentText,
	ComponentImage,
	ComponentProductGrid,
	ComponentFeaturedProducts,
	ComponentDivider,
}

// Valid reports whether t belongs to the component library
func (t ComponentType) Valid() bool {
	for _, known := range ComponentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PageComponent is one block of a shop page. Position is zero based and
// contiguous within a shop.
type PageComponent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ShopID    uuid.UUID       `json:"shop_id" db:"shop_id"`
	Type      ComponentType   `json:"type" db:"type"`
	Position  int             `json:"position" db:"position"`
	Config    json.RawMessage `json:"config" db:"config"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
