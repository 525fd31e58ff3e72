package service

import "errors"

var (
	ErrForbidden          = errors.New("not allowed to access this resource")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidQuantity    = errors.New("quantity must be positive and within the line limit")
	ErrInvalidPhone       = errors.New("phone must be 10 digits starting with 0")
	ErrShopUnavailable    = errors.New("shop is not accepting orders")
	ErrProductUnavailable = errors.New("product is not available")
	ErrProductNotInShop   = errors.New("product does not belong to this shop")
	ErrVariantRequired    = errors.New("a variant must be selected for this product")
	ErrUnknownVariant     = errors.New("selected variant does not exist for this product")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrCannotCancel       = errors.New("only pending orders can be cancelled")
	ErrPaymentUnavailable = errors.New("bank transfer is not available for this order")
	ErrInvalidVariants    = errors.New("invalid variant definition")
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidPrice       = errors.New("price must be greater than zero")
	ErrInvalidStock       = errors.New("stock must not be negative")
	ErrInvalidSlug        = errors.New("slug may only contain lowercase letters, digits and single dashes")
	ErrInvalidComponent   = errors.New("unknown page component type")
	ErrInvalidContentType = errors.New("only jpeg, png, webp and gif images can be uploaded")
)
