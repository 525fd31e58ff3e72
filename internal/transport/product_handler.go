package transport

import (
	"encoding/json"
	"net/http"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/variant"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductRequest is the create and update payload of a product.
// VariantStock accepts an object of counts or its JSON-encoded string.
type ProductRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Images       []string        `json:"images"`
	Variants     variant.Axes    `json:"variants"`
	VariantStock json.RawMessage `json:"variant_stock"`
	IsActive     *bool           `json:"is_active"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Stock:        req.Stock,
		Images:       req.Images,
		Variants:     req.Variants,
		VariantStock: req.VariantStock,
		IsActive:     req.IsActive,
	}
}

// ImageUploadRequest asks for a presigned upload of one product image
type ImageUploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// combinationView is one purchasable variant with its remaining stock
type combinationView struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Available int    `json:"available"`
}

// productView decorates a product with its availability
type productView struct {
	*domain.Product
	InStock      bool              `json:"in_stock"`
	Combinations []combinationView `json:"combinations,omitempty"`
}

func newProductView(product *domain.Product) productView {
	view := productView{Product: product, InStock: product.InStock()}
	if !product.HasVariants() {
		return view
	}

	for _, key := range variant.RegenerateCombinations(product.Variants) {
		view.Combinations = append(view.Combinations, combinationView{
			Key:       key,
			Label:     variant.FormatKey(key),
			Available: product.Available(key),
		})
	}
	return view
}

type productPage struct {
	Items    []productView `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func newProductPage(products []*domain.Product, total int, filter repository.ProductFilter) productPage {
	page := productPage{
		Items:    make([]productView, 0, len(products)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 || page.PageSize > maxPageSize {
		page.PageSize = defaultPageSize
	}
	for _, product := range products {
		page.Items = append(page.Items, newProductView(product))
	}
	return page
}

// ProductHandler serves product pages and the vendor's catalogue
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the public product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products/{id}", h.GetProduct)
}

// RegisterVendorRoutes registers catalogue management routes.
// r is expected to be authenticated and limited to vendors.
func (h *ProductHandler) RegisterVendorRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListMyProducts)
		r.Post("/", h.CreateProduct)
		r.Post("/images", h.RequestImageUpload)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

// GetProduct returns an active product of an active shop
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), productID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductView(product))
}

// ListMyProducts returns a page of the vendor's products, inactive included
func (h *ProductHandler) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter := pageQuery(r)
	products, total, err := h.productService.ListMine(r.Context(), userID, filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductPage(products, total, filter))
}

// CreateProduct adds a product to the vendor's shop
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.Create(r.Context(), userID, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, newProductView(product))
}

// UpdateProduct edits a product of the vendor's shop
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	productID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.Update(r.Context(), userID, productID, req.input())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductView(product))
}

// DeleteProduct removes a product that no order references
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	productID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), userID, productID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestImageUpload returns a presigned URL the browser uploads the image to
func (h *ProductHandler) RequestImageUpload(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ImageUploadRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	ticket, err := h.productService.RequestImageUpload(r.Context(), userID, req.ContentType)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, ticket)
}
