package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
	"marketplace/internal/storage"
	"marketplace/internal/variant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProductInput is the vendor product form. VariantStock is the submitted
// stock table as raw JSON; it is decoded strictly and reconciled against
// Variants before it is stored.
type ProductInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Stock        int
	Images       []string
	Variants     variant.Axes
	VariantStock []byte
	IsActive     *bool
}

// UploadTicket lets a client PUT an image straight to object storage
type UploadTicket struct {
	UploadURL  string    `json:"upload_url"`
	ImageURL   string    `json:"image_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ProductService manages the products of vendor shops
type ProductService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, ownerID, productID uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, ownerID, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	ListForShop(ctx context.Context, slug string, filter repository.ProductFilter) ([]*domain.Product, int, error)
	ListMine(ctx context.Context, ownerID uuid.UUID, filter repository.ProductFilter) ([]*domain.Product, int, error)
	RequestImageUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*UploadTicket, error)
}

type productService struct {
	productRepo repository.ProductRepository
	shopRepo    repository.ShopRepository
	storage     storage.ObjectStorage
	uploadTTL   time.Duration
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	shopRepo repository.ShopRepository,
	objectStorage storage.ObjectStorage,
	uploadTTL time.Duration,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		shopRepo:    shopRepo,
		storage:     objectStorage,
		uploadTTL:   uploadTTL,
		logger:      logger,
	}
}

// Create adds a product to the vendor's shop
func (s *productService) Create(ctx context.Context, ownerID uuid.UUID, input ProductInput) (*domain.Product, error) {
	shop, err := s.vendorShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	axes, stock, err := prepareProductInput(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:           uuid.New(),
		ShopID:       shop.ID,
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Price:        input.Price,
		Stock:        input.Stock,
		Images:       domain.ImageList(cleanImages(input.Images)),
		Variants:     axes,
		VariantStock: stock,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("shop_id", shop.ID.String()),
		zap.Int("combinations", len(stock)),
	)
	return product, nil
}

// Update replaces the product form. The stored stock table always matches
// the new axes: new combinations start at 0, removed ones are dropped.
func (s *productService) Update(ctx context.Context, ownerID, productID uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.ownedProduct(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}

	axes, stock, err := prepareProductInput(input)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.Price = input.Price
	product.Stock = input.Stock
	product.Images = domain.ImageList(cleanImages(input.Images))
	product.Variants = axes
	product.VariantStock = stock
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, ownerID, productID uuid.UUID) error {
	product, err := s.ownedProduct(ctx, ownerID, productID)
	if err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, product.ID)
}

// Get returns a product for the storefront. Hidden products and products of
// disabled shops are reported as not found.
func (s *productService) Get(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, repository.ErrProductNotFound
	}

	shop, err := s.shopRepo.FindByID(ctx, product.ShopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, err
	}
	if !shop.IsActive {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (s *productService) ListForShop(ctx context.Context, slug string, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	shop, err := s.shopRepo.FindBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, 0, err
	}
	if !shop.IsActive {
		return nil, 0, repository.ErrShopNotFound
	}

	filter.ActiveOnly = true
	return s.productRepo.ListByShop(ctx, shop.ID, filter)
}

func (s *productService) ListMine(ctx context.Context, ownerID uuid.UUID, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	shop, err := s.vendorShop(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	filter.ActiveOnly = false
	return s.productRepo.ListByShop(ctx, shop.ID, filter)
}

// RequestImageUpload returns a presigned upload URL under the vendor's shop
// prefix together with the public URL the image will have
func (s *productService) RequestImageUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*UploadTicket, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, ErrInvalidContentType
	}

	shop, err := s.vendorShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	key := path.Join("shops", shop.ID.String(), "products", uuid.New().String()+ext)
	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.uploadTTL)
	if err != nil {
		s.logger.Error("Failed to presign image upload", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to create upload url: %w", err)
	}

	return &UploadTicket{
		UploadURL:  uploadURL,
		ImageURL:   s.storage.ObjectURL(key),
		StorageKey: key,
		ExpiresAt:  expiresAt,
	}, nil
}

func (s *productService) vendorShop(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error) {
	return s.shopRepo.FindByOwner(ctx, ownerID)
}

func (s *productService) ownedProduct(ctx context.Context, ownerID, productID uuid.UUID) (*domain.Product, error) {
	shop, err := s.vendorShop(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.ShopID != shop.ID {
		return nil, ErrForbidden
	}
	return product, nil
}

// prepareProductInput validates the form and returns the cleaned axes with
// the stock table reconciled against them
func prepareProductInput(input ProductInput) (variant.Axes, variant.Stock, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, nil, ErrNameRequired
	}
	if !input.Price.IsPositive() {
		return nil, nil, ErrInvalidPrice
	}
	if input.Stock < 0 {
		return nil, nil, ErrInvalidStock
	}

	axes, err := cleanAxes(input.Variants)
	if err != nil {
		return nil, nil, err
	}

	submitted, err := variant.DecodeStockStrict(input.VariantStock)
	if err != nil {
		if errors.Is(err, variant.ErrNegativeStock) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidStock, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidVariants, err)
	}

	return axes, variant.Reconcile(axes, submitted), nil
}

// cleanAxes trims names and labels and drops blank form rows. Axis names
// must be unique, labels unique within their axis, and neither may contain
// the key separators.
func cleanAxes(axes variant.Axes) (variant.Axes, error) {
	cleaned := make(variant.Axes, 0, len(axes))
	names := make(map[string]struct{}, len(axes))

	for _, axis := range axes {
		name := strings.TrimSpace(axis.Name)
		if name == "" && len(axis.Values) == 0 {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("%w: axis name is required", ErrInvalidVariants)
		}
		if len(axis.Values) == 0 {
			return nil, fmt.Errorf("%w: axis %q has no values", ErrInvalidVariants, name)
		}
		if variant.HasReservedChars(name) {
			return nil, fmt.Errorf("%w: axis %q contains a reserved character", ErrInvalidVariants, name)
		}
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("%w: duplicate axis %q", ErrInvalidVariants, name)
		}
		names[name] = struct{}{}

		labels := make(map[string]struct{}, len(axis.Values))
		values := make([]variant.Value, 0, len(axis.Values))
		for _, v := range axis.Values {
			label := strings.TrimSpace(v.Label)
			if label == "" {
				return nil, fmt.Errorf("%w: axis %q has an empty value", ErrInvalidVariants, name)
			}
			if variant.HasReservedChars(label) {
				return nil, fmt.Errorf("%w: value %q contains a reserved character", ErrInvalidVariants, label)
			}
			if _, dup := labels[label]; dup {
				return nil, fmt.Errorf("%w: duplicate value %q in axis %q", ErrInvalidVariants, label, name)
			}
			labels[label] = struct{}{}
			values = append(values, variant.Value{Label: label, Color: strings.TrimSpace(v.Color)})
		}

		cleaned = append(cleaned, variant.Axis{Name: name, Values: values})
	}
	return cleaned, nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}
