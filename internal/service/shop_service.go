package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ShopInput carries the vendor editable fields of a shop
type ShopInput struct {
	Name            string
	Slug            string
	Description     string
	BankBIN         string
	BankAccountNo   string
	BankAccountName string
}

// ShopService manages vendor shops and their page components
type ShopService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input ShopInput) (*domain.Shop, error)
	Update(ctx context.Context, ownerID uuid.UUID, input ShopInput) (*domain.Shop, error)
	GetMine(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Shop, error)
	ListActive(ctx context.Context) ([]*domain.Shop, error)
	ListAll(ctx context.Context) ([]*domain.Shop, error)
	SetActive(ctx context.Context, shopID uuid.UUID, active bool) (*domain.Shop, error)

	ListComponents(ctx context.Context, slug string) ([]*domain.PageComponent, error)
	ListMyComponents(ctx context.Context, ownerID uuid.UUID) ([]*domain.PageComponent, error)
	AddComponent(ctx context.Context, ownerID uuid.UUID, componentType domain.ComponentType, config json.RawMessage) (*domain.PageComponent, error)
	UpdateComponent(ctx context.Context, ownerID, componentID uuid.UUID, config json.RawMessage) (*domain.PageComponent, error)
	DeleteComponent(ctx context.Context, ownerID, componentID uuid.UUID) error
	ReorderComponents(ctx context.Context, ownerID uuid.UUID, orderedIDs []uuid.UUID) ([]*domain.PageComponent, error)
}

type shopService struct {
	shopRepo      repository.ShopRepository
	componentRepo repository.ComponentRepository
	logger        *zap.Logger
}

// NewShopService creates a new instance of ShopService
func NewShopService(shopRepo repository.ShopRepository, componentRepo repository.ComponentRepository, logger *zap.Logger) ShopService {
	return &shopService{
		shopRepo:      shopRepo,
		componentRepo: componentRepo,
		logger:        logger,
	}
}

func normalizeShopInput(input ShopInput) (ShopInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	input.Description = strings.TrimSpace(input.Description)
	input.BankBIN = strings.TrimSpace(input.BankBIN)
	input.BankAccountNo = strings.TrimSpace(input.BankAccountNo)
	input.BankAccountName = strings.TrimSpace(input.BankAccountName)

	if !slugPattern.MatchString(input.Slug) {
		return input, ErrInvalidSlug
	}
	return input, nil
}

// Create opens the vendor's shop. A vendor owns at most one shop.
func (s *shopService) Create(ctx context.Context, ownerID uuid.UUID, input ShopInput) (*domain.Shop, error) {
	input, err := normalizeShopInput(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	shop := &domain.Shop{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            input.Name,
		Slug:            input.Slug,
		Description:     input.Description,
		BankBIN:         input.BankBIN,
		BankAccountNo:   input.BankAccountNo,
		BankAccountName: input.BankAccountName,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, err
	}

	s.logger.Info("Shop created", zap.String("shop_id", shop.ID.String()), zap.String("slug", shop.Slug))
	return shop, nil
}

// Update replaces the details and bank account of the vendor's shop
func (s *shopService) Update(ctx context.Context, ownerID uuid.UUID, input ShopInput) (*domain.Shop, error) {
	input, err := normalizeShopInput(input)
	if err != nil {
		return nil, err
	}

	shop, err := s.shopRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	shop.Name = input.Name
	shop.Slug = input.Slug
	shop.Description = input.Description
	shop.BankBIN = input.BankBIN
	shop.BankAccountNo = input.BankAccountNo
	shop.BankAccountName = input.BankAccountName
	shop.UpdatedAt = time.Now()

	if err := s.shopRepo.Update(ctx, shop); err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *shopService) GetMine(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error) {
	return s.shopRepo.FindByOwner(ctx, ownerID)
}

// GetBySlug returns a public shop; disabled shops are reported as not found
func (s *shopService) GetBySlug(ctx context.Context, slug string) (*domain.Shop, error) {
	shop, err := s.shopRepo.FindBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, err
	}
	if !shop.IsActive {
		return nil, repository.ErrShopNotFound
	}
	return shop, nil
}

func (s *shopService) ListActive(ctx context.Context) ([]*domain.Shop, error) {
	return s.shopRepo.List(ctx, true)
}

func (s *shopService) ListAll(ctx context.Context) ([]*domain.Shop, error) {
	return s.shopRepo.List(ctx, false)
}

func (s *shopService) SetActive(ctx context.Context, shopID uuid.UUID, active bool) (*domain.Shop, error) {
	if err := s.shopRepo.SetActive(ctx, shopID, active); err != nil {
		return nil, err
	}
	s.logger.Info("Shop status changed", zap.String("shop_id", shopID.String()), zap.Bool("active", active))
	return s.shopRepo.FindByID(ctx, shopID)
}

func (s *shopService) ListComponents(ctx context.Context, slug string) ([]*domain.PageComponent, error) {
	shop, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.componentRepo.ListByShop(ctx, shop.ID)
}

func (s *shopService) ListMyComponents(ctx context.Context, ownerID uuid.UUID) ([]*domain.PageComponent, error) {
	shop, err := s.shopRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.componentRepo.ListByShop(ctx, shop.ID)
}

// AddComponent appends a component at the end of the vendor's page
func (s *shopService) AddComponent(ctx context.Context, ownerID uuid.UUID, componentType domain.ComponentType, config json.RawMessage) (*domain.PageComponent, error) {
	if !componentType.Valid() {
		return nil, ErrInvalidComponent
	}
	config, err := componentConfig(config)
	if err != nil {
		return nil, err
	}

	shop, err := s.shopRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	component := &domain.PageComponent{
		ID:        uuid.New(),
		ShopID:    shop.ID,
		Type:      componentType,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.componentRepo.Append(ctx, component); err != nil {
		return nil, err
	}
	return component, nil
}

func (s *shopService) UpdateComponent(ctx context.Context, ownerID, componentID uuid.UUID, config json.RawMessage) (*domain.PageComponent, error) {
	config, err := componentConfig(config)
	if err != nil {
		return nil, err
	}

	component, err := s.ownedComponent(ctx, ownerID, componentID)
	if err != nil {
		return nil, err
	}

	component.Config = config
	component.UpdatedAt = time.Now()
	if err := s.componentRepo.UpdateConfig(ctx, component); err != nil {
		return nil, err
	}
	return component, nil
}

// DeleteComponent removes a component; later components move up one place
func (s *shopService) DeleteComponent(ctx context.Context, ownerID, componentID uuid.UUID) error {
	component, err := s.ownedComponent(ctx, ownerID, componentID)
	if err != nil {
		return err
	}
	return s.componentRepo.Delete(ctx, component.ShopID, component.ID)
}

// ReorderComponents applies a new order given as the full list of the
// shop's component ids
func (s *shopService) ReorderComponents(ctx context.Context, ownerID uuid.UUID, orderedIDs []uuid.UUID) ([]*domain.PageComponent, error) {
	shop, err := s.shopRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.componentRepo.Reorder(ctx, shop.ID, orderedIDs); err != nil {
		return nil, err
	}
	return s.componentRepo.ListByShop(ctx, shop.ID)
}

func (s *shopService) ownedComponent(ctx context.Context, ownerID, componentID uuid.UUID) (*domain.PageComponent, error) {
	shop, err := s.shopRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	component, err := s.componentRepo.FindByID(ctx, componentID)
	if err != nil {
		return nil, err
	}
	if component.ShopID != shop.ID {
		return nil, ErrForbidden
	}
	return component, nil
}

// componentConfig requires a JSON object; an empty body becomes {}
func componentConfig(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage("{}"), nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("%w: config must be a JSON object", ErrInvalidComponent)
	}
	return json.RawMessage(trimmed), nil
}
