package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
	"marketplace/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNotStubbed = errors.New("not stubbed")

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// Mock repositories for the user handler, which runs against the real service
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	users := []*domain.User{}
	for _, user := range m.users {
		if role == "" || user.Role == role {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = active
	return nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	for key, token := range m.tokens {
		if token.ExpiresAt.Before(before) {
			delete(m.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

// stubShopService answers with the configured functions
type stubShopService struct {
	getBySlug func(slug string) (*domain.Shop, error)
	reorder   func(ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.PageComponent, error)
	update    func(ownerID, componentID uuid.UUID, config json.RawMessage) (*domain.PageComponent, error)
	setActive func(shopID uuid.UUID, active bool) (*domain.Shop, error)
}

func (s *stubShopService) Create(ctx context.Context, ownerID uuid.UUID, input service.ShopInput) (*domain.Shop, error) {
	return nil, errNotStubbed
}

func (s *stubShopService) Update(ctx context.Context, ownerID uuid.UUID, input service.ShopInput) (*domain.Shop, error) {
	return nil, errNotStubbed
}

func (s *stubShopService) GetMine(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error) {
	return nil, repository.ErrShopNotFound
}

func (s *stubShopService) GetBySlug(ctx context.Context, slug string) (*domain.Shop, error) {
	if s.getBySlug == nil {
		return nil, repository.ErrShopNotFound
	}
	return s.getBySlug(slug)
}

func (s *stubShopService) ListActive(ctx context.Context) ([]*domain.Shop, error) {
	return []*domain.Shop{}, nil
}

func (s *stubShopService) ListAll(ctx context.Context) ([]*domain.Shop, error) {
	return []*domain.Shop{}, nil
}

func (s *stubShopService) SetActive(ctx context.Context, shopID uuid.UUID, active bool) (*domain.Shop, error) {
	if s.setActive == nil {
		return nil, errNotStubbed
	}
	return s.setActive(shopID, active)
}

func (s *stubShopService) ListComponents(ctx context.Context, slug string) ([]*domain.PageComponent, error) {
	return []*domain.PageComponent{}, nil
}

func (s *stubShopService) ListMyComponents(ctx context.Context, ownerID uuid.UUID) ([]*domain.PageComponent, error) {
	return []*domain.PageComponent{}, nil
}

func (s *stubShopService) AddComponent(ctx context.Context, ownerID uuid.UUID, componentType domain.ComponentType, config json.RawMessage) (*domain.PageComponent, error) {
	return nil, errNotStubbed
}

func (s *stubShopService) UpdateComponent(ctx context.Context, ownerID, componentID uuid.UUID, config json.RawMessage) (*domain.PageComponent, error) {
	if s.update == nil {
		return nil, errNotStubbed
	}
	return s.update(ownerID, componentID, config)
}

func (s *stubShopService) DeleteComponent(ctx context.Context, ownerID, componentID uuid.UUID) error {
	return errNotStubbed
}

func (s *stubShopService) ReorderComponents(ctx context.Context, ownerID uuid.UUID, orderedIDs []uuid.UUID) ([]*domain.PageComponent, error) {
	if s.reorder == nil {
		return nil, errNotStubbed
	}
	return s.reorder(ownerID, orderedIDs)
}

// stubProductService answers with the configured functions
type stubProductService struct {
	get         func(id uuid.UUID) (*domain.Product, error)
	listForShop func(slug string, filter repository.ProductFilter) ([]*domain.Product, int, error)
}

func (s *stubProductService) Create(ctx context.Context, ownerID uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	return nil, errNotStubbed
}

func (s *stubProductService) Update(ctx context.Context, ownerID, productID uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	return nil, errNotStubbed
}

func (s *stubProductService) Delete(ctx context.Context, ownerID, productID uuid.UUID) error {
	return errNotStubbed
}

func (s *stubProductService) Get(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	if s.get == nil {
		return nil, repository.ErrProductNotFound
	}
	return s.get(productID)
}

func (s *stubProductService) ListForShop(ctx context.Context, slug string, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	if s.listForShop == nil {
		return nil, 0, repository.ErrShopNotFound
	}
	return s.listForShop(slug, filter)
}

func (s *stubProductService) ListMine(ctx context.Context, ownerID uuid.UUID, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return nil, 0, errNotStubbed
}

func (s *stubProductService) RequestImageUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*service.UploadTicket, error) {
	return nil, errNotStubbed
}

// stubOrderService records checkout input and answers with the configured functions
type stubOrderService struct {
	checkout     func(buyerID uuid.UUID, input service.CheckoutInput) (*domain.Order, error)
	updateStatus func(vendorID, orderID uuid.UUID, status domain.OrderStatus) (*domain.StatusChange, error)
	get          func(viewer service.Viewer, orderID uuid.UUID) (*domain.Order, error)
	listForShop  func(vendorID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error)
}

func (s *stubOrderService) Checkout(ctx context.Context, buyerID uuid.UUID, input service.CheckoutInput) (*domain.Order, error) {
	if s.checkout == nil {
		return nil, errNotStubbed
	}
	return s.checkout(buyerID, input)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, vendorID, orderID uuid.UUID, status domain.OrderStatus) (*domain.StatusChange, error) {
	if s.updateStatus == nil {
		return nil, errNotStubbed
	}
	return s.updateStatus(vendorID, orderID, status)
}

func (s *stubOrderService) CancelByBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*domain.StatusChange, error) {
	return nil, service.ErrCannotCancel
}

func (s *stubOrderService) Get(ctx context.Context, viewer service.Viewer, orderID uuid.UUID) (*domain.Order, error) {
	if s.get == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.get(viewer, orderID)
}

func (s *stubOrderService) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return []*domain.Order{}, nil
}

func (s *stubOrderService) ListForShop(ctx context.Context, vendorID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error) {
	if s.listForShop == nil {
		return []*domain.Order{}, nil
	}
	return s.listForShop(vendorID, status)
}

type stubPaymentService struct{}

func (stubPaymentService) TransferInfo(ctx context.Context, buyerID, orderID uuid.UUID) (*service.TransferInfo, error) {
	return nil, service.ErrPaymentUnavailable
}
