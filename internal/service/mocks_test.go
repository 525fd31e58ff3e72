package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
	"marketplace/internal/variant"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// Mock repositories for testing

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

type mockShopRepository struct {
	shops map[uuid.UUID]*domain.Shop
}

func newMockShopRepository() *mockShopRepository {
	return &mockShopRepository{shops: make(map[uuid.UUID]*domain.Shop)}
}

func (m *mockShopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	for _, existing := range m.shops {
		if existing.OwnerID == shop.OwnerID {
			return repository.ErrShopAlreadyExists
		}
		if existing.Slug == shop.Slug {
			return repository.ErrShopSlugTaken
		}
	}
	m.shops[shop.ID] = shop
	return nil
}

func (m *mockShopRepository) Update(ctx context.Context, shop *domain.Shop) error {
	if _, ok := m.shops[shop.ID]; !ok {
		return repository.ErrShopNotFound
	}
	for _, existing := range m.shops {
		if existing.ID != shop.ID && existing.Slug == shop.Slug {
			return repository.ErrShopSlugTaken
		}
	}
	m.shops[shop.ID] = shop
	return nil
}

func (m *mockShopRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Shop, error) {
	shop, ok := m.shops[id]
	if !ok {
		return nil, repository.ErrShopNotFound
	}
	return shop, nil
}

func (m *mockShopRepository) FindBySlug(ctx context.Context, slug string) (*domain.Shop, error) {
	for _, shop := range m.shops {
		if shop.Slug == slug {
			return shop, nil
		}
	}
	return nil, repository.ErrShopNotFound
}

func (m *mockShopRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error) {
	for _, shop := range m.shops {
		if shop.OwnerID == ownerID {
			return shop, nil
		}
	}
	return nil, repository.ErrShopNotFound
}

func (m *mockShopRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Shop, error) {
	shops := []*domain.Shop{}
	for _, shop := range m.shops {
		if !activeOnly || shop.IsActive {
			shops = append(shops, shop)
		}
	}
	sort.Slice(shops, func(i, j int) bool { return shops[i].Slug < shops[j].Slug })
	return shops, nil
}

func (m *mockShopRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	shop, ok := m.shops[id]
	if !ok {
		return repository.ErrShopNotFound
	}
	shop.IsActive = active
	return nil
}

// mockProductRepository doubles as the stock store of mockOrderRepository
type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	ordered  map[uuid.UUID]bool
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		ordered:  make(map[uuid.UUID]bool),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	if m.ordered[id] {
		return repository.ErrProductInUse
	}
	delete(m.products, id)
	return nil
}

// FindByID returns a copy so callers never observe later stock moves
func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	clone := *product
	clone.VariantStock = variant.ParseStock(product.VariantStock)
	return &clone, nil
}

func (m *mockProductRepository) ListByShop(ctx context.Context, shopID uuid.UUID, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := []*domain.Product{}
	for _, product := range m.products {
		if product.ShopID != shopID || (filter.ActiveOnly && !product.IsActive) {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, len(products), nil
}

func (m *mockProductRepository) stockOf(id uuid.UUID, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	product := m.products[id]
	if key == "" {
		return product.Stock
	}
	return product.VariantStock[key]
}

func (m *mockProductRepository) deduct(item domain.OrderItem) error {
	product, ok := m.products[item.ProductID]
	if !ok {
		return repository.ErrProductNotFound
	}
	short := &repository.InsufficientStockError{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		VariantKey:  item.SelectedVariant,
		Requested:   item.Quantity,
	}
	if item.SelectedVariant != "" {
		qty, ok := product.VariantStock[item.SelectedVariant]
		if !ok || qty < item.Quantity {
			return short
		}
		product.VariantStock[item.SelectedVariant] = qty - item.Quantity
		return nil
	}
	if product.Stock < item.Quantity {
		return short
	}
	product.Stock -= item.Quantity
	return nil
}

func (m *mockProductRepository) restore(item domain.OrderItem) {
	product, ok := m.products[item.ProductID]
	if !ok {
		return
	}
	if item.SelectedVariant != "" {
		if product.VariantStock == nil {
			product.VariantStock = variant.Stock{}
		}
		product.VariantStock[item.SelectedVariant] += item.Quantity
		return
	}
	product.Stock += item.Quantity
}

// mockOrderRepository applies the same all-or-nothing stock semantics as
// the SQL repository
type mockOrderRepository struct {
	products *mockProductRepository
	orders   map[uuid.UUID]*domain.Order
}

func newMockOrderRepository(products *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{
		products: products,
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.products.mu.Lock()
	defer m.products.mu.Unlock()

	for i, item := range order.Items {
		if err := m.products.deduct(item); err != nil {
			for _, done := range order.Items[:i] {
				m.products.restore(done)
			}
			return err
		}
	}
	for _, item := range order.Items {
		m.products.ordered[item.ProductID] = true
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, guard repository.StatusGuard) (*domain.StatusChange, error) {
	m.products.mu.Lock()
	defer m.products.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if guard != nil {
		if err := guard(order); err != nil {
			return nil, err
		}
	}
	from := order.Status
	if !from.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	change := &domain.StatusChange{Order: order, From: from, To: status}
	if from == status {
		return change, nil
	}
	if domain.RestoresStock(from, status) {
		for _, item := range order.Items {
			m.products.restore(item)
		}
		change.StockRestored = true
	}
	order.Status = status
	return change, nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for _, order := range m.orders {
		if order.BuyerID == buyerID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) ListByShop(ctx context.Context, shopID uuid.UUID, status domain.OrderStatus) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for _, order := range m.orders {
		if order.ShopID == shopID && (status == "" || order.Status == status) {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

type mockComponentRepository struct {
	components map[uuid.UUID]*domain.PageComponent
}

func newMockComponentRepository() *mockComponentRepository {
	return &mockComponentRepository{components: make(map[uuid.UUID]*domain.PageComponent)}
}

func (m *mockComponentRepository) Append(ctx context.Context, component *domain.PageComponent) error {
	position := 0
	for _, existing := range m.components {
		if existing.ShopID == component.ShopID && existing.Position >= position {
			position = existing.Position + 1
		}
	}
	component.Position = position
	m.components[component.ID] = component
	return nil
}

func (m *mockComponentRepository) UpdateConfig(ctx context.Context, component *domain.PageComponent) error {
	existing, ok := m.components[component.ID]
	if !ok {
		return repository.ErrComponentNotFound
	}
	existing.Config = component.Config
	return nil
}

func (m *mockComponentRepository) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	removed, ok := m.components[id]
	if !ok || removed.ShopID != shopID {
		return repository.ErrComponentNotFound
	}
	delete(m.components, id)
	for _, c := range m.components {
		if c.ShopID == shopID && c.Position > removed.Position {
			c.Position--
		}
	}
	return nil
}

func (m *mockComponentRepository) Reorder(ctx context.Context, shopID uuid.UUID, orderedIDs []uuid.UUID) error {
	current, _ := m.ListByShop(ctx, shopID)
	if len(current) != len(orderedIDs) {
		return repository.ErrInvalidComponentOrder
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		c, ok := m.components[id]
		if !ok || c.ShopID != shopID || seen[id] {
			return repository.ErrInvalidComponentOrder
		}
		seen[id] = true
	}
	for i, id := range orderedIDs {
		m.components[id].Position = i
	}
	return nil
}

func (m *mockComponentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PageComponent, error) {
	c, ok := m.components[id]
	if !ok {
		return nil, repository.ErrComponentNotFound
	}
	return c, nil
}

func (m *mockComponentRepository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]*domain.PageComponent, error) {
	components := []*domain.PageComponent{}
	for _, c := range m.components {
		if c.ShopID == shopID {
			components = append(components, c)
		}
	}
	sort.Slice(components, func(i, j int) bool { return components[i].Position < components[j].Position })
	return components, nil
}
