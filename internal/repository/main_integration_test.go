//go:build integration

package repository

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"marketplace/internal/database"
	"marketplace/internal/domain"
	"marketplace/migrations"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(context.Background(), "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, migrations.FS, zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func seedUser(t *testing.T, role domain.Role) *domain.User {
	t.Helper()

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        uuid.New().String()[:8] + "@example.com",
		PasswordHash: "hash",
		FullName:     "Test User",
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewUserRepository(testDB).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

func seedShop(t *testing.T) *domain.Shop {
	t.Helper()

	owner := seedUser(t, domain.RoleVendor)
	now := time.Now()
	shop := &domain.Shop{
		ID:        uuid.New(),
		OwnerID:   owner.ID,
		Name:      "Shop " + owner.ID.String()[:8],
		Slug:      "shop-" + owner.ID.String()[:8],
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := NewShopRepository(testDB).Create(context.Background(), shop); err != nil {
		t.Fatalf("Failed to seed shop: %v", err)
	}
	return shop
}

func seedProduct(t *testing.T, shopID uuid.UUID, mutate func(*domain.Product)) *domain.Product {
	t.Helper()

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		ShopID:    shopID,
		Name:      "Product " + uuid.New().String()[:8],
		Price:     decimal.NewFromInt(150000),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(product)
	}
	if err := NewProductRepository(testDB).Create(context.Background(), product); err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return product
}
