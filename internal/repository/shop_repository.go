package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrShopNotFound      = errors.New("shop not found")
	ErrShopAlreadyExists = errors.New("vendor already owns a shop")
	ErrShopSlugTaken     = errors.New("shop slug is already taken")
)

// ShopRepository defines the interface for shop data access
type ShopRepository interface {
	Create(ctx context.Context, shop *domain.Shop) error
	Update(ctx context.Context, shop *domain.Shop) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Shop, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Shop, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Shop, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type shopRepository struct {
	db *sql.DB
}

// NewShopRepository creates a new instance of ShopRepository
func NewShopRepository(db *sql.DB) ShopRepository {
	return &shopRepository{db: db}
}

const shopColumns = `id, owner_id, name, slug, COALESCE(description, ''),
	COALESCE(bank_bin, ''), COALESCE(bank_account_no, ''), COALESCE(bank_account_name, ''),
	is_active, created_at, updated_at`

func scanShop(row interface{ Scan(...interface{}) error }) (*domain.Shop, error) {
	shop := &domain.Shop{}
	err := row.Scan(
		&shop.ID,
		&shop.OwnerID,
		&shop.Name,
		&shop.Slug,
		&shop.Description,
		&shop.BankBIN,
		&shop.BankAccountNo,
		&shop.BankAccountName,
		&shop.IsActive,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)
	return shop, err
}

func shopWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err, "shops_owner_id_key"):
		return ErrShopAlreadyExists
	case isUniqueViolation(err, "shops_slug_key"):
		return ErrShopSlugTaken
	}
	return fmt.Errorf("failed to %s shop: %w", op, err)
}

// Create inserts a new shop
func (r *shopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	query := `
		INSERT INTO shops (id, owner_id, name, slug, description, bank_bin, bank_account_no,
		                   bank_account_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		shop.ID,
		shop.OwnerID,
		shop.Name,
		shop.Slug,
		shop.Description,
		shop.BankBIN,
		shop.BankAccountNo,
		shop.BankAccountName,
		shop.IsActive,
		shop.CreatedAt,
		shop.UpdatedAt,
	)
	if err != nil {
		return shopWriteError("create", err)
	}

	return nil
}

// Update saves the editable shop details
func (r *shopRepository) Update(ctx context.Context, shop *domain.Shop) error {
	query := `
		UPDATE shops
		SET name = $2, slug = $3, description = $4, bank_bin = $5,
		    bank_account_no = $6, bank_account_name = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		shop.ID,
		shop.Name,
		shop.Slug,
		shop.Description,
		shop.BankBIN,
		shop.BankAccountNo,
		shop.BankAccountName,
		shop.UpdatedAt,
	)
	if err != nil {
		return shopWriteError("update", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrShopNotFound
	}

	return nil
}

func (r *shopRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE ` + where

	shop, err := scanShop(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShopNotFound
		}
		return nil, fmt.Errorf("failed to find shop: %w", err)
	}

	return shop, nil
}

// FindByID retrieves a shop by ID
func (r *shopRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Shop, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindBySlug retrieves a shop by its public slug
func (r *shopRepository) FindBySlug(ctx context.Context, slug string) (*domain.Shop, error) {
	return r.findOne(ctx, "slug = $1", slug)
}

// FindByOwner retrieves the shop owned by a vendor
func (r *shopRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Shop, error) {
	return r.findOne(ctx, "owner_id = $1", ownerID)
}

// List returns shops ordered by name
func (r *shopRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer rows.Close()

	shops := []*domain.Shop{}
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		shops = append(shops, shop)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shops: %w", err)
	}

	return shops, nil
}

// SetActive enables or disables a shop
func (r *shopRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shops SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update shop status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrShopNotFound
	}

	return nil
}
