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
	ErrComponentNotFound     = errors.New("page component not found")
	ErrInvalidComponentOrder = errors.New("component order must list every component of the shop exactly once")
)

// ComponentRepository stores the ordered page components of shops
type ComponentRepository interface {
	Append(ctx context.Context, component *domain.PageComponent) error
	UpdateConfig(ctx context.Context, component *domain.PageComponent) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	Reorder(ctx context.Context, shopID uuid.UUID, orderedIDs []uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PageComponent, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]*domain.PageComponent, error)
}

type componentRepository struct {
	db *sql.DB
}

// NewComponentRepository creates a new instance of ComponentRepository
func NewComponentRepository(db *sql.DB) ComponentRepository {
	return &componentRepository{db: db}
}

const componentColumns = `id, shop_id, type, position, config, created_at, updated_at`

func scanComponent(row interface{ Scan(...interface{}) error }) (*domain.PageComponent, error) {
	component := &domain.PageComponent{}
	var config []byte
	err := row.Scan(
		&component.ID,
		&component.ShopID,
		&component.Type,
		&component.Position,
		&config,
		&component.CreatedAt,
		&component.UpdatedAt,
	)
	component.Config = config
	return component, err
}

func configValue(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

// Append inserts the component after the last one of its shop and sets its
// Position accordingly
func (r *componentRepository) Append(ctx context.Context, component *domain.PageComponent) error {
	query := `
		INSERT INTO shop_components (id, shop_id, type, position, config, created_at, updated_at)
		SELECT $1::uuid, $2::uuid, $3::varchar, COALESCE(MAX(position) + 1, 0), $4::jsonb,
		       $5::timestamp, $6::timestamp
		FROM shop_components
		WHERE shop_id = $2::uuid
		RETURNING position
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		component.ID,
		component.ShopID,
		component.Type,
		configValue(component.Config),
		component.CreatedAt,
		component.UpdatedAt,
	).Scan(&component.Position)

	if err != nil {
		return fmt.Errorf("failed to append page component: %w", err)
	}

	return nil
}

// UpdateConfig replaces the configuration of a component of the shop
func (r *componentRepository) UpdateConfig(ctx context.Context, component *domain.PageComponent) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shop_components SET config = $3, updated_at = $4 WHERE id = $1 AND shop_id = $2`,
		component.ID, component.ShopID, configValue(component.Config), component.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update page component: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrComponentNotFound
	}

	return nil
}

// Delete removes a component and closes the gap it leaves in the positions
func (r *componentRepository) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx,
		`DELETE FROM shop_components WHERE id = $1 AND shop_id = $2 RETURNING position`,
		id, shopID,
	).Scan(&position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrComponentNotFound
		}
		return fmt.Errorf("failed to delete page component: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE shop_components SET position = position - 1, updated_at = $3
		 WHERE shop_id = $1 AND position > $2`,
		shopID, position, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to compact component positions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Reorder assigns positions 0..n-1 in the order of orderedIDs. The list must
// be a permutation of the shop's current component ids.
func (r *componentRepository) Reorder(ctx context.Context, shopID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM shop_components WHERE shop_id = $1 FOR UPDATE`, shopID)
	if err != nil {
		return fmt.Errorf("failed to lock page components: %w", err)
	}

	current := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan page component: %w", err)
		}
		current[id] = false
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating page components: %w", err)
	}

	if len(orderedIDs) != len(current) {
		return ErrInvalidComponentOrder
	}
	for _, id := range orderedIDs {
		seen, ok := current[id]
		if !ok || seen {
			return ErrInvalidComponentOrder
		}
		current[id] = true
	}

	now := time.Now()
	for position, id := range orderedIDs {
		_, err := tx.ExecContext(ctx,
			`UPDATE shop_components SET position = $2, updated_at = $3 WHERE id = $1`,
			id, position, now,
		)
		if err != nil {
			return fmt.Errorf("failed to move page component: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a component by ID
func (r *componentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PageComponent, error) {
	query := `SELECT ` + componentColumns + ` FROM shop_components WHERE id = $1`

	component, err := scanComponent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrComponentNotFound
		}
		return nil, fmt.Errorf("failed to find page component: %w", err)
	}

	return component, nil
}

// ListByShop returns a shop's components in page order
func (r *componentRepository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]*domain.PageComponent, error) {
	query := `SELECT ` + componentColumns + ` FROM shop_components WHERE shop_id = $1 ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list page components: %w", err)
	}
	defer rows.Close()

	components := []*domain.PageComponent{}
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page component: %w", err)
		}
		components = append(components, component)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page components: %w", err)
	}

	return components, nil
}
