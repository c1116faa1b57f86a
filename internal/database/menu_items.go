package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, canteen_id, name, description, category, price, available_quantity, is_available, image_url, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID, &i.CanteenID, &i.Name, &i.Description, &i.Category, &i.Price,
		&i.AvailableQuantity, &i.IsAvailable, &i.ImageUrl, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE canteen_id = $1
ORDER BY category, name
`

func (q *Queries) ListMenuItems(ctx context.Context, canteenID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, canteenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMenuItem = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const createMenuItem = `
INSERT INTO menu_items (canteen_id, name, description, category, price, available_quantity, is_available, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + menuItemColumns + `
`

type CreateMenuItemParams struct {
	CanteenID         uuid.UUID
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	AvailableQuantity int32
	IsAvailable       bool
	ImageUrl          pgtype.Text
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.CanteenID, arg.Name, arg.Description, arg.Category, arg.Price,
		arg.AvailableQuantity, arg.IsAvailable, arg.ImageUrl,
	))
}

const updateMenuItem = `
UPDATE menu_items
SET name = $3, description = $4, category = $5, price = $6,
    available_quantity = $7, is_available = $8, image_url = $9, updated_at = now()
WHERE id = $1 AND canteen_id = $2
RETURNING ` + menuItemColumns + `
`

type UpdateMenuItemParams struct {
	ID                uuid.UUID
	CanteenID         uuid.UUID
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	AvailableQuantity int32
	IsAvailable       bool
	ImageUrl          pgtype.Text
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID, arg.CanteenID, arg.Name, arg.Description, arg.Category, arg.Price,
		arg.AvailableQuantity, arg.IsAvailable, arg.ImageUrl,
	))
}

const deleteMenuItem = `
DELETE FROM menu_items
WHERE id = $1 AND canteen_id = $2
`

type DeleteMenuItemParams struct {
	ID        uuid.UUID
	CanteenID uuid.UUID
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg DeleteMenuItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMenuItem, arg.ID, arg.CanteenID)
	return tag.RowsAffected(), err
}

const decrementMenuItemStock = `
UPDATE menu_items
SET available_quantity = available_quantity - $2, updated_at = now()
WHERE id = $1 AND is_available AND available_quantity >= $2
RETURNING id
`

type DecrementMenuItemStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementMenuItemStock reserves stock with a guarded single-statement
// update. pgx.ErrNoRows means insufficient stock or an unavailable item.
func (q *Queries) DecrementMenuItemStock(ctx context.Context, arg DecrementMenuItemStockParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, decrementMenuItemStock, arg.ID, arg.Quantity).Scan(&id)
	return id, err
}

const restoreMenuItemStock = `
UPDATE menu_items
SET available_quantity = available_quantity + $2, updated_at = now()
WHERE id = $1
`

type RestoreMenuItemStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

func (q *Queries) RestoreMenuItemStock(ctx context.Context, arg RestoreMenuItemStockParams) error {
	_, err := q.db.Exec(ctx, restoreMenuItemStock, arg.ID, arg.Quantity)
	return err
}
