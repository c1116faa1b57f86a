package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertCartItem = `
INSERT INTO cart_items (user_id, menu_item_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, menu_item_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
RETURNING id, user_id, menu_item_id, quantity, created_at, updated_at
`

type UpsertCartItemParams struct {
	UserID     uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
}

// UpsertCartItem merges a quantity into any existing line for the same
// (user, menu item) pair in one statement, so concurrent adds always build
// on the latest persisted quantity.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, upsertCartItem, arg.UserID, arg.MenuItemID, arg.Quantity)
	var i CartItem
	err := row.Scan(&i.ID, &i.UserID, &i.MenuItemID, &i.Quantity, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const updateCartItemQuantity = `
UPDATE cart_items
SET quantity = $3, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, menu_item_id, quantity, created_at, updated_at
`

type UpdateCartItemQuantityParams struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Quantity int32
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQuantity, arg.ID, arg.UserID, arg.Quantity)
	var i CartItem
	err := row.Scan(&i.ID, &i.UserID, &i.MenuItemID, &i.Quantity, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const deleteCartItem = `
DELETE FROM cart_items
WHERE id = $1 AND user_id = $2
`

type DeleteCartItemParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.UserID)
	return tag.RowsAffected(), err
}

const clearCart = `
DELETE FROM cart_items
WHERE user_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, userID)
	return err
}

const clearCartByCanteen = `
DELETE FROM cart_items
USING menu_items
WHERE cart_items.menu_item_id = menu_items.id
  AND cart_items.user_id = $1
  AND menu_items.canteen_id = $2
`

type ClearCartByCanteenParams struct {
	UserID    uuid.UUID
	CanteenID uuid.UUID
}

func (q *Queries) ClearCartByCanteen(ctx context.Context, arg ClearCartByCanteenParams) error {
	_, err := q.db.Exec(ctx, clearCartByCanteen, arg.UserID, arg.CanteenID)
	return err
}

const cartLineColumns = `
ci.id, ci.user_id, ci.menu_item_id, ci.quantity, ci.created_at, ci.updated_at,
mi.name, mi.category, mi.price, mi.canteen_id, mi.is_available, mi.available_quantity`

type CartLineRow struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	MenuItemID        uuid.UUID
	Quantity          int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Name              string
	Category          string
	Price             pgtype.Numeric
	CanteenID         uuid.UUID
	IsAvailable       bool
	AvailableQuantity int32
}

func (q *Queries) scanCartLines(ctx context.Context, sql string, args ...interface{}) ([]CartLineRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CartLineRow
	for rows.Next() {
		var i CartLineRow
		if err := rows.Scan(
			&i.ID, &i.UserID, &i.MenuItemID, &i.Quantity, &i.CreatedAt, &i.UpdatedAt,
			&i.Name, &i.Category, &i.Price, &i.CanteenID, &i.IsAvailable, &i.AvailableQuantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCartLines = `
SELECT ` + cartLineColumns + `
FROM cart_items ci
JOIN menu_items mi ON mi.id = ci.menu_item_id
WHERE ci.user_id = $1
ORDER BY ci.created_at
`

func (q *Queries) ListCartLines(ctx context.Context, userID uuid.UUID) ([]CartLineRow, error) {
	return q.scanCartLines(ctx, listCartLines, userID)
}

const listCartLinesForOrder = `
SELECT ` + cartLineColumns + `
FROM cart_items ci
JOIN menu_items mi ON mi.id = ci.menu_item_id
WHERE ci.user_id = $1 AND mi.canteen_id = $2
ORDER BY ci.created_at
FOR UPDATE OF ci
`

type ListCartLinesForOrderParams struct {
	UserID    uuid.UUID
	CanteenID uuid.UUID
}

// ListCartLinesForOrder locks the cart lines for the duration of the
// placement transaction so a concurrent add/remove cannot slip between the
// snapshot and the cart clear.
func (q *Queries) ListCartLinesForOrder(ctx context.Context, arg ListCartLinesForOrderParams) ([]CartLineRow, error) {
	return q.scanCartLines(ctx, listCartLinesForOrder, arg.UserID, arg.CanteenID)
}
