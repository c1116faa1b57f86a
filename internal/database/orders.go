package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, canteen_id, status, total_amount, platform_fee, canteen_amount, payment_id, pickup_time, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID, &i.UserID, &i.CanteenID, &i.Status, &i.TotalAmount, &i.PlatformFee,
		&i.CanteenAmount, &i.PaymentID, &i.PickupTime, &i.Notes, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) scanOrders(ctx context.Context, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createOrder = `
INSERT INTO orders (user_id, canteen_id, status, total_amount, platform_fee, canteen_amount, pickup_time, notes)
VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	UserID        uuid.UUID
	CanteenID     uuid.UUID
	TotalAmount   pgtype.Numeric
	PlatformFee   pgtype.Numeric
	CanteenAmount pgtype.Numeric
	PickupTime    time.Time
	Notes         pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.CanteenID, arg.TotalAmount, arg.PlatformFee,
		arg.CanteenAmount, arg.PickupTime, arg.Notes,
	))
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, price, total_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, menu_item_id, quantity, price, total_price, created_at
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
	TotalPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.Price, arg.TotalPrice,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.Price, &i.TotalPrice, &i.CreatedAt)
	return i, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row to serialize concurrent payment
// confirmations and cancellations against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByCanteen = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND canteen_id = $2
`

type GetOrderByCanteenParams struct {
	ID        uuid.UUID
	CanteenID uuid.UUID
}

func (q *Queries) GetOrderByCanteen(ctx context.Context, arg GetOrderByCanteenParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByCanteen, arg.ID, arg.CanteenID))
}

const listOrdersByUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersByUserParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	return q.scanOrders(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
}

const listOrdersByCanteen = `
SELECT ` + orderColumns + `
FROM orders
WHERE canteen_id = $1
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersByCanteenParams struct {
	CanteenID uuid.UUID
	Status    pgtype.Text
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrdersByCanteen(ctx context.Context, arg ListOrdersByCanteenParams) ([]Order, error) {
	return q.scanOrders(ctx, listOrdersByCanteen, arg.CanteenID, arg.Status, arg.Limit, arg.Offset)
}

const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price, oi.total_price, oi.created_at, mi.name
FROM order_items oi
JOIN menu_items mi ON mi.id = oi.menu_item_id
WHERE oi.order_id = $1
ORDER BY oi.created_at
`

type OrderLineRow struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	Quantity     int32
	Price        pgtype.Numeric
	TotalPrice   pgtype.Numeric
	CreatedAt    time.Time
	MenuItemName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderLineRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderLineRow
	for rows.Next() {
		var i OrderLineRow
		if err := rows.Scan(
			&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.Price,
			&i.TotalPrice, &i.CreatedAt, &i.MenuItemName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const confirmOrderPayment = `
UPDATE orders
SET status = 'preparing', payment_id = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + orderColumns + `
`

type ConfirmOrderPaymentParams struct {
	ID        uuid.UUID
	PaymentID string
}

// ConfirmOrderPayment is a compare-and-swap on status so a duplicate
// payment callback can never advance the order twice.
func (q *Queries) ConfirmOrderPayment(ctx context.Context, arg ConfirmOrderPaymentParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, confirmOrderPayment, arg.ID, arg.PaymentID))
}

const updateOrderStatus = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND canteen_id = $2 AND status = $4
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	CanteenID  uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus only applies when the row still holds PrevStatus, so a
// transition raced by another writer comes back as pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.CanteenID, arg.Status, arg.PrevStatus))
}

const cancelOrder = `
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status IN ('pending', 'preparing')
RETURNING ` + orderColumns + `
`

func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id))
}
