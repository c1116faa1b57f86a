package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrdersClosed       = errors.New("canteen is not accepting orders")
	ErrCanteenNotFound    = errors.New("canteen not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrStatusConflict     = errors.New("order status changed, please retry")
	ErrPickupTimeRequired = errors.New("pickup_time is required")
	ErrPickupTimeInPast   = errors.New("pickup_time must be in the future")
	ErrPaymentRefRequired = errors.New("payment reference is required")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetCanteen(ctx context.Context, id uuid.UUID) (database.Canteen, error)
	ListCartLinesForOrder(ctx context.Context, arg database.ListCartLinesForOrderParams) ([]database.CartLineRow, error)
	DecrementMenuItemStock(ctx context.Context, arg database.DecrementMenuItemStockParams) (uuid.UUID, error)
	RestoreMenuItemStock(ctx context.Context, arg database.RestoreMenuItemStockParams) error
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ClearCartByCanteen(ctx context.Context, arg database.ClearCartByCanteenParams) error
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByCanteen(ctx context.Context, arg database.GetOrderByCanteenParams) (database.Order, error)
	ConfirmOrderPayment(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLineRow, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the validated input for placing an order. The
// acting user is always explicit.
type PlaceOrderRequest struct {
	UserID     uuid.UUID
	CanteenID  uuid.UUID
	PickupTime time.Time
	Notes      string
}

// PlaceOrderResult is the created order with its line snapshot.
type PlaceOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

/// OrderService owns the order lifecycle: placement, payment confirmation,
// status progression, and cancellation.
type OrderService struct {
	store       OrderStore
	pool        TxBeginner
	newStore    NewOrderStore
	platformFee decimal.Decimal
}

func NewOrderService(store OrderStore, pool TxBeginner, newStore NewOrderStore, platformFee decimal.Decimal) *OrderService {
	return &OrderService{store: store, pool: pool, newStore: newStore, platformFee: platformFee}
}

// PlaceOrder snapshots the user's cart for a canteen into a pending order.
// Everything happens in one transaction: canteen check, stock decrement,
// order + line inserts, and the cart clear commit or roll back together, so
// no reader ever sees a partial order.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if req.PickupTime.IsZero() {
		return nil, ErrPickupTimeRequired
	}
	if req.PickupTime.Before(time.Now()) {
		return nil, ErrPickupTimeInPast
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Server-side acceptance check is authoritative; a stale client that
	// still shows the canteen as open gets rejected here.
	canteen, err := store.GetCanteen(ctx, req.CanteenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCanteenNotFound
		}
		return nil, fmt.Errorf("get canteen: %w", err)
	}
	if !canteen.IsActive {
		return nil, ErrCanteenNotFound
	}
	if !canteen.AcceptingOrders {
		return nil, ErrOrdersClosed
	}

	lines, err := store.ListCartLinesForOrder(ctx, database.ListCartLinesForOrderParams{
		UserID:    req.UserID,
		CanteenID: req.CanteenID,
	})
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	canteenAmount := decimal.Zero
	for _, line := range lines {
		if _, err := store.DecrementMenuItemStock(ctx, database.DecrementMenuItemStockParams{
			ID:       line.MenuItemID,
			Quantity: line.Quantity,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%s: %w", line.Name, ErrOutOfStock)
			}
			return nil, fmt.Errorf("decrement stock: %w", err)
		}

		price := numericToDecimal(line.Price)
		canteenAmount = canteenAmount.Add(price.Mul(decimal.NewFromInt32(line.Quantity)))
	}

	totalAmount := canteenAmount.Add(s.platformFee)

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:        req.UserID,
		CanteenID:     req.CanteenID,
		TotalAmount:   decimalToNumeric(totalAmount),
		PlatformFee:   decimalToNumeric(s.platformFee),
		CanteenAmount: decimalToNumeric(canteenAmount),
		PickupTime:    req.PickupTime,
		Notes:         notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		price := numericToDecimal(line.Price)
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			Price:      decimalToNumeric(price),
			TotalPrice: decimalToNumeric(price.Mul(decimal.NewFromInt32(line.Quantity))),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := store.ClearCartByCanteen(ctx, database.ClearCartByCanteenParams{
		UserID:    req.UserID,
		CanteenID: req.CanteenID,
	}); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlaceOrderResult{Order: order, Items: items}, nil
}

// ConfirmPayment records the gateway's payment reference and advances a
// pending order to preparing. Idempotent on the reference: a duplicate
// callback delivery with the same reference is a no-op success.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentRef string) (database.Order, error) {
	if paymentRef == "" {
		return database.Order{}, ErrPaymentRefRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Row lock serializes concurrent callback deliveries for this order.
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if order.Status != enum.OrderStatusPending {
		if order.PaymentID.Valid && order.PaymentID.String == paymentRef {
			return order, nil
		}
		return database.Order{}, ErrInvalidTransition
	}

	updated, err := store.ConfirmOrderPayment(ctx, database.ConfirmOrderPaymentParams{
		ID:        orderID,
		PaymentID: paymentRef,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("confirm payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// advanceTransitions are the admin-driven forward steps. Pending orders
// advance only through payment confirmation, and cancellation goes through
// Cancel so inventory is restored.
var advanceTransitions = map[string]string{
	enum.OrderStatusPreparing: enum.OrderStatusReady,
	enum.OrderStatusReady:     enum.OrderStatusCompleted,
}

// AdvanceStatus moves an order one step forward along
// preparing -> ready -> completed. No step may be skipped.
func (s *OrderService) AdvanceStatus(ctx context.Context, canteenID, orderID uuid.UUID, next string) (database.Order, error) {
	if !isValidOrderStatus(next) {
		return database.Order{}, ErrInvalidStatus
	}

	current, err := s.store.GetOrderByCanteen(ctx, database.GetOrderByCanteenParams{
		ID:        orderID,
		CanteenID: canteenID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if advanceTransitions[current.Status] != next {
		return database.Order{}, fmt.Errorf("%s -> %s: %w", current.Status, next, ErrInvalidTransition)
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		CanteenID:  canteenID,
		Status:     next,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and the conditional write.
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// Cancel aborts an order that is still pending or preparing and restores
// the stock its lines reserved, all in one transaction.
func (s *OrderService) Cancel(ctx context.Context, canteenID, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.CanteenID != canteenID {
		return database.Order{}, ErrOrderNotFound
	}

	if order.Status != enum.OrderStatusPending && order.Status != enum.OrderStatusPreparing {
		return database.Order{}, fmt.Errorf("cannot cancel a %s order: %w", order.Status, ErrInvalidTransition)
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if err := store.RestoreMenuItemStock(ctx, database.RestoreMenuItemStockParams{
			ID:       item.MenuItemID,
			Quantity: item.Quantity,
		}); err != nil {
			return database.Order{}, fmt.Errorf("restore stock: %w", err)
		}
	}

	cancelled, err := store.CancelOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return cancelled, nil
}

// --- Helpers ---

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
