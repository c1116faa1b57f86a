package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscanteen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors returned by the cart service.
var (
	ErrOutOfStock       = errors.New("menu item is out of stock")
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrCartLineNotFound = errors.New("cart line not found")
)

// CartStore defines the DB methods needed by the cart service.
// Satisfied by *database.Queries; narrow interface for testability.
type CartStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	UpsertCartItem(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error)
	DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (int64, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	ListCartLines(ctx context.Context, userID uuid.UUID) ([]database.CartLineRow, error)
}

// Cart is a snapshot of a user's cart with totals computed from the live
// line set; the totals are never stored.
type Cart struct {
	Lines       []database.CartLineRow
	TotalAmount decimal.Decimal
	TotalItems  int32
}

// CartService handles cart business logic. Every operation takes the
// acting user explicitly; there is no ambient session state.
type CartService struct {
	store CartStore
}

func NewCartService(store CartStore) *CartService {
	return &CartService{store: store}
}

// AddItem puts quantity of a menu item into the user's cart. If a line for
// the same item already exists the quantity merges into it atomically via
// the store's upsert, so two near-simultaneous adds both land.
func (s *CartService) AddItem(ctx context.Context, userID, menuItemID uuid.UUID, quantity int32) (database.CartItem, error) {
	if quantity <= 0 {
		return database.CartItem{}, ErrInvalidQuantity
	}

	item, err := s.store.GetMenuItem(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CartItem{}, ErrMenuItemNotFound
		}
		return database.CartItem{}, fmt.Errorf("get menu item: %w", err)
	}

	// Checked before any write: a failed add must leave the cart untouched.
	if !item.IsAvailable || item.AvailableQuantity <= 0 {
		return database.CartItem{}, ErrOutOfStock
	}

	line, err := s.store.UpsertCartItem(ctx, database.UpsertCartItemParams{
		UserID:     userID,
		MenuItemID: menuItemID,
		Quantity:   quantity,
	})
	if err != nil {
		return database.CartItem{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return line, nil
}

// UpdateQuantity sets a line's quantity. A quantity <= 0 is defined as
// removal; a zero-quantity line is never persisted.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int32) (*database.CartItem, error) {
	if quantity <= 0 {
		if err := s.RemoveItem(ctx, userID, lineID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	line, err := s.store.UpdateCartItemQuantity(ctx, database.UpdateCartItemQuantityParams{
		ID:       lineID,
		UserID:   userID,
		Quantity: quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartLineNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return &line, nil
}

// RemoveItem deletes a line. Removing an absent line is a no-op success.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	if _, err := s.store.DeleteCartItem(ctx, database.DeleteCartItemParams{
		ID:     lineID,
		UserID: userID,
	}); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// Clear empties the user's cart. Clearing an empty cart is a no-op success.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// GetCart returns the user's lines with computed totals.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}

	cart := &Cart{Lines: lines, TotalAmount: decimal.Zero}
	for _, line := range lines {
		price := numericToDecimal(line.Price)
		cart.TotalAmount = cart.TotalAmount.Add(price.Mul(decimal.NewFromInt32(line.Quantity)))
		cart.TotalItems += line.Quantity
	}
	return cart, nil
}
