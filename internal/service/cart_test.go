package service

import (
	"context"
	"errors"
	"testing"

	"github.com/campuscanteen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// mockCartStore implements CartStore with configurable behavior.
type mockCartStore struct {
	getMenuItemFn    func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	upsertFn         func(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error)
	updateQuantityFn func(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error)
	deleteFn         func(ctx context.Context, arg database.DeleteCartItemParams) (int64, error)
	clearFn          func(ctx context.Context, userID uuid.UUID) error
	listLinesFn      func(ctx context.Context, userID uuid.UUID) ([]database.CartLineRow, error)
}

func (m *mockCartStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	return m.getMenuItemFn(ctx, id)
}
func (m *mockCartStore) UpsertCartItem(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error) {
	return m.upsertFn(ctx, arg)
}
func (m *mockCartStore) UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error) {
	return m.updateQuantityFn(ctx, arg)
}
func (m *mockCartStore) DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (int64, error) {
	return m.deleteFn(ctx, arg)
}
func (m *mockCartStore) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return m.clearFn(ctx, userID)
}
func (m *mockCartStore) ListCartLines(ctx context.Context, userID uuid.UUID) ([]database.CartLineRow, error) {
	return m.listLinesFn(ctx, userID)
}

func availableItem(id uuid.UUID) database.MenuItem {
	return database.MenuItem{
		ID:                id,
		Name:              "Masala Dosa",
		Price:             makeNumeric("85.00"),
		AvailableQuantity: 10,
		IsAvailable:       true,
	}
}

func TestAddItem_ZeroQuantity(t *testing.T) {
	svc := NewCartService(&mockCartStore{})

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 0)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestAddItem_MenuItemNotFound(t *testing.T) {
	store := &mockCartStore{
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			return database.MenuItem{}, pgx.ErrNoRows
		},
	}
	svc := NewCartService(store)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

func TestAddItem_UnavailableItem(t *testing.T) {
	itemID := uuid.New()
	item := availableItem(itemID)
	item.IsAvailable = false

	upserted := false
	store := &mockCartStore{
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			return item, nil
		},
		upsertFn: func(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error) {
			upserted = true
			return database.CartItem{}, nil
		},
	}
	svc := NewCartService(store)

	_, err := svc.AddItem(context.Background(), uuid.New(), itemID, 1)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got: %v", err)
	}
	if upserted {
		t.Error("cart must be left untouched for unavailable items")
	}
}

func TestAddItem_ZeroStock(t *testing.T) {
	itemID := uuid.New()
	item := availableItem(itemID)
	item.AvailableQuantity = 0

	store := &mockCartStore{
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			return item, nil
		},
	}
	svc := NewCartService(store)

	_, err := svc.AddItem(context.Background(), uuid.New(), itemID, 1)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock at zero stock, got: %v", err)
	}
}

func TestAddItem_MergesViaUpsert(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()

	var captured database.UpsertCartItemParams
	store := &mockCartStore{
		getMenuItemFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			return availableItem(itemID), nil
		},
		upsertFn: func(ctx context.Context, arg database.UpsertCartItemParams) (database.CartItem, error) {
			captured = arg
			// DB merged into an existing line of 2.
			return database.CartItem{ID: uuid.New(), UserID: arg.UserID,
				MenuItemID: arg.MenuItemID, Quantity: arg.Quantity + 2}, nil
		},
	}
	svc := NewCartService(store)

	line, err := svc.AddItem(context.Background(), userID, itemID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.UserID != userID || captured.MenuItemID != itemID || captured.Quantity != 3 {
		t.Errorf("upsert params: got %+v", captured)
	}
	if line.Quantity != 5 {
		t.Errorf("merged quantity: got %d, want 5", line.Quantity)
	}
}

func TestUpdateQuantity_ZeroMeansRemove(t *testing.T) {
	userID := uuid.New()
	lineID := uuid.New()

	var deleted database.DeleteCartItemParams
	store := &mockCartStore{
		deleteFn: func(ctx context.Context, arg database.DeleteCartItemParams) (int64, error) {
			deleted = arg
			return 1, nil
		},
	}
	svc := NewCartService(store)

	line, err := svc.UpdateQuantity(context.Background(), userID, lineID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != nil {
		t.Errorf("expected nil line after removal, got %+v", line)
	}
	if deleted.ID != lineID || deleted.UserID != userID {
		t.Errorf("delete params: got %+v", deleted)
	}
}

func TestUpdateQuantity_LineNotFound(t *testing.T) {
	store := &mockCartStore{
		updateQuantityFn: func(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error) {
			return database.CartItem{}, pgx.ErrNoRows
		},
	}
	svc := NewCartService(store)

	_, err := svc.UpdateQuantity(context.Background(), uuid.New(), uuid.New(), 2)
	if !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got: %v", err)
	}
}

func TestRemoveItem_AbsentLineIsNoOp(t *testing.T) {
	store := &mockCartStore{
		deleteFn: func(ctx context.Context, arg database.DeleteCartItemParams) (int64, error) {
			return 0, nil
		},
	}
	svc := NewCartService(store)

	if err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("removing an absent line must succeed, got: %v", err)
	}
}

func TestGetCart_ComputesTotals(t *testing.T) {
	userID := uuid.New()
	store := &mockCartStore{
		listLinesFn: func(ctx context.Context, uid uuid.UUID) ([]database.CartLineRow, error) {
			return []database.CartLineRow{
				{ID: uuid.New(), Quantity: 1, Name: "Masala Dosa", Price: makeNumeric("85.00")},
				{ID: uuid.New(), Quantity: 2, Name: "Filter Coffee", Price: makeNumeric("65.00")},
			}, nil
		},
	}
	svc := NewCartService(store)

	cart, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 85 + (65 * 2) = 215
	if !cart.TotalAmount.Equal(mustDecimal("215.00")) {
		t.Errorf("total amount: got %v, want 215.00", cart.TotalAmount)
	}
	if cart.TotalItems != 3 {
		t.Errorf("total items: got %d, want 3", cart.TotalItems)
	}
}

func TestGetCart_Empty(t *testing.T) {
	store := &mockCartStore{
		listLinesFn: func(ctx context.Context, uid uuid.UUID) ([]database.CartLineRow, error) {
			return nil, nil
		},
	}
	svc := NewCartService(store)

	cart, err := svc.GetCart(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cart.TotalAmount.IsZero() || cart.TotalItems != 0 {
		t.Errorf("empty cart totals: got %v / %d", cart.TotalAmount, cart.TotalItems)
	}
}
