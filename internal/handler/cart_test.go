package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/handler"
	"github.com/campuscanteen/api/internal/middleware"
	"github.com/campuscanteen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockCartServicer struct {
	getCartFn        func(ctx context.Context, userID uuid.UUID) (*service.Cart, error)
	addItemFn        func(ctx context.Context, userID, menuItemID uuid.UUID, quantity int32) (database.CartItem, error)
	updateQuantityFn func(ctx context.Context, userID, lineID uuid.UUID, quantity int32) (*database.CartItem, error)
	removeItemFn     func(ctx context.Context, userID, lineID uuid.UUID) error
	clearFn          func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockCartServicer) GetCart(ctx context.Context, userID uuid.UUID) (*service.Cart, error) {
	if m.getCartFn != nil {
		return m.getCartFn(ctx, userID)
	}
	return &service.Cart{TotalAmount: decimal.Zero}, nil
}

func (m *mockCartServicer) AddItem(ctx context.Context, userID, menuItemID uuid.UUID, quantity int32) (database.CartItem, error) {
	if m.addItemFn != nil {
		return m.addItemFn(ctx, userID, menuItemID, quantity)
	}
	return database.CartItem{}, service.ErrMenuItemNotFound
}

func (m *mockCartServicer) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int32) (*database.CartItem, error) {
	if m.updateQuantityFn != nil {
		return m.updateQuantityFn(ctx, userID, lineID, quantity)
	}
	return nil, service.ErrCartLineNotFound
}

func (m *mockCartServicer) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	if m.removeItemFn != nil {
		return m.removeItemFn(ctx, userID, lineID)
	}
	return nil
}

func (m *mockCartServicer) Clear(ctx context.Context, userID uuid.UUID) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

func setupCartRouter(svc *mockCartServicer) *chi.Mux {
	h := handler.NewCartHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	h.RegisterRoutes(r)
	return r
}

func TestCartAddItem_Success(t *testing.T) {
	user := userIdentity()
	menuItemID := uuid.New()

	var gotUser uuid.UUID
	var gotQty int32
	svc := &mockCartServicer{
		addItemFn: func(_ context.Context, userID, itemID uuid.UUID, qty int32) (database.CartItem, error) {
			gotUser = userID
			gotQty = qty
			return database.CartItem{ID: uuid.New(), UserID: userID, MenuItemID: itemID, Quantity: qty}, nil
		},
	}
	r := setupCartRouter(svc)

	rr := doAuthRequest(t, r, "POST", "/cart/items", map[string]interface{}{
		"menu_item_id": menuItemID.String(),
		"quantity":     3,
	}, user)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}
	if gotUser != user.UserID {
		t.Errorf("acting user must come from token claims, got %v", gotUser)
	}
	if gotQty != 3 {
		t.Errorf("quantity: got %d", gotQty)
	}
}

func TestCartAddItem_OutOfStock(t *testing.T) {
	user := userIdentity()
	svc := &mockCartServicer{
		addItemFn: func(_ context.Context, _, _ uuid.UUID, _ int32) (database.CartItem, error) {
			return database.CartItem{}, service.ErrOutOfStock
		},
	}
	r := setupCartRouter(svc)

	rr := doAuthRequest(t, r, "POST", "/cart/items", map[string]interface{}{
		"menu_item_id": uuid.New().String(),
		"quantity":     1,
	}, user)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCartAddItem_UnknownItem(t *testing.T) {
	user := userIdentity()
	r := setupCartRouter(&mockCartServicer{})

	rr := doAuthRequest(t, r, "POST", "/cart/items", map[string]interface{}{
		"menu_item_id": uuid.New().String(),
		"quantity":     1,
	}, user)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCartAddItem_ZeroQuantity(t *testing.T) {
	user := userIdentity()
	svc := &mockCartServicer{
		addItemFn: func(_ context.Context, _, _ uuid.UUID, _ int32) (database.CartItem, error) {
			return database.CartItem{}, service.ErrInvalidQuantity
		},
	}
	r := setupCartRouter(svc)

	rr := doAuthRequest(t, r, "POST", "/cart/items", map[string]interface{}{
		"menu_item_id": uuid.New().String(),
		"quantity":     0,
	}, user)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCartUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	user := userIdentity()
	lineID := uuid.New()
	svc := &mockCartServicer{
		updateQuantityFn: func(_ context.Context, _, _ uuid.UUID, qty int32) (*database.CartItem, error) {
			if qty != 0 {
				t.Errorf("quantity: got %d, want 0", qty)
			}
			return nil, nil
		},
	}
	r := setupCartRouter(svc)

	rr := doAuthRequest(t, r, "PATCH", "/cart/items/"+lineID.String(), map[string]interface{}{
		"quantity": 0,
	}, user)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestCartUpdateQuantity_LineNotFound(t *testing.T) {
	user := userIdentity()
	r := setupCartRouter(&mockCartServicer{})

	rr := doAuthRequest(t, r, "PATCH", "/cart/items/"+uuid.New().String(), map[string]interface{}{
		"quantity": 2,
	}, user)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCartGet_Totals(t *testing.T) {
	user := userIdentity()
	svc := &mockCartServicer{
		getCartFn: func(_ context.Context, _ uuid.UUID) (*service.Cart, error) {
			return &service.Cart{
				Lines: []database.CartLineRow{
					{
						ID:          uuid.New(),
						MenuItemID:  uuid.New(),
						Name:        "Filter Coffee",
						Category:    "Beverages",
						Price:       testNumeric(t, "65.00"),
						Quantity:    2,
						CanteenID:   uuid.New(),
						IsAvailable: true,
						CreatedAt:   time.Now(),
					},
				},
				TotalAmount: decimal.RequireFromString("130.00"),
				TotalItems:  2,
			}, nil
		},
	}
	r := setupCartRouter(svc)

	rr := doAuthRequest(t, r, "GET", "/cart", nil, user)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["total_amount"] != "130.00" {
		t.Errorf("total_amount: got %v", resp["total_amount"])
	}
	if resp["total_items"] != float64(2) {
		t.Errorf("total_items: got %v", resp["total_items"])
	}
	lines, _ := resp["lines"].([]interface{})
	if len(lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(lines))
	}
	first, _ := lines[0].(map[string]interface{})
	if first["line_total"] != "130.00" {
		t.Errorf("line_total: got %v", first["line_total"])
	}
}

func TestCartClear(t *testing.T) {
	user := userIdentity()
	cleared := false
	svc := &mockCartServicer{
		clearFn: func(_ context.Context, userID uuid.UUID) error {
			if userID != user.UserID {
				t.Errorf("clear must be scoped to the token's user")
			}
			cleared = true
			return nil
		},
	}
	r := setupCartRouter(svc)

	rr := doAuthRequest(t, r, "DELETE", "/cart", nil, user)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !cleared {
		t.Error("expected Clear to be called")
	}
}
