package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/middleware"
	"github.com/campuscanteen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartServicer defines the service methods needed by cart handlers.
// Satisfied by *service.CartService; narrow interface for testability.
type CartServicer interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*service.Cart, error)
	AddItem(ctx context.Context, userID, menuItemID uuid.UUID, quantity int32) (database.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int32) (*database.CartItem, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CartHandler handles cart endpoints. The acting user always comes from the
// verified token claims, never from the request body.
type CartHandler struct {
	svc CartServicer
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(svc CartServicer) *CartHandler {
	return &CartHandler{svc: svc}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{id}", h.UpdateQuantity)
	r.Delete("/cart/items/{id}", h.RemoveItem)
	r.Delete("/cart", h.Clear)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type cartLineResponse struct {
	ID          uuid.UUID `json:"id"`
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	Quantity    int32     `json:"quantity"`
	LineTotal   string    `json:"line_total"`
	CanteenID   uuid.UUID `json:"canteen_id"`
	IsAvailable bool      `json:"is_available"`
	AddedAt     time.Time `json:"added_at"`
}

type cartResponse struct {
	Lines       []cartLineResponse `json:"lines"`
	TotalAmount string             `json:"total_amount"`
	TotalItems  int32              `json:"total_items"`
}

type cartItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int32     `json:"quantity"`
}

// --- Handlers ---

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	cart, err := h.svc.GetCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
		return
	}

	line, err := h.svc.AddItem(r.Context(), claims.UserID, menuItemID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrMenuItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		case errors.Is(err, service.ErrOutOfStock):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: add cart item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, cartItemResponse{
		ID:         line.ID,
		MenuItemID: line.MenuItemID,
		Quantity:   line.Quantity,
	})
}

// UpdateQuantity handles PATCH /cart/items/{id}. Quantity 0 removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	lineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart item ID"})
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	line, err := h.svc.UpdateQuantity(r.Context(), claims.UserID, lineID, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrCartLineNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
		log.Printf("ERROR: update cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if line == nil {
		// Quantity <= 0 removed the line.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, cartItemResponse{
		ID:         line.ID,
		MenuItemID: line.MenuItemID,
		Quantity:   line.Quantity,
	})
}

// RemoveItem handles DELETE /cart/items/{id}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	lineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart item ID"})
		return
	}

	if err := h.svc.RemoveItem(r.Context(), claims.UserID, lineID); err != nil {
		log.Printf("ERROR: remove cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := h.svc.Clear(r.Context(), claims.UserID); err != nil {
		log.Printf("ERROR: clear cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func toCartResponse(cart *service.Cart) cartResponse {
	resp := cartResponse{
		Lines:       make([]cartLineResponse, len(cart.Lines)),
		TotalAmount: cart.TotalAmount.StringFixed(2),
		TotalItems:  cart.TotalItems,
	}
	for i, line := range cart.Lines {
		price := numericToString(line.Price)
		resp.Lines[i] = cartLineResponse{
			ID:          line.ID,
			MenuItemID:  line.MenuItemID,
			Name:        line.Name,
			Category:    line.Category,
			Price:       price,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal(line),
			CanteenID:   line.CanteenID,
			IsAvailable: line.IsAvailable,
			AddedAt:     line.CreatedAt,
		}
	}
	return resp
}

func lineTotal(line database.CartLineRow) string {
	price, err := decimal.NewFromString(numericToString(line.Price))
	if err != nil {
		return "0.00"
	}
	return price.Mul(decimal.NewFromInt32(line.Quantity)).StringFixed(2)
}
