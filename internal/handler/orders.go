package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/enum"
	"github.com/campuscanteen/api/internal/middleware"
	"github.com/campuscanteen/api/internal/service"
	"github.com/campuscanteen/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
	AdvanceStatus(ctx context.Context, canteenID, orderID uuid.UUID, next string) (database.Order, error)
	Cancel(ctx context.Context, canteenID, orderID uuid.UUID) (database.Order, error)
}

// OrderReadStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error)
	ListOrdersByCanteen(ctx context.Context, arg database.ListOrdersByCanteenParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderLineRow, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderReadStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderReadStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers customer order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Place)
	r.Get("/orders", h.ListMine)
	r.Get("/orders/{id}", h.Get)
}

// RegisterAdminRoutes registers order management endpoints.
// Expected to be mounted inside the canteen-scoped subrouter: /admin/canteens/{cid}
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.ListByCanteen)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Delete("/orders/{id}", h.Cancel)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	CanteenID  string `json:"canteen_id"`
	PickupTime string `json:"pickup_time"`
	Notes      string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	CanteenID     uuid.UUID           `json:"canteen_id"`
	Status        string              `json:"status"`
	TotalAmount   string              `json:"total_amount"`
	PlatformFee   string              `json:"platform_fee"`
	CanteenAmount string              `json:"canteen_amount"`
	PaymentID     *string             `json:"payment_id"`
	PickupTime    time.Time           `json:"pickup_time"`
	Notes         *string             `json:"notes"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name,omitempty"`
	Quantity     int32     `json:"quantity"`
	Price        string    `json:"price"`
	TotalPrice   string    `json:"total_price"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Place handles POST /orders.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	canteenID, err := uuid.Parse(req.CanteenID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen_id"})
		return
	}

	var pickupTime time.Time
	if req.PickupTime != "" {
		pickupTime, err = time.Parse(time.RFC3339, req.PickupTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pickup_time, use RFC 3339"})
			return
		}
	}

	result, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:     claims.UserID,
		CanteenID:  canteenID,
		PickupTime: pickupTime,
		Notes:      req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPickupTimeRequired),
			errors.Is(err, service.ErrPickupTimeInPast),
			errors.Is(err, service.ErrEmptyCart):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrCanteenNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "canteen not found"})
		case errors.Is(err, service.ErrOrdersClosed),
			errors.Is(err, service.ErrOutOfStock):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: place order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = orderItemResponse{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Price:      numericToString(item.Price),
			TotalPrice: numericToString(item.TotalPrice),
		}
	}

	h.broadcastOrder(enum.EventOrderCreated, result.Order)

	writeJSON(w, http.StatusCreated, resp)
}

// ListMine handles GET /orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r)
	orders, err := h.store.ListOrdersByUser(r.Context(), database.ListOrdersByUserParams{
		UserID: claims.UserID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}. Customers see only their own orders; a
// canteen admin sees orders placed at their canteen.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if order.UserID != claims.UserID && order.CanteenID != claims.CanteenID {
		// Existence of other users' orders is not disclosed.
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:           item.ID,
			MenuItemID:   item.MenuItemID,
			MenuItemName: item.MenuItemName,
			Quantity:     item.Quantity,
			Price:        numericToString(item.Price),
			TotalPrice:   numericToString(item.TotalPrice),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListByCanteen handles GET /admin/canteens/{cid}/orders?status=...
func (h *OrderHandler) ListByCanteen(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListOrdersByCanteenParams{
		CanteenID: canteenID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !isKnownStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrdersByCanteen(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list canteen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// UpdateStatus handles PATCH /admin/canteens/{cid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.AdvanceStatus(r.Context(), canteenID, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidTransition),
			errors.Is(err, service.ErrStatusConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.broadcastOrder(enum.EventOrderStatusChanged, updated)

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Cancel handles DELETE /admin/canteens/{cid}/orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	cancelled, err := h.svc.Cancel(r.Context(), canteenID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: cancel order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.broadcastOrder(enum.EventOrderCancelled, cancelled)

	writeJSON(w, http.StatusOK, dbOrderToResponse(cancelled))
}

// --- Helpers ---

// broadcastOrder pushes an order event to both sides: the customer's user
// room and the canteen's admin room.
func (h *OrderHandler) broadcastOrder(eventType string, order database.Order) {
	payload, err := json.Marshal(dbOrderToResponse(order))
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}
	event := ws.Event{Type: eventType, Payload: payload}
	h.hub.Broadcast(ws.UserRoom(order.UserID), event)
	h.hub.Broadcast(ws.CanteenRoom(order.CanteenID), event)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func isKnownStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		CanteenID:     o.CanteenID,
		Status:        o.Status,
		TotalAmount:   numericToString(o.TotalAmount),
		PlatformFee:   numericToString(o.PlatformFee),
		CanteenAmount: numericToString(o.CanteenAmount),
		PickupTime:    o.PickupTime,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.PaymentID.Valid {
		resp.PaymentID = &o.PaymentID.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
