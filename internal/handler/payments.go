package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/enum"
	"github.com/campuscanteen/api/internal/middleware"
	"github.com/campuscanteen/api/internal/payment"
	"github.com/campuscanteen/api/internal/service"
	"github.com/campuscanteen/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type PaymentServicer interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentRef string) (database.Order, error)
}

// PaymentReadStore loads orders for checkout session creation.
// Satisfied by *database.Queries.
type PaymentReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (database.Profile, error)
}

// PaymentHandler drives the hosted checkout flow for an order.
type PaymentHandler struct {
	svc     PaymentServicer
	store   PaymentReadStore
	gateway payment.Gateway
	hub     Broadcaster
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentReadStore, gateway payment.Gateway, hub Broadcaster) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store, gateway: gateway, hub: hub}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{id}/payment", h.CreateCheckout)
	r.Post("/orders/{id}/payment/confirm", h.Confirm)
}

// --- Request / Response types ---

type checkoutResponse struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

type confirmPaymentRequest struct {
	Reference string `json:"reference"`
}

// --- Handlers ---

// CreateCheckout handles POST /orders/{id}/payment. It opens a hosted
// checkout session for the order's total and hands back the redirect URL.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
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
	if order.UserID != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if order.Status != enum.OrderStatusPending {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not awaiting payment"})
		return
	}

	profile, err := h.store.GetProfileByID(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	amount, err := decimal.NewFromString(numericToString(order.TotalAmount))
	if err != nil {
		log.Printf("ERROR: parse order total: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	session, err := h.gateway.CreateCheckout(r.Context(), payment.CheckoutRequest{
		OrderID:       order.ID,
		Amount:        amount,
		Currency:      "INR",
		CustomerEmail: profile.Email,
	})
	if err != nil {
		if errors.Is(err, payment.ErrGatewayDeclined) {
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "payment was declined"})
			return
		}
		log.Printf("ERROR: create checkout session: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment provider unavailable"})
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Reference:   session.Reference,
		RedirectURL: session.RedirectURL,
	})
}

// Confirm handles POST /orders/{id}/payment/confirm. The client calls this
// after returning from the hosted checkout; duplicate confirmations with the
// same reference are safe.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
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

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Ownership check happens before any write.
	existing, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if existing.UserID != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	order, err := h.svc.ConfirmPayment(r.Context(), orderID, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentRefRequired):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reference is required"})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not awaiting payment"})
		default:
			log.Printf("ERROR: confirm payment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	payload, _ := json.Marshal(dbOrderToResponse(order))
	event := ws.Event{Type: enum.EventOrderPaid, Payload: payload}
	h.hub.Broadcast(ws.UserRoom(order.UserID), event)
	h.hub.Broadcast(ws.CanteenRoom(order.CanteenID), event)

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}
