package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/enum"
	"github.com/campuscanteen/api/internal/service"
	"github.com/campuscanteen/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CanteenStore defines the database methods needed by canteen read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CanteenStore interface {
	ListActiveCanteens(ctx context.Context) ([]database.Canteen, error)
	GetCanteen(ctx context.Context, id uuid.UUID) (database.Canteen, error)
}

// CanteenServicer defines the service methods needed by canteen admin handlers.
// Satisfied by *service.CanteenService; narrow interface for testability.
type CanteenServicer interface {
	ToggleAcceptance(ctx context.Context, canteenID uuid.UUID) (database.Canteen, error)
	DailyStats(ctx context.Context, canteenID uuid.UUID, day time.Time) (*service.DailyStats, error)
}

// Broadcaster pushes events to connected clients.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(room string, event ws.Event)
}

// CanteenHandler handles canteen endpoints.
type CanteenHandler struct {
	store CanteenStore
	svc   CanteenServicer
	hub   Broadcaster
}

// NewCanteenHandler creates a new CanteenHandler.
func NewCanteenHandler(store CanteenStore, svc CanteenServicer, hub Broadcaster) *CanteenHandler {
	return &CanteenHandler{store: store, svc: svc, hub: hub}
}

// RegisterRoutes registers customer-facing canteen endpoints.
func (h *CanteenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/canteens", h.List)
	r.Get("/canteens/{id}", h.Get)
}

// RegisterAdminRoutes registers canteen admin endpoints.
// Expected to be mounted inside the canteen-scoped subrouter: /admin/canteens/{cid}
func (h *CanteenHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/acceptance/toggle", h.ToggleAcceptance)
	r.Get("/stats/daily", h.DailyStats)
}

// --- Response types ---

type canteenResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Location        *string   `json:"location"`
	ImageURL        *string   `json:"image_url"`
	AcceptingOrders bool      `json:"accepting_orders"`
}

// --- Handlers ---

// List handles GET /canteens. Only active canteens are shown.
func (h *CanteenHandler) List(w http.ResponseWriter, r *http.Request) {
	canteens, err := h.store.ListActiveCanteens(r.Context())
	if err != nil {
		log.Printf("ERROR: list canteens: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]canteenResponse, len(canteens))
	for i, c := range canteens {
		resp[i] = dbCanteenToResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"canteens": resp})
}

// Get handles GET /canteens/{id}.
func (h *CanteenHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	canteen, err := h.store.GetCanteen(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "canteen not found"})
			return
		}
		log.Printf("ERROR: get canteen: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !canteen.IsActive {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "canteen not found"})
		return
	}

	writeJSON(w, http.StatusOK, dbCanteenToResponse(canteen))
}

// ToggleAcceptance handles POST /admin/canteens/{cid}/acceptance/toggle.
// Customers browsing this canteen hear about the flip immediately.
func (h *CanteenHandler) ToggleAcceptance(w http.ResponseWriter, r *http.Request) {
	cid, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	canteen, err := h.svc.ToggleAcceptance(r.Context(), cid)
	if err != nil {
		if errors.Is(err, service.ErrCanteenNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "canteen not found"})
			return
		}
		log.Printf("ERROR: toggle acceptance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"canteen_id":       canteen.ID,
		"accepting_orders": canteen.AcceptingOrders,
	})
	h.hub.Broadcast(ws.CanteenRoom(canteen.ID), ws.Event{Type: enum.EventAcceptanceChanged, Payload: payload})

	writeJSON(w, http.StatusOK, dbCanteenToResponse(canteen))
}

// DailyStats handles GET /admin/canteens/{cid}/stats/daily?date=YYYY-MM-DD.
// Without a date it reports today in the configured stats timezone.
func (h *CanteenHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	cid, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	day := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		day, err = time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
	}

	stats, err := h.svc.DailyStats(r.Context(), cid, day)
	if err != nil {
		log.Printf("ERROR: daily stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// --- Helpers ---

func dbCanteenToResponse(c database.Canteen) canteenResponse {
	resp := canteenResponse{
		ID:              c.ID,
		Name:            c.Name,
		AcceptingOrders: c.AcceptingOrders,
	}
	if c.Description.Valid {
		resp.Description = &c.Description.String
	}
	if c.Location.Valid {
		resp.Location = &c.Location.String
	}
	if c.ImageUrl.Valid {
		resp.ImageURL = &c.ImageUrl.String
	}
	return resp
}
