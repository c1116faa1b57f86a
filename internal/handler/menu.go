package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/campuscanteen/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, canteenID uuid.UUID) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, arg database.DeleteMenuItemParams) (int64, error)
}

// MenuHandler handles menu item endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers the customer-facing menu listing.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/canteens/{id}/menu", h.List)
}

// RegisterAdminRoutes registers menu CRUD inside /admin/canteens/{cid}.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/menu", h.AdminList)
	r.Post("/menu", h.Create)
	r.Put("/menu/{id}", h.Update)
	r.Delete("/menu/{id}", h.Delete)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Price             string `json:"price"`
	AvailableQuantity int32  `json:"available_quantity"`
	IsAvailable       bool   `json:"is_available"`
	ImageURL          string `json:"image_url"`
}

type menuItemResponse struct {
	ID                uuid.UUID `json:"id"`
	CanteenID         uuid.UUID `json:"canteen_id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	Category          string    `json:"category"`
	Price             string    `json:"price"`
	AvailableQuantity int32     `json:"available_quantity"`
	IsAvailable       bool      `json:"is_available"`
	ImageURL          *string   `json:"image_url"`
}

// --- Handlers ---

// List handles GET /canteens/{id}/menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}
	h.list(w, r, canteenID)
}

// AdminList handles GET /admin/canteens/{cid}/menu.
func (h *MenuHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}
	h.list(w, r, canteenID)
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request, canteenID uuid.UUID) {
	items, err := h.store.ListMenuItems(r.Context(), canteenID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = dbMenuItemToResponse(item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": resp})
}

// Create handles POST /admin/canteens/{cid}/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := menuItemParams(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CanteenID:         canteenID,
		Name:              params.Name,
		Description:       params.Description,
		Category:          params.Category,
		Price:             params.Price,
		AvailableQuantity: params.AvailableQuantity,
		IsAvailable:       params.IsAvailable,
		ImageUrl:          params.ImageUrl,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbMenuItemToResponse(item))
}

// Update handles PUT /admin/canteens/{cid}/menu/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := menuItemParams(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:                itemID,
		CanteenID:         canteenID,
		Name:              params.Name,
		Description:       params.Description,
		Category:          params.Category,
		Price:             params.Price,
		AvailableQuantity: params.AvailableQuantity,
		IsAvailable:       params.IsAvailable,
		ImageUrl:          params.ImageUrl,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// Delete handles DELETE /admin/canteens/{cid}/menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	canteenID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canteen ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	affected, err := h.store.DeleteMenuItem(r.Context(), database.DeleteMenuItemParams{
		ID:        itemID,
		CanteenID: canteenID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// Order lines still reference this item.
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "menu item has existing orders, mark it unavailable instead",
			})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

type menuItemFields struct {
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	AvailableQuantity int32
	IsAvailable       bool
	ImageUrl          pgtype.Text
}

func menuItemParams(req menuItemRequest) (menuItemFields, string) {
	if req.Name == "" {
		return menuItemFields{}, "name is required"
	}
	if req.Category == "" {
		return menuItemFields{}, "category is required"
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return menuItemFields{}, "price must be a non-negative decimal"
	}
	if req.AvailableQuantity < 0 {
		return menuItemFields{}, "available_quantity must be >= 0"
	}

	fields := menuItemFields{
		Name:              req.Name,
		Category:          req.Category,
		AvailableQuantity: req.AvailableQuantity,
		IsAvailable:       req.IsAvailable,
	}
	var n pgtype.Numeric
	_ = n.Scan(price.StringFixed(2))
	fields.Price = n
	if req.Description != "" {
		fields.Description = pgtype.Text{String: req.Description, Valid: true}
	}
	if req.ImageURL != "" {
		fields.ImageUrl = pgtype.Text{String: req.ImageURL, Valid: true}
	}
	return fields, ""
}

func dbMenuItemToResponse(item database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:                item.ID,
		CanteenID:         item.CanteenID,
		Name:              item.Name,
		Category:          item.Category,
		Price:             numericToString(item.Price),
		AvailableQuantity: item.AvailableQuantity,
		IsAvailable:       item.IsAvailable,
	}
	if item.Description.Valid {
		resp.Description = &item.Description.String
	}
	if item.ImageUrl.Valid {
		resp.ImageURL = &item.ImageUrl.String
	}
	return resp
}
