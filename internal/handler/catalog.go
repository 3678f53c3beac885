package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CatalogServicer is satisfied by *service.CatalogService.
type CatalogServicer interface {
	PutScreen(ctx context.Context, key, name string, categoryIDs []string) (*service.ScreenAssignment, error)
	PutCategory(ctx context.Context, id uuid.UUID, name string) (database.Category, error)
	PutMenuItem(ctx context.Context, req service.MenuItemRequest) (database.UpsertMenuItemRow, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// CatalogHandler maintains screens, categories and menu items.
type CatalogHandler struct {
	svc CatalogServicer
}

func NewCatalogHandler(svc CatalogServicer) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// RegisterRoutes registers catalog endpoints.
// Expected to be mounted at /catalog
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Put("/screens/{key}", h.PutScreen)
	r.Put("/categories/{id}", h.PutCategory)
	r.Put("/items/{id}", h.PutMenuItem)
	r.Delete("/items/{id}", h.DeleteMenuItem)
}

// --- Request / Response types ---

type putScreenRequest struct {
	Name        string   `json:"name"`
	CategoryIDs []string `json:"category_ids"`
}

type putCategoryRequest struct {
	Name string `json:"name"`
}

type putMenuItemRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
}

type screenResponse struct {
	ScreenKey   string      `json:"screen_key"`
	Name        string      `json:"name"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type menuItemResponse struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// --- Handlers ---

// PutScreen handles PUT /catalog/screens/{key}. The listed categories are
// routed to this screen from now on.
func (h *CatalogHandler) PutScreen(w http.ResponseWriter, r *http.Request) {
	var req putScreenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	assignment, err := h.svc.PutScreen(r.Context(), chi.URLParam(r, "key"), req.Name, req.CategoryIDs)
	if err != nil {
		writeServiceError(w, "put screen", err)
		return
	}

	ids := assignment.CategoryIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, screenResponse{
		ScreenKey:   assignment.Screen.ScreenKey,
		Name:        assignment.Screen.Name,
		CategoryIDs: ids,
		UpdatedAt:   assignment.Screen.UpdatedAt,
	})
}

// PutCategory handles PUT /catalog/categories/{id}.
func (h *CatalogHandler) PutCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "category ID")
	if !ok {
		return
	}
	var req putCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	category, err := h.svc.PutCategory(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, "put category", err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{ID: category.ID, Name: category.Name})
}

// PutMenuItem handles PUT /catalog/items/{id}. Responds 201 when the item is
// new and 200 when it was updated.
func (h *CatalogHandler) PutMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "menu item ID")
	if !ok {
		return
	}
	var req putMenuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := h.svc.PutMenuItem(r.Context(), service.MenuItemRequest{
		ID:         id,
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Price:      req.Price,
	})
	if err != nil {
		writeServiceError(w, "put menu item", err)
		return
	}

	status := http.StatusOK
	if item.Inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, menuItemResponse{
		ID:         item.ID,
		CategoryID: item.CategoryID,
		Name:       item.Name,
		Price:      numericToString(item.Price),
		IsActive:   item.IsActive,
		UpdatedAt:  item.UpdatedAt,
	})
}

// DeleteMenuItem handles DELETE /catalog/items/{id}.
func (h *CatalogHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "menu item ID")
	if !ok {
		return
	}

	if _, err := h.svc.DeleteMenuItem(r.Context(), id); err != nil {
		writeServiceError(w, "delete menu item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
