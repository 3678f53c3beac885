package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/handler"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type mockCatalogService struct {
	screenFn   func(ctx context.Context, key, name string, categoryIDs []string) (*service.ScreenAssignment, error)
	categoryFn func(ctx context.Context, id uuid.UUID, name string) (database.Category, error)
	itemFn     func(ctx context.Context, req service.MenuItemRequest) (database.UpsertMenuItemRow, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

func (m *mockCatalogService) PutScreen(ctx context.Context, key, name string, categoryIDs []string) (*service.ScreenAssignment, error) {
	return m.screenFn(ctx, key, name, categoryIDs)
}

func (m *mockCatalogService) PutCategory(ctx context.Context, id uuid.UUID, name string) (database.Category, error) {
	return m.categoryFn(ctx, id, name)
}

func (m *mockCatalogService) PutMenuItem(ctx context.Context, req service.MenuItemRequest) (database.UpsertMenuItemRow, error) {
	return m.itemFn(ctx, req)
}

func (m *mockCatalogService) DeleteMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	return m.deleteFn(ctx, id)
}

func setupCatalogRouter(svc *mockCatalogService) *chi.Mux {
	h := handler.NewCatalogHandler(svc)
	return newAuthRouter(func(r chi.Router) {
		r.Route("/catalog", h.RegisterRoutes)
	})
}

func TestPutScreen(t *testing.T) {
	drinks := uuid.New()
	var gotKey, gotName string
	var gotIDs []string
	svc := &mockCatalogService{
		screenFn: func(_ context.Context, key, name string, ids []string) (*service.ScreenAssignment, error) {
			gotKey, gotName, gotIDs = key, name, ids
			return &service.ScreenAssignment{
				Screen:      database.Screen{ScreenKey: key, Name: name, UpdatedAt: time.Now()},
				CategoryIDs: []uuid.UUID{drinks},
			}, nil
		},
	}

	rr := doAuthRequest(t, setupCatalogRouter(svc), "PUT", "/catalog/screens/bar",
		map[string]interface{}{"name": "Bar", "category_ids": []string{drinks.String()}}, managerClaims())
	expectStatus(t, rr, http.StatusOK)

	if gotKey != "bar" || gotName != "Bar" || len(gotIDs) != 1 || gotIDs[0] != drinks.String() {
		t.Errorf("key/name/ids = %q/%q/%v", gotKey, gotName, gotIDs)
	}
	resp := decodeResponse(t, rr)
	ids := resp["category_ids"].([]interface{})
	if resp["screen_key"] != "bar" || len(ids) != 1 || ids[0] != drinks.String() {
		t.Errorf("response = %v", resp)
	}
}

func TestPutScreen_NoCategories(t *testing.T) {
	svc := &mockCatalogService{
		screenFn: func(_ context.Context, key, name string, _ []string) (*service.ScreenAssignment, error) {
			return &service.ScreenAssignment{Screen: database.Screen{ScreenKey: key, Name: name}}, nil
		},
	}

	rr := doAuthRequest(t, setupCatalogRouter(svc), "PUT", "/catalog/screens/bar", map[string]string{"name": "Bar"}, managerClaims())
	expectStatus(t, rr, http.StatusOK)

	ids, ok := decodeResponse(t, rr)["category_ids"].([]interface{})
	if !ok || len(ids) != 0 {
		t.Errorf("category_ids = %v, want empty list", ids)
	}
}

func TestPutMenuItem(t *testing.T) {
	for _, inserted := range []bool{true, false} {
		want := http.StatusOK
		if inserted {
			want = http.StatusCreated
		}
		t.Run(http.StatusText(want), func(t *testing.T) {
			itemID := uuid.New()
			categoryID := uuid.New()
			var got service.MenuItemRequest
			svc := &mockCatalogService{
				itemFn: func(_ context.Context, req service.MenuItemRequest) (database.UpsertMenuItemRow, error) {
					got = req
					return database.UpsertMenuItemRow{
						ID:         req.ID,
						CategoryID: categoryID,
						Name:       req.Name,
						Price:      testNumeric(req.Price),
						IsActive:   true,
						Inserted:   inserted,
					}, nil
				},
			}

			rr := doAuthRequest(t, setupCatalogRouter(svc), "PUT", "/catalog/items/"+itemID.String(),
				map[string]string{"category_id": categoryID.String(), "name": "Es Teh", "price": "5000"}, managerClaims())
			expectStatus(t, rr, want)

			if got.ID != itemID || got.CategoryID != categoryID.String() || got.Price != "5000" {
				t.Errorf("request = %+v", got)
			}
			resp := decodeResponse(t, rr)
			if resp["price"] != "5000.00" || resp["is_active"] != true {
				t.Errorf("response = %v", resp)
			}
		})
	}
}

func TestPutMenuItem_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"bad id", "/catalog/items/not-a-uuid", nil, http.StatusBadRequest},
		{"bad price", "/catalog/items/" + uuid.NewString(), service.ErrInvalidPrice, http.StatusBadRequest},
		{"unknown category", "/catalog/items/" + uuid.NewString(), service.ErrCategoryNotFound, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockCatalogService{
				itemFn: func(context.Context, service.MenuItemRequest) (database.UpsertMenuItemRow, error) {
					return database.UpsertMenuItemRow{}, tc.err
				},
			}
			rr := doAuthRequest(t, setupCatalogRouter(svc), "PUT", tc.path,
				map[string]string{"category_id": uuid.NewString(), "name": "x", "price": "-1"}, managerClaims())
			expectStatus(t, rr, tc.want)
		})
	}
}

func TestPutCategory(t *testing.T) {
	id := uuid.New()
	svc := &mockCatalogService{
		categoryFn: func(_ context.Context, got uuid.UUID, name string) (database.Category, error) {
			return database.Category{ID: got, Name: name}, nil
		},
	}

	rr := doAuthRequest(t, setupCatalogRouter(svc), "PUT", "/catalog/categories/"+id.String(), map[string]string{"name": "Drinks"}, managerClaims())
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["id"] != id.String() || resp["name"] != "Drinks" {
		t.Errorf("response = %v", resp)
	}
}

func TestDeleteMenuItem(t *testing.T) {
	known := uuid.New()
	svc := &mockCatalogService{
		deleteFn: func(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
			if id != known {
				return database.MenuItem{}, service.ErrNotFound
			}
			return database.MenuItem{ID: id}, nil
		},
	}
	router := setupCatalogRouter(svc)

	rr := doAuthRequest(t, router, "DELETE", "/catalog/items/"+known.String(), nil, managerClaims())
	expectStatus(t, rr, http.StatusNoContent)

	rr = doAuthRequest(t, router, "DELETE", "/catalog/items/"+uuid.NewString(), nil, managerClaims())
	expectStatus(t, rr, http.StatusNotFound)
}
