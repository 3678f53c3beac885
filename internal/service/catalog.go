package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// CatalogStore defines the DB methods behind the screen assignment and menu
// item facade.
type CatalogStore interface {
	UpsertScreen(ctx context.Context, arg database.UpsertScreenParams) (database.Screen, error)
	DeleteScreenCategories(ctx context.Context, screenKey string) error
	AssignCategoryToScreen(ctx context.Context, arg database.AssignCategoryToScreenParams) error
	ListScreenCategories(ctx context.Context, screenKey string) ([]uuid.UUID, error)
	UpsertCategory(ctx context.Context, arg database.UpsertCategoryParams) (database.Category, error)
	UpsertMenuItem(ctx context.Context, arg database.UpsertMenuItemParams) (database.UpsertMenuItemRow, error)
	DeactivateMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
}

type NewCatalogStore func(db database.DBTX) CatalogStore

// ScreenAssignment is a screen with the categories it prepares.
type ScreenAssignment struct {
	Screen      database.Screen
	CategoryIDs []uuid.UUID
}

type MenuItemRequest struct {
	ID         uuid.UUID
	CategoryID string
	Name       string
	Price      string
}

// CatalogService persists the explicit category to screen assignment used
// for fan-out, and the menu items orders are priced from.
type CatalogService struct {
	db       DB
	newStore NewCatalogStore
	notifier Notifier
	now      func() time.Time
}

func NewCatalogService(db DB, newStore NewCatalogStore, notifier Notifier) *CatalogService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CatalogService{db: db, newStore: newStore, notifier: notifier, now: time.Now}
}

// PutScreen creates or renames a screen and replaces its category set.
// A category assigned here moves off any screen that held it before.
func (s *CatalogService) PutScreen(ctx context.Context, key, name string, categoryIDs []string) (*ScreenAssignment, error) {
	key = strings.TrimSpace(key)
	name = strings.TrimSpace(name)
	if key == "" || name == "" {
		return nil, ErrInvalidName
	}
	ids := make([]uuid.UUID, 0, len(categoryIDs))
	for _, raw := range categoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, raw)
		}
		ids = append(ids, id)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	screen, err := store.UpsertScreen(ctx, database.UpsertScreenParams{ScreenKey: key, Name: name})
	if err != nil {
		return nil, fmt.Errorf("upsert screen: %w", err)
	}
	if err := store.DeleteScreenCategories(ctx, key); err != nil {
		return nil, fmt.Errorf("clear screen categories: %w", err)
	}
	for _, id := range ids {
		if err := store.AssignCategoryToScreen(ctx, database.AssignCategoryToScreenParams{CategoryID: id, ScreenKey: key}); err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
			}
			return nil, fmt.Errorf("assign category: %w", err)
		}
	}
	assigned, err := store.ListScreenCategories(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list screen categories: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ScreenAssignment{Screen: screen, CategoryIDs: assigned}, nil
}

func (s *CatalogService) PutCategory(ctx context.Context, id uuid.UUID, name string) (database.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Category{}, ErrInvalidName
	}
	cat, err := s.newStore(s.db).UpsertCategory(ctx, database.UpsertCategoryParams{ID: id, Name: name})
	if err != nil {
		return database.Category{}, fmt.Errorf("upsert category: %w", err)
	}
	return cat, nil
}

// PutMenuItem creates or updates a menu item and tells management and the
// item's screen.
func (s *CatalogService) PutMenuItem(ctx context.Context, req MenuItemRequest) (database.UpsertMenuItemRow, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.UpsertMenuItemRow{}, ErrInvalidName
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return database.UpsertMenuItemRow{}, ErrCategoryNotFound
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return database.UpsertMenuItemRow{}, ErrInvalidPrice
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.UpsertMenuItemRow{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.UpsertMenuItem(ctx, database.UpsertMenuItemParams{
		ID:         req.ID,
		CategoryID: categoryID,
		Name:       name,
		Price:      decimalToNumeric(price),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return database.UpsertMenuItemRow{}, ErrCategoryNotFound
		}
		return database.UpsertMenuItemRow{}, fmt.Errorf("upsert menu item: %w", err)
	}
	routed, err := store.GetMenuItemForOrder(ctx, item.ID)
	if err != nil {
		return database.UpsertMenuItemRow{}, fmt.Errorf("get menu item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.UpsertMenuItemRow{}, fmt.Errorf("commit tx: %w", err)
	}

	event := enum.EventMenuItemUpdated
	if item.Inserted {
		event = enum.EventMenuItemCreated
	}
	s.publishItemEvent(event, item, routed.ScreenKey.String)
	return item, nil
}

// DeleteMenuItem deactivates a menu item. Existing orders keep their lines.
func (s *CatalogService) DeleteMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	routed, err := store.GetMenuItemForOrder(ctx, id)
	if err != nil {
		return database.MenuItem{}, notFound(err)
	}
	item, err := store.DeactivateMenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, ErrNotFound
		}
		return database.MenuItem{}, fmt.Errorf("deactivate menu item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuItem{}, fmt.Errorf("commit tx: %w", err)
	}

	s.publishItemEvent(enum.EventMenuItemDeleted, item, routed.ScreenKey.String)
	return item, nil
}

func (s *CatalogService) publishItemEvent(name string, payload any, screenKey string) {
	now := s.now()
	events := []notify.Event{{Target: notify.Management(), Name: name, Payload: payload, At: now}}
	if screenKey != "" {
		events = append(events, notify.Event{Target: notify.Screen(screenKey), Name: name, Payload: payload, At: now})
	}
	s.notifier.Publish(events...)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
