package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertScreen = `-- name: UpsertScreen :one
INSERT INTO screens (screen_key, name)
VALUES ($1, $2)
ON CONFLICT (screen_key) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
RETURNING screen_key, name, created_at, updated_at
`

type UpsertScreenParams struct {
	ScreenKey string
	Name      string
}

func (q *Queries) UpsertScreen(ctx context.Context, arg UpsertScreenParams) (Screen, error) {
	row := q.db.QueryRow(ctx, upsertScreen, arg.ScreenKey, arg.Name)
	var i Screen
	err := row.Scan(
		&i.ScreenKey,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getScreen = `-- name: GetScreen :one
SELECT screen_key, name, created_at, updated_at FROM screens
WHERE screen_key = $1
`

func (q *Queries) GetScreen(ctx context.Context, screenKey string) (Screen, error) {
	row := q.db.QueryRow(ctx, getScreen, screenKey)
	var i Screen
	err := row.Scan(
		&i.ScreenKey,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteScreenCategories = `-- name: DeleteScreenCategories :exec
DELETE FROM screen_categories WHERE screen_key = $1
`

func (q *Queries) DeleteScreenCategories(ctx context.Context, screenKey string) error {
	_, err := q.db.Exec(ctx, deleteScreenCategories, screenKey)
	return err
}

const assignCategoryToScreen = `-- name: AssignCategoryToScreen :exec
INSERT INTO screen_categories (category_id, screen_key)
VALUES ($1, $2)
ON CONFLICT (category_id) DO UPDATE SET screen_key = EXCLUDED.screen_key
`

type AssignCategoryToScreenParams struct {
	CategoryID uuid.UUID
	ScreenKey  string
}

func (q *Queries) AssignCategoryToScreen(ctx context.Context, arg AssignCategoryToScreenParams) error {
	_, err := q.db.Exec(ctx, assignCategoryToScreen, arg.CategoryID, arg.ScreenKey)
	return err
}

const listScreenCategories = `-- name: ListScreenCategories :many
SELECT category_id FROM screen_categories
WHERE screen_key = $1
ORDER BY category_id
`

func (q *Queries) ListScreenCategories(ctx context.Context, screenKey string) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listScreenCategories, screenKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []uuid.UUID{}
	for rows.Next() {
		var category_id uuid.UUID
		if err := rows.Scan(&category_id); err != nil {
			return nil, err
		}
		items = append(items, category_id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCategory = `-- name: UpsertCategory :one
INSERT INTO categories (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name, created_at
`

type UpsertCategoryParams struct {
	ID   uuid.UUID
	Name string
}

func (q *Queries) UpsertCategory(ctx context.Context, arg UpsertCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, upsertCategory, arg.ID, arg.Name)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const upsertMenuItem = `-- name: UpsertMenuItem :one
INSERT INTO menu_items (id, category_id, name, price, is_active)
VALUES ($1, $2, $3, $4, true)
ON CONFLICT (id) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    is_active = true,
    updated_at = now()
RETURNING id, category_id, name, price, is_active, created_at, updated_at, (xmax = 0) AS inserted
`

type UpsertMenuItemParams struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Price      pgtype.Numeric
}

type UpsertMenuItemRow struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Inserted   bool
}

func (q *Queries) UpsertMenuItem(ctx context.Context, arg UpsertMenuItemParams) (UpsertMenuItemRow, error) {
	row := q.db.QueryRow(ctx, upsertMenuItem,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Price,
	)
	var i UpsertMenuItemRow
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Inserted,
	)
	return i, err
}

const deactivateMenuItem = `-- name: DeactivateMenuItem :one
UPDATE menu_items SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active
RETURNING id, category_id, name, price, is_active, created_at, updated_at
`

// DeactivateMenuItem hides an item from ordering. Order lines keep their own
// copy of name and price, so rows are never deleted.
func (q *Queries) DeactivateMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, deactivateMenuItem, id)
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getMenuItemForOrder = `-- name: GetMenuItemForOrder :one
SELECT m.id, m.name, m.price, m.category_id, sc.screen_key
FROM menu_items m
LEFT JOIN screen_categories sc ON sc.category_id = m.category_id
WHERE m.id = $1 AND m.is_active = true
`

type GetMenuItemForOrderRow struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	CategoryID uuid.UUID
	ScreenKey  pgtype.Text
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, id)
	var i GetMenuItemForOrderRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.CategoryID,
		&i.ScreenKey,
	)
	return i, err
}
