package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stationTaskColumns = `order_id, screen_key, status, started_at, ready_at, completed_at, created_at, updated_at`

func scanStationTask(row rowScanner) (StationTask, error) {
	var i StationTask
	err := row.Scan(
		&i.OrderID,
		&i.ScreenKey,
		&i.Status,
		&i.StartedAt,
		&i.ReadyAt,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createStationTask = `-- name: CreateStationTask :one
INSERT INTO station_tasks (order_id, screen_key, status, created_at, updated_at)
VALUES ($1, $2, 'PENDING', $3, $3)
RETURNING ` + stationTaskColumns

type CreateStationTaskParams struct {
	OrderID   uuid.UUID
	ScreenKey string
	CreatedAt time.Time
}

func (q *Queries) CreateStationTask(ctx context.Context, arg CreateStationTaskParams) (StationTask, error) {
	return scanStationTask(q.db.QueryRow(ctx, createStationTask, arg.OrderID, arg.ScreenKey, arg.CreatedAt))
}

const getStationTask = `-- name: GetStationTask :one
SELECT ` + stationTaskColumns + ` FROM station_tasks
WHERE order_id = $1 AND screen_key = $2
`

type GetStationTaskParams struct {
	OrderID   uuid.UUID
	ScreenKey string
}

func (q *Queries) GetStationTask(ctx context.Context, arg GetStationTaskParams) (StationTask, error) {
	return scanStationTask(q.db.QueryRow(ctx, getStationTask, arg.OrderID, arg.ScreenKey))
}

const listStationTasksByOrder = `-- name: ListStationTasksByOrder :many
SELECT ` + stationTaskColumns + ` FROM station_tasks
WHERE order_id = $1
ORDER BY screen_key
`

func (q *Queries) ListStationTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]StationTask, error) {
	rows, err := q.db.Query(ctx, listStationTasksByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StationTask{}
	for rows.Next() {
		i, err := scanStationTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateStationTaskStatus = `-- name: UpdateStationTaskStatus :one
UPDATE station_tasks SET
    status = $3::text,
    started_at = CASE WHEN $3::text IN ('PREPARING', 'READY', 'COMPLETED') THEN COALESCE(started_at, $4) ELSE started_at END,
    ready_at = CASE WHEN $3::text IN ('READY', 'COMPLETED') THEN COALESCE(ready_at, $4) ELSE ready_at END,
    completed_at = CASE WHEN $3::text = 'COMPLETED' THEN COALESCE(completed_at, $4) ELSE completed_at END,
    updated_at = now()
WHERE order_id = $1 AND screen_key = $2
RETURNING ` + stationTaskColumns

type UpdateStationTaskStatusParams struct {
	OrderID   uuid.UUID
	ScreenKey string
	Status    StationTaskStatus
	At        time.Time
}

// UpdateStationTaskStatus stamps each lifecycle timestamp only on its first
// entry, so a timestamp once set is never overwritten.
func (q *Queries) UpdateStationTaskStatus(ctx context.Context, arg UpdateStationTaskStatusParams) (StationTask, error) {
	row := q.db.QueryRow(ctx, updateStationTaskStatus,
		arg.OrderID,
		arg.ScreenKey,
		arg.Status,
		arg.At,
	)
	return scanStationTask(row)
}

const listStationQueue = `-- name: ListStationQueue :many
SELECT st.order_id, st.screen_key, st.status, st.started_at, st.ready_at, st.completed_at, st.created_at, st.updated_at,
       o.status AS order_status, o.ordered_by, o.pickup_time
FROM station_tasks st
JOIN orders o ON o.id = st.order_id
WHERE st.screen_key = $1
  AND o.status NOT IN ('SCHEDULED', 'CANCELLED')
  AND ($2::text IS NULL OR st.status = $2::text)
ORDER BY COALESCE(o.pickup_time, o.created_at), o.created_at
LIMIT $3
`

type ListStationQueueParams struct {
	ScreenKey string
	Status    NullStationTaskStatus
	Limit     int32
}

type ListStationQueueRow struct {
	StationTask StationTask
	OrderStatus OrderStatus
	OrderedBy   uuid.UUID
	PickupTime  pgtype.Timestamptz
}

func (q *Queries) ListStationQueue(ctx context.Context, arg ListStationQueueParams) ([]ListStationQueueRow, error) {
	rows, err := q.db.Query(ctx, listStationQueue, arg.ScreenKey, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListStationQueueRow{}
	for rows.Next() {
		var i ListStationQueueRow
		if err := rows.Scan(
			&i.StationTask.OrderID,
			&i.StationTask.ScreenKey,
			&i.StationTask.Status,
			&i.StationTask.StartedAt,
			&i.StationTask.ReadyAt,
			&i.StationTask.CompletedAt,
			&i.StationTask.CreatedAt,
			&i.StationTask.UpdatedAt,
			&i.OrderStatus,
			&i.OrderedBy,
			&i.PickupTime,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemsByScreen = `-- name: ListOrderItemsByScreen :many
SELECT id, order_id, position, menu_item_id, name, quantity, unit_price, screen_key
FROM order_items
WHERE order_id = $1 AND screen_key = $2
ORDER BY position
`

type ListOrderItemsByScreenParams struct {
	OrderID   uuid.UUID
	ScreenKey string
}

func (q *Queries) ListOrderItemsByScreen(ctx context.Context, arg ListOrderItemsByScreenParams) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByScreen, arg.OrderID, arg.ScreenKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Position,
			&i.MenuItemID,
			&i.Name,
			&i.Quantity,
			&i.UnitPrice,
			&i.ScreenKey,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
