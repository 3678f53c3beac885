package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, ordered_by, status, total_price, pickup_time, payment_method, paid_amount, paid_at, paid_by, shift_id, created_at, updated_at, cancelled_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderedBy,
		&i.Status,
		&i.TotalPrice,
		&i.PickupTime,
		&i.PaymentMethod,
		&i.PaidAmount,
		&i.PaidAt,
		&i.PaidBy,
		&i.ShiftID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CancelledAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (ordered_by, status, total_price, pickup_time, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderedBy  uuid.UUID
	Status     OrderStatus
	TotalPrice pgtype.Numeric
	PickupTime pgtype.Timestamptz
	CreatedAt  time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderedBy,
		arg.Status,
		arg.TotalPrice,
		arg.PickupTime,
		arg.CreatedAt,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, position, menu_item_id, name, quantity, unit_price, screen_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, position, menu_item_id, name, quantity, unit_price, screen_key
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	Position   int32
	MenuItemID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  pgtype.Numeric
	ScreenKey  string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.MenuItemID,
		arg.Name,
		arg.Quantity,
		arg.UnitPrice,
		arg.ScreenKey,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Position,
		&i.MenuItemID,
		&i.Name,
		&i.Quantity,
		&i.UnitPrice,
		&i.ScreenKey,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row for the rest of the transaction.
// Every mutation of an order or its station tasks takes this lock first.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, position, menu_item_id, name, quantity, unit_price, screen_key
FROM order_items
WHERE order_id = $1
ORDER BY position
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
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

const listOrdersByOwner = `-- name: ListOrdersByOwner :many
SELECT ` + orderColumns + ` FROM orders
WHERE ordered_by = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersByOwnerParams struct {
	OrderedBy uuid.UUID
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrdersByOwner(ctx context.Context, arg ListOrdersByOwnerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByOwner, arg.OrderedBy, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status OrderStatus
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const cancelOrder = `-- name: CancelOrder :one
UPDATE orders SET status = 'CANCELLED', cancelled_at = $2, updated_at = now()
WHERE id = $1 AND status IN ('PENDING', 'SCHEDULED')
RETURNING ` + orderColumns

type CancelOrderParams struct {
	ID          uuid.UUID
	CancelledAt time.Time
}

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.CancelledAt))
}

const recordOrderPayment = `-- name: RecordOrderPayment :one
UPDATE orders SET
    payment_method = $2,
    paid_amount = $3,
    paid_at = $4,
    paid_by = $5,
    shift_id = $6,
    updated_at = now()
WHERE id = $1 AND paid_at IS NULL AND status <> 'CANCELLED'
RETURNING ` + orderColumns

type RecordOrderPaymentParams struct {
	ID            uuid.UUID
	PaymentMethod PaymentMethod
	PaidAmount    pgtype.Numeric
	PaidAt        time.Time
	PaidBy        pgtype.UUID
	ShiftID       pgtype.UUID
}

func (q *Queries) RecordOrderPayment(ctx context.Context, arg RecordOrderPaymentParams) (Order, error) {
	row := q.db.QueryRow(ctx, recordOrderPayment,
		arg.ID,
		arg.PaymentMethod,
		arg.PaidAmount,
		arg.PaidAt,
		arg.PaidBy,
		arg.ShiftID,
	)
	return scanOrder(row)
}

const releaseDueOrders = `-- name: ReleaseDueOrders :many
UPDATE orders SET status = 'PENDING', updated_at = now()
WHERE status = 'SCHEDULED' AND pickup_time <= $1
RETURNING ` + orderColumns

// ReleaseDueOrders moves every scheduled order whose pickup time is at or
// before cutoff back into the preparation flow.
func (q *Queries) ReleaseDueOrders(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := q.db.Query(ctx, releaseDueOrders, cutoff)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const getOrderTotalsInWindow = `-- name: GetOrderTotalsInWindow :one
SELECT
    COUNT(*)::bigint AS total_orders,
    COUNT(*) FILTER (WHERE status = 'COMPLETED')::bigint AS completed_orders,
    COUNT(*) FILTER (WHERE status = 'CANCELLED')::bigint AS cancelled_orders,
    COUNT(*) FILTER (WHERE paid_at IS NOT NULL)::bigint AS paid_orders,
    COALESCE(SUM(paid_amount), 0)::numeric(12,2) AS total_revenue
FROM orders
WHERE created_at >= $1 AND created_at < $2
`

type GetOrderTotalsInWindowParams struct {
	Start time.Time
	End   time.Time
}

type GetOrderTotalsInWindowRow struct {
	TotalOrders     int64
	CompletedOrders int64
	CancelledOrders int64
	PaidOrders      int64
	TotalRevenue    pgtype.Numeric
}

func (q *Queries) GetOrderTotalsInWindow(ctx context.Context, arg GetOrderTotalsInWindowParams) (GetOrderTotalsInWindowRow, error) {
	row := q.db.QueryRow(ctx, getOrderTotalsInWindow, arg.Start, arg.End)
	var i GetOrderTotalsInWindowRow
	err := row.Scan(
		&i.TotalOrders,
		&i.CompletedOrders,
		&i.CancelledOrders,
		&i.PaidOrders,
		&i.TotalRevenue,
	)
	return i, err
}
