package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const shiftColumns = `id, user_id, status, system_cash_total, system_qr_total, system_online_total, staff_cash_input, staff_qr_input, cash_discrepancy, opened_at, counting_started_at, confirmed_at, closed_at`

func scanShift(row rowScanner) (Shift, error) {
	var i Shift
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.SystemCashTotal,
		&i.SystemQrTotal,
		&i.SystemOnlineTotal,
		&i.StaffCashInput,
		&i.StaffQrInput,
		&i.CashDiscrepancy,
		&i.OpenedAt,
		&i.CountingStartedAt,
		&i.ConfirmedAt,
		&i.ClosedAt,
	)
	return i, err
}

const createShift = `-- name: CreateShift :one
INSERT INTO shifts (user_id, status, opened_at)
VALUES ($1, 'OPEN', $2)
RETURNING ` + shiftColumns

type CreateShiftParams struct {
	UserID   uuid.UUID
	OpenedAt time.Time
}

func (q *Queries) CreateShift(ctx context.Context, arg CreateShiftParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, createShift, arg.UserID, arg.OpenedAt))
}

const getShift = `-- name: GetShift :one
SELECT ` + shiftColumns + ` FROM shifts
WHERE id = $1
`

func (q *Queries) GetShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getShift, id))
}

const getShiftForUpdate = `-- name: GetShiftForUpdate :one
SELECT ` + shiftColumns + ` FROM shifts
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetShiftForUpdate(ctx context.Context, id uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getShiftForUpdate, id))
}

const getActiveShiftByUser = `-- name: GetActiveShiftByUser :one
SELECT ` + shiftColumns + ` FROM shifts
WHERE user_id = $1 AND status <> 'CLOSED'
`

// GetActiveShiftByUser is the (user -> active shift) index. The partial
// unique index shifts_one_active_per_user guarantees at most one row.
func (q *Queries) GetActiveShiftByUser(ctx context.Context, userID uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getActiveShiftByUser, userID))
}

const getLatestActiveShift = `-- name: GetLatestActiveShift :one
SELECT ` + shiftColumns + ` FROM shifts
WHERE status <> 'CLOSED'
ORDER BY opened_at DESC
LIMIT 1
`

func (q *Queries) GetLatestActiveShift(ctx context.Context) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getLatestActiveShift))
}

const addShiftTotals = `-- name: AddShiftTotals :one
UPDATE shifts SET
    system_cash_total = system_cash_total + $2,
    system_qr_total = system_qr_total + $3,
    system_online_total = system_online_total + $4
WHERE id = $1
  AND (status = 'OPEN' OR (status <> 'CLOSED' AND $2::numeric = 0 AND $3::numeric = 0))
RETURNING ` + shiftColumns

type AddShiftTotalsParams struct {
	ID     uuid.UUID
	Cash   pgtype.Numeric
	Qr     pgtype.Numeric
	Online pgtype.Numeric
}

// AddShiftTotals increments in place so concurrent payments never overwrite
// each other's contribution. Cash and QR only count while the shift is OPEN;
// online amounts are accepted until it closes.
func (q *Queries) AddShiftTotals(ctx context.Context, arg AddShiftTotalsParams) (Shift, error) {
	row := q.db.QueryRow(ctx, addShiftTotals,
		arg.ID,
		arg.Cash,
		arg.Qr,
		arg.Online,
	)
	return scanShift(row)
}

const updateShiftStatus = `-- name: UpdateShiftStatus :one
UPDATE shifts SET
    status = $2::text,
    counting_started_at = CASE WHEN $2::text = 'COUNTING' THEN $4 ELSE counting_started_at END,
    closed_at = CASE WHEN $2::text = 'CLOSED' THEN $4 ELSE closed_at END
WHERE id = $1 AND status = $3::text
RETURNING ` + shiftColumns

type UpdateShiftStatusParams struct {
	ID     uuid.UUID
	Status ShiftStatus
	From   ShiftStatus
	At     time.Time
}

func (q *Queries) UpdateShiftStatus(ctx context.Context, arg UpdateShiftStatusParams) (Shift, error) {
	row := q.db.QueryRow(ctx, updateShiftStatus,
		arg.ID,
		arg.Status,
		arg.From,
		arg.At,
	)
	return scanShift(row)
}

const confirmShift = `-- name: ConfirmShift :one
UPDATE shifts SET
    status = 'CONFIRMED',
    staff_cash_input = $2,
    staff_qr_input = $3,
    cash_discrepancy = $4,
    confirmed_at = $5
WHERE id = $1 AND status = 'COUNTING'
RETURNING ` + shiftColumns

type ConfirmShiftParams struct {
	ID              uuid.UUID
	StaffCashInput  pgtype.Numeric
	StaffQrInput    pgtype.Numeric
	CashDiscrepancy pgtype.Numeric
	ConfirmedAt     time.Time
}

func (q *Queries) ConfirmShift(ctx context.Context, arg ConfirmShiftParams) (Shift, error) {
	row := q.db.QueryRow(ctx, confirmShift,
		arg.ID,
		arg.StaffCashInput,
		arg.StaffQrInput,
		arg.CashDiscrepancy,
		arg.ConfirmedAt,
	)
	return scanShift(row)
}

const listShiftsOpenedBetween = `-- name: ListShiftsOpenedBetween :many
SELECT ` + shiftColumns + ` FROM shifts
WHERE opened_at >= $1 AND opened_at < $2
ORDER BY opened_at
`

type ListShiftsOpenedBetweenParams struct {
	Start time.Time
	End   time.Time
}

func (q *Queries) ListShiftsOpenedBetween(ctx context.Context, arg ListShiftsOpenedBetweenParams) ([]Shift, error) {
	rows, err := q.db.Query(ctx, listShiftsOpenedBetween, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Shift{}
	for rows.Next() {
		i, err := scanShift(rows)
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
