package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getDayClosing = `-- name: GetDayClosing :one
SELECT business_date, closed_by, closed_at FROM day_closings
WHERE business_date = $1
`

func (q *Queries) GetDayClosing(ctx context.Context, businessDate pgtype.Date) (DayClosing, error) {
	row := q.db.QueryRow(ctx, getDayClosing, businessDate)
	var i DayClosing
	err := row.Scan(&i.BusinessDate, &i.ClosedBy, &i.ClosedAt)
	return i, err
}

const createDayClosing = `-- name: CreateDayClosing :one
INSERT INTO day_closings (business_date, closed_by, closed_at)
VALUES ($1, $2, $3)
ON CONFLICT (business_date) DO NOTHING
RETURNING business_date, closed_by, closed_at
`

type CreateDayClosingParams struct {
	BusinessDate pgtype.Date
	ClosedBy     uuid.UUID
	ClosedAt     time.Time
}

// CreateDayClosing returns pgx.ErrNoRows when the date is already closed.
func (q *Queries) CreateDayClosing(ctx context.Context, arg CreateDayClosingParams) (DayClosing, error) {
	row := q.db.QueryRow(ctx, createDayClosing, arg.BusinessDate, arg.ClosedBy, arg.ClosedAt)
	var i DayClosing
	err := row.Scan(&i.BusinessDate, &i.ClosedBy, &i.ClosedAt)
	return i, err
}

const lockBusinessDate = `-- name: LockBusinessDate :exec
SELECT pg_advisory_xact_lock(hashtext('business_date:' || $1::date::text))
`

// LockBusinessDate takes the exclusive lock used by day closing. It waits
// for every transaction holding the shared lock on the same date and blocks
// new ones until the surrounding transaction ends.
func (q *Queries) LockBusinessDate(ctx context.Context, businessDate pgtype.Date) error {
	_, err := q.db.Exec(ctx, lockBusinessDate, businessDate)
	return err
}

const lockBusinessDateShared = `-- name: LockBusinessDateShared :exec
SELECT pg_advisory_xact_lock_shared(hashtext('business_date:' || $1::date::text))
`

// LockBusinessDateShared is taken by order creation and shift opening so they
// run concurrently with each other but never alongside a close of that date.
func (q *Queries) LockBusinessDateShared(ctx context.Context, businessDate pgtype.Date) error {
	_, err := q.db.Exec(ctx, lockBusinessDateShared, businessDate)
	return err
}
