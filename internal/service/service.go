// Package service holds the order fulfillment and shift reconciliation rules.
// Every multi-row mutation runs in one transaction; notifications are
// published only after that transaction commits.
package service

import (
	"context"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB can run queries directly and start transactions. Satisfied by *pgxpool.Pool.
type DB interface {
	database.DBTX
	TxBeginner
}

// Notifier receives events after the mutation that produced them commits.
// Satisfied by *notify.Dispatcher.
type Notifier interface {
	Publish(events ...notify.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(...notify.Event) {}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// IsStaff reports whether the actor may act on records it does not own.
func (a Actor) IsStaff() bool {
	switch a.Role {
	case enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleCashier,
		enum.UserRoleKitchen, enum.UserRoleSystem:
		return true
	}
	return false
}

func (a Actor) IsManagement() bool {
	return a.Role == enum.UserRoleOwner || a.Role == enum.UserRoleManager
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func dateToPg(d time.Time) pgtype.Date {
	y, m, day := d.Date()
	return pgtype.Date{Time: time.Date(y, m, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
