package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Validation errors.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidItemID        = errors.New("invalid item_id")
	ErrItemNotFound         = errors.New("menu item not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrUnroutableItem       = errors.New("menu item is not assigned to any screen")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidAmount        = errors.New("amount must be >= 0")
	ErrInvalidName          = errors.New("name is required")
	ErrInvalidPrice         = errors.New("price must be >= 0")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
)

// Invalid transitions.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrWrongState        = errors.New("station task is not in the required state")
	ErrMissingCount      = errors.New("shift must be counting before it can be confirmed")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrOrderNotReleased  = errors.New("order is scheduled and not yet released to stations")
)

// Conflicts.
var (
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrActiveShiftExists = errors.New("user already has an active shift")
	ErrAlreadyClosed     = errors.New("operational day is already closed")
)

// Precondition failures.
var (
	ErrShiftsStillOpen = errors.New("shifts for this day are still open")
	ErrDayLocked       = errors.New("daily close window is active")
	ErrDayClosed       = errors.New("operational day is closed")
	ErrFutureDay       = errors.New("operational day has not started yet")
	ErrNoActiveShift   = errors.New("no active shift")
	ErrAmountMismatch  = errors.New("payment amount does not match order total")
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// OpenShiftsError lists the shifts that keep a day from closing.
// It matches ErrShiftsStillOpen under errors.Is.
type OpenShiftsError struct {
	ShiftIDs []uuid.UUID
}

func (e *OpenShiftsError) Error() string {
	ids := make([]string, len(e.ShiftIDs))
	for i, id := range e.ShiftIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrShiftsStillOpen, strings.Join(ids, ", "))
}

func (e *OpenShiftsError) Unwrap() error { return ErrShiftsStillOpen }

// notFound maps pgx.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation checks for a unique constraint violation (pgconn error
// code 23505) on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
