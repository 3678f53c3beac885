package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/notify"
	"github.com/canteen-pos/api/internal/opday"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const activeShiftConstraint = "shifts_one_active_per_user"

// ShiftStore defines the DB methods the shift ledger needs.
type ShiftStore interface {
	CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error)
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetShiftForUpdate(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetActiveShiftByUser(ctx context.Context, userID uuid.UUID) (database.Shift, error)
	UpdateShiftStatus(ctx context.Context, arg database.UpdateShiftStatusParams) (database.Shift, error)
	ConfirmShift(ctx context.Context, arg database.ConfirmShiftParams) (database.Shift, error)
	GetDayClosing(ctx context.Context, businessDate pgtype.Date) (database.DayClosing, error)
	LockBusinessDateShared(ctx context.Context, businessDate pgtype.Date) error
}

type NewShiftStore func(db database.DBTX) ShiftStore

// ShiftService drives a cashier shift from opening through reconciliation.
type ShiftService struct {
	db       DB
	newStore NewShiftStore
	calendar *opday.Calendar
	notifier Notifier
	now      func() time.Time
}

func NewShiftService(db DB, newStore NewShiftStore, calendar *opday.Calendar, notifier Notifier) *ShiftService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ShiftService{db: db, newStore: newStore, calendar: calendar, notifier: notifier, now: time.Now}
}

// Discrepancy is counted cash minus the system cash total. Negative means a
// shortage.
func Discrepancy(staffCash, systemCash decimal.Decimal) decimal.Decimal {
	return staffCash.Sub(systemCash)
}

func (s *ShiftService) OpenShift(ctx context.Context, userID uuid.UUID) (database.Shift, error) {
	now := s.now()
	date := s.calendar.Date(now)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.Shift{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Held until commit so a concurrent close of the same day cannot miss
	// this shift.
	if err := store.LockBusinessDateShared(ctx, dateToPg(date)); err != nil {
		return database.Shift{}, fmt.Errorf("lock business date: %w", err)
	}
	if err := ensureDayOpen(ctx, store, date); err != nil {
		return database.Shift{}, err
	}

	if _, err := store.GetActiveShiftByUser(ctx, userID); err == nil {
		return database.Shift{}, ErrActiveShiftExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Shift{}, fmt.Errorf("get active shift: %w", err)
	}

	shift, err := store.CreateShift(ctx, database.CreateShiftParams{UserID: userID, OpenedAt: now})
	if err != nil {
		if isUniqueViolation(err, activeShiftConstraint) {
			return database.Shift{}, ErrActiveShiftExists
		}
		return database.Shift{}, fmt.Errorf("create shift: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err, activeShiftConstraint) {
			return database.Shift{}, ErrActiveShiftExists
		}
		return database.Shift{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(notify.Event{Target: notify.Management(), Name: enum.EventShiftOpened, Payload: shift, At: now})
	return shift, nil
}

// StartDeclare moves Open to Declaring. Calling it again while Declaring
// returns the shift unchanged.
func (s *ShiftService) StartDeclare(ctx context.Context, shiftID uuid.UUID, by Actor) (database.Shift, error) {
	return s.step(ctx, shiftID, by, func(store ShiftStore, shift database.Shift, now time.Time) (database.Shift, error) {
		switch shift.Status {
		case database.ShiftStatusDECLARING:
			return shift, nil
		case database.ShiftStatusOPEN:
			return s.move(ctx, store, shift, database.ShiftStatusDECLARING, now)
		}
		return database.Shift{}, fmt.Errorf("%w: shift is %s", ErrInvalidTransition, shift.Status)
	})
}

// StartCounting moves Declaring to Counting.
func (s *ShiftService) StartCounting(ctx context.Context, shiftID uuid.UUID, by Actor) (database.Shift, error) {
	return s.step(ctx, shiftID, by, func(store ShiftStore, shift database.Shift, now time.Time) (database.Shift, error) {
		if shift.Status != database.ShiftStatusDECLARING {
			return database.Shift{}, fmt.Errorf("%w: shift is %s", ErrInvalidTransition, shift.Status)
		}
		return s.move(ctx, store, shift, database.ShiftStatusCOUNTING, now)
	})
}

// Confirm records the counted cash and QR figures and fixes the discrepancy.
func (s *ShiftService) Confirm(ctx context.Context, shiftID uuid.UUID, cash, qr decimal.Decimal, by Actor) (database.Shift, error) {
	if cash.IsNegative() || qr.IsNegative() {
		return database.Shift{}, ErrInvalidAmount
	}
	return s.step(ctx, shiftID, by, func(store ShiftStore, shift database.Shift, now time.Time) (database.Shift, error) {
		switch shift.Status {
		case database.ShiftStatusOPEN, database.ShiftStatusDECLARING:
			return database.Shift{}, ErrMissingCount
		case database.ShiftStatusCOUNTING:
		default:
			return database.Shift{}, fmt.Errorf("%w: shift is %s", ErrInvalidTransition, shift.Status)
		}

		confirmed, err := store.ConfirmShift(ctx, database.ConfirmShiftParams{
			ID:              shift.ID,
			StaffCashInput:  decimalToNumeric(cash),
			StaffQrInput:    decimalToNumeric(qr),
			CashDiscrepancy: decimalToNumeric(Discrepancy(cash, numericToDecimal(shift.SystemCashTotal))),
			ConfirmedAt:     now,
		})
		if err != nil {
			return database.Shift{}, fmt.Errorf("confirm shift: %w", err)
		}
		return confirmed, nil
	})
}

// CloseShift moves Confirmed to Closed, after which the shift is immutable.
// A nonzero discrepancy does not block closing.
func (s *ShiftService) CloseShift(ctx context.Context, shiftID uuid.UUID, by Actor) (database.Shift, error) {
	shift, err := s.step(ctx, shiftID, by, func(store ShiftStore, shift database.Shift, now time.Time) (database.Shift, error) {
		if shift.Status != database.ShiftStatusCONFIRMED {
			return database.Shift{}, fmt.Errorf("%w: shift is %s", ErrInvalidTransition, shift.Status)
		}
		return s.move(ctx, store, shift, database.ShiftStatusCLOSED, now)
	})
	if err != nil {
		return database.Shift{}, err
	}
	s.notifier.Publish(notify.Event{Target: notify.Management(), Name: enum.EventShiftClosed, Payload: shift, At: s.now()})
	return shift, nil
}

// Current returns the caller's active shift.
func (s *ShiftService) Current(ctx context.Context, userID uuid.UUID) (database.Shift, error) {
	shift, err := s.newStore(s.db).GetActiveShiftByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Shift{}, ErrNoActiveShift
		}
		return database.Shift{}, fmt.Errorf("get active shift: %w", err)
	}
	return shift, nil
}

func (s *ShiftService) Get(ctx context.Context, shiftID uuid.UUID, by Actor) (database.Shift, error) {
	shift, err := s.newStore(s.db).GetShift(ctx, shiftID)
	if err != nil {
		return database.Shift{}, notFound(err)
	}
	if shift.UserID != by.UserID && !by.IsManagement() {
		return database.Shift{}, ErrForbidden
	}
	return shift, nil
}

type shiftStep func(store ShiftStore, shift database.Shift, now time.Time) (database.Shift, error)

// step runs one reconciliation transition under the shift's row lock.
func (s *ShiftService) step(ctx context.Context, shiftID uuid.UUID, by Actor, fn shiftStep) (database.Shift, error) {
	now := s.now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.Shift{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetShiftForUpdate(ctx, shiftID)
	if err != nil {
		return database.Shift{}, notFound(err)
	}
	if shift.UserID != by.UserID && !by.IsManagement() {
		return database.Shift{}, ErrForbidden
	}

	updated, err := fn(store, shift, now)
	if err != nil {
		return database.Shift{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Shift{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

func (s *ShiftService) move(ctx context.Context, store ShiftStore, shift database.Shift, to database.ShiftStatus, now time.Time) (database.Shift, error) {
	updated, err := store.UpdateShiftStatus(ctx, database.UpdateShiftStatusParams{
		ID:     shift.ID,
		Status: to,
		From:   shift.Status,
		At:     now,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Shift{}, ErrInvalidTransition
		}
		return database.Shift{}, fmt.Errorf("update shift status: %w", err)
	}
	return updated, nil
}
