package service

import (
	"context"
	"errors"
	"fmt"
	"log"
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

// DayStore defines the DB methods the day closing and reports need.
type DayStore interface {
	LockBusinessDate(ctx context.Context, businessDate pgtype.Date) error
	GetDayClosing(ctx context.Context, businessDate pgtype.Date) (database.DayClosing, error)
	CreateDayClosing(ctx context.Context, arg database.CreateDayClosingParams) (database.DayClosing, error)
	ListShiftsOpenedBetween(ctx context.Context, arg database.ListShiftsOpenedBetweenParams) ([]database.Shift, error)
	GetOrderTotalsInWindow(ctx context.Context, arg database.GetOrderTotalsInWindowParams) (database.GetOrderTotalsInWindowRow, error)
}

type NewDayStore func(db database.DBTX) DayStore

// ReportCache keeps the final report of closed days.
type ReportCache interface {
	GetReport(date string) (*DailyReport, bool, error)
	PutReport(report *DailyReport) error
}

// DailyReport aggregates one operational day. Order figures cover orders
// created inside the day's window; shift figures cover shifts opened in it.
type DailyReport struct {
	Date            string          `json:"date"`
	TotalOrders     int64           `json:"total_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	CancelledOrders int64           `json:"cancelled_orders"`
	PaidOrders      int64           `json:"paid_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	CashTotal       decimal.Decimal `json:"cash_total"`
	QrTotal         decimal.Decimal `json:"qr_total"`
	OnlineTotal     decimal.Decimal `json:"online_total"`
	CashDiscrepancy decimal.Decimal `json:"cash_discrepancy"`
	ShiftCount      int             `json:"shift_count"`
	Closed          bool            `json:"closed"`
	ClosedAt        *time.Time      `json:"closed_at"`
}

type DayStatus struct {
	Date                   string     `json:"date"`
	CurrentOperationalDate string     `json:"current_operational_date"`
	IsLockedNow            bool       `json:"is_locked_now"`
	IsClosed               bool       `json:"is_closed"`
	ClosedAt               *time.Time `json:"closed_at"`
}

type DayService struct {
	db       DB
	newStore NewDayStore
	calendar *opday.Calendar
	cache    ReportCache
	notifier Notifier
	now      func() time.Time
}

func NewDayService(db DB, newStore NewDayStore, calendar *opday.Calendar, cache ReportCache, notifier Notifier) *DayService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &DayService{db: db, newStore: newStore, calendar: calendar, cache: cache, notifier: notifier, now: time.Now}
}

// CloseDay records the close of an operational date once every shift opened
// in it is closed, and freezes its report.
func (s *DayService) CloseDay(ctx context.Context, date time.Time, by Actor) (*DailyReport, error) {
	now := s.now()
	if s.calendar.IsLocked(now) {
		return nil, ErrDayLocked
	}
	if date.After(s.calendar.Date(now)) {
		return nil, ErrFutureDay
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	pgDate := dateToPg(date)

	if err := store.LockBusinessDate(ctx, pgDate); err != nil {
		return nil, fmt.Errorf("lock business date: %w", err)
	}
	if _, err := store.GetDayClosing(ctx, pgDate); err == nil {
		return nil, ErrAlreadyClosed
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get day closing: %w", err)
	}

	start, end := s.calendar.Bounds(date)
	shifts, err := store.ListShiftsOpenedBetween(ctx, database.ListShiftsOpenedBetweenParams{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	var open []uuid.UUID
	for _, sh := range shifts {
		if sh.Status != database.ShiftStatusCLOSED {
			open = append(open, sh.ID)
		}
	}
	if len(open) > 0 {
		return nil, &OpenShiftsError{ShiftIDs: open}
	}

	closing, err := store.CreateDayClosing(ctx, database.CreateDayClosingParams{
		BusinessDate: pgDate,
		ClosedBy:     by.UserID,
		ClosedAt:     now,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyClosed
		}
		return nil, fmt.Errorf("create day closing: %w", err)
	}

	report, err := s.buildReport(ctx, store, date, shifts)
	if err != nil {
		return nil, err
	}
	closedAt := closing.ClosedAt
	report.Closed = true
	report.ClosedAt = &closedAt

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.storeReport(report)
	s.notifier.Publish(notify.Event{Target: notify.Management(), Name: enum.EventDayClosed, Payload: report, At: now})
	return report, nil
}

// DailyReport returns the aggregate for a date. Closed days are served from
// the cache once computed.
func (s *DayService) DailyReport(ctx context.Context, date time.Time) (*DailyReport, error) {
	key := opday.Format(date)
	if s.cache != nil {
		report, ok, err := s.cache.GetReport(key)
		if err != nil {
			log.Printf("ERROR: read report cache for %s: %v", key, err)
		} else if ok {
			return report, nil
		}
	}

	store := s.newStore(s.db)

	closing, closed, err := s.closing(ctx, store, date)
	if err != nil {
		return nil, err
	}

	start, end := s.calendar.Bounds(date)
	shifts, err := store.ListShiftsOpenedBetween(ctx, database.ListShiftsOpenedBetweenParams{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}

	report, err := s.buildReport(ctx, store, date, shifts)
	if err != nil {
		return nil, err
	}
	if closed {
		closedAt := closing.ClosedAt
		report.Closed = true
		report.ClosedAt = &closedAt
		s.storeReport(report)
	}
	return report, nil
}

// DayStatus reports whether date is closed alongside the current day and
// lock window.
func (s *DayService) DayStatus(ctx context.Context, date *time.Time) (*DayStatus, error) {
	now := s.now()
	current := s.calendar.Date(now)
	target := current
	if date != nil {
		target = *date
	}

	closing, closed, err := s.closing(ctx, s.newStore(s.db), target)
	if err != nil {
		return nil, err
	}

	status := &DayStatus{
		Date:                   opday.Format(target),
		CurrentOperationalDate: opday.Format(current),
		IsLockedNow:            s.calendar.IsLocked(now),
		IsClosed:               closed,
	}
	if closed {
		closedAt := closing.ClosedAt
		status.ClosedAt = &closedAt
	}
	return status, nil
}

func (s *DayService) closing(ctx context.Context, store DayStore, date time.Time) (database.DayClosing, bool, error) {
	closing, err := store.GetDayClosing(ctx, dateToPg(date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DayClosing{}, false, nil
		}
		return database.DayClosing{}, false, fmt.Errorf("get day closing: %w", err)
	}
	return closing, true, nil
}

func (s *DayService) buildReport(ctx context.Context, store DayStore, date time.Time, shifts []database.Shift) (*DailyReport, error) {
	start, end := s.calendar.Bounds(date)
	totals, err := store.GetOrderTotalsInWindow(ctx, database.GetOrderTotalsInWindowParams{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("get order totals: %w", err)
	}

	report := &DailyReport{
		Date:            opday.Format(date),
		TotalOrders:     totals.TotalOrders,
		CompletedOrders: totals.CompletedOrders,
		CancelledOrders: totals.CancelledOrders,
		PaidOrders:      totals.PaidOrders,
		TotalRevenue:    numericToDecimal(totals.TotalRevenue),
		ShiftCount:      len(shifts),
	}
	for _, sh := range shifts {
		report.CashTotal = report.CashTotal.Add(numericToDecimal(sh.SystemCashTotal))
		report.QrTotal = report.QrTotal.Add(numericToDecimal(sh.SystemQrTotal))
		report.OnlineTotal = report.OnlineTotal.Add(numericToDecimal(sh.SystemOnlineTotal))
		report.CashDiscrepancy = report.CashDiscrepancy.Add(numericToDecimal(sh.CashDiscrepancy))
	}
	return report, nil
}

func (s *DayService) storeReport(report *DailyReport) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutReport(report); err != nil {
		log.Printf("ERROR: cache report for %s: %v", report.Date, err)
	}
}
