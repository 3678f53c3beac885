package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/canteen-pos/api/internal/handler"
	"github.com/canteen-pos/api/internal/opday"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockDayService struct {
	closeFn  func(ctx context.Context, date time.Time, by service.Actor) (*service.DailyReport, error)
	reportFn func(ctx context.Context, date time.Time) (*service.DailyReport, error)
	statusFn func(ctx context.Context, date *time.Time) (*service.DayStatus, error)
}

func (m *mockDayService) CloseDay(ctx context.Context, date time.Time, by service.Actor) (*service.DailyReport, error) {
	return m.closeFn(ctx, date, by)
}

func (m *mockDayService) DailyReport(ctx context.Context, date time.Time) (*service.DailyReport, error) {
	return m.reportFn(ctx, date)
}

func (m *mockDayService) DayStatus(ctx context.Context, date *time.Time) (*service.DayStatus, error) {
	return m.statusFn(ctx, date)
}

var wib = time.FixedZone("WIB", 7*3600)

func testCalendar(t *testing.T) *opday.Calendar {
	t.Helper()
	cal, err := opday.NewCalendar(wib, 5)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return cal
}

func setupReportsRouter(t *testing.T, svc *mockDayService) *chi.Mux {
	h := handler.NewReportsHandler(svc, testCalendar(t))
	return newAuthRouter(func(r chi.Router) {
		r.Route("/reports", h.RegisterRoutes)
	})
}

func TestCloseDay_Success(t *testing.T) {
	claims := managerClaims()
	var gotDate time.Time
	var gotActor service.Actor
	svc := &mockDayService{
		closeFn: func(_ context.Context, date time.Time, by service.Actor) (*service.DailyReport, error) {
			gotDate, gotActor = date, by
			closedAt := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
			return &service.DailyReport{
				Date:         opday.Format(date),
				TotalOrders:  3,
				TotalRevenue: decimal.NewFromInt(45000),
				Closed:       true,
				ClosedAt:     &closedAt,
			}, nil
		},
	}

	rr := doAuthRequest(t, setupReportsRouter(t, svc), "POST", "/reports/days/2026-03-10/close", nil, claims)
	expectStatus(t, rr, http.StatusOK)

	if opday.Format(gotDate) != "2026-03-10" || gotDate.Location() != wib {
		t.Errorf("date = %v, want 2026-03-10 in WIB", gotDate)
	}
	if gotActor.UserID != claims.UserID {
		t.Errorf("actor = %+v", gotActor)
	}
	resp := decodeResponse(t, rr)
	if resp["closed"] != true || resp["date"] != "2026-03-10" {
		t.Errorf("response = %v", resp)
	}
	if resp["total_revenue"] != "45000" {
		t.Errorf("total_revenue = %v", resp["total_revenue"])
	}
}

func TestCloseDay_OpenShifts(t *testing.T) {
	open := []uuid.UUID{uuid.New(), uuid.New()}
	svc := &mockDayService{
		closeFn: func(context.Context, time.Time, service.Actor) (*service.DailyReport, error) {
			return nil, &service.OpenShiftsError{ShiftIDs: open}
		},
	}

	rr := doAuthRequest(t, setupReportsRouter(t, svc), "POST", "/reports/days/2026-03-10/close", nil, managerClaims())
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	resp := decodeResponse(t, rr)
	if resp["error"] != service.ErrShiftsStillOpen.Error() {
		t.Errorf("error = %v", resp["error"])
	}
	ids, ok := resp["open_shift_ids"].([]interface{})
	if !ok || len(ids) != 2 || ids[0] != open[0].String() || ids[1] != open[1].String() {
		t.Errorf("open_shift_ids = %v, want %v", resp["open_shift_ids"], open)
	}
}

func TestCloseDay_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"bad date", "/reports/days/10-03-2026/close", nil, http.StatusBadRequest},
		{"lock window", "/reports/days/2026-03-10/close", service.ErrDayLocked, http.StatusUnprocessableEntity},
		{"future day", "/reports/days/2026-03-11/close", service.ErrFutureDay, http.StatusUnprocessableEntity},
		{"already closed", "/reports/days/2026-03-09/close", service.ErrAlreadyClosed, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			svc := &mockDayService{
				closeFn: func(context.Context, time.Time, service.Actor) (*service.DailyReport, error) {
					called = true
					return nil, tc.err
				},
			}
			rr := doAuthRequest(t, setupReportsRouter(t, svc), "POST", tc.path, nil, managerClaims())
			expectStatus(t, rr, tc.want)
			if tc.err == nil && called {
				t.Error("service must not be called for a bad date")
			}
		})
	}
}

func TestDailyReport(t *testing.T) {
	var gotDate time.Time
	svc := &mockDayService{
		reportFn: func(_ context.Context, date time.Time) (*service.DailyReport, error) {
			gotDate = date
			return &service.DailyReport{Date: opday.Format(date), TotalOrders: 7}, nil
		},
	}
	router := setupReportsRouter(t, svc)

	rr := doAuthRequest(t, router, "GET", "/reports/daily?date=2026-03-08", nil, managerClaims())
	expectStatus(t, rr, http.StatusOK)
	if opday.Format(gotDate) != "2026-03-08" {
		t.Errorf("date = %v", gotDate)
	}
	if resp := decodeResponse(t, rr); resp["total_orders"] != float64(7) {
		t.Errorf("total_orders = %v", resp["total_orders"])
	}

	// Without a date the current operational day is reported.
	cal := testCalendar(t)
	before := opday.Format(cal.Date(time.Now()))
	rr = doAuthRequest(t, router, "GET", "/reports/daily", nil, managerClaims())
	after := opday.Format(cal.Date(time.Now()))
	expectStatus(t, rr, http.StatusOK)
	if got := opday.Format(gotDate); got != before && got != after {
		t.Errorf("default date = %s, want %s", got, before)
	}

	rr = doAuthRequest(t, router, "GET", "/reports/daily?date=yesterday", nil, managerClaims())
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestDayStatus(t *testing.T) {
	var gotDate *time.Time
	svc := &mockDayService{
		statusFn: func(_ context.Context, date *time.Time) (*service.DayStatus, error) {
			gotDate = date
			return &service.DayStatus{Date: "2026-03-10", CurrentOperationalDate: "2026-03-10", IsClosed: false}, nil
		},
	}
	router := setupReportsRouter(t, svc)

	rr := doAuthRequest(t, router, "GET", "/reports/day-status", nil, managerClaims())
	expectStatus(t, rr, http.StatusOK)
	if gotDate != nil {
		t.Errorf("date = %v, want nil for the current day", gotDate)
	}
	resp := decodeResponse(t, rr)
	if resp["is_closed"] != false || resp["current_operational_date"] != "2026-03-10" {
		t.Errorf("response = %v", resp)
	}

	rr = doAuthRequest(t, router, "GET", "/reports/day-status?date=2026-03-01", nil, managerClaims())
	expectStatus(t, rr, http.StatusOK)
	if gotDate == nil || opday.Format(*gotDate) != "2026-03-01" {
		t.Errorf("date = %v, want 2026-03-01", gotDate)
	}
}
