package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// DayServicer is satisfied by *service.DayService.
type DayServicer interface {
	CloseDay(ctx context.Context, date time.Time, by service.Actor) (*service.DailyReport, error)
	DailyReport(ctx context.Context, date time.Time) (*service.DailyReport, error)
	DayStatus(ctx context.Context, date *time.Time) (*service.DayStatus, error)
}

// OperationalCalendar is satisfied by *opday.Calendar.
type OperationalCalendar interface {
	Parse(s string) (time.Time, error)
	Date(instant time.Time) time.Time
}

// ReportsHandler handles daily report and day closing endpoints.
type ReportsHandler struct {
	svc      DayServicer
	calendar OperationalCalendar
	now      func() time.Time
}

func NewReportsHandler(svc DayServicer, calendar OperationalCalendar) *ReportsHandler {
	return &ReportsHandler{svc: svc, calendar: calendar, now: time.Now}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted at /reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily", h.Daily)
	r.Get("/day-status", h.Status)
	r.Post("/days/{date}/close", h.CloseDay)
}

// Daily handles GET /reports/daily?date=YYYY-MM-DD. Without a date it
// reports the current operational day.
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	if date == nil {
		d := h.calendar.Date(h.now())
		date = &d
	}

	report, err := h.svc.DailyReport(r.Context(), *date)
	if err != nil {
		writeServiceError(w, "daily report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Status handles GET /reports/day-status?date=YYYY-MM-DD.
func (h *ReportsHandler) Status(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}

	status, err := h.svc.DayStatus(r.Context(), date)
	if err != nil {
		writeServiceError(w, "day status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// CloseDay handles POST /reports/days/{date}/close.
func (h *ReportsHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	date, err := h.calendar.Parse(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}

	report, err := h.svc.CloseDay(r.Context(), date, actorOf(claims))
	if err != nil {
		writeServiceError(w, "close day", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportsHandler) queryDate(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return nil, true
	}
	date, err := h.calendar.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return nil, false
	}
	return &date, true
}
