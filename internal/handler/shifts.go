package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftServicer is satisfied by *service.ShiftService.
type ShiftServicer interface {
	OpenShift(ctx context.Context, userID uuid.UUID) (database.Shift, error)
	StartDeclare(ctx context.Context, shiftID uuid.UUID, by service.Actor) (database.Shift, error)
	StartCounting(ctx context.Context, shiftID uuid.UUID, by service.Actor) (database.Shift, error)
	Confirm(ctx context.Context, shiftID uuid.UUID, cash, qr decimal.Decimal, by service.Actor) (database.Shift, error)
	CloseShift(ctx context.Context, shiftID uuid.UUID, by service.Actor) (database.Shift, error)
	Current(ctx context.Context, userID uuid.UUID) (database.Shift, error)
	Get(ctx context.Context, shiftID uuid.UUID, by service.Actor) (database.Shift, error)
}

// ShiftHandler handles cashier shift endpoints.
type ShiftHandler struct {
	svc ShiftServicer
}

func NewShiftHandler(svc ShiftServicer) *ShiftHandler {
	return &ShiftHandler{svc: svc}
}

// RegisterRoutes registers shift endpoints.
// Expected to be mounted at /shifts
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/current", h.Current)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/declare", h.step(h.svc.StartDeclare, "start declare"))
	r.Post("/{id}/counting", h.step(h.svc.StartCounting, "start counting"))
	r.Post("/{id}/confirm", h.Confirm)
	r.Post("/{id}/close", h.step(h.svc.CloseShift, "close shift"))
}

// --- Request / Response types ---

type confirmShiftRequest struct {
	StaffCash string `json:"staff_cash"`
	StaffQr   string `json:"staff_qr"`
}

// shiftResponse is the shift summary: system totals next to what the
// cashier declared.
type shiftResponse struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Status            string     `json:"status"`
	SystemCashTotal   string     `json:"system_cash_total"`
	SystemQrTotal     string     `json:"system_qr_total"`
	SystemOnlineTotal string     `json:"system_online_total"`
	StaffCashInput    *string    `json:"staff_cash_input"`
	StaffQrInput      *string    `json:"staff_qr_input"`
	CashDiscrepancy   *string    `json:"cash_discrepancy"`
	QrDifference      *string    `json:"qr_difference"`
	OpenedAt          time.Time  `json:"opened_at"`
	CountingStartedAt *time.Time `json:"counting_started_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
	ClosedAt          *time.Time `json:"closed_at"`
}

// --- Handlers ---

// Open handles POST /shifts. The caller opens their own shift.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	shift, err := h.svc.OpenShift(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "open shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftResponse(shift))
}

// Current handles GET /shifts/current. 404 when the caller has no active shift.
func (h *ShiftHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	shift, err := h.svc.Current(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveShift) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, "current shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// Get handles GET /shifts/{id}.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(w, r, "id", "shift ID")
	if !ok {
		return
	}

	shift, err := h.svc.Get(r.Context(), shiftID, actorOf(claims))
	if err != nil {
		writeServiceError(w, "get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// Confirm handles POST /shifts/{id}/confirm with the counted cash and QR.
func (h *ShiftHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(w, r, "id", "shift ID")
	if !ok {
		return
	}

	var req confirmShiftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cash, err := decimal.NewFromString(req.StaffCash)
	if err != nil || cash.IsNegative() {
		writeError(w, http.StatusBadRequest, "staff_cash must be a non-negative decimal")
		return
	}
	qr, err := decimal.NewFromString(req.StaffQr)
	if err != nil || qr.IsNegative() {
		writeError(w, http.StatusBadRequest, "staff_qr must be a non-negative decimal")
		return
	}

	shift, err := h.svc.Confirm(r.Context(), shiftID, cash, qr, actorOf(claims))
	if err != nil {
		writeServiceError(w, "confirm shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

type shiftStep func(ctx context.Context, shiftID uuid.UUID, by service.Actor) (database.Shift, error)

func (h *ShiftHandler) step(fn shiftStep, op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r)
		if !ok {
			return
		}
		shiftID, ok := uuidParam(w, r, "id", "shift ID")
		if !ok {
			return
		}

		shift, err := fn(r.Context(), shiftID, actorOf(claims))
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, toShiftResponse(shift))
	}
}

func toShiftResponse(s database.Shift) shiftResponse {
	resp := shiftResponse{
		ID:                s.ID,
		UserID:            s.UserID,
		Status:            string(s.Status),
		SystemCashTotal:   numericToString(s.SystemCashTotal),
		SystemQrTotal:     numericToString(s.SystemQrTotal),
		SystemOnlineTotal: numericToString(s.SystemOnlineTotal),
		StaffCashInput:    optionalNumeric(s.StaffCashInput),
		StaffQrInput:      optionalNumeric(s.StaffQrInput),
		CashDiscrepancy:   optionalNumeric(s.CashDiscrepancy),
		OpenedAt:          s.OpenedAt,
		CountingStartedAt: optionalTime(s.CountingStartedAt),
		ConfirmedAt:       optionalTime(s.ConfirmedAt),
		ClosedAt:          optionalTime(s.ClosedAt),
	}
	if s.StaffQrInput.Valid {
		declared, _ := decimal.NewFromString(numericToString(s.StaffQrInput))
		expected, _ := decimal.NewFromString(numericToString(s.SystemQrTotal))
		diff := declared.Sub(expected).StringFixed(2)
		resp.QrDifference = &diff
	}
	return resp
}
