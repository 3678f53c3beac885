package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/canteen-pos/api/internal/auth"
	"github.com/canteen-pos/api/internal/middleware"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error onto an HTTP status. Anything it
// does not recognise is logged with op and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var open *service.OpenShiftsError
	switch {
	case errors.As(err, &open):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":          service.ErrShiftsStillOpen.Error(),
			"open_shift_ids": open.ShiftIDs,
		})
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case isConflictError(err):
		writeError(w, http.StatusConflict, err.Error())
	case isPreconditionError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidItemID) ||
		errors.Is(err, service.ErrItemNotFound) ||
		errors.Is(err, service.ErrCategoryNotFound) ||
		errors.Is(err, service.ErrUnroutableItem) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidName) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrInvalidTaskStatus)
}

// isConflictError covers rejected transitions and state conflicts (409).
func isConflictError(err error) bool {
	return errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrWrongState) ||
		errors.Is(err, service.ErrMissingCount) ||
		errors.Is(err, service.ErrOrderCancelled) ||
		errors.Is(err, service.ErrOrderNotReleased) ||
		errors.Is(err, service.ErrAlreadyPaid) ||
		errors.Is(err, service.ErrActiveShiftExists) ||
		errors.Is(err, service.ErrAlreadyClosed)
}

func isPreconditionError(err error) bool {
	return errors.Is(err, service.ErrShiftsStillOpen) ||
		errors.Is(err, service.ErrDayLocked) ||
		errors.Is(err, service.ErrDayClosed) ||
		errors.Is(err, service.ErrFutureDay) ||
		errors.Is(err, service.ErrNoActiveShift) ||
		errors.Is(err, service.ErrAmountMismatch)
}

// requireClaims returns the caller's claims or writes a 401.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	return claims, true
}

func actorOf(claims *auth.Claims) service.Actor {
	return service.Actor{UserID: claims.UserID, Role: claims.Role}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pagination reads limit/offset with a default page of 20 and a cap of 100.
func pagination(r *http.Request) (int32, int32) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return int32(limit), int32(offset)
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func optionalNumeric(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericToString(n)
	return &s
}

func optionalTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func optionalUUID(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	v := uuid.UUID(u.Bytes)
	return &v
}
