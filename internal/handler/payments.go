package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecorder is satisfied by *service.OrderService.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, req service.PaymentRequest) (database.Order, error)
}

// PaymentHandler records finalized payments from the counter and from the
// payment gateway callback.
type PaymentHandler struct {
	svc PaymentRecorder
}

func NewPaymentHandler(svc PaymentRecorder) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes registers the counter payment endpoint.
// Expected to be mounted at /orders/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Record)
}

// --- Request types ---

type recordPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	Amount        string `json:"amount"`
}

type paymentCallbackRequest struct {
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

// --- Handlers ---

// Record handles POST /orders/{id}/payments. The processing cashier is the
// caller; CASH and QR payments land on their open shift.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req recordPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "payment_method is required")
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	cashier := claims.UserID
	order, err := h.svc.RecordPayment(r.Context(), service.PaymentRequest{
		OrderID:     orderID,
		Method:      req.PaymentMethod,
		Amount:      amount,
		ProcessedBy: &cashier,
	})
	if err != nil {
		writeServiceError(w, "record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Callback handles POST /payments/callback from the payment gateway. A
// repeated callback for an already paid order is acknowledged with 200 so the
// gateway stops retrying.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	order, err := h.svc.RecordPayment(r.Context(), service.PaymentRequest{
		OrderID: orderID,
		Method:  enum.PaymentMethodOnline,
		Amount:  amount,
	})
	if err != nil {
		if errors.Is(err, service.ErrAlreadyPaid) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_paid"})
			return
		}
		writeServiceError(w, "payment callback", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func parseAmount(w http.ResponseWriter, s string) (decimal.Decimal, bool) {
	if s == "" {
		writeError(w, http.StatusBadRequest, "amount is required")
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(s)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
		return decimal.Zero, false
	}
	return amount, true
}
