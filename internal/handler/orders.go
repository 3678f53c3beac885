package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, by service.Actor) (*service.OrderDetail, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, by service.Actor) (*service.OrderDetail, error)
	ListMine(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	PickupTime *time.Time               `json:"pickup_time"`
	Items      []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderedBy     uuid.UUID  `json:"ordered_by"`
	Status        string     `json:"status"`
	TotalPrice    string     `json:"total_price"`
	PickupTime    *time.Time `json:"pickup_time"`
	PaymentMethod *string    `json:"payment_method"`
	PaidAmount    *string    `json:"paid_amount"`
	PaidAt        *time.Time `json:"paid_at"`
	PaidBy        *uuid.UUID `json:"paid_by"`
	ShiftID       *uuid.UUID `json:"shift_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	ScreenKey  string    `json:"screen_key"`
}

type stationTaskResponse struct {
	OrderID     uuid.UUID  `json:"order_id"`
	ScreenKey   string     `json:"screen_key"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	ReadyAt     *time.Time `json:"ready_at"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse   `json:"items"`
	Tasks []stationTaskResponse `json:"tasks"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items are required")
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeError(w, http.StatusBadRequest, formatItemError(i, "menu_item_id is required"))
			return
		}
		if item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, formatItemError(i, "quantity must be > 0"))
			return
		}
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}

	detail, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		OrderedBy:  claims.UserID,
		PickupTime: req.PickupTime,
		Items:      items,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDetailResponse(detail))
}

// ListMine handles GET /orders/mine.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	orders, err := h.svc.ListMine(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		writeServiceError(w, "list my orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	detail, err := h.svc.GetOrder(r.Context(), orderID, actorOf(claims))
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	detail, err := h.svc.CancelOrder(r.Context(), orderID, actorOf(claims))
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderedBy:   o.OrderedBy,
		Status:      string(o.Status),
		TotalPrice:  numericToString(o.TotalPrice),
		PickupTime:  optionalTime(o.PickupTime),
		PaidAmount:  optionalNumeric(o.PaidAmount),
		PaidAt:      optionalTime(o.PaidAt),
		PaidBy:      optionalUUID(o.PaidBy),
		ShiftID:     optionalUUID(o.ShiftID),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		CancelledAt: optionalTime(o.CancelledAt),
	}
	if o.PaymentMethod.Valid {
		s := string(o.PaymentMethod.PaymentMethod)
		resp.PaymentMethod = &s
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		UnitPrice:  numericToString(item.UnitPrice),
		ScreenKey:  item.ScreenKey,
	}
}

func toStationTaskResponse(t database.StationTask) stationTaskResponse {
	return stationTaskResponse{
		OrderID:     t.OrderID,
		ScreenKey:   t.ScreenKey,
		Status:      string(t.Status),
		StartedAt:   optionalTime(t.StartedAt),
		ReadyAt:     optionalTime(t.ReadyAt),
		CompletedAt: optionalTime(t.CompletedAt),
		UpdatedAt:   t.UpdatedAt,
	}
}

func toOrderDetailResponse(d *service.OrderDetail) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(d.Order),
		Items:         make([]orderItemResponse, len(d.Items)),
		Tasks:         make([]stationTaskResponse, len(d.Tasks)),
	}
	for i, item := range d.Items {
		resp.Items[i] = toOrderItemResponse(item)
	}
	for i, t := range d.Tasks {
		resp.Tasks[i] = toStationTaskResponse(t)
	}
	return resp
}
