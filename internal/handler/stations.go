package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/canteen-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// StationServicer is satisfied by *service.StationService.
type StationServicer interface {
	StartPreparing(ctx context.Context, orderID uuid.UUID, screenKey string) (*service.TaskResult, error)
	MarkReady(ctx context.Context, orderID uuid.UUID, screenKey string) (*service.TaskResult, error)
	CompleteTask(ctx context.Context, orderID uuid.UUID, screenKey string) (*service.TaskResult, error)
	ListQueue(ctx context.Context, screenKey, status string) ([]service.QueueEntry, error)
}

// StationHandler serves the station screens.
type StationHandler struct {
	svc StationServicer
}

func NewStationHandler(svc StationServicer) *StationHandler {
	return &StationHandler{svc: svc}
}

// RegisterRoutes registers station endpoints.
// Expected to be mounted at /screens/{key}
func (h *StationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", h.Queue)
	r.Post("/tasks/{orderID}/start", h.transition(h.svc.StartPreparing, "start preparing"))
	r.Post("/tasks/{orderID}/ready", h.transition(h.svc.MarkReady, "mark ready"))
	r.Post("/tasks/{orderID}/complete", h.transition(h.svc.CompleteTask, "complete task"))
}

// --- Response types ---

type taskResultResponse struct {
	Task        stationTaskResponse `json:"task"`
	OrderStatus string              `json:"order_status"`
}

type queueEntryResponse struct {
	Task        stationTaskResponse `json:"task"`
	OrderStatus string              `json:"order_status"`
	OrderedBy   uuid.UUID           `json:"ordered_by"`
	PickupTime  *time.Time          `json:"pickup_time"`
	Items       []orderItemResponse `json:"items"`
}

// --- Handlers ---

// Queue handles GET /screens/{key}/tasks?status=.
func (h *StationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	entries, err := h.svc.ListQueue(r.Context(), key, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, "list station queue", err)
		return
	}

	resp := make([]queueEntryResponse, len(entries))
	for i, e := range entries {
		items := make([]orderItemResponse, len(e.Items))
		for j, item := range e.Items {
			items[j] = toOrderItemResponse(item)
		}
		resp[i] = queueEntryResponse{
			Task:        toStationTaskResponse(e.Task),
			OrderStatus: string(e.OrderStatus),
			OrderedBy:   e.OrderedBy,
			PickupTime:  e.PickupTime,
			Items:       items,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type taskAction func(ctx context.Context, orderID uuid.UUID, screenKey string) (*service.TaskResult, error)

// transition handles POST /screens/{key}/tasks/{orderID}/{action}.
func (h *StationHandler) transition(action taskAction, op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := uuidParam(w, r, "orderID", "order ID")
		if !ok {
			return
		}

		result, err := action(r.Context(), orderID, chi.URLParam(r, "key"))
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, taskResultResponse{
			Task:        toStationTaskResponse(result.Task),
			OrderStatus: string(result.OrderStatus),
		})
	}
}
