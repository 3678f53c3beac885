package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StationStore defines the DB methods the station task tracker needs.
type StationStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetStationTask(ctx context.Context, arg database.GetStationTaskParams) (database.StationTask, error)
	ListStationTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StationTask, error)
	UpdateStationTaskStatus(ctx context.Context, arg database.UpdateStationTaskStatusParams) (database.StationTask, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListStationQueue(ctx context.Context, arg database.ListStationQueueParams) ([]database.ListStationQueueRow, error)
	ListOrderItemsByScreen(ctx context.Context, arg database.ListOrderItemsByScreenParams) ([]database.OrderItem, error)
}

type NewStationStore func(db database.DBTX) StationStore

// TaskResult is a station task after a transition, with the order status
// derived from all of the order's tasks.
type TaskResult struct {
	Task        database.StationTask
	OrderStatus database.OrderStatus
}

// QueueEntry is one order as a station screen sees it.
type QueueEntry struct {
	Task        database.StationTask
	OrderStatus database.OrderStatus
	OrderedBy   uuid.UUID
	PickupTime  *time.Time
	Items       []database.OrderItem
}

const maxQueueSize = 200

type StationService struct {
	db       DB
	newStore NewStationStore
	notifier Notifier
	now      func() time.Time
}

func NewStationService(db DB, newStore NewStationStore, notifier Notifier) *StationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &StationService{db: db, newStore: newStore, notifier: notifier, now: time.Now}
}

// StartPreparing moves a task from Pending to Preparing.
func (s *StationService) StartPreparing(ctx context.Context, orderID uuid.UUID, screenKey string) (*TaskResult, error) {
	return s.transition(ctx, orderID, screenKey, database.StationTaskStatusPREPARING)
}

// MarkReady moves a task to Ready. A Pending task is started implicitly, so
// startedAt and readyAt are both recorded.
func (s *StationService) MarkReady(ctx context.Context, orderID uuid.UUID, screenKey string) (*TaskResult, error) {
	return s.transition(ctx, orderID, screenKey, database.StationTaskStatusREADY)
}

// CompleteTask moves a task from Ready to Completed (picked up).
func (s *StationService) CompleteTask(ctx context.Context, orderID uuid.UUID, screenKey string) (*TaskResult, error) {
	return s.transition(ctx, orderID, screenKey, database.StationTaskStatusCOMPLETED)
}

func allowedFrom(to database.StationTaskStatus) []database.StationTaskStatus {
	switch to {
	case database.StationTaskStatusPREPARING:
		return []database.StationTaskStatus{database.StationTaskStatusPENDING}
	case database.StationTaskStatusREADY:
		return []database.StationTaskStatus{database.StationTaskStatusPENDING, database.StationTaskStatusPREPARING}
	case database.StationTaskStatusCOMPLETED:
		return []database.StationTaskStatus{database.StationTaskStatusREADY}
	}
	return nil
}

func canTransition(from, to database.StationTaskStatus) bool {
	for _, s := range allowedFrom(to) {
		if s == from {
			return true
		}
	}
	return false
}

func (s *StationService) transition(ctx context.Context, orderID uuid.UUID, screenKey string, to database.StationTaskStatus) (*TaskResult, error) {
	now := s.now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// The order row lock serializes every task write for this order, so the
	// task list read below is a consistent snapshot.
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	switch order.Status {
	case database.OrderStatusCANCELLED:
		return nil, ErrOrderCancelled
	case database.OrderStatusSCHEDULED:
		return nil, ErrOrderNotReleased
	}

	task, err := store.GetStationTask(ctx, database.GetStationTaskParams{OrderID: orderID, ScreenKey: screenKey})
	if err != nil {
		return nil, notFound(err)
	}
	if !canTransition(task.Status, to) {
		return nil, fmt.Errorf("%w: task is %s, cannot move to %s", ErrWrongState, task.Status, to)
	}

	task, err = store.UpdateStationTaskStatus(ctx, database.UpdateStationTaskStatusParams{
		OrderID:   orderID,
		ScreenKey: screenKey,
		Status:    to,
		At:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("update station task: %w", err)
	}

	tasks, err := store.ListStationTasksByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list station tasks: %w", err)
	}

	derived := DeriveOrderStatus(taskStatuses(tasks))
	changed := advances(order.Status, derived)
	if changed {
		order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: orderID, Status: derived})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderCancelled
			}
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []notify.Event{{Target: notify.Screen(screenKey), Name: enum.EventTaskUpdated, Payload: task, At: now}}
	if changed {
		events = append(events, notify.Event{Target: notify.Management(), Name: enum.EventOrderStatusChanged, Payload: order, At: now})
		switch order.Status {
		case database.OrderStatusREADY:
			events = append(events, notify.Event{Target: notify.User(order.OrderedBy), Name: enum.EventOrderReady, Payload: order, At: now})
		case database.OrderStatusCOMPLETED:
			events = append(events, notify.Event{Target: notify.User(order.OrderedBy), Name: enum.EventOrderCompleted, Payload: order, At: now})
		}
	}
	s.notifier.Publish(events...)

	return &TaskResult{Task: task, OrderStatus: order.Status}, nil
}

// ListQueue returns a screen's released, uncancelled tasks, optionally
// filtered by task status, each with the lines that screen prepares.
func (s *StationService) ListQueue(ctx context.Context, screenKey, status string) ([]QueueEntry, error) {
	filter := database.NullStationTaskStatus{}
	if status != "" {
		switch status {
		case enum.TaskStatusPending, enum.TaskStatusPreparing, enum.TaskStatusReady, enum.TaskStatusCompleted:
			filter = database.NullStationTaskStatus{StationTaskStatus: database.StationTaskStatus(status), Valid: true}
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidTaskStatus, status)
		}
	}

	store := s.newStore(s.db)
	rows, err := store.ListStationQueue(ctx, database.ListStationQueueParams{
		ScreenKey: screenKey,
		Status:    filter,
		Limit:     maxQueueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list station queue: %w", err)
	}

	entries := make([]QueueEntry, 0, len(rows))
	for _, row := range rows {
		items, err := store.ListOrderItemsByScreen(ctx, database.ListOrderItemsByScreenParams{
			OrderID:   row.StationTask.OrderID,
			ScreenKey: screenKey,
		})
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		entry := QueueEntry{
			Task:        row.StationTask,
			OrderStatus: row.OrderStatus,
			OrderedBy:   row.OrderedBy,
			Items:       items,
		}
		if row.PickupTime.Valid {
			t := row.PickupTime.Time
			entry.PickupTime = &t
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
