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

// OrderStore defines the DB methods the order ledger needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateStationTask(ctx context.Context, arg database.CreateStationTaskParams) (database.StationTask, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListStationTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StationTask, error)
	ListOrdersByOwner(ctx context.Context, arg database.ListOrdersByOwnerParams) ([]database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	RecordOrderPayment(ctx context.Context, arg database.RecordOrderPaymentParams) (database.Order, error)
	ReleaseDueOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error)
	GetActiveShiftByUser(ctx context.Context, userID uuid.UUID) (database.Shift, error)
	GetLatestActiveShift(ctx context.Context) (database.Shift, error)
	GetShiftForUpdate(ctx context.Context, id uuid.UUID) (database.Shift, error)
	AddShiftTotals(ctx context.Context, arg database.AddShiftTotalsParams) (database.Shift, error)
	GetDayClosing(ctx context.Context, businessDate pgtype.Date) (database.DayClosing, error)
	LockBusinessDateShared(ctx context.Context, businessDate pgtype.Date) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	OrderedBy  uuid.UUID
	PickupTime *time.Time
	Items      []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line of the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// OrderDetail is an order with its lines and station tasks.
type OrderDetail struct {
	Order database.Order
	Items []database.OrderItem
	Tasks []database.StationTask
}

// PaymentRequest records a finalized payment. ProcessedBy is the cashier for
// counter payments and nil for gateway callbacks.
type PaymentRequest struct {
	OrderID     uuid.UUID
	Method      string
	Amount      decimal.Decimal
	ProcessedBy *uuid.UUID
}

// OrderService handles the order ledger and payment attribution.
type OrderService struct {
	db        DB
	newStore  NewOrderStore
	calendar  *opday.Calendar
	notifier  Notifier
	threshold time.Duration
	now       func() time.Time
}

// NewOrderService creates a new OrderService. Orders whose pickup time lies
// further out than threshold are held as Scheduled.
func NewOrderService(db DB, newStore NewOrderStore, calendar *opday.Calendar, notifier Notifier, threshold time.Duration) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderService{
		db:        db,
		newStore:  newStore,
		calendar:  calendar,
		notifier:  notifier,
		threshold: threshold,
		now:       time.Now,
	}
}

type routedItem struct {
	menuItemID uuid.UUID
	name       string
	quantity   int32
	unitPrice  decimal.Decimal
	screenKey  string
}

func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, ErrInvalidItemID
		}
		ids[i] = id
	}

	now := s.now()
	status := database.OrderStatusPENDING
	var pickup pgtype.Timestamptz
	if req.PickupTime != nil {
		pickup = pgtype.Timestamptz{Time: *req.PickupTime, Valid: true}
		if req.PickupTime.After(now.Add(s.threshold)) {
			status = database.OrderStatusSCHEDULED
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Shared with other orders, exclusive against closing the same day.
	day := s.calendar.Date(now)
	if err := store.LockBusinessDateShared(ctx, dateToPg(day)); err != nil {
		return nil, fmt.Errorf("lock business date: %w", err)
	}
	if err := ensureDayOpen(ctx, store, day); err != nil {
		return nil, err
	}

	// --- Resolve items and their screens ---
	items := make([]routedItem, len(req.Items))
	total := decimal.Zero
	for i, reqItem := range req.Items {
		row, err := store.GetMenuItemForOrder(ctx, ids[i])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrItemNotFound, ids[i])
			}
			return nil, fmt.Errorf("get menu item: %w", err)
		}
		if !row.ScreenKey.Valid {
			return nil, fmt.Errorf("%w: %s", ErrUnroutableItem, row.Name)
		}
		price := numericToDecimal(row.Price)
		items[i] = routedItem{
			menuItemID: row.ID,
			name:       row.Name,
			quantity:   reqItem.Quantity,
			unitPrice:  price,
			screenKey:  row.ScreenKey.String,
		}
		total = total.Add(price.Mul(decimal.NewFromInt32(reqItem.Quantity)))
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderedBy:  req.OrderedBy,
		Status:     status,
		TotalPrice: decimalToNumeric(total),
		PickupTime: pickup,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	detail := &OrderDetail{Order: order}
	for i, it := range items {
		line, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			Position:   int32(i + 1),
			MenuItemID: it.menuItemID,
			Name:       it.name,
			Quantity:   it.quantity,
			UnitPrice:  decimalToNumeric(it.unitPrice),
			ScreenKey:  it.screenKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		detail.Items = append(detail.Items, line)
	}

	// --- Fan out: one task per distinct screen, in first-seen order ---
	seen := make(map[string]bool)
	for _, it := range items {
		if seen[it.screenKey] {
			continue
		}
		seen[it.screenKey] = true
		task, err := store.CreateStationTask(ctx, database.CreateStationTaskParams{
			OrderID:   order.ID,
			ScreenKey: it.screenKey,
			CreatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("create station task: %w", err)
		}
		detail.Tasks = append(detail.Tasks, task)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []notify.Event{{Target: notify.Management(), Name: enum.EventOrderCreated, Payload: detail.Order, At: now}}
	if status == database.OrderStatusPENDING {
		events = append(events, screenEvents(detail.Tasks, enum.EventOrderCreated, detail.Order, now)...)
	}
	s.notifier.Publish(events...)

	return detail, nil
}

// CancelOrder cancels an unpaid order that no station has started on.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, by Actor) (*OrderDetail, error) {
	now := s.now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	if !by.IsStaff() && order.OrderedBy != by.UserID {
		return nil, ErrForbidden
	}
	if order.Status != database.OrderStatusPENDING && order.Status != database.OrderStatusSCHEDULED {
		return nil, fmt.Errorf("%w: cannot cancel %s order", ErrInvalidTransition, order.Status)
	}
	// Paid amounts are already in a shift's totals and there is no refund flow.
	if order.PaidAt.Valid {
		return nil, fmt.Errorf("%w: cannot cancel a paid order", ErrAlreadyPaid)
	}

	cancelled, err := store.CancelOrder(ctx, database.CancelOrderParams{ID: orderID, CancelledAt: now})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	tasks, err := store.ListStationTasksByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list station tasks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []notify.Event{
		{Target: notify.User(cancelled.OrderedBy), Name: enum.EventOrderCancelled, Payload: cancelled, At: now},
		{Target: notify.Management(), Name: enum.EventOrderStatusChanged, Payload: cancelled, At: now},
	}
	if order.Status == database.OrderStatusPENDING {
		events = append(events, screenEvents(tasks, enum.EventOrderCancelled, cancelled, now)...)
	}
	s.notifier.Publish(events...)

	return &OrderDetail{Order: cancelled, Tasks: tasks}, nil
}

// GetOrder returns an order with its lines and tasks. Students only see
// their own orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID, by Actor) (*OrderDetail, error) {
	store := s.newStore(s.db)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	if !by.IsStaff() && order.OrderedBy != by.UserID {
		// Hide existence from other customers.
		return nil, ErrNotFound
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	tasks, err := store.ListStationTasksByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list station tasks: %w", err)
	}
	return &OrderDetail{Order: order, Items: items, Tasks: tasks}, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]database.Order, error) {
	orders, err := s.newStore(s.db).ListOrdersByOwner(ctx, database.ListOrdersByOwnerParams{
		OrderedBy: userID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// RecordPayment finalizes an order's payment and adds it to the attributed
// shift's system totals in the same transaction.
func (s *OrderService) RecordPayment(ctx context.Context, req PaymentRequest) (database.Order, error) {
	switch req.Method {
	case enum.PaymentMethodCash, enum.PaymentMethodQR, enum.PaymentMethodOnline:
	default:
		return database.Order{}, ErrInvalidPaymentMethod
	}
	if req.Amount.IsNegative() {
		return database.Order{}, ErrInvalidAmount
	}
	if req.Method != enum.PaymentMethodOnline && req.ProcessedBy == nil {
		return database.Order{}, ErrNoActiveShift
	}

	now := s.now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		return database.Order{}, notFound(err)
	}
	if order.PaidAt.Valid {
		return database.Order{}, ErrAlreadyPaid
	}
	if order.Status == database.OrderStatusCANCELLED {
		return database.Order{}, ErrOrderCancelled
	}
	if !req.Amount.Equal(numericToDecimal(order.TotalPrice)) {
		return database.Order{}, fmt.Errorf("%w: got %s, want %s",
			ErrAmountMismatch, req.Amount.StringFixed(2), numericToDecimal(order.TotalPrice).StringFixed(2))
	}

	shift, attributed, err := s.attributeShift(ctx, store, req)
	if err != nil {
		return database.Order{}, err
	}

	var paidBy, shiftID pgtype.UUID
	if req.ProcessedBy != nil {
		paidBy = uuidToPg(*req.ProcessedBy)
	}
	if attributed {
		shiftID = uuidToPg(shift.ID)
	}

	paid, err := store.RecordOrderPayment(ctx, database.RecordOrderPaymentParams{
		ID:            req.OrderID,
		PaymentMethod: database.PaymentMethod(req.Method),
		PaidAmount:    decimalToNumeric(req.Amount),
		PaidAt:        now,
		PaidBy:        paidBy,
		ShiftID:       shiftID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrAlreadyPaid
		}
		return database.Order{}, fmt.Errorf("record payment: %w", err)
	}

	if attributed {
		cash, qr, online := decimal.Zero, decimal.Zero, decimal.Zero
		switch req.Method {
		case enum.PaymentMethodCash:
			cash = req.Amount
		case enum.PaymentMethodQR:
			qr = req.Amount
		case enum.PaymentMethodOnline:
			online = req.Amount
		}
		// The shift row is locked, so its status cannot move before commit.
		if _, err := store.AddShiftTotals(ctx, database.AddShiftTotalsParams{
			ID:     shift.ID,
			Cash:   decimalToNumeric(cash),
			Qr:     decimalToNumeric(qr),
			Online: decimalToNumeric(online),
		}); err != nil {
			return database.Order{}, fmt.Errorf("add shift totals: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(
		notify.Event{Target: notify.User(paid.OrderedBy), Name: enum.EventOrderPaid, Payload: paid, At: now},
		notify.Event{Target: notify.Management(), Name: enum.EventOrderPaid, Payload: paid, At: now},
	)
	return paid, nil
}

// maxAttributionAttempts bounds how often a gateway payment looks for a new
// shift after its candidate closed under it.
const maxAttributionAttempts = 3

// attributeShift picks the shift a payment counts towards and locks its row
// until the payment commits, so reconciliation steps wait for it. Counter
// payments need the cashier's own open shift; gateway payments land on the
// most recently opened active shift, or nowhere if none is active.
func (s *OrderService) attributeShift(ctx context.Context, store OrderStore, req PaymentRequest) (database.Shift, bool, error) {
	if req.Method == enum.PaymentMethodOnline {
		for range maxAttributionAttempts {
			candidate, err := store.GetLatestActiveShift(ctx)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return database.Shift{}, false, nil
				}
				return database.Shift{}, false, fmt.Errorf("get latest shift: %w", err)
			}
			shift, err := store.GetShiftForUpdate(ctx, candidate.ID)
			if err != nil {
				return database.Shift{}, false, fmt.Errorf("lock shift: %w", err)
			}
			if shift.Status != database.ShiftStatusCLOSED {
				return shift, true, nil
			}
		}
		return database.Shift{}, false, nil
	}

	candidate, err := store.GetActiveShiftByUser(ctx, *req.ProcessedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Shift{}, false, ErrNoActiveShift
		}
		return database.Shift{}, false, fmt.Errorf("get active shift: %w", err)
	}
	shift, err := store.GetShiftForUpdate(ctx, candidate.ID)
	if err != nil {
		return database.Shift{}, false, fmt.Errorf("lock shift: %w", err)
	}
	// Counted cash is compared against the total at confirm time, so
	// counter takings stop once the cashier starts declaring.
	if shift.Status != database.ShiftStatusOPEN {
		return database.Shift{}, false, fmt.Errorf("%w: shift is %s", ErrNoActiveShift, shift.Status)
	}
	return shift, true, nil
}

// ReleaseDueOrders moves Scheduled orders into the preparation flow once
// their pickup time is within the scheduling threshold.
func (s *OrderService) ReleaseDueOrders(ctx context.Context) ([]database.Order, error) {
	now := s.now()
	store := s.newStore(s.db)

	released, err := store.ReleaseDueOrders(ctx, now.Add(s.threshold))
	if err != nil {
		return nil, fmt.Errorf("release due orders: %w", err)
	}

	var events []notify.Event
	for _, order := range released {
		tasks, err := store.ListStationTasksByOrder(ctx, order.ID)
		if err != nil {
			return released, fmt.Errorf("list station tasks: %w", err)
		}
		events = append(events, screenEvents(tasks, enum.EventOrderCreated, order, now)...)
		events = append(events, notify.Event{Target: notify.Management(), Name: enum.EventOrderStatusChanged, Payload: order, At: now})
	}
	s.notifier.Publish(events...)

	return released, nil
}

type dayClosingReader interface {
	GetDayClosing(ctx context.Context, businessDate pgtype.Date) (database.DayClosing, error)
}

func ensureDayOpen(ctx context.Context, store dayClosingReader, date time.Time) error {
	_, err := store.GetDayClosing(ctx, dateToPg(date))
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDayClosed, opday.Format(date))
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return fmt.Errorf("get day closing: %w", err)
}

func screenEvents(tasks []database.StationTask, name string, payload any, at time.Time) []notify.Event {
	events := make([]notify.Event, 0, len(tasks))
	for _, t := range tasks {
		events = append(events, notify.Event{Target: notify.Screen(t.ScreenKey), Name: name, Payload: payload, At: at})
	}
	return events
}
