package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	mu          sync.Mutex
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr == nil {
		m.commits++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockPool implements DB. Stores never touch it; the fake store holds state.
type mockPool struct {
	tx  *mockTx
	err error
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}
func (m *mockPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not implemented")
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Publish(events ...notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// named returns events with the given name sent to target.
func (r *recordingNotifier) named(name string, target notify.Target) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Name == name && ev.Target == target {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fakeStore is an in-memory stand-in for *database.Queries. It applies the
// same guards the SQL statements do. Transactions are not isolated; tests
// only assert on committed outcomes and returned errors.
type fakeStore struct {
	mu sync.Mutex

	screens    map[string]database.Screen
	categories map[uuid.UUID]database.Category
	screenOf   map[uuid.UUID]string // category -> screen
	menuItems  map[uuid.UUID]database.MenuItem

	orders     map[uuid.UUID]database.Order
	orderItems map[uuid.UUID][]database.OrderItem
	tasks      map[uuid.UUID][]database.StationTask
	shifts     map[uuid.UUID]database.Shift
	closings   map[string]database.DayClosing
	dayLocks   []string

	// failure injection, keyed by method name
	errs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		screens:    make(map[string]database.Screen),
		categories: make(map[uuid.UUID]database.Category),
		screenOf:   make(map[uuid.UUID]string),
		menuItems:  make(map[uuid.UUID]database.MenuItem),
		orders:     make(map[uuid.UUID]database.Order),
		orderItems: make(map[uuid.UUID][]database.OrderItem),
		tasks:      make(map[uuid.UUID][]database.StationTask),
		shifts:     make(map[uuid.UUID]database.Shift),
		closings:   make(map[string]database.DayClosing),
		errs:       make(map[string]error),
	}
}

func (f *fakeStore) fail(method string) error {
	return f.errs[method]
}

func pgDateKey(d pgtype.Date) string { return d.Time.Format("2006-01-02") }

func ts(t time.Time) pgtype.Timestamptz { return pgtype.Timestamptz{Time: t, Valid: true} }

// addMenuItem seeds a routed menu item: its own category on screenKey.
// An empty screenKey leaves the category unassigned.
func (f *fakeStore) addMenuItem(name, price, screenKey string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat := database.Category{ID: uuid.New(), Name: name + " category"}
	f.categories[cat.ID] = cat
	if screenKey != "" {
		f.screens[screenKey] = database.Screen{ScreenKey: screenKey, Name: screenKey}
		f.screenOf[cat.ID] = screenKey
	}
	item := database.MenuItem{ID: uuid.New(), CategoryID: cat.ID, Name: name, Price: makeNumeric(price), IsActive: true}
	f.menuItems[item.ID] = item
	return item.ID
}

// --- catalog ---

func (f *fakeStore) UpsertScreen(ctx context.Context, arg database.UpsertScreenParams) (database.Screen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := database.Screen{ScreenKey: arg.ScreenKey, Name: arg.Name}
	f.screens[arg.ScreenKey] = s
	return s, nil
}

func (f *fakeStore) DeleteScreenCategories(ctx context.Context, screenKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for cat, key := range f.screenOf {
		if key == screenKey {
			delete(f.screenOf, cat)
		}
	}
	return nil
}

func (f *fakeStore) AssignCategoryToScreen(ctx context.Context, arg database.AssignCategoryToScreenParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[arg.CategoryID]; !ok {
		return &pgconn.PgError{Code: "23503"}
	}
	f.screenOf[arg.CategoryID] = arg.ScreenKey
	return nil
}

func (f *fakeStore) ListScreenCategories(ctx context.Context, screenKey string) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for cat, key := range f.screenOf {
		if key == screenKey {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (f *fakeStore) UpsertCategory(ctx context.Context, arg database.UpsertCategoryParams) (database.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := database.Category{ID: arg.ID, Name: arg.Name}
	f.categories[arg.ID] = c
	return c, nil
}

func (f *fakeStore) UpsertMenuItem(ctx context.Context, arg database.UpsertMenuItemParams) (database.UpsertMenuItemRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[arg.CategoryID]; !ok {
		return database.UpsertMenuItemRow{}, &pgconn.PgError{Code: "23503"}
	}
	_, existed := f.menuItems[arg.ID]
	item := database.MenuItem{ID: arg.ID, CategoryID: arg.CategoryID, Name: arg.Name, Price: arg.Price, IsActive: true}
	f.menuItems[arg.ID] = item
	return database.UpsertMenuItemRow{
		ID: item.ID, CategoryID: item.CategoryID, Name: item.Name, Price: item.Price,
		IsActive: true, Inserted: !existed,
	}, nil
}

func (f *fakeStore) DeactivateMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.menuItems[id]
	if !ok || !item.IsActive {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	item.IsActive = false
	f.menuItems[id] = item
	return item, nil
}

func (f *fakeStore) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.menuItems[id]
	if !ok || !item.IsActive {
		return database.GetMenuItemForOrderRow{}, pgx.ErrNoRows
	}
	row := database.GetMenuItemForOrderRow{ID: item.ID, Name: item.Name, Price: item.Price, CategoryID: item.CategoryID}
	if key, ok := f.screenOf[item.CategoryID]; ok {
		row.ScreenKey = pgtype.Text{String: key, Valid: true}
	}
	return row, nil
}

// --- orders ---

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if err := f.fail("CreateOrder"); err != nil {
		return database.Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := database.Order{
		ID:         uuid.New(),
		OrderedBy:  arg.OrderedBy,
		Status:     arg.Status,
		TotalPrice: arg.TotalPrice,
		PickupTime: arg.PickupTime,
		CreatedAt:  arg.CreatedAt,
		UpdatedAt:  arg.CreatedAt,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := database.OrderItem{
		ID: uuid.New(), OrderID: arg.OrderID, Position: arg.Position, MenuItemID: arg.MenuItemID,
		Name: arg.Name, Quantity: arg.Quantity, UnitPrice: arg.UnitPrice, ScreenKey: arg.ScreenKey,
	}
	f.orderItems[arg.OrderID] = append(f.orderItems[arg.OrderID], it)
	return it, nil
}

func (f *fakeStore) CreateStationTask(ctx context.Context, arg database.CreateStationTaskParams) (database.StationTask, error) {
	if err := f.fail("CreateStationTask"); err != nil {
		return database.StationTask{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := database.StationTask{
		OrderID: arg.OrderID, ScreenKey: arg.ScreenKey, Status: database.StationTaskStatusPENDING,
		CreatedAt: arg.CreatedAt, UpdatedAt: arg.CreatedAt,
	}
	f.tasks[arg.OrderID] = append(f.tasks[arg.OrderID], t)
	return t, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.OrderItem(nil), f.orderItems[orderID]...), nil
}

func (f *fakeStore) ListStationTasksByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.StationTask(nil), f.tasks[orderID]...), nil
}

func (f *fakeStore) ListOrdersByOwner(ctx context.Context, arg database.ListOrdersByOwnerParams) ([]database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.Order
	for _, o := range f.orders {
		if o.OrderedBy == arg.OrderedBy {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(arg.Offset) >= len(out) {
		return nil, nil
	}
	out = out[arg.Offset:]
	if int(arg.Limit) < len(out) {
		out = out[:arg.Limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	f.orders[arg.ID] = o
	return o, nil
}

func (f *fakeStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[arg.ID]
	if !ok || (o.Status != database.OrderStatusPENDING && o.Status != database.OrderStatusSCHEDULED) {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = database.OrderStatusCANCELLED
	o.CancelledAt = ts(arg.CancelledAt)
	f.orders[arg.ID] = o
	return o, nil
}

func (f *fakeStore) RecordOrderPayment(ctx context.Context, arg database.RecordOrderPaymentParams) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[arg.ID]
	if !ok || o.PaidAt.Valid || o.Status == database.OrderStatusCANCELLED {
		return database.Order{}, pgx.ErrNoRows
	}
	o.PaymentMethod = database.NullPaymentMethod{PaymentMethod: arg.PaymentMethod, Valid: true}
	o.PaidAmount = arg.PaidAmount
	o.PaidAt = ts(arg.PaidAt)
	o.PaidBy = arg.PaidBy
	o.ShiftID = arg.ShiftID
	f.orders[arg.ID] = o
	return o, nil
}

func (f *fakeStore) ReleaseDueOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.Order
	for id, o := range f.orders {
		if o.Status == database.OrderStatusSCHEDULED && !o.PickupTime.Time.After(cutoff) {
			o.Status = database.OrderStatusPENDING
			f.orders[id] = o
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrderTotalsInWindow(ctx context.Context, arg database.GetOrderTotalsInWindowParams) (database.GetOrderTotalsInWindowRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var row database.GetOrderTotalsInWindowRow
	revenue := decimal.Zero
	for _, o := range f.orders {
		if o.CreatedAt.Before(arg.Start) || !o.CreatedAt.Before(arg.End) {
			continue
		}
		row.TotalOrders++
		switch o.Status {
		case database.OrderStatusCOMPLETED:
			row.CompletedOrders++
		case database.OrderStatusCANCELLED:
			row.CancelledOrders++
		}
		if o.PaidAt.Valid {
			row.PaidOrders++
			revenue = revenue.Add(numericToDecimal(o.PaidAmount))
		}
	}
	row.TotalRevenue = decimalToNumeric(revenue)
	return row, nil
}

// --- station tasks ---

func (f *fakeStore) GetStationTask(ctx context.Context, arg database.GetStationTaskParams) (database.StationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks[arg.OrderID] {
		if t.ScreenKey == arg.ScreenKey {
			return t, nil
		}
	}
	return database.StationTask{}, pgx.ErrNoRows
}

func (f *fakeStore) UpdateStationTaskStatus(ctx context.Context, arg database.UpdateStationTaskStatusParams) (database.StationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := f.tasks[arg.OrderID]
	for i, t := range tasks {
		if t.ScreenKey != arg.ScreenKey {
			continue
		}
		t.Status = arg.Status
		switch arg.Status {
		case database.StationTaskStatusPREPARING:
			if !t.StartedAt.Valid {
				t.StartedAt = ts(arg.At)
			}
		case database.StationTaskStatusREADY:
			if !t.StartedAt.Valid {
				t.StartedAt = ts(arg.At)
			}
			if !t.ReadyAt.Valid {
				t.ReadyAt = ts(arg.At)
			}
		case database.StationTaskStatusCOMPLETED:
			if !t.CompletedAt.Valid {
				t.CompletedAt = ts(arg.At)
			}
		}
		t.UpdatedAt = arg.At
		tasks[i] = t
		return t, nil
	}
	return database.StationTask{}, pgx.ErrNoRows
}

func (f *fakeStore) ListStationQueue(ctx context.Context, arg database.ListStationQueueParams) ([]database.ListStationQueueRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.ListStationQueueRow
	for id, tasks := range f.tasks {
		o := f.orders[id]
		if o.Status == database.OrderStatusSCHEDULED || o.Status == database.OrderStatusCANCELLED {
			continue
		}
		for _, t := range tasks {
			if t.ScreenKey != arg.ScreenKey {
				continue
			}
			if arg.Status.Valid && t.Status != arg.Status.StationTaskStatus {
				continue
			}
			out = append(out, database.ListStationQueueRow{StationTask: t, OrderStatus: o.Status, OrderedBy: o.OrderedBy, PickupTime: o.PickupTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationTask.CreatedAt.Before(out[j].StationTask.CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListOrderItemsByScreen(ctx context.Context, arg database.ListOrderItemsByScreenParams) ([]database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.OrderItem
	for _, it := range f.orderItems[arg.OrderID] {
		if it.ScreenKey == arg.ScreenKey {
			out = append(out, it)
		}
	}
	return out, nil
}

// --- shifts ---

func (f *fakeStore) CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error) {
	if err := f.fail("CreateShift"); err != nil {
		return database.Shift{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shifts {
		if s.UserID == arg.UserID && s.Status != database.ShiftStatusCLOSED {
			return database.Shift{}, &pgconn.PgError{Code: "23505", ConstraintName: activeShiftConstraint}
		}
	}
	s := database.Shift{
		ID:                uuid.New(),
		UserID:            arg.UserID,
		Status:            database.ShiftStatusOPEN,
		SystemCashTotal:   makeNumeric("0"),
		SystemQrTotal:     makeNumeric("0"),
		SystemOnlineTotal: makeNumeric("0"),
		OpenedAt:          arg.OpenedAt,
	}
	f.shifts[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[id]
	if !ok {
		return database.Shift{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) GetShiftForUpdate(ctx context.Context, id uuid.UUID) (database.Shift, error) {
	return f.GetShift(ctx, id)
}

func (f *fakeStore) GetActiveShiftByUser(ctx context.Context, userID uuid.UUID) (database.Shift, error) {
	if err := f.fail("GetActiveShiftByUser"); err != nil {
		return database.Shift{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shifts {
		if s.UserID == userID && s.Status != database.ShiftStatusCLOSED {
			return s, nil
		}
	}
	return database.Shift{}, pgx.ErrNoRows
}

func (f *fakeStore) GetLatestActiveShift(ctx context.Context) (database.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest database.Shift
	found := false
	for _, s := range f.shifts {
		if s.Status == database.ShiftStatusCLOSED {
			continue
		}
		if !found || s.OpenedAt.After(latest.OpenedAt) {
			latest, found = s, true
		}
	}
	if !found {
		return database.Shift{}, pgx.ErrNoRows
	}
	return latest, nil
}

func (f *fakeStore) AddShiftTotals(ctx context.Context, arg database.AddShiftTotalsParams) (database.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[arg.ID]
	if !ok || s.Status == database.ShiftStatusCLOSED {
		return database.Shift{}, pgx.ErrNoRows
	}
	// Cash and QR only count while the drawer is still open.
	drawer := !numericToDecimal(arg.Cash).IsZero() || !numericToDecimal(arg.Qr).IsZero()
	if drawer && s.Status != database.ShiftStatusOPEN {
		return database.Shift{}, pgx.ErrNoRows
	}
	s.SystemCashTotal = decimalToNumeric(numericToDecimal(s.SystemCashTotal).Add(numericToDecimal(arg.Cash)))
	s.SystemQrTotal = decimalToNumeric(numericToDecimal(s.SystemQrTotal).Add(numericToDecimal(arg.Qr)))
	s.SystemOnlineTotal = decimalToNumeric(numericToDecimal(s.SystemOnlineTotal).Add(numericToDecimal(arg.Online)))
	f.shifts[arg.ID] = s
	return s, nil
}

func (f *fakeStore) UpdateShiftStatus(ctx context.Context, arg database.UpdateShiftStatusParams) (database.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[arg.ID]
	if !ok || s.Status != arg.From {
		return database.Shift{}, pgx.ErrNoRows
	}
	s.Status = arg.Status
	switch arg.Status {
	case database.ShiftStatusCOUNTING:
		s.CountingStartedAt = ts(arg.At)
	case database.ShiftStatusCLOSED:
		s.ClosedAt = ts(arg.At)
	}
	f.shifts[arg.ID] = s
	return s, nil
}

func (f *fakeStore) ConfirmShift(ctx context.Context, arg database.ConfirmShiftParams) (database.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[arg.ID]
	if !ok || s.Status != database.ShiftStatusCOUNTING {
		return database.Shift{}, pgx.ErrNoRows
	}
	s.Status = database.ShiftStatusCONFIRMED
	s.StaffCashInput = arg.StaffCashInput
	s.StaffQrInput = arg.StaffQrInput
	s.CashDiscrepancy = arg.CashDiscrepancy
	s.ConfirmedAt = ts(arg.ConfirmedAt)
	f.shifts[arg.ID] = s
	return s, nil
}

func (f *fakeStore) ListShiftsOpenedBetween(ctx context.Context, arg database.ListShiftsOpenedBetweenParams) ([]database.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.Shift
	for _, s := range f.shifts {
		if !s.OpenedAt.Before(arg.Start) && s.OpenedAt.Before(arg.End) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

// --- days ---

func (f *fakeStore) GetDayClosing(ctx context.Context, businessDate pgtype.Date) (database.DayClosing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.closings[pgDateKey(businessDate)]
	if !ok {
		return database.DayClosing{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) CreateDayClosing(ctx context.Context, arg database.CreateDayClosingParams) (database.DayClosing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pgDateKey(arg.BusinessDate)
	if _, ok := f.closings[key]; ok {
		return database.DayClosing{}, pgx.ErrNoRows
	}
	c := database.DayClosing{BusinessDate: arg.BusinessDate, ClosedBy: arg.ClosedBy, ClosedAt: arg.ClosedAt}
	f.closings[key] = c
	return c, nil
}

func (f *fakeStore) LockBusinessDate(ctx context.Context, businessDate pgtype.Date) error {
	if err := f.fail("LockBusinessDate"); err != nil {
		return err
	}
	f.mu.Lock()
	f.dayLocks = append(f.dayLocks, "exclusive:"+pgDateKey(businessDate))
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) LockBusinessDateShared(ctx context.Context, businessDate pgtype.Date) error {
	if err := f.fail("LockBusinessDateShared"); err != nil {
		return err
	}
	f.mu.Lock()
	f.dayLocks = append(f.dayLocks, "shared:"+pgDateKey(businessDate))
	f.mu.Unlock()
	return nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
