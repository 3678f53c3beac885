package service

import (
	"sync"
	"testing"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/opday"
	"github.com/google/uuid"
)

var wib = time.FixedZone("WIB", 7*3600)

// memCache implements ReportCache.
type memCache struct {
	mu      sync.Mutex
	reports map[string]*DailyReport
	puts    int
}

func (c *memCache) GetReport(date string) (*DailyReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[date]
	return r, ok, nil
}

func (c *memCache) PutReport(r *DailyReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[r.Date] = r
	c.puts++
	return nil
}

// testEnv wires every service to one fake store and a controllable clock.
type testEnv struct {
	store    *fakeStore
	tx       *mockTx
	notifier *recordingNotifier
	cache    *memCache
	calendar *opday.Calendar

	mu  sync.Mutex
	now time.Time

	orders   *OrderService
	stations *StationService
	shifts   *ShiftService
	days     *DayService
	catalog  *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cal, err := opday.NewCalendar(wib, 5)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}

	env := &testEnv{
		store:    newFakeStore(),
		tx:       &mockTx{},
		notifier: &recordingNotifier{},
		cache:    &memCache{reports: make(map[string]*DailyReport)},
		calendar: cal,
		now:      time.Date(2026, 3, 10, 10, 0, 0, 0, wib),
	}
	pool := &mockPool{tx: env.tx}
	clock := func() time.Time {
		env.mu.Lock()
		defer env.mu.Unlock()
		return env.now
	}

	env.orders = NewOrderService(pool, func(database.DBTX) OrderStore { return env.store }, cal, env.notifier, 30*time.Minute)
	env.orders.now = clock
	env.stations = NewStationService(pool, func(database.DBTX) StationStore { return env.store }, env.notifier)
	env.stations.now = clock
	env.shifts = NewShiftService(pool, func(database.DBTX) ShiftStore { return env.store }, cal, env.notifier)
	env.shifts.now = clock
	env.days = NewDayService(pool, func(database.DBTX) DayStore { return env.store }, cal, env.cache, env.notifier)
	env.days.now = clock
	env.catalog = NewCatalogService(pool, func(database.DBTX) CatalogStore { return env.store }, env.notifier)
	env.catalog.now = clock
	return env
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// placeOrder creates an immediate order for owner with one of each item.
func (e *testEnv) placeOrder(t *testing.T, owner uuid.UUID, itemIDs ...uuid.UUID) *OrderDetail {
	t.Helper()
	req := CreateOrderRequest{OrderedBy: owner}
	for _, id := range itemIDs {
		req.Items = append(req.Items, CreateOrderItemRequest{MenuItemID: id.String(), Quantity: 1})
	}
	detail, err := e.orders.CreateOrder(t.Context(), req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return detail
}

func (e *testEnv) openShift(t *testing.T, cashier uuid.UUID) database.Shift {
	t.Helper()
	shift, err := e.shifts.OpenShift(t.Context(), cashier)
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}
	return shift
}

// reconcile drives a shift from Open to Closed with the given counted cash.
func (e *testEnv) reconcile(t *testing.T, shiftID uuid.UUID, by Actor, cash string) database.Shift {
	t.Helper()
	ctx := t.Context()
	if _, err := e.shifts.StartDeclare(ctx, shiftID, by); err != nil {
		t.Fatalf("start declare: %v", err)
	}
	if _, err := e.shifts.StartCounting(ctx, shiftID, by); err != nil {
		t.Fatalf("start counting: %v", err)
	}
	if _, err := e.shifts.Confirm(ctx, shiftID, dec(cash), dec("0"), by); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	closed, err := e.shifts.CloseShift(ctx, shiftID, by)
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	return closed
}

func cashier(id uuid.UUID) Actor { return Actor{UserID: id, Role: "CASHIER"} }

func student(id uuid.UUID) Actor { return Actor{UserID: id, Role: "STUDENT"} }

var manager = Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000aa"), Role: "MANAGER"}
