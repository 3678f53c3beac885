package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusScheduled = "SCHEDULED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusCompleted = "COMPLETED"
)

const (
	TaskStatusPending   = "PENDING"
	TaskStatusPreparing = "PREPARING"
	TaskStatusReady     = "READY"
	TaskStatusCompleted = "COMPLETED"
)

const (
	ShiftStatusOpen      = "OPEN"
	ShiftStatusDeclaring = "DECLARING"
	ShiftStatusCounting  = "COUNTING"
	ShiftStatusConfirmed = "CONFIRMED"
	ShiftStatusClosed    = "CLOSED"
)

const (
	PaymentMethodCash   = "CASH"
	PaymentMethodQR     = "QR"
	PaymentMethodOnline = "ONLINE"
)

// ── Group B: Token roles (no DB constraint) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
	UserRoleStudent = "STUDENT"
	UserRoleSystem  = "SYSTEM"
)

// ── Group C: Push events ──

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderPaid          = "OrderPaid"
	EventOrderReady         = "OrderReady"
	EventOrderCompleted     = "OrderCompleted"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventTaskUpdated        = "TaskUpdated"
	EventShiftOpened        = "ShiftOpened"
	EventShiftClosed        = "ShiftClosed"
	EventDayClosed          = "DayClosed"
	EventMenuItemCreated    = "MenuItemCreated"
	EventMenuItemUpdated    = "MenuItemUpdated"
	EventMenuItemDeleted    = "MenuItemDeleted"
)

// Audience kinds a push target can address.
const (
	AudienceUser       = "user"
	AudienceScreen     = "screen"
	AudienceManagement = "management"
)
