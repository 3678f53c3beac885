package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusSCHEDULED OrderStatus = "SCHEDULED"
	OrderStatusPREPARING OrderStatus = "PREPARING"
	OrderStatusREADY     OrderStatus = "READY"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
	OrderStatusCOMPLETED OrderStatus = "COMPLETED"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type StationTaskStatus string

const (
	StationTaskStatusPENDING   StationTaskStatus = "PENDING"
	StationTaskStatusPREPARING StationTaskStatus = "PREPARING"
	StationTaskStatusREADY     StationTaskStatus = "READY"
	StationTaskStatusCOMPLETED StationTaskStatus = "COMPLETED"
)

func (e *StationTaskStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = StationTaskStatus(s)
	case string:
		*e = StationTaskStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for StationTaskStatus: %T", src)
	}
	return nil
}

type NullStationTaskStatus struct {
	StationTaskStatus StationTaskStatus
	Valid             bool // Valid is true if StationTaskStatus is not NULL
}

func (ns *NullStationTaskStatus) Scan(value interface{}) error {
	if value == nil {
		ns.StationTaskStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.StationTaskStatus.Scan(value)
}

func (ns NullStationTaskStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.StationTaskStatus), nil
}

type ShiftStatus string

const (
	ShiftStatusOPEN      ShiftStatus = "OPEN"
	ShiftStatusDECLARING ShiftStatus = "DECLARING"
	ShiftStatusCOUNTING  ShiftStatus = "COUNTING"
	ShiftStatusCONFIRMED ShiftStatus = "CONFIRMED"
	ShiftStatusCLOSED    ShiftStatus = "CLOSED"
)

func (e *ShiftStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = ShiftStatus(s)
	case string:
		*e = ShiftStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for ShiftStatus: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCASH   PaymentMethod = "CASH"
	PaymentMethodQR     PaymentMethod = "QR"
	PaymentMethodONLINE PaymentMethod = "ONLINE"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

type NullPaymentMethod struct {
	PaymentMethod PaymentMethod
	Valid         bool // Valid is true if PaymentMethod is not NULL
}

func (ns *NullPaymentMethod) Scan(value interface{}) error {
	if value == nil {
		ns.PaymentMethod, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.PaymentMethod.Scan(value)
}

func (ns NullPaymentMethod) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.PaymentMethod), nil
}

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type DayClosing struct {
	BusinessDate pgtype.Date
	ClosedBy     uuid.UUID
	ClosedAt     time.Time
}

type MenuItem struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID            uuid.UUID
	OrderedBy     uuid.UUID
	Status        OrderStatus
	TotalPrice    pgtype.Numeric
	PickupTime    pgtype.Timestamptz
	PaymentMethod NullPaymentMethod
	PaidAmount    pgtype.Numeric
	PaidAt        pgtype.Timestamptz
	PaidBy        pgtype.UUID
	ShiftID       pgtype.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CancelledAt   pgtype.Timestamptz
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Position   int32
	MenuItemID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  pgtype.Numeric
	ScreenKey  string
}

type Screen struct {
	ScreenKey string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Shift struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Status            ShiftStatus
	SystemCashTotal   pgtype.Numeric
	SystemQrTotal     pgtype.Numeric
	SystemOnlineTotal pgtype.Numeric
	StaffCashInput    pgtype.Numeric
	StaffQrInput      pgtype.Numeric
	CashDiscrepancy   pgtype.Numeric
	OpenedAt          time.Time
	CountingStartedAt pgtype.Timestamptz
	ConfirmedAt       pgtype.Timestamptz
	ClosedAt          pgtype.Timestamptz
}

type StationTask struct {
	OrderID     uuid.UUID
	ScreenKey   string
	Status      StationTaskStatus
	StartedAt   pgtype.Timestamptz
	ReadyAt     pgtype.Timestamptz
	CompletedAt pgtype.Timestamptz
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
