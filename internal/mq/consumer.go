package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/service"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

// PaymentRecorder is satisfied by *service.OrderService.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, req service.PaymentRequest) (database.Order, error)
}

// PaymentMessage is a finalized payment reported by the payment gateway.
type PaymentMessage struct {
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// acknowledger is the settle half of amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDeadLetter
)

var errMalformed = errors.New("malformed payment message")

// PaymentConsumer applies gateway payment callbacks to the order ledger.
// Duplicates are acknowledged, messages that can never apply are
// dead-lettered, and transient failures are requeued once.
type PaymentConsumer struct {
	payments PaymentRecorder
	timeout  time.Duration
}

func NewPaymentConsumer(payments PaymentRecorder) *PaymentConsumer {
	return &PaymentConsumer{payments: payments, timeout: 10 * time.Second}
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
func (c *PaymentConsumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, d, d.Body, d.Redelivered)
		}
	}
}

func (c *PaymentConsumer) handle(ctx context.Context, ack acknowledger, body []byte, redelivered bool) outcome {
	err := c.apply(ctx, body)
	result := classify(err, redelivered)

	var settleErr error
	switch result {
	case outcomeAck:
		settleErr = ack.Ack(false)
	case outcomeRequeue:
		log.Printf("WARN: payment message requeued: %v", err)
		settleErr = ack.Nack(false, true)
	case outcomeDeadLetter:
		log.Printf("ERROR: payment message dead-lettered: %v", err)
		settleErr = ack.Nack(false, false)
	}
	if settleErr != nil {
		log.Printf("ERROR: settle payment message: %v", settleErr)
	}
	return result
}

func (c *PaymentConsumer) apply(ctx context.Context, body []byte) error {
	var msg PaymentMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	orderID, err := uuid.Parse(msg.OrderID)
	if err != nil {
		return fmt.Errorf("%w: invalid order_id %q", errMalformed, msg.OrderID)
	}
	method := msg.Method
	if method == "" {
		method = enum.PaymentMethodOnline
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err = c.payments.RecordPayment(ctx, service.PaymentRequest{
		OrderID: orderID,
		Method:  method,
		Amount:  msg.Amount,
	})
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	return nil
}

func classify(err error, redelivered bool) outcome {
	switch {
	case err == nil, errors.Is(err, service.ErrAlreadyPaid):
		return outcomeAck
	case errors.Is(err, errMalformed),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrOrderCancelled),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrNoActiveShift):
		return outcomeDeadLetter
	case redelivered:
		return outcomeDeadLetter
	default:
		return outcomeRequeue
	}
}
