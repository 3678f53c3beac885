package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/canteen-pos/api/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishChannel is the part of *amqp.Channel the publisher needs.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EventMessage is the body published for every domain event.
type EventMessage struct {
	Name    string        `json:"name"`
	Target  notify.Target `json:"target"`
	Payload any           `json:"payload"`
	At      time.Time     `json:"at"`
}

// Publisher mirrors dispatched events onto a topic exchange. It implements
// notify.Sink; the routing key is "<audience>.<event>", e.g.
// "screen.TaskUpdated", so consumers can bind on either part.
type Publisher struct {
	ch       publishChannel
	exchange string
	timeout  time.Duration
	mu       sync.Mutex
}

func NewPublisher(ch publishChannel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, timeout: 5 * time.Second}
}

func RoutingKey(ev notify.Event) string {
	return ev.Target.Audience + "." + ev.Name
}

func (p *Publisher) Deliver(ctx context.Context, ev notify.Event) error {
	body, err := json.Marshal(EventMessage{
		Name:    ev.Name,
		Target:  ev.Target,
		Payload: ev.Payload,
		At:      ev.At,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At.UTC(),
		Type:         ev.Name,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	return nil
}
