// Package notify routes domain events from committed state changes to live
// push channels and other sinks without blocking the caller.
//
// Delivery is best effort: Publish never waits, events are dropped when the
// queue is full, and a target with no live channel simply misses the event.
// Clients reconcile by polling.
package notify

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/canteen-pos/api/internal/enum"
	"github.com/google/uuid"
)

// Target names the audience of an event: one user, one station screen, or
// the management room.
type Target struct {
	Audience string `json:"audience"`
	Key      string `json:"key,omitempty"`
}

func User(id uuid.UUID) Target { return Target{Audience: enum.AudienceUser, Key: id.String()} }

func Screen(key string) Target { return Target{Audience: enum.AudienceScreen, Key: key} }

func Management() Target { return Target{Audience: enum.AudienceManagement} }

func (t Target) String() string {
	if t.Key == "" {
		return t.Audience
	}
	return t.Audience + ":" + t.Key
}

type Event struct {
	Target  Target
	Name    string
	Payload any
	At      time.Time
}

// Sink receives every dispatched event. Implementations must not block for
// long; the dispatcher delivers to sinks sequentially.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }

type Dispatcher struct {
	queue   chan Event
	sinks   []Sink
	dropped atomic.Int64
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue: make(chan Event, buffer),
		sinks: sinks,
	}
}

// Publish enqueues events for delivery. It never blocks.
func (d *Dispatcher) Publish(events ...Event) {
	for _, ev := range events {
		if ev.At.IsZero() {
			ev.At = time.Now()
		}
		select {
		case d.queue <- ev:
		default:
			d.dropped.Add(1)
			log.Printf("WARN: notify queue full, dropping %s for %s", ev.Name, ev.Target)
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers queued events until ctx is cancelled.
// This should be called as a goroutine: go dispatcher.Run(ctx)
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, ev); err != nil {
			log.Printf("ERROR: deliver %s to %s: %v", ev.Name, ev.Target, err)
		}
	}
}
