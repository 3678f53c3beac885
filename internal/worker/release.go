// Package worker runs background jobs that belong to the order lifecycle.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/canteen-pos/api/internal/database"
)

// Releaser is satisfied by *service.OrderService.
type Releaser interface {
	ReleaseDueOrders(ctx context.Context) ([]database.Order, error)
}

// ReleaseScheduled moves Scheduled orders into the station queues once their
// pickup time is within the scheduling threshold. It runs one pass right away
// and then every interval until ctx is cancelled.
func ReleaseScheduled(ctx context.Context, releaser Releaser, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		releaseOnce(ctx, releaser)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func releaseOnce(ctx context.Context, releaser Releaser) {
	released, err := releaser.ReleaseDueOrders(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("ERROR: release scheduled orders: %v", err)
		return
	}
	if len(released) > 0 {
		log.Printf("released %d scheduled orders", len(released))
	}
}
