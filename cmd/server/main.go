package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/canteen-pos/api/internal/cache"
	"github.com/canteen-pos/api/internal/config"
	"github.com/canteen-pos/api/internal/database"
	"github.com/canteen-pos/api/internal/mq"
	"github.com/canteen-pos/api/internal/notify"
	"github.com/canteen-pos/api/internal/opday"
	"github.com/canteen-pos/api/internal/router"
	"github.com/canteen-pos/api/internal/service"
	"github.com/canteen-pos/api/internal/worker"
	"github.com/canteen-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	calendar, err := opday.NewCalendar(cfg.Timezone, cfg.DayStartHour)
	if err != nil {
		return fmt.Errorf("operational calendar: %w", err)
	}

	reports, err := cache.Open(cfg.BadgerPath)
	if err != nil {
		return fmt.Errorf("open report cache: %w", err)
	}
	defer reports.Close() //nolint:errcheck

	hub := ws.NewHub()
	go hub.Run()

	sinks := []notify.Sink{hub}
	var broker *mq.Client
	if cfg.RabbitMQURL != "" {
		broker, err = mq.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer broker.Close()
		if err := broker.Declare(cfg.EventsExchange, cfg.PaymentQueue); err != nil {
			return fmt.Errorf("declare topology: %w", err)
		}
		sinks = append(sinks, mq.NewPublisher(broker.PublishChannel(), cfg.EventsExchange))
	} else {
		log.Println("RABBITMQ_URL not set, events are pushed to websockets only")
	}

	dispatcher := notify.NewDispatcher(cfg.NotifyBuffer, sinks...)
	go dispatcher.Run(ctx)

	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore { return database.New(db) }, calendar, dispatcher, cfg.ScheduleThreshold)
	svc := router.Services{
		Orders:   orders,
		Payments: orders,
		Stations: service.NewStationService(pool, func(db database.DBTX) service.StationStore { return database.New(db) }, dispatcher),
		Shifts:   service.NewShiftService(pool, func(db database.DBTX) service.ShiftStore { return database.New(db) }, calendar, dispatcher),
		Days:     service.NewDayService(pool, func(db database.DBTX) service.DayStore { return database.New(db) }, calendar, reports, dispatcher),
		Catalog:  service.NewCatalogService(pool, func(db database.DBTX) service.CatalogStore { return database.New(db) }, dispatcher),
		Calendar: calendar,
		DB:       pool,
	}

	go worker.ReleaseScheduled(ctx, orders, cfg.ReleaseInterval)

	if broker != nil {
		deliveries, err := broker.Consume(cfg.PaymentQueue, "canteen-api", 10)
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.PaymentQueue, err)
		}
		go func() {
			if err := mq.NewPaymentConsumer(orders).Run(ctx, deliveries); err != nil {
				log.Printf("ERROR: payment consumer stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, svc, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
