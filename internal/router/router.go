package router

import (
	"log"
	"net/http"

	"github.com/canteen-pos/api/internal/config"
	"github.com/canteen-pos/api/internal/enum"
	"github.com/canteen-pos/api/internal/handler"
	mw "github.com/canteen-pos/api/internal/middleware"
	"github.com/canteen-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Services bundles what the handlers call into. In production every field is
// the matching *service type; tests substitute fakes.
type Services struct {
	Orders   handler.OrderServicer
	Payments handler.PaymentRecorder
	Stations handler.StationServicer
	Shifts   handler.ShiftServicer
	Days     handler.DayServicer
	Catalog  handler.CatalogServicer
	Calendar handler.OperationalCalendar
	DB       handler.Pinger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, screen pinning, and role-based middleware as needed.
func New(cfg *config.Config, svc Services, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", handler.Health(svc.DB))

	// Push channels (auth via ?token= inside the handlers)
	r.Get("/ws/me", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeUser(hub, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/screens/{key}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeScreen(hub, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/management", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeManagement(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler := handler.NewOrderHandler(svc.Orders)
		paymentHandler := handler.NewPaymentHandler(svc.Payments)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)

			// Counter payments (nested under orders)
			r.Route("/{id}/payments", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleManager, enum.UserRoleOwner))
				paymentHandler.RegisterRoutes(r)
			})
		})

		// Payment gateway callback
		r.With(mw.RequireRole(enum.UserRoleSystem)).Post("/payments/callback", paymentHandler.Callback)

		// Station screens
		r.Route("/screens/{key}", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleKitchen, enum.UserRoleManager, enum.UserRoleOwner))
			r.Use(mw.RequireScreen)
			handler.NewStationHandler(svc.Stations).RegisterRoutes(r)
		})

		// Cashier shifts
		r.Route("/shifts", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleManager, enum.UserRoleOwner))
			handler.NewShiftHandler(svc.Shifts).RegisterRoutes(r)
		})

		// Management
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))

			r.Route("/reports", handler.NewReportsHandler(svc.Days, svc.Calendar).RegisterRoutes)
			r.Route("/catalog", handler.NewCatalogHandler(svc.Catalog).RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
