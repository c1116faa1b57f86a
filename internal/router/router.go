package router

import (
	"net/http"

	"github.com/campuscanteen/api/internal/config"
	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/handler"
	mw "github.com/campuscanteen/api/internal/middleware"
	"github.com/campuscanteen/api/internal/payment"
	"github.com/campuscanteen/api/internal/service"
	"github.com/campuscanteen/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, admin role, and canteen scoping middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, gateway payment.Gateway) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // web dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(queries, pool, newOrderStore, cfg.PlatformFee)
	cartService := service.NewCartService(queries)
	canteenService := service.NewCanteenService(queries, cfg.StatsLocation)

	canteenHandler := handler.NewCanteenHandler(queries, canteenService, hub)
	menuHandler := handler.NewMenuHandler(queries)
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	paymentHandler := handler.NewPaymentHandler(orderService, queries, gateway, hub)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Browsing
		canteenHandler.RegisterRoutes(r)
		menuHandler.RegisterRoutes(r)

		// Cart and orders for the authenticated user
		cartHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)

		// Canteen management, scoped to the admin's own canteen
		r.Route("/admin/canteens/{cid}", func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Use(mw.RequireCanteen)

			canteenHandler.RegisterAdminRoutes(r)
			menuHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
		})
	})

	return r
}
