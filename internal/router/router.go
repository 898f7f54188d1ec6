package router

import (
	"context"
	"net/http"
	"time"

	"bookshop/internal/handler"
	"bookshop/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Params holds everything the router needs.
type Params struct {
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Promo    *handler.PromoHandler
	Admin    *handler.AdminHandler
	Cron     *handler.CronHandler

	APIKey     string
	CronSecret string

	// DB is checked by /health when set.
	DB       Pinger
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

const healthTimeout = 2 * time.Second

// New creates a new HTTP router with all routes and middleware configured.
func New(p Params) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS, then per-group auth
	r.Use(
		middleware.Recovery(p.Logger),
		chimw.RequestID,
		middleware.Logging(p.Logger),
		middleware.CORS,
	)

	r.Get("/health", health(p.DB))
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", p.Products.List)
		r.Get("/products/{id}", p.Products.GetByID)

		r.Post("/orders", p.Orders.Create)
		r.Get("/orders/{id}", p.Orders.GetByID)

		r.Post("/promo/validate", p.Promo.Validate)

		r.With(middleware.BearerAuth(p.CronSecret, p.Logger)).
			Post("/cron/reconcile-deliveries", p.Cron.ReconcileDeliveries)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(p.APIKey, p.Logger))

		r.Get("/orders", p.Admin.ListOrders)
		r.Get("/orders/{id}", p.Admin.GetOrder)
		r.Patch("/orders/{id}/status", p.Admin.UpdateStatus)
		r.Put("/orders/{id}/tracking", p.Admin.SetTracking)
		r.Post("/orders/{id}/waybill", p.Admin.CreateWaybill)
		r.Post("/shipping/status", p.Admin.CheckDeliveryStatus)
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status": "unhealthy"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}
}
