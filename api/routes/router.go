package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telavo/activation-backend/api/controllers"
	"github.com/telavo/activation-backend/api/middleware"
	"github.com/telavo/activation-backend/internal/catalog"
	"github.com/telavo/activation-backend/internal/orders"
	"github.com/telavo/activation-backend/internal/profiles"
	"github.com/telavo/activation-backend/pkg/config"
	"github.com/telavo/activation-backend/pkg/db"
	"github.com/telavo/activation-backend/pkg/logger"
	pkgredis "github.com/telavo/activation-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Orders   orders.Service
	Profiles profiles.Service
	Catalog  catalog.Service
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	var redisP pkgredis.Pinger
	if deps.Redis != nil {
		redisP = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Config.JWT, deps.Logger))

		var idemStore pkgredis.IdempotencyStore
		if deps.Redis != nil {
			idemStore = deps.Redis
		}
		r.Use(middleware.Idempotency(idemStore, deps.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.StartOrder(deps.Orders, deps.Logger))
			r.Get("/", controllers.ListOrders(deps.Orders, deps.Logger))

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(deps.Orders, deps.Logger))
				r.Get("/resume", controllers.ResumeOrder(deps.Orders, deps.Logger))
				r.Post("/steps/{step}", controllers.SaveStep(deps.Orders, deps.Logger))
				r.Post("/retreat", controllers.Retreat(deps.Orders, deps.Logger))
				r.Post("/cancel", controllers.CancelOrder(deps.Orders, deps.Logger))
				r.Post("/skip-porting", controllers.SkipPorting(deps.Orders, deps.Logger))
			})
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(deps.Profiles, deps.Logger))
			r.Put("/contact", controllers.UpdateContact(deps.Profiles, deps.Logger))
			r.Put("/shipping", controllers.UpdateShipping(deps.Profiles, deps.Logger))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/devices", controllers.ListDevices(deps.Catalog, deps.Logger))
			r.Get("/devices/check", controllers.CheckDevice(deps.Catalog, deps.Logger))
			r.Get("/plans", controllers.ListPlans(deps.Catalog, deps.Logger))
		})
	})

	return r
}
