package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/glowcart-backend/api/controllers"
	admincontrollers "github.com/glowcart/glowcart-backend/api/controllers/admin"
	cartcontrollers "github.com/glowcart/glowcart-backend/api/controllers/cart"
	"github.com/glowcart/glowcart-backend/api/middleware"
	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/db"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	"github.com/glowcart/glowcart-backend/pkg/logger"
	"github.com/glowcart/glowcart-backend/pkg/metrics"
	"github.com/glowcart/glowcart-backend/pkg/redis"
)

// redisDependency is what the router needs from redis: readiness and the
// idempotency cache.
type redisDependency interface {
	redis.Pinger
	redis.IdempotencyStore
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisDependency,
	metricsHandler http.Handler,
	httpMetrics *metrics.HTTPMetrics,
	cartService cartcontrollers.Service,
	reservationService admincontrollers.ReservationService,
	sweeper admincontrollers.Sweeper,
	stockAuditor admincontrollers.StockAuditor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.AccessLog(logg, httpMetrics),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Reservation.RequestTimeout))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Identify(cfg.JWT, logg))
				r.Use(middleware.Idempotency(redisClient, logg))

				r.Get("/", cartcontrollers.CartFetch(cartService, logg))
				r.Delete("/", cartcontrollers.CartClear(cartService, logg))
				r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
				r.Patch("/items/{productId}", cartcontrollers.CartUpdateItem(cartService, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(cartService, logg))
			})

			r.With(middleware.Auth(cfg.JWT, logg)).Post("/migrate", cartcontrollers.CartMigrate(cartService, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleService)).
				Post("/reservations/{reservationId}/complete", admincontrollers.ReservationComplete(reservationService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
				r.Post("/reservations/{reservationId}/extend", admincontrollers.ReservationExtend(reservationService, logg))
				r.Post("/reservations/sweep", admincontrollers.ReservationSweep(sweeper, logg))
				r.Get("/products/{productId}/stock", admincontrollers.StockAudit(stockAuditor, logg))
			})
		})
	})

	return r
}
