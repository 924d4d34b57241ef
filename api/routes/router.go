package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillpoint/tillpoint-backend/api/controllers"
	"github.com/tillpoint/tillpoint-backend/api/middleware"
	exchangesvc "github.com/tillpoint/tillpoint-backend/internal/exchange"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	idemStore redis.IdempotencyStore,
	registry *prometheus.Registry,
	exchangeService exchangesvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg, cfg.Exchange.IdempotencyTTL))
		r.Post("/api/v1/exchanges", controllers.ExecuteExchange(exchangeService, logg))
	})
	r.Get("/api/v1/exchanges/{returnID}", controllers.GetExchange(exchangeService, logg))

	return r
}
