package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yvoloshin/paylink-backend/api/controllers"
	"github.com/yvoloshin/paylink-backend/api/middleware"
	"github.com/yvoloshin/paylink-backend/internal/dispatch"
	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/internal/issuance"
	"github.com/yvoloshin/paylink-backend/internal/orders"
	"github.com/yvoloshin/paylink-backend/internal/webhooks/channel"
	"github.com/yvoloshin/paylink-backend/pkg/config"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// Params bundles everything the router mounts.
type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	Probes    map[string]controllers.Probe
	Channel   channel.Service
	Drafts    drafts.Service
	Dispatch  dispatch.Service
	Orders    orders.Service
	Issuances issuance.Repository
	Gatherer  prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(p.Config.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.Probes))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/channel", controllers.ChannelWebhook(p.Channel, p.Logger))
		r.Get("/bundles/{code}", controllers.FetchBundle(p.Drafts, p.Logger))
		r.Post("/orders", controllers.CreateOrder(p.Orders, p.Logger))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(p.Config.Admin, p.Logger))
			r.Get("/dispatch-plan", controllers.GetDispatchPlan(p.Dispatch, p.Logger))
			r.Put("/dispatch-plan", controllers.PutDispatchPlan(p.Dispatch, p.Logger))
			r.Get("/issuances", controllers.ListIssuances(p.Issuances, p.Logger))
		})
	})

	return r
}
