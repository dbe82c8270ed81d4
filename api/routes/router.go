package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kagetora-io/clubledger-backend/api/controllers"
	"github.com/kagetora-io/clubledger-backend/api/middleware"
	"github.com/kagetora-io/clubledger-backend/internal/attribution"
	"github.com/kagetora-io/clubledger-backend/internal/guestorders"
	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/internal/quote"
	"github.com/kagetora-io/clubledger-backend/internal/visits"
	"github.com/kagetora-io/clubledger-backend/pkg/config"
	"github.com/kagetora-io/clubledger-backend/pkg/db"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
	"github.com/kagetora-io/clubledger-backend/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	QuoteEngine  *quote.Engine
	QuoteApply   quote.ApplyService
	Visits       visits.Service
	Orders       orders.Service
	Attributions attribution.Service
	GuestOrders  guestorders.Service
	HTTPMetrics  *metrics.HTTPMetrics
	BillMetrics  *metrics.BillingMetrics
	PromGatherer prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB))
	})

	if d.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.PromGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/billing/quote", controllers.ComputeQuote(d.QuoteEngine, cfg, d.BillMetrics, logg))

		r.Route("/visits", func(r chi.Router) {
			r.Post("/", controllers.CheckIn(d.Visits, logg))
			r.Route("/{visitID}", func(r chi.Router) {
				r.Get("/", controllers.GetVisit(d.Visits, logg))
				r.Post("/checkout", controllers.CheckoutVisit(d.Visits, logg))
				r.Post("/cancel", controllers.CancelVisit(d.Visits, logg))
				r.Post("/merge", controllers.MergeVisit(d.Visits, logg))

				r.Post("/quote/preview", controllers.PreviewVisitQuote(d.QuoteApply, cfg, d.BillMetrics, logg))
				r.Post("/quote/apply", controllers.ApplyVisitQuote(d.QuoteApply, cfg, d.BillMetrics, logg))

				r.Get("/segments", controllers.ListSegments(d.Visits, logg))
				r.Post("/segments", controllers.OpenSegment(d.Visits, logg))

				r.Get("/engagements", controllers.ListEngagements(d.Visits, logg))
				r.Post("/engagements", controllers.AddEngagement(d.Visits, logg))

				r.Get("/guests", controllers.ListGuests(d.GuestOrders, logg))
				r.Post("/guests", controllers.RegisterGuest(d.GuestOrders, logg))
				r.Put("/primary-payer", controllers.SetPrimaryPayer(d.GuestOrders, logg))

				r.Get("/order-items", controllers.ListVisitOrderItems(d.Orders, logg))
			})
		})

		r.Post("/engagements/{engagementID}/end", controllers.EndEngagement(d.Visits, logg))

		r.Route("/order-items/{orderItemID}", func(r chi.Router) {
			r.Get("/", controllers.GetOrderItem(d.Orders, logg))
			r.Post("/correct", controllers.CorrectOrderItem(d.Orders, logg))

			r.Get("/attributions", controllers.ListAttributions(d.Attributions, logg))
			r.Put("/attributions", controllers.SetAttributions(d.Attributions, logg))
			r.Post("/attributions/auto", controllers.AutoAttributions(d.Attributions, logg))

			r.Get("/shares", controllers.ListOrderShares(d.GuestOrders, logg))
			r.Put("/assign", controllers.AssignOrderToGuest(d.GuestOrders, logg))
			r.Put("/split", controllers.SplitOrderAcrossGuests(d.GuestOrders, logg))
		})
	})

	return r
}
