package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/api/handler"
	apimw "github.com/notifyhub/chatbridge/internal/api/middleware"
	"github.com/notifyhub/chatbridge/internal/queue"
	"github.com/notifyhub/chatbridge/internal/service"
)

// Deps carries what the HTTP surface reads from the rest of the bridge.
type Deps struct {
	Intake    *service.IntakeService
	Queue     *queue.PriorityQueue
	Session   handler.SessionReporter
	Enabled   bool
	Templates func() []string
	Gatherer  prometheus.Gatherer
	// APIToken guards /api/v1 with a bearer token. Empty leaves it open.
	APIToken  string
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route.
func NewRouter(d Deps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(4 << 20)) // a full batch of 1000 notifications
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	nh := handler.NewNotificationHandler(d.Intake, logger)
	bh := handler.NewBatchHandler(d.Intake, logger)
	sh := handler.NewStatusHandler(d.Enabled, d.Session, d.Queue, d.Templates)
	hh := handler.NewHealthHandler(d.Session)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.RequireToken(d.APIToken))
		r.Post("/notifications/batch", bh.SubmitBatch)
		r.Post("/notifications", nh.Submit)
		r.Get("/status", sh.GetStatus)
	})

	return r
}
