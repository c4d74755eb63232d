package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veysel440/go-etracker/internal/service"
	"github.com/Veysel440/go-etracker/pkg/rate"
)

// Deps wires the router to the services and runtime settings.
type Deps struct {
	Engine    *service.Engine
	Reports   *service.Reports
	Inventory *service.Inventory
	Logger    *slog.Logger

	// Registry receives the HTTP collectors and backs /metrics.
	Registry *prometheus.Registry
	// Ping reports storage health; nil means always healthy.
	Ping func(context.Context) error

	APIKeys        string
	RatePerMinute  int
	RequestTimeout time.Duration

	ExpiringWindowDays int
	UnenforcedLimit    int
}

func NewRouter(d Deps) (http.Handler, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.ExpiringWindowDays < 1 {
		d.ExpiringWindowDays = service.DefaultExpiringWindowDays
	}
	if d.UnenforcedLimit < 1 {
		d.UnenforcedLimit = service.DefaultUnenforcedLimit
	}
	hm, err := newHTTPMetrics(d.Registry)
	if err != nil {
		return nil, err
	}

	var rl *rate.Limiter
	if d.RatePerMinute > 0 {
		rl = rate.New(d.RatePerMinute, time.Minute)
	}
	auth := NewAPIKeyAuth(d.APIKeys)
	h := &handlers{deps: d}

	r := chi.NewRouter()
	r.Use(withRequestID, withRecover(d.Logger), withLogging(d.Logger), hm.middleware)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware, withRate(rl), withTimeout(d.RequestTimeout))

		r.Get("/inventory", h.search)
		r.Route("/inventory/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Get("/history", h.history)
			r.Get("/items/{group}/{key}/choices", h.choices)
			r.With(RequireActor).Patch("/items/{group}/{key}", h.updateItem)
		})
		r.Get("/reports", h.reports)
	})
	return r, nil
}
