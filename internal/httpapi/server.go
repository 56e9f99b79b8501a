// Package httpapi serves the query facade as read-only JSON over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pable/go-lineup-metrics/internal/logging"
	"github.com/pable/go-lineup-metrics/internal/metrics"
	"github.com/pable/go-lineup-metrics/internal/query"
)

// NewRouter creates the chi router with every route and middleware.
func NewRouter(svc *query.Service, rec *metrics.Recorder, log *logging.Logger) *chi.Mux {
	if log == nil {
		log = logging.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(rec, log.Named("http")))

	h := &handler{svc: svc}

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lineups", h.listLineups)
		r.Get("/lineups/identity", h.lineupIdentity)
		r.Get("/lineups/{lineupID}", h.lineupStats)

		r.Get("/onoff", h.listOnOff)
		r.Get("/players/{playerID}/onoff", h.onOff)

		r.Get("/games", h.listGames)
		r.Get("/games/pending", h.pendingGames)
		r.Get("/games/{gameID}", h.gameStatus)
		r.Get("/games/{gameID}/intervals", h.intervals)
		r.Get("/games/{gameID}/players/{playerID}/stints", h.stints)
	})

	return r
}

// instrument records request counts and latency by route pattern.
func instrument(rec *metrics.Recorder, log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			rec.HTTPRequest(route, ww.Status(), elapsed)
			log.Debug("request", "method", r.Method, "route", route, "status", ww.Status(),
				"elapsed", elapsed, "request_id", middleware.GetReqID(r.Context()))
		})
	}
}
