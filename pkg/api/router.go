package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Routes builds the HTTP handler. gatherer backs /metrics and may be nil.
func (a *API) Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.HealthCheck)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The event stream is long-lived and stays outside the request timeout.
		r.Get("/events/ws", a.StreamEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/thresholds", a.GetThresholds)
			r.Put("/thresholds", a.PutThresholds)

			r.Route("/twins", func(r chi.Router) {
				r.Get("/", a.ListTwins)
				r.Post("/", a.CreateTwin)
				r.Route("/{twinId}", func(r chi.Router) {
					r.Get("/", a.GetTwin)
					r.Delete("/", a.DeleteTwin)
					r.Get("/history", a.GetHistory)
					r.Post("/start", a.StartMonitoring)
					r.Post("/pause", a.PauseMonitoring)
					r.Post("/sample", a.SampleNow)
					r.Post("/predict", a.PredictNow)
					r.Post("/simulate", a.Simulate)
				})
			})
		})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Debug("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
