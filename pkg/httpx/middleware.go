package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/dmehra2102/storefront/pkg/tracing"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3200},
		},
		[]string{"method", "path"},
	)
)

// Observe records metrics, starts a server span and logs one line per request.
func Observe(log *slog.Logger, service string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(service + "-http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := tracing.ExtractHTTP(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			dur := time.Since(start)
			httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(r.Method, path).Observe(float64(dur.Milliseconds()))

			attrs := []any{
				"method", r.Method,
				"path", path,
				"status", status,
				"dur_ms", dur.Milliseconds(),
				"req_id", middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				log.ErrorContext(ctx, "http_request", attrs...)
				return
			}
			log.InfoContext(ctx, "http_request", attrs...)
		})
	}
}
