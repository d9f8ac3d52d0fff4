package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"bobemploi/internal/reducer"
	"bobemploi/internal/store"
)

// Metrics exposes Prometheus collectors for the client store and the
// development backend.
type Metrics struct {
	intents          *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	actionsGenerated prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the metrics registered with the global Prometheus registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs and registers the collectors. Tests should pass a fresh
// prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bob",
				Subsystem: "store",
				Name:      "intents_total",
				Help:      "Intents dispatched to the store.",
			},
			[]string{"type", "status", "changed"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bob",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served by the backend.",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bob",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency of HTTP requests served by the backend.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		actionsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bob",
				Subsystem: "generator",
				Name:      "actions_generated_total",
				Help:      "Actions added to projects by action plan refreshes.",
			},
		),
	}
	reg.MustRegister(m.intents, m.httpRequests, m.httpDuration, m.actionsGenerated)
	return m
}

// StoreHook counts dispatched intents.
func (m *Metrics) StoreHook() store.Hook {
	return func(in reducer.Intent, prev, next *reducer.State) {
		if m == nil {
			return
		}
		status := ""
		if a, ok := in.(reducer.AsyncIntent); ok {
			status = string(a.AsyncState().Status)
		}
		m.intents.WithLabelValues(in.IntentType(), status, strconv.FormatBool(prev != next)).Inc()
	}
}

// AddGeneratedActions records actions created by the generator.
func (m *Metrics) AddGeneratedActions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.actionsGenerated.Add(float64(n))
}

// Middleware records request counts and latencies labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
