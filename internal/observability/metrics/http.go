package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics covers both the HTTP surface and the chat workflow runs
// behind it.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	workflowRunsTotal     *prometheus.CounterVec
	workflowVerdictsTotal *prometheus.CounterVec
	workflowLoopSteps     *prometheus.HistogramVec
	workflowDuration      *prometheus.HistogramVec
	searchFallbacksTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	workflowRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total completed chat workflow runs by entry route.",
		},
		[]string{"service", "route"},
	)
	workflowVerdictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "workflow",
			Name:      "verdicts_total",
			Help:      "Total grounding verdicts on final answers.",
		},
		[]string{"service", "verdict"},
	)
	workflowLoopSteps := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "workflow",
			Name:      "loop_steps",
			Help:      "Distribution of web search visits per run.",
			Buckets:   []float64{0, 1, 2, 3, 4},
		},
		[]string{"service"},
	)
	workflowDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "workflow",
			Name:      "duration_seconds",
			Help:      "Chat workflow duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	searchFallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "workflow",
			Name:      "search_fallbacks_total",
			Help:      "Total runs that fell back to web search after grading or verification.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		workflowRunsTotal,
		workflowVerdictsTotal,
		workflowLoopSteps,
		workflowDuration,
		searchFallbacksTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		workflowRunsTotal:     workflowRunsTotal,
		workflowVerdictsTotal: workflowVerdictsTotal,
		workflowLoopSteps:     workflowLoopSteps,
		workflowDuration:      workflowDuration,
		searchFallbacksTotal:  searchFallbacksTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordWorkflowRun(service, route, verdict string, loopSteps int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	if verdict == "" {
		verdict = "unknown"
	}
	m.workflowRunsTotal.WithLabelValues(service, route).Inc()
	m.workflowVerdictsTotal.WithLabelValues(service, verdict).Inc()
	m.workflowLoopSteps.WithLabelValues(service).Observe(float64(loopSteps))
	m.workflowDuration.WithLabelValues(service).Observe(duration.Seconds())

	if route != "web_search" && loopSteps > 0 {
		m.searchFallbacksTotal.WithLabelValues(service).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
