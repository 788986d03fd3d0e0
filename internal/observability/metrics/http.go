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

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchesTotal       *prometheus.CounterVec
	searchPathTotal     *prometheus.CounterVec
	searchFallbackTotal *prometheus.CounterVec
	searchResultCount   *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	agenticRoundsTotal  *prometheus.HistogramVec
	agenticWebHitsTotal *prometheus.CounterVec
	llmTokensTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kortix",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kortix",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kortix",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kortix",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful search requests.",
		},
		[]string{"service", "endpoint"},
	)
	searchPathTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kortix",
			Subsystem: "search",
			Name:      "retrieval_path_total",
			Help:      "Retrieval tier served per branch.",
		},
		[]string{"service", "branch", "path"},
	)
	searchFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kortix",
			Subsystem: "search",
			Name:      "fallback_total",
			Help:      "Total searches answered by the broad recency fallback.",
		},
		[]string{"service", "endpoint"},
	)
	searchResultCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kortix",
			Subsystem: "search",
			Name:      "result_count",
			Help:      "Distribution of returned documents per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kortix",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	agenticRoundsTotal := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kortix",
			Subsystem: "agentic",
			Name:      "rounds",
			Help:      "Distribution of controller rounds per agentic search.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	agenticWebHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kortix",
			Subsystem: "agentic",
			Name:      "web_results_total",
			Help:      "Total web documents returned by escalation.",
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kortix",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Approximate token usage of the agentic controller.",
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchesTotal,
		searchPathTotal,
		searchFallbackTotal,
		searchResultCount,
		searchDuration,
		agenticRoundsTotal,
		agenticWebHitsTotal,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchesTotal:       searchesTotal,
		searchPathTotal:     searchPathTotal,
		searchFallbackTotal: searchFallbackTotal,
		searchResultCount:   searchResultCount,
		searchDuration:      searchDuration,
		agenticRoundsTotal:  agenticRoundsTotal,
		agenticWebHitsTotal: agenticWebHitsTotal,
		llmTokensTotal:      llmTokensTotal,
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

func (m *HTTPServerMetrics) RecordSearch(service, endpoint string, resultCount int, fallback bool, duration time.Duration) {
	m.searchesTotal.WithLabelValues(service, endpoint).Inc()
	m.searchResultCount.WithLabelValues(service, endpoint).Observe(float64(resultCount))
	m.searchDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if fallback {
		m.searchFallbackTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRetrievalPath(service, branch, path string) {
	if path == "" {
		path = "unknown"
	}
	m.searchPathTotal.WithLabelValues(service, branch, path).Inc()
}

func (m *HTTPServerMetrics) RecordAgenticRun(service string, rounds, webResults int) {
	if rounds > 0 {
		m.agenticRoundsTotal.WithLabelValues(service).Observe(float64(rounds))
	}
	if webResults > 0 {
		m.agenticWebHitsTotal.WithLabelValues(service).Add(float64(webResults))
	}
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, endpoint string, tokens int) {
	if tokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, endpoint).Add(float64(tokens))
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
