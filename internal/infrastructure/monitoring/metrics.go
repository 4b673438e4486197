package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Evaluation metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	CyclesStarted      prometheus.Counter
	CyclesStale        prometheus.Counter
	BreakerTransitions *prometheus.CounterVec

	// Catalog metrics
	Snippets *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time
	snapshot  Snapshot
	mu        sync.RWMutex
}

// Snapshot holds running totals for the health endpoint
type Snapshot struct {
	TotalRequests    int64
	TotalErrors      int64
	Evaluations      int64
	StaleCycles      int64
	ActiveStreams    int64
	UptimeSeconds    float64
	MeanEvaluationMS float64

	evaluationSeconds float64
}

// NewMetrics registers every collector with reg. A nil reg uses a private
// registry so repeated construction in tests never collides.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snippetlab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snippetlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snippetlab_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snippetlab_evaluations_total",
				Help: "Snippet evaluations by category and result kind",
			},
			[]string{"category", "kind"},
		),
		EvaluationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snippetlab_evaluation_duration_seconds",
				Help:    "Snippet evaluation duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"category"},
		),
		CyclesStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "snippetlab_cycles_started_total",
				Help: "Evaluation cycles started by a selection",
			},
		),
		CyclesStale: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "snippetlab_cycles_stale_total",
				Help: "Evaluation cycles whose result was dropped because a newer selection superseded them",
			},
		),
		BreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snippetlab_breaker_transitions_total",
				Help: "Per-snippet circuit breaker state changes by target state",
			},
			[]string{"to"},
		),

		Snippets: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "snippetlab_snippets",
				Help: "Snippets in the catalog by category",
			},
			[]string{"category"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "snippetlab_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snippetlab_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEvaluation records one finished evaluation
func (m *Metrics) RecordEvaluation(category, kind string, duration time.Duration) {
	m.Evaluations.WithLabelValues(category, kind).Inc()
	m.EvaluationDuration.WithLabelValues(category).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Evaluations++
	m.snapshot.evaluationSeconds += duration.Seconds()
	m.mu.Unlock()
}

// IncCycles counts a started cycle
func (m *Metrics) IncCycles() {
	m.CyclesStarted.Inc()
}

// IncStale counts a dropped stale cycle
func (m *Metrics) IncStale() {
	m.CyclesStale.Inc()
	m.mu.Lock()
	m.snapshot.StaleCycles++
	m.mu.Unlock()
}

// RecordBreakerTransition counts a breaker state change
func (m *Metrics) RecordBreakerTransition(to string) {
	m.BreakerTransitions.WithLabelValues(to).Inc()
}

// SetSnippets sets the catalog size for a category
func (m *Metrics) SetSnippets(category string, count int) {
	m.Snippets.WithLabelValues(category).Set(float64(count))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveStreams++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveStreams--
	m.mu.Unlock()
}

// Snapshot returns the current running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	if s.Evaluations > 0 {
		s.MeanEvaluationMS = s.evaluationSeconds / float64(s.Evaluations) * 1000
	}
	return s
}
