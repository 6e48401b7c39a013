package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	assignmentOps     *prometheus.CounterVec
	reportTransitions *prometheus.CounterVec
	shiftsCreated     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	assignmentOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_operations_total",
		Help: "Assignment engine operations by outcome",
	}, []string{"operation", "result"})

	reportTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_transitions_total",
		Help: "Report state machine transitions",
	}, []string{"transition"})

	shiftsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "night_shifts_materialized_total",
		Help: "Shift instances created by materialization runs",
	})

	registry.MustRegister(requestDuration, requestTotal, assignmentOps, reportTransitions, shiftsCreated)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		assignmentOps:     assignmentOps,
		reportTransitions: reportTransitions,
		shiftsCreated:     shiftsCreated,
	}
}

// Handler exposes the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records request latency and volume.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveAssignment counts an assignment engine operation.
func (s *MetricsService) ObserveAssignment(operation, result string) {
	s.assignmentOps.WithLabelValues(operation, result).Inc()
}

// ObserveReportTransition counts a state machine transition.
func (s *MetricsService) ObserveReportTransition(transition string) {
	s.reportTransitions.WithLabelValues(transition).Inc()
}

// AddShiftsMaterialized counts created shift instances.
func (s *MetricsService) AddShiftsMaterialized(n int) {
	if n > 0 {
		s.shiftsCreated.Add(float64(n))
	}
}
