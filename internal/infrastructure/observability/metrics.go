package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Checkout metrics
	WorkflowsTotal        *prometheus.CounterVec
	WorkflowDuration      *prometheus.HistogramVec
	CompensationsTotal    *prometheus.CounterVec
	IntegrityIncidents    *prometheus.CounterVec
	ActiveCheckouts       prometheus.Gauge
	GatewayCallsTotal     *prometheus.CounterVec
	OrderServiceCallTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// Worker metrics
	WorkerMessagesProcessed  *prometheus.CounterVec
	WorkerProcessingDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		WorkflowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_workflows_total",
				Help:      "Checkout workflows by name and final saga state",
			},
			[]string{"workflow", "status"},
		),
		WorkflowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkout_workflow_duration_seconds",
				Help:      "Checkout workflow duration in seconds, including compensation",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"workflow", "status"},
		),
		CompensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_compensations_total",
				Help:      "Compensation attempts by workflow, step and outcome",
			},
			[]string{"workflow", "step", "outcome"},
		),
		IntegrityIncidents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "integrity_incidents_total",
				Help:      "Failed compensations escalated for manual recovery",
			},
			[]string{"workflow"},
		),
		ActiveCheckouts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_checkouts",
				Help:      "Number of checkout workflows currently running",
			},
		),
		GatewayCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_calls_total",
				Help:      "Payment gateway calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		OrderServiceCallTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_service_calls_total",
				Help:      "Order service calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
		WorkerMessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_messages_processed_total",
				Help:      "Total number of worker messages processed",
			},
			[]string{"stream", "status"},
		),
		WorkerProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_processing_duration_seconds",
				Help:      "Worker message processing duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stream"},
		),
	}

	reg.MustRegister(
		m.WorkflowsTotal,
		m.WorkflowDuration,
		m.CompensationsTotal,
		m.IntegrityIncidents,
		m.ActiveCheckouts,
		m.GatewayCallsTotal,
		m.OrderServiceCallTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.WorkerMessagesProcessed,
		m.WorkerProcessingDuration,
	)

	return m
}

func (m *Metrics) ObserveWorkflow(workflow, status string, duration time.Duration) {
	m.WorkflowsTotal.WithLabelValues(workflow, status).Inc()
	m.WorkflowDuration.WithLabelValues(workflow, status).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCompensation(workflow, step, outcome string) {
	m.CompensationsTotal.WithLabelValues(workflow, step, outcome).Inc()
}

func (m *Metrics) TrackActiveCheckout() func() {
	m.ActiveCheckouts.Inc()
	return m.ActiveCheckouts.Dec
}

func (m *Metrics) IncIntegrityIncidents(workflow string) {
	m.IntegrityIncidents.WithLabelValues(workflow).Inc()
}
