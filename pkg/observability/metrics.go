package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pkgerrors "recipegraph/pkg/errors"
)

// Recorder receives application measurements.
type Recorder interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	TraversalTruncated(reason string)
	IngestedRecord(outcome string)
}

// Collector exposes measurements in Prometheus format. It owns its
// registry so tests and multiple instances never collide.
type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	truncations       *prometheus.CounterVec
	ingested          *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector registers the graph metrics on a fresh registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Graph operations by outcome",
		}, []string{"operation", "status"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Graph operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
		truncations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traversal_truncated_total",
			Help:      "Traversals cut short by a work cap",
		}, []string{"reason"}),
		ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_records_total",
			Help:      "Recipe records processed by ingestion",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) ObserveOperation(operation string, duration time.Duration, err error) {
	c.operations.WithLabelValues(operation, Status(err)).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) TraversalTruncated(reason string) {
	c.truncations.WithLabelValues(reason).Inc()
}

func (c *Collector) IngestedRecord(outcome string) {
	c.ingested.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Status maps an error to a low-cardinality label value.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return strings.ToLower(string(appErr.Type))
	}
	return "error"
}

// Multi fans measurements out to several recorders.
type Multi []Recorder

func (m Multi) ObserveOperation(operation string, duration time.Duration, err error) {
	for _, r := range m {
		r.ObserveOperation(operation, duration, err)
	}
}

func (m Multi) TraversalTruncated(reason string) {
	for _, r := range m {
		r.TraversalTruncated(reason)
	}
}

func (m Multi) IngestedRecord(outcome string) {
	for _, r := range m {
		r.IngestedRecord(outcome)
	}
}
