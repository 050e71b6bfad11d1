package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the graph store.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Store operations
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Graph size
	Nodes   prometheus.Gauge
	Edges   prometheus.Gauge
	Schemas prometheus.Gauge

	// Reads
	TraversalVisited *prometheus.HistogramVec

	// Events
	EventsPublished *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Create a new registry for this collector
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of graph store operations",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Graph store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	nodes := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Number of nodes currently held",
		},
	)

	edges := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Number of edges currently held",
		},
	)

	schemas := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schemas",
			Help:      "Number of registered class schemas",
		},
	)

	traversalVisited := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "traversal_visited_nodes",
			Help:      "Nodes visited per traversal or path search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	eventsPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to the publisher",
		},
		[]string{"status"},
	)

	registry.MustRegister(
		operations,
		operationDuration,
		nodes,
		edges,
		schemas,
		traversalVisited,
		eventsPublished,
	)

	return &Collector{
		registry:          registry,
		Operations:        operations,
		OperationDuration: operationDuration,
		Nodes:             nodes,
		Edges:             edges,
		Schemas:           schemas,
		TraversalVisited:  traversalVisited,
		EventsPublished:   eventsPublished,
	}
}

// Registry returns the Prometheus registry backing this collector
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordOperation counts an operation and observes its latency
func (c *Collector) RecordOperation(operation string, start time.Time, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.Operations.WithLabelValues(operation, status).Inc()
	c.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetGraphSize updates the node and edge gauges
func (c *Collector) SetGraphSize(nodes, edges int) {
	if c == nil {
		return
	}
	c.Nodes.Set(float64(nodes))
	c.Edges.Set(float64(edges))
}

// SetSchemaCount updates the schema gauge
func (c *Collector) SetSchemaCount(n int) {
	if c == nil {
		return
	}
	c.Schemas.Set(float64(n))
}

// ObserveVisited records how many nodes a read touched
func (c *Collector) ObserveVisited(operation string, visited int) {
	if c == nil {
		return
	}
	c.TraversalVisited.WithLabelValues(operation).Observe(float64(visited))
}

// RecordPublish counts published events
func (c *Collector) RecordPublish(count int, err error) {
	if c == nil || count == 0 {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.EventsPublished.WithLabelValues(status).Add(float64(count))
}
