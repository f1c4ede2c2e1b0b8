package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded by the Prometheus middleware.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeThrown = "thrown"
)

// PrometheusOption configures the Prometheus middleware.
type PrometheusOption func(*prometheusConfig)

type prometheusConfig struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64
}

// WithRegisterer sets the registry the collectors are registered with.
// The default is prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) PrometheusOption {
	return func(c *prometheusConfig) {
		c.registerer = r
	}
}

// WithNamespace sets the metric namespace (default "mcpkit").
func WithNamespace(ns string) PrometheusOption {
	return func(c *prometheusConfig) {
		c.namespace = ns
	}
}

// WithBuckets sets the latency histogram buckets, in seconds.
func WithBuckets(b []float64) PrometheusOption {
	return func(c *prometheusConfig) {
		c.buckets = b
	}
}

// CallMetrics holds the collectors used by the Prometheus middleware.
type CallMetrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewCallMetrics creates and registers the call collectors. Collectors
// that are already registered are reused.
func NewCallMetrics(opts ...PrometheusOption) (*CallMetrics, error) {
	cfg := &prometheusConfig{
		registerer: prometheus.DefaultRegisterer,
		namespace:  "mcpkit",
		buckets:    prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "calls",
			Name:      "total",
			Help:      "Total number of calls by type, name and outcome",
		},
		[]string{"type", "name", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Subsystem: "calls",
			Name:      "duration_seconds",
			Help:      "Call latency",
			Buckets:   cfg.buckets,
		},
		[]string{"type", "name"},
	)

	m := &CallMetrics{Calls: calls, Duration: duration}
	if err := cfg.registerer.Register(calls); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.Calls = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := cfg.registerer.Register(duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.Duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

// Prometheus returns middleware recording every call in m.
func Prometheus(m *CallMetrics) Middleware {
	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			start := time.Now()
			res, err := next(ctx, call)

			outcome := OutcomeOK
			switch {
			case err != nil:
				outcome = OutcomeThrown
			case res != nil && res.IsError:
				outcome = OutcomeError
			}
			kind := call.Type.String()
			m.Calls.WithLabelValues(kind, call.Name, outcome).Inc()
			m.Duration.WithLabelValues(kind, call.Name).Observe(time.Since(start).Seconds())
			return res, err
		}
	}
}
