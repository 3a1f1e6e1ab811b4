// Package metrics exposes Prometheus metrics for the visualizer.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warehouse-visualizer/backend/internal/models"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Upstream metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// View metrics
	ViewsCreated  *prometheus.CounterVec
	ViewsRemoved  *prometheus.CounterVec
	RoutesApplied *prometheus.CounterVec
	RouteLength   *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, so tests can build
// as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of requests to the warehouse API",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Warehouse API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ViewsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "views_created_total",
				Help:      "View bootstrap attempts by outcome",
			},
			[]string{"outcome"},
		),
		ViewsRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "views_removed_total",
				Help:      "Views dropped by reason",
			},
			[]string{"reason"},
		),
		RoutesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_applied_total",
				Help:      "Routes marked on a grid by kind",
			},
			[]string{"kind"},
		),
		RouteLength: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "route_length_cells",
				Help:      "Number of cells in applied routes",
				Buckets:   prometheus.ExponentialBuckets(2, 2, 10),
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.UpstreamRequests,
		c.UpstreamDuration,
		c.ViewsCreated,
		c.ViewsRemoved,
		c.RoutesApplied,
		c.RouteLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// TrackActiveViews exports the result of count as a gauge.
func (c *Collector) TrackActiveViews(namespace string, count func() int) {
	if c == nil {
		return
	}
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_views",
			Help:      "Number of live warehouse views",
		},
		func() float64 { return float64(count()) },
	))
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies keyed by route pattern.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if c == nil {
				return next(ctx)
			}
			start := time.Now()
			// Errors are rendered here so the recorded status is the one sent.
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			status := ctx.Response().Status
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// ObserveUpstream records one warehouse API round trip. status 0 means no
// response was received.
func (c *Collector) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.UpstreamRequests.WithLabelValues(endpoint, label).Inc()
	c.UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ViewCreated counts a bootstrap attempt.
func (c *Collector) ViewCreated(outcome string) {
	if c == nil {
		return
	}
	c.ViewsCreated.WithLabelValues(outcome).Inc()
}

// ViewRemoved counts a dropped view.
func (c *Collector) ViewRemoved(reason string) {
	if c == nil {
		return
	}
	c.ViewsRemoved.WithLabelValues(reason).Inc()
}

// Record counts an applied route. It never fails.
func (c *Collector) Record(_ context.Context, route models.Route) error {
	if c == nil {
		return nil
	}
	c.RoutesApplied.WithLabelValues(string(route.Kind)).Inc()
	c.RouteLength.WithLabelValues(string(route.Kind)).Observe(float64(route.Length))
	return nil
}
