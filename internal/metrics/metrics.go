// Package metrics turns the run event stream into Prometheus series.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/aithinkitive/ecare-e2e/internal/events"
)

const namespace = "ecare_e2e"

// Collector is an events.Sink backed by its own registry.
type Collector struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	stagesTotal    *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	lastRunSuccess prometheus.Gauge
}

// NewCollector creates and registers the scenario metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of workflow stages",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"stage", "outcome"}),
		stagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_total",
			Help:      "Total number of finished workflow stages",
		}, []string{"stage", "outcome"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of scenario runs",
		}, []string{"outcome"}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success_timestamp_seconds",
			Help:      "Unix time of the last passing run",
		}),
	}

	c.registry.MustRegister(
		c.stageDuration,
		c.stagesTotal,
		c.runsTotal,
		c.lastRunSuccess,
	)
	return c
}

// Emit implements events.Sink.
func (c *Collector) Emit(e events.Event) {
	if e.Outcome == events.Started {
		return
	}
	switch e.Kind {
	case events.KindStage:
		outcome := string(e.Outcome)
		c.stageDuration.WithLabelValues(e.Stage, outcome).Observe(e.Duration.Seconds())
		c.stagesTotal.WithLabelValues(e.Stage, outcome).Inc()
	case events.KindRun:
		c.runsTotal.WithLabelValues(string(e.Outcome)).Inc()
		if e.Outcome == events.Passed {
			c.lastRunSuccess.Set(float64(e.Time.Unix()))
		}
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Pushgateway, replacing the group for job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
