// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	kerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/shipwright-io/nuget-publish/pkg/config"
	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
)

const (
	resultLabel     string = "result"
	repositoryLabel string = "repository"

	// JobName is the Pushgateway job the metrics are grouped under
	JobName = "nuget_publish"
)

// Pack results
const (
	PackSucceeded = "succeeded"
	PackFailed    = "failed"
)

var pushDurationBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}

// Metrics holds the Prometheus collectors of a publish run in a private registry
type Metrics struct {
	registry *prometheus.Registry

	packCount    *prometheus.CounterVec
	pushCount    *prometheus.CounterVec
	pushDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		packCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nuget_publish_projects_packed_total",
				Help: "Number of packed projects.",
			},
			[]string{resultLabel}),

		pushCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nuget_publish_pushes_total",
				Help: "Number of package pushes by result.",
			},
			[]string{repositoryLabel, resultLabel}),

		pushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nuget_publish_push_duration_seconds",
				Help:    "Package push duration in seconds.",
				Buckets: pushDurationBuckets,
			},
			[]string{repositoryLabel}),
	}

	m.registry.MustRegister(
		m.packCount,
		m.pushCount,
		m.pushDuration)

	return m
}

// Registry returns the registry the collectors are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PackCountInc increases the number of packed projects for the given result
func (m *Metrics) PackCountInc(result string) {
	m.packCount.WithLabelValues(result).Inc()
}

// PushObserve counts a push and records its duration
func (m *Metrics) PushObserve(repository string, result string, duration time.Duration) {
	m.pushCount.WithLabelValues(repository, result).Inc()
	m.pushDuration.WithLabelValues(repository).Observe(duration.Seconds())
}

// Export writes the metrics to the configured targets, both are optional
func (m *Metrics) Export(ctx context.Context, cfg config.MetricsConfig) error {
	var errs []error

	if cfg.File != "" {
		if err := prometheus.WriteToTextfile(cfg.File, m.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics to %s: %w", cfg.File, err))
		} else {
			ctxlog.Debug(ctx, "wrote metrics", "file", cfg.File)
		}
	}

	if cfg.PushgatewayURL != "" {
		if err := push.New(cfg.PushgatewayURL, JobName).Gatherer(m.registry).PushContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to push metrics to %s: %w", cfg.PushgatewayURL, err))
		} else {
			ctxlog.Debug(ctx, "pushed metrics", "pushgateway", cfg.PushgatewayURL)
		}
	}

	return kerrors.NewAggregate(errs)
}
