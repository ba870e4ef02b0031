// Package metrics exposes the orchestrator's Prometheus metrics (spec
// §11.3): the teacher's monitoring stack only ever queries an external
// Prometheus (pkg/monitoring/prometheus); here the same client_golang
// dependency is wired the other direction, to expose metrics for scraping.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/model"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/verdict"
	"github.com/jihwankim/cfgfuzz/pkg/worker"
)

// sanitizeLabel guards against a worker name that would make an invalid
// Prometheus label value (operators name node directories, not us), falling
// back to a fixed placeholder rather than letting WithLabelValues panic.
func sanitizeLabel(v string) string {
	if model.LabelValue(v).IsValid() {
		return v
	}
	return "invalid"
}

// Metrics holds the four named series of spec §11.3, registered against a
// dedicated registry so tests can construct independent instances.
type Metrics struct {
	registry        *prometheus.Registry
	roundsTotal     *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	consistentGauge prometheus.Gauge
	configPoolGauge *prometheus.GaugeVec
}

// New registers the metrics and returns a Metrics handle.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		roundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cfgfuzz_rounds_total",
			Help: "Total fuzz rounds completed, by worker and role.",
		}, []string{"worker", "role"}),
		failuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cfgfuzz_failures_total",
			Help: "Total failure classifications, by worker and config category.",
		}, []string{"worker", "category"}),
		consistentGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cfgfuzz_consistent_items",
			Help: "Current count of must-be-consistent configuration items.",
		}),
		configPoolGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cfgfuzz_config_pool_size",
			Help: "Current config_pool size, by worker.",
		}, []string{"worker"}),
	}
}

// ObserveRound records one completed round's outcome against the counters,
// installed as an orchestrator.Orchestrator.OnRound hook.
func (m *Metrics) ObserveRound(workerName string, role worker.Role, outcome worker.RoundOutcome) {
	workerName = sanitizeLabel(workerName)
	m.roundsTotal.WithLabelValues(workerName, role.String()).Inc()
	if outcome.Classification != verdict.Survived {
		cat := outcome.Category
		if cat == "" {
			cat = category.Other
		}
		m.failuresTotal.WithLabelValues(workerName, string(cat)).Inc()
	}
}

// SetConsistentItems sets the current must-be-consistent item count.
func (m *Metrics) SetConsistentItems(n int) {
	m.consistentGauge.Set(float64(n))
}

// SetConfigPoolSize sets the current config_pool size for one worker.
func (m *Metrics) SetConfigPoolSize(workerName string, size int) {
	m.configPoolGauge.WithLabelValues(sanitizeLabel(workerName)).Set(float64(size))
}

// Serve starts an HTTP server exposing the registry at /metrics on addr,
// blocking until ctx is cancelled, matching the goroutine-per-endpoint
// shape the teacher uses for its Prometheus-consuming collector
// (pkg/monitoring/collector).
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics: serving %q: %w", addr, err)
		}
		return nil
	}
}
