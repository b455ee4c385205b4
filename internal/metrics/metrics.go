// Package metrics exports sequencer activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/internal/cache"
)

const namespace = "narrator"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	lines       *prometheus.CounterVec
	scripts     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	dismissals  *prometheus.CounterVec
	state       *prometheus.GaugeVec
}

// New registers the narrator collectors plus the Go and process collectors
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		lines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Lines narrated, by mode and whether they were spoken or revealed",
		}, []string{"mode", "outcome"}),
		scripts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_total",
			Help:      "Scripts finished, by mode and outcome",
		}, []string{"mode", "outcome"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Sequencer state transitions",
		}, []string{"from", "to"}),
		dismissals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dismissals_total",
			Help:      "Panels closed without user input",
		}, []string{"mode"}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current sequencer state",
		}, []string{"state"}),
	}
}

// Hooks returns sequencer hooks that feed these metrics.
func (m *Metrics) Hooks() dialogue.Hooks {
	return dialogue.Hooks{
		OnStateChange: func(from, to dialogue.State) {
			m.transitions.WithLabelValues(from.String(), to.String()).Inc()
			m.state.WithLabelValues(from.String()).Set(0)
			m.state.WithLabelValues(to.String()).Set(1)
		},
		OnLine: func(mode dialogue.Mode, outcome string) {
			m.lines.WithLabelValues(mode.String(), outcome).Inc()
		},
		OnScript: func(mode dialogue.Mode, outcome string) {
			m.scripts.WithLabelValues(mode.String(), outcome).Inc()
		},
		OnDismiss: func(mode dialogue.Mode) {
			m.dismissals.WithLabelValues(mode.String()).Inc()
		},
	}
}

// WatchCache exports the tier counters of a speech cache.
func (m *Metrics) WatchCache(c *cache.Manager) {
	factory := promauto.With(m.registry)
	tier := func(name string, pick func(cache.Summary) cache.Stats) {
		labels := prometheus.Labels{"tier": name}
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Speech cache hits", ConstLabels: labels,
		}, func() float64 { return float64(pick(c.Summary()).Hits) })
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Speech cache misses", ConstLabels: labels,
		}, func() float64 { return float64(pick(c.Summary()).Misses) })
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "bytes",
			Help: "Bytes held in the speech cache", ConstLabels: labels,
		}, func() float64 { return float64(pick(c.Summary()).Size) })
	}
	tier("memory", func(s cache.Summary) cache.Stats { return s.Memory })
	if c.Summary().DiskTier {
		tier("disk", func(s cache.Summary) cache.Stats { return s.Disk })
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Metrics enabled", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
